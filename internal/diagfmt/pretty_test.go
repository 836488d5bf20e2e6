package diagfmt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"fasmgo/engine"
	"fasmgo/internal/diag"
)

func illegalFailure() *diag.Failure {
	code := diag.FromError(engine.CodeIllegalInstruction)
	return &diag.Failure{
		Kind:      diag.KindIllegalInstruction,
		Code:      code,
		Condition: engine.ConditionError,
		Message:   code.Title(),
		Line:      2,
		Column:    1,
		Offset:    6,
		LocalLine: 2,
		Mnemonics: "use32\nretnj",
	}
}

func TestPretty_Caret(t *testing.T) {
	bag := diag.NewBag(4)
	bag.Add(illegalFailure().Diagnostic())

	var buf bytes.Buffer
	Pretty(&buf, bag, PrettyOpts{Source: "inline"})
	want := "inline:2:1: ERROR ERR0108: illegal instruction\n" +
		" 2 | retnj\n" +
		"   | ^~~~~\n"
	if buf.String() != want {
		t.Fatalf("output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPretty_PathModes(t *testing.T) {
	f := illegalFailure()
	f.Origin = "/home/user/project/src/boot.asm"
	d := f.Diagnostic()

	tests := []struct {
		name     string
		mode     PathMode
		base     string
		contains string
	}{
		{"absolute", PathModeAbsolute, "", "/home/user/project/src/boot.asm:2:1"},
		{"relative", PathModeRelative, "/home/user/project", "src/boot.asm:2:1"},
		{"basename", PathModeBasename, "", "boot.asm:2:1"},
		{"auto short", PathModeAuto, "", "/home/user/project/src/boot.asm:2:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag := diag.NewBag(1)
			bag.Add(d)
			var buf bytes.Buffer
			Pretty(&buf, bag, PrettyOpts{PathMode: tt.mode, BaseDir: tt.base})
			first, _, _ := strings.Cut(buf.String(), "\n")
			if !strings.HasPrefix(first, tt.contains+":") {
				t.Fatalf("first line = %q, want prefix %q", first, tt.contains)
			}
		})
	}
}

func TestPretty_AutoShortensLongPaths(t *testing.T) {
	got := formatPath("/very/long/absolute/path/to/some/nested/directory/file.asm", PathModeAuto, "")
	if got != "file.asm" {
		t.Fatalf("auto = %q", got)
	}
}

func TestPretty_Notes(t *testing.T) {
	f := illegalFailure()
	f.Macro = true
	f.Err = errors.New("extra context")
	bag := diag.NewBag(1)
	bag.Add(f.Diagnostic())

	var buf bytes.Buffer
	Pretty(&buf, bag, PrettyOpts{ShowNotes: true})
	out := buf.String()
	for _, want := range []string{"note: error inside a macro expansion", "note: extra context"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}

	buf.Reset()
	Pretty(&buf, bag, PrettyOpts{})
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes printed without ShowNotes:\n%s", buf.String())
	}
}

func TestPretty_NoLine(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.CodeGrowthExhausted, "output buffer growth limit reached"))
	var buf bytes.Buffer
	Pretty(&buf, bag, PrettyOpts{})
	if buf.String() != "<source>: ERROR LOC0001: output buffer growth limit reached\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestCaretLayout(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		col    int
		shown  string
		pad    int
		length int
	}{
		{"first token", "retnj", 1, "retnj", 0, 5},
		{"operand", "push ebq", 6, "push ebq", 5, 3},
		{"tab", "\tmov", 2, "    mov", 4, 3},
		{"wide", "db '日本' x", 13, "db '日本' x", 10, 1},
		{"past end", "nop", 9, "nop", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shown, pad, length := caretLayout(tt.text, tt.col)
			if shown != tt.shown || pad != tt.pad || length != tt.length {
				t.Fatalf("got %q %d %d, want %q %d %d", shown, pad, length, tt.shown, tt.pad, tt.length)
			}
		})
	}
}

func TestShort(t *testing.T) {
	bag := diag.NewBag(2)
	bag.Add(illegalFailure().Diagnostic())
	var buf bytes.Buffer
	Short(&buf, bag, PrettyOpts{Source: "a.asm"})
	if buf.String() != "a.asm:2:1: ERR0108 illegal instruction\n" {
		t.Fatalf("output = %q", buf.String())
	}
}
