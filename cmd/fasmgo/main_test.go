package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"fasmgo/engine"
	"fasmgo/engine/enginetest"
	"fasmgo/internal/diagfmt"
)

func useToy(t *testing.T) *enginetest.Toy {
	t.Helper()
	toy := enginetest.New()
	prev := openEngine
	openEngine = func(engine.Kind, string) (engine.Engine, error) { return toy, nil }
	t.Cleanup(func() { openEngine = prev })
	return toy
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	base := []string{"--color", "off"}
	if len(args) > 0 && args[0] == "asm" {
		base = append([]string{"asm", "--ui", "off", "--project", t.TempDir()}, base...)
		args = args[1:]
	}
	root.SetArgs(append(base, args...))
	err := root.Execute()
	teardownCommand()
	return stdout.String(), stderr.String(), err
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in       string
		terminal bool
		want     outputFormat
		ok       bool
	}{
		{"auto", true, formatHex, true},
		{"", false, formatBin, true},
		{"BIN", true, formatBin, true},
		{"json", false, formatJSON, true},
		{"mp", false, formatMsgpack, true},
		{"elf", false, "", false},
	}
	for _, tt := range tests {
		got, err := parseOutputFormat(tt.in, tt.terminal)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("parseOutputFormat(%q, %v) = %q, %v", tt.in, tt.terminal, got, err)
		}
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, "off": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Errorf("expected an error for an unknown mode")
	}
	if shouldUseTUI(uiModeAuto, false, 1) || !shouldUseTUI(uiModeOn, true, 1) || shouldUseTUI(uiModeOff, false, 5) {
		t.Errorf("shouldUseTUI ignores the mode")
	}
}

func TestBuildJobs(t *testing.T) {
	merged, err := buildJobs([]string{"a.asm", "-", "b.asm"}, &asmFlags{text: []string{"use32"}}, nil, strings.NewReader("nop\n"))
	if err != nil {
		t.Fatalf("buildJobs: %v", err)
	}
	if len(merged) != 1 || merged[0].Text != "use32\nnop" || !slices.Equal(merged[0].Files, []string{"a.asm", "b.asm"}) {
		t.Fatalf("merged = %+v", merged)
	}
	if merged[0].Name != "a.asm" {
		t.Fatalf("name = %q", merged[0].Name)
	}

	each, err := buildJobs([]string{"a.asm", "b.asm"}, &asmFlags{each: true, text: []string{"nop"}}, nil, nil)
	if err != nil {
		t.Fatalf("buildJobs: %v", err)
	}
	var names []string
	for _, j := range each {
		names = append(names, j.Name)
	}
	if !slices.Equal(names, []string{"<input>", "a.asm", "b.asm"}) {
		t.Fatalf("names = %q", names)
	}

	fromManifest, err := buildJobs(nil, &asmFlags{}, []string{"/p/boot.asm"}, nil)
	if err != nil || len(fromManifest) != 1 || fromManifest[0].Files[0] != "/p/boot.asm" {
		t.Fatalf("manifest jobs = %+v, %v", fromManifest, err)
	}

	if _, err := buildJobs(nil, &asmFlags{}, nil, nil); err == nil {
		t.Fatalf("expected an error without inputs")
	}
}

func TestBinaryName(t *testing.T) {
	tests := map[string]string{
		"src/boot.asm": "boot.bin",
		"kernel":       "kernel.bin",
		"<input>":      "input.bin",
	}
	for in, want := range tests {
		if got := binaryName(in); got != want {
			t.Errorf("binaryName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAsm_Hex(t *testing.T) {
	useToy(t)
	stdout, stderr, err := execute(t, "", "asm", "--format", "hex", "-e", "use32", "-e", "push eax", "-e", "pop eax")
	if err != nil {
		t.Fatalf("asm: %v\n%s", err, stderr)
	}
	if stdout != "50 58\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestAsm_Stdin(t *testing.T) {
	useToy(t)
	stdout, _, err := execute(t, "use32\nretn\n", "asm", "--format", "bin", "-")
	if err != nil {
		t.Fatalf("asm: %v", err)
	}
	if stdout != "\xC3" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestAsm_FailureReportsLine(t *testing.T) {
	useToy(t)
	src := writeSource(t, t.TempDir(), "bad.asm", "use32\nretnj\n")
	stdout, stderr, err := execute(t, "", "asm", "--format", "hex", src)
	if err == nil || !isReported(err) {
		t.Fatalf("err = %v, want a reported failure", err)
	}
	if stdout != "" {
		t.Fatalf("stdout = %q", stdout)
	}
	for _, want := range []string{"bad.asm:2:1", "ERR0108", "retnj"} {
		if !strings.Contains(stderr, want) {
			t.Fatalf("stderr lacks %q:\n%s", want, stderr)
		}
	}
}

func TestAsm_EachWritesFiles(t *testing.T) {
	useToy(t)
	dir := t.TempDir()
	a := writeSource(t, dir, "a.asm", "nop\n")
	b := writeSource(t, dir, "b.asm", "int3\n")
	out := filepath.Join(dir, "out")
	if _, stderr, err := execute(t, "", "asm", "--each", "--format", "bin", "-o", out, a, b); err != nil {
		t.Fatalf("asm: %v\n%s", err, stderr)
	}
	for name, want := range map[string][]byte{"a.bin": {0x90}, "b.bin": {0xCC}} {
		got, err := os.ReadFile(filepath.Join(out, name))
		if err != nil || !bytes.Equal(got, want) {
			t.Fatalf("%s = % x, %v", name, got, err)
		}
	}
}

func TestAsm_JSON(t *testing.T) {
	useToy(t)
	dir := t.TempDir()
	good := writeSource(t, dir, "good.asm", "use32\npush eax\n")
	bad := writeSource(t, dir, "bad.asm", "retnj\n")
	stdout, _, err := execute(t, "", "asm", "--each", "--format", "json", good, bad)
	if !errors.Is(err, errReported) {
		t.Fatalf("err = %v", err)
	}
	var doc diagfmt.ArtifactsOutput
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if doc.Engine != enginetest.DefaultVersion.String() || len(doc.Artifacts) != 2 {
		t.Fatalf("doc = %+v", doc)
	}
	if first := doc.Artifacts[0]; !first.OK || first.Hex != "50" || first.Attempts != 1 {
		t.Fatalf("first = %+v", first)
	}
	if second := doc.Artifacts[1]; second.OK || len(second.Diagnostics) != 1 || second.Diagnostics[0].Code != "ERR0108" {
		t.Fatalf("second = %+v", second)
	}
	if doc.Summary == nil || doc.Summary.Count != 1 || doc.Summary.Diagnostics[0].Location.Line != 1 {
		t.Fatalf("summary = %+v", doc.Summary)
	}
}

func TestAsm_Growth(t *testing.T) {
	toy := useToy(t)
	stdout, stderr, err := execute(t, "", "asm", "--format", "hex", "--memory", "64", "--max-growth", "3", "-e", "times 4 nop", "-e", "times 100 db 0")
	if err != nil {
		t.Fatalf("asm: %v\n%s", err, stderr)
	}
	if n := len(strings.Fields(stdout)); n != 104 {
		t.Fatalf("got %d byte(s)", n)
	}
	if toy.Calls() < 2 {
		t.Fatalf("calls = %d, want a retry", toy.Calls())
	}
}

func TestAsm_InvalidFlags(t *testing.T) {
	useToy(t)
	tests := [][]string{
		{"asm", "--passes", "0", "-e", "nop"},
		{"asm", "--memory", "-1", "-e", "nop"},
		{"asm", "--origin", "zz", "-e", "nop"},
		{"asm", "--engine", "wasm", "-e", "nop"},
		{"asm", "--format", "elf", "-e", "nop"},
	}
	for _, args := range tests {
		if _, _, err := execute(t, "", args...); err == nil || isReported(err) {
			t.Errorf("%v: err = %v", args, err)
		}
	}
}

func TestAsm_Origin(t *testing.T) {
	useToy(t)
	stdout, stderr, err := execute(t, "", "asm", "--format", "hex", "--origin", "1000h", "-e", "use32", "-e", "jmp 0x2000")
	if err != nil {
		t.Fatalf("asm: %v\n%s", err, stderr)
	}
	if stdout != "E9 FB 0F 00 00\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestVersion_JSON(t *testing.T) {
	useToy(t)
	stdout, _, err := execute(t, "", "version", "--format", "json", "--hash")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "fasmgo" || payload.Engine != enginetest.DefaultVersion.String() || payload.GitCommit != "unknown" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestVersion_EngineUnavailable(t *testing.T) {
	prev := openEngine
	openEngine = func(engine.Kind, string) (engine.Engine, error) { return nil, engine.ErrUnavailable }
	t.Cleanup(func() { openEngine = prev })
	stdout, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout, "flat assembler: unavailable") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestAsm_TimingsVerbose(t *testing.T) {
	useToy(t)
	_, stderr, err := execute(t, "", "asm", "--format", "hex", "--timings", "-v", "-e", "nop")
	if err != nil {
		t.Fatalf("asm: %v\n%s", err, stderr)
	}
	for _, want := range []string{"<input>:\n", "invoke #1", "translate", "total "} {
		if !strings.Contains(stderr, want) {
			t.Fatalf("stderr lacks %q:\n%s", want, stderr)
		}
	}
}
