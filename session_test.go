package fasmgo

import (
	"bytes"
	"errors"
	"slices"
	"testing"
)

func TestSession_Mnemonics(t *testing.T) {
	a, _ := toyAssembler(t)
	s := a.NewSession()
	for _, line := range []string{"push eax", "retn"} {
		if err := s.AddLine(line); err != nil {
			t.Fatalf("AddLine: %v", err)
		}
	}
	if got, want := s.Mnemonics(), "push eax"+LineSeparator+"retn"+LineSeparator; got != want {
		t.Fatalf("mnemonics = %q, want %q", got, want)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestSession_AddLineFormat(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   []any
		want   string
	}{
		{"plain", "push {0}", nil, "push {0}"},
		{"positional", "push {0}", []any{"eax"}, "push eax"},
		{"reordered", "db {1}, {0}", []any{1, 2}, "db 2, 1"},
		{"escaped", "db '{{{0}}}'", []any{"x"}, "db '{x}'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := toyAssembler(t)
			s := a.NewSession()
			if err := s.AddLine(tt.format, tt.args...); err != nil {
				t.Fatalf("AddLine: %v", err)
			}
			if got := s.Lines()[0]; got != tt.want {
				t.Fatalf("line = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSession_AddLineBadFormat(t *testing.T) {
	a, _ := toyAssembler(t)
	s := a.NewSession()
	err := s.AddLine("push {3}", "eax")
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("err = %v, want syntax error", err)
	}
	if s.Len() != 0 {
		t.Fatalf("a failed AddLine must not add a line")
	}
}

func TestSession_InsertLine(t *testing.T) {
	a, _ := toyAssembler(t)
	s := a.NewSession()
	_ = s.AddLine("nop")
	s.Clear()
	if s.Len() != 0 || s.Mnemonics() != "" {
		t.Fatalf("Clear left %q", s.Mnemonics())
	}
	if err := s.AddLine("pop eax"); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if err := s.InsertLine(0, "push {0}", "eax"); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}
	if err := s.InsertLine(0, "use32"); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}
	if want := []string{"use32", "push eax", "pop eax"}; !slices.Equal(s.Lines(), want) {
		t.Fatalf("lines = %q, want %q", s.Lines(), want)
	}
	code, err := s.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !bytes.Equal(code, []byte{0x50, 0x58}) {
		t.Fatalf("code = % x", code)
	}
}

func TestSession_InsertLineOutOfRange(t *testing.T) {
	a, _ := toyAssembler(t)
	s := a.NewSession()
	_ = s.AddLine("nop")
	for _, i := range []int{-1, 2} {
		err := s.InsertLine(i, "int3")
		var f *Failure
		if !errors.As(err, &f) || f.Kind != IndexOutOfRange || !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("InsertLine(%d) = %v", i, err)
		}
	}
	if err := s.InsertLine(1, "int3"); err != nil {
		t.Fatalf("InsertLine at Len: %v", err)
	}
	if want := []string{"nop", "int3"}; !slices.Equal(s.Lines(), want) {
		t.Fatalf("lines = %q", s.Lines())
	}
}

func TestSession_EmptyAfterClear(t *testing.T) {
	a, toy := toyAssembler(t)
	s := a.NewSession()
	_ = s.AddLine("nop")
	s.Clear()
	code, err := s.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if code == nil || len(code) != 0 {
		t.Fatalf("code = %v, want empty non-nil", code)
	}
	if toy.Calls() != 1 {
		t.Fatalf("empty source must still reach the engine, calls = %d", toy.Calls())
	}
}

func TestSession_AssembleAt(t *testing.T) {
	a, _ := toyAssembler(t)
	s := a.NewSession()
	_ = s.AddLine("use32")
	_ = s.AddLine("jmp 0x2000")
	before := s.Mnemonics()

	code, err := s.AssembleAt(0x1000)
	if err != nil {
		t.Fatalf("AssembleAt: %v", err)
	}
	if !bytes.Equal(code, []byte{0xE9, 0xFB, 0x0F, 0x00, 0x00}) {
		t.Fatalf("code = % x", code)
	}
	if s.Mnemonics() != before || s.Len() != 2 {
		t.Fatalf("AssembleAt changed the session: %q", s.Mnemonics())
	}
}

func TestSession_AssembleAtKeepsLines(t *testing.T) {
	a, _ := toyAssembler(t)
	s := a.NewSession()
	_ = s.AddLine("use32")
	_ = s.AddLine("retnj")

	_, err := s.AssembleAt(0x400000)
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("err = %v", err)
	}
	if f.Line != 2 || f.Offset != 6 {
		t.Fatalf("line = %d offset = %d, want 2 and 6", f.Line, f.Offset)
	}
	if f.Mnemonics != s.Mnemonics() {
		t.Fatalf("mnemonics = %q", f.Mnemonics)
	}
}

func TestSession_Result(t *testing.T) {
	a, _ := toyAssembler(t, WithTimings())
	s := a.NewSession()
	_ = s.AddLine("nop")
	res := s.Result()
	if res.Err() != nil || len(res.States) == 0 || len(res.Timings.Stages) == 0 {
		t.Fatalf("result = %+v", res)
	}
}
