package driver

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"fasmgo/engine/enginetest"
	"fasmgo/internal/diag"
	"fasmgo/internal/source"
	"fasmgo/internal/trace"
)

func text(s string) func(*source.Builder) error {
	return func(b *source.Builder) error {
		b.AddText(s)
		return nil
	}
}

func TestAssemble_Success(t *testing.T) {
	toy := enginetest.New()
	res := Assemble(Options{Engine: toy, MemorySize: 1024, EnableTimings: true}, Request{Fill: text("use32\nretn")})
	if res.Err() != nil {
		t.Fatalf("Assemble: %v", res.Err())
	}
	if !bytes.Equal(res.Output, []byte{0xC3}) {
		t.Fatalf("output = % x", res.Output)
	}
	want := []State{StateIdle, StateBuildingSource, StateInvoking, StateSuccess}
	if !slices.Equal(res.States, want) {
		t.Fatalf("states = %v, want %v", res.States, want)
	}
	if len(res.Timings.Stages) != 3 {
		t.Fatalf("timings = %+v", res.Timings)
	}
	if toy.Live() != 0 {
		t.Fatalf("%d region(s) leaked", toy.Live())
	}
}

func TestAssemble_Retry(t *testing.T) {
	var seen []State
	res := Assemble(Options{
		Engine:     enginetest.New(),
		MemorySize: 64,
		MaxGrowth:  4,
		Observer:   func(_, to State) { seen = append(seen, to) },
	}, Request{Fill: text("times 100 nop")})
	if res.Err() != nil {
		t.Fatalf("Assemble: %v", res.Err())
	}
	want := []State{StateIdle, StateBuildingSource, StateInvoking, StateRetrying, StateInvoking, StateSuccess}
	if !slices.Equal(res.States, want) {
		t.Fatalf("states = %v, want %v", res.States, want)
	}
	if !slices.Equal(seen, want[1:]) {
		t.Fatalf("observer saw %v", seen)
	}
	if res.Attempts != 2 || res.Size != 128 || len(res.Output) != 100 {
		t.Fatalf("attempts = %d size = %d len = %d", res.Attempts, res.Size, len(res.Output))
	}
}

func TestAssemble_Exhausted(t *testing.T) {
	res := Assemble(Options{Engine: enginetest.New(), MemorySize: 32, MaxGrowth: 1}, Request{Fill: text("times 1000 nop")})
	if !errors.Is(res.Err(), diag.ErrOutOfMemory) {
		t.Fatalf("err = %v, want out of memory", res.Err())
	}
	if res.Output != nil {
		t.Fatalf("no bytes may be returned alongside an error")
	}
	if res.States[len(res.States)-1] != StateFailed {
		t.Fatalf("states = %v", res.States)
	}
}

func TestAssemble_EngineFailure(t *testing.T) {
	res := Assemble(Options{Engine: enginetest.New(), MemorySize: 1024}, Request{Fill: text("use32\nretnj")})
	f := res.Failure
	if f == nil || f.Kind != diag.KindIllegalInstruction || f.Line != 2 || f.Offset != 6 {
		t.Fatalf("failure = %+v", f)
	}
	if f.Mnemonics != "use32\nretnj" {
		t.Fatalf("mnemonics = %q", f.Mnemonics)
	}
}

func TestAssemble_Origin(t *testing.T) {
	res := Assemble(Options{Engine: enginetest.New(), MemorySize: 1024},
		Request{Fill: text("use32\njmp 0x2000"), Origin: 0x1000, HasOrigin: true})
	if res.Err() != nil {
		t.Fatalf("Assemble: %v", res.Err())
	}
	if !bytes.Equal(res.Output, []byte{0xE9, 0xFB, 0x0F, 0x00, 0x00}) {
		t.Fatalf("output = % x", res.Output)
	}
	if res.Document.Mnemonics != "use32\njmp 0x2000" {
		t.Fatalf("origin leaked into mnemonics: %q", res.Document.Mnemonics)
	}
}

func TestAssemble_OriginKeepsCallerLines(t *testing.T) {
	res := Assemble(Options{Engine: enginetest.New(), MemorySize: 1024},
		Request{Fill: text("use32\nretnj"), Origin: 0x400000, HasOrigin: true})
	if f := res.Failure; f == nil || f.Line != 2 || f.Offset != 6 {
		t.Fatalf("failure = %+v", f)
	}
}

func TestAssemble_InputFailures(t *testing.T) {
	res := Assemble(Options{Engine: enginetest.New()}, Request{Fill: func(b *source.Builder) error {
		return b.AddLine("pop {3}", "eax")
	}})
	if !errors.Is(res.Err(), diag.ErrSyntax) {
		t.Fatalf("err = %v, want syntax error", res.Err())
	}
	want := []State{StateIdle, StateBuildingSource, StateFailed}
	if !slices.Equal(res.States, want) {
		t.Fatalf("states = %v", res.States)
	}

	res = Assemble(Options{Engine: enginetest.New()}, Request{Fill: func(b *source.Builder) error {
		return b.AddFile(t.TempDir() + "/missing.asm")
	}})
	if !errors.Is(res.Err(), diag.ErrFileNotFound) {
		t.Fatalf("err = %v, want file not found", res.Err())
	}
}

func TestAssemble_EmptySourceReachesEngine(t *testing.T) {
	toy := enginetest.New()
	res := Assemble(Options{Engine: toy, MemorySize: 1024}, Request{})
	if res.Err() != nil {
		t.Fatalf("Assemble: %v", res.Err())
	}
	if toy.Calls() != 1 || res.Output == nil || len(res.Output) != 0 {
		t.Fatalf("calls = %d output = %v", toy.Calls(), res.Output)
	}
}

func TestAssemble_TraceSpans(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelDetail)
	Assemble(Options{Engine: enginetest.New(), MemorySize: 1024, Tracer: ring}, Request{Name: "unit", Fill: text("nop")})
	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Kind.String()+":"+ev.Name)
	}
	want := []string{"begin:unit", "begin:invoke", "end:invoke", "end:unit"}
	if !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
}

func TestCanTransition(t *testing.T) {
	if CanTransition(StateRetrying, StateBuildingSource) {
		t.Fatalf("retrying must never rebuild the source")
	}
	if !CanTransition(StateRetrying, StateInvoking) || StateSuccess.Terminal() != true {
		t.Fatalf("transition table")
	}
}
