package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "call", "detail", "debug", "DEBUG"} {
		l, err := ParseLevel(s)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
		if l.String() != strings.ToLower(s) {
			t.Errorf("round trip %q -> %q", s, l.String())
		}
	}
	if l, err := ParseLevel(""); err != nil || l != LevelOff {
		t.Errorf("empty level = %v, %v", l, err)
	}
	if _, err := ParseLevel("phase"); err == nil {
		t.Errorf("ParseLevel(phase) should fail")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]StorageMode{"stream": ModeStream, "RING": ModeRing, "both": ModeBoth} {
		got, err := ParseMode(in)
		if err != nil || got != want || got.String() != strings.ToLower(in) {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode(""); err == nil {
		t.Errorf("empty mode must fail")
	}
}

func TestLevelFilter(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeSession, false},
		{LevelError, ScopeSession, false},
		{LevelCall, ScopeSession, true},
		{LevelCall, ScopeCall, true},
		{LevelCall, ScopeInvoke, false},
		{LevelDetail, ScopeInvoke, true},
		{LevelDetail, ScopeBuffer, false},
		{LevelDebug, ScopeBuffer, true},
		{LevelDebug, 0, false},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%v.ShouldEmit(%v) = %v", tt.level, tt.scope, got)
		}
	}
	failed := &Event{Kind: KindPoint, Scope: ScopeBuffer, Failed: true}
	if !LevelError.Allows(failed) || LevelOff.Allows(failed) {
		t.Errorf("failure points must pass every level but off")
	}
}

func TestStreamTracer_Spans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)

	call := Begin(tr, ScopeCall, "assemble", 0)
	inv := Begin(tr, ScopeInvoke, "invoke", call.ID(), Int("size", 4096))
	region := Begin(tr, ScopeBuffer, "alloc", inv.ID()) // отфильтруется
	region.End("")
	inv.Set(Str("cond", "ok")).End("ok")
	call.End("")
	if buf.Len() != 0 {
		t.Fatalf("stream must buffer until Flush")
	}
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if strings.Count(out, "\n") != 4 {
		t.Fatalf("expected 4 events, got:\n%s", out)
	}
	if !strings.Contains(out, "invoke (ok) ") || !strings.Contains(out, "ms size=4096 cond=ok\n") {
		t.Fatalf("missing detail/attrs:\n%s", out)
	}
	if strings.Contains(out, "alloc") {
		t.Fatalf("buffer scope leaked at detail level:\n%s", out)
	}
	if region.ID() != 0 {
		t.Fatalf("filtered span has id %d", region.ID())
	}
}

func TestStreamTracer_FailureFlushes(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelError, FormatNDJSON)
	Point(tr, ScopeCall, "ignored", "", 0)
	Fail(tr, ScopeCall, "assemble", "illegal instruction", 0, Int("line", 2))

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("output is not a single JSON line: %v\n%s", err, buf.String())
	}
	if ev["failed"] != true || ev["detail"] != "illegal instruction" || ev["scope"] != "call" {
		t.Fatalf("event = %v", ev)
	}
	if attrs, _ := ev["attrs"].(map[string]any); attrs["line"] != "2" {
		t.Fatalf("attrs = %v", ev["attrs"])
	}
}

func TestRingTracer_Wraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for i := range 5 {
		Point(r, ScopeBuffer, "p", string(rune('a'+i)), 0)
	}
	snap := r.Snapshot()
	if len(snap) != 3 || r.Len() != 3 || r.Dropped() != 2 {
		t.Fatalf("len = %d dropped = %d", len(snap), r.Dropped())
	}
	if snap[0].Detail != "c" || snap[2].Detail != "e" {
		t.Fatalf("order = %q %q %q", snap[0].Detail, snap[1].Detail, snap[2].Detail)
	}
	if snap[0].Seq >= snap[1].Seq {
		t.Fatalf("seq not increasing: %d %d", snap[0].Seq, snap[1].Seq)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump:\n%s", buf.String())
	}
}

func TestRingTracer_CopiesAttrs(t *testing.T) {
	r := NewRingTracer(4, LevelCall)
	attrs := []Attr{Int("n", 1)}
	Point(r, ScopeCall, "p", "", 0, attrs...)
	attrs[0].Value = "changed"
	if got := r.Snapshot()[0].Attrs[0].Value; got != "1" {
		t.Fatalf("stored attr = %q", got)
	}
}

func TestNewAndRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelCall, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeSession, "batch", 0).End("")
	r, ok := Ring(tr)
	if !ok || r.Len() != 2 {
		t.Fatalf("ring = %v, %v", r, ok)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatalf("stream got nothing")
	}
	if nop, _ := New(Config{}); nop.Enabled() {
		t.Fatalf("LevelOff must give the nop tracer")
	}
	if _, ok := Ring(NewStreamTracer(&buf, LevelCall, FormatText)); ok {
		t.Fatalf("a stream tracer has no ring")
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		f    Format
		path string
		want Format
	}{
		{FormatAuto, "trace.ndjson", FormatNDJSON},
		{FormatAuto, "trace.jsonl", FormatNDJSON},
		{FormatAuto, "-", FormatText},
		{FormatText, "trace.ndjson", FormatText},
	}
	for _, tt := range tests {
		if got := formatFor(tt.f, tt.path); got != tt.want {
			t.Errorf("formatFor(%v, %q) = %v", tt.f, tt.path, got)
		}
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context must give Nop")
	}
	r := NewRingTracer(4, LevelCall)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("tracer not propagated")
	}
	if FromContext(WithTracer(ctx, nil)) != Nop {
		t.Fatalf("nil tracer must become Nop")
	}
}

func TestHeartbeat(t *testing.T) {
	r := NewRingTracer(64, LevelCall)
	h := StartHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for r.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	if r.Len() == 0 {
		t.Fatalf("no heartbeat recorded")
	}
	var nilBeat *Heartbeat
	nilBeat.Stop()
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("heartbeat with tracing off")
	}
}
