package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"fasmgo/engine/enginetest"
	"fasmgo/internal/diag"
	"fasmgo/internal/driver"
	"fasmgo/internal/source"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) statuses(file string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.File == file {
			out = append(out, string(ev.Stage)+"/"+string(ev.Status))
		}
	}
	return out
}

func TestBuild_CollectsFailures(t *testing.T) {
	toy := enginetest.New()
	rec := &recorder{}
	res, err := Build(context.Background(), &Request{
		Jobs: []Job{
			{Name: "good", Text: "use32\npush eax\nretn"},
			{Name: "bad", Text: "use32\nretnj"},
			{Name: "also good", Text: "nop"},
		},
		Options:  driver.Options{Engine: toy, MemorySize: 1024, EnableTimings: true},
		Progress: rec,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Failed != 1 || res.Skipped != 0 || res.Bag.Len() != 1 {
		t.Fatalf("failed = %d skipped = %d bag = %d", res.Failed, res.Skipped, res.Bag.Len())
	}
	d := res.Bag.Items()[0]
	if d.Path != "bad" || d.Line != 2 || d.Kind != diag.KindIllegalInstruction {
		t.Fatalf("diagnostic = %+v", d)
	}
	if got := res.Jobs[0].Result.Output; !slices.Equal(got, []byte{0x50, 0xC3}) {
		t.Fatalf("first output = % x", got)
	}
	if res.Jobs[1].Result.Output != nil {
		t.Fatalf("failed job returned bytes")
	}

	want := []string{"load/queued", "load/working", "assemble/working", "translate/done"}
	if got := rec.statuses("good"); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if got := rec.statuses("bad"); got[len(got)-1] != "translate/error" {
		t.Fatalf("events = %v", got)
	}
	if last := rec.statuses(""); last[len(last)-1] != "batch/error" {
		t.Fatalf("batch events = %v", last)
	}
	if !res.Timings.Has(StageAssemble) || !res.Timings.Has(StageBatch) {
		t.Fatalf("timings missing stages")
	}
	if toy.Live() != 0 {
		t.Fatalf("%d region(s) leaked", toy.Live())
	}
}

func TestBuild_Growth(t *testing.T) {
	rec := &recorder{}
	res, err := Build(context.Background(), &Request{
		Jobs:     []Job{{Name: "big", Text: "times 100 nop"}},
		Options:  driver.Options{Engine: enginetest.New(), MemorySize: 64, MaxGrowth: 2},
		Progress: rec,
	})
	if err != nil || res.Failed != 0 {
		t.Fatalf("Build: %v failed=%d", err, res.Failed)
	}
	if !slices.Contains(rec.statuses("big"), "grow/working") {
		t.Fatalf("events = %v", rec.statuses("big"))
	}
}

func TestBuild_FailFast(t *testing.T) {
	toy := enginetest.New()
	res, err := Build(context.Background(), &Request{
		Jobs: []Job{
			{Name: "bad", Text: "retnj"},
			{Name: "later", Text: "nop"},
			{Name: "last", Text: "nop"},
		},
		Options:  driver.Options{Engine: toy, MemorySize: 1024},
		Parallel: 1,
		FailFast: true,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Failed != 1 || res.Skipped != 2 {
		t.Fatalf("failed = %d skipped = %d", res.Failed, res.Skipped)
	}
	if toy.Calls() != 1 {
		t.Fatalf("engine calls = %d", toy.Calls())
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Build(ctx, &Request{
		Jobs:    []Job{{Text: "nop"}, {Text: "nop"}},
		Options: driver.Options{Engine: enginetest.New(), MemorySize: 1024},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if res.Skipped != 2 {
		t.Fatalf("skipped = %d", res.Skipped)
	}
}

func TestBuild_Files(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.asm")
	b := filepath.Join(dir, "b.asm")
	if err := os.WriteFile(a, []byte("use32\npush eax\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("nop\nbogus\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	files := source.NewFileSet()
	res, err := Build(context.Background(), &Request{
		Jobs:     []Job{{Files: []string{a}}, {Files: []string{b}}, {Files: []string{a, b}}},
		Options:  driver.Options{Engine: enginetest.New(), MemorySize: 1024, Loader: files},
		Parallel: 1,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Failed != 2 {
		t.Fatalf("failed = %d", res.Failed)
	}
	for _, d := range res.Bag.Items() {
		if filepath.Base(d.Path) != "b.asm" || d.Line != 2 {
			t.Fatalf("diagnostic = %+v", d)
		}
	}
	if files.Reads() != 2 {
		t.Fatalf("reads = %d, want one per file", files.Reads())
	}
	if res.Jobs[0].Name != a || res.Jobs[2].Name != a+" (2)" {
		t.Fatalf("names = %q %q", res.Jobs[0].Name, res.Jobs[2].Name)
	}
}

func TestBuild_NoJobs(t *testing.T) {
	if _, err := Build(context.Background(), &Request{}); !errors.Is(err, ErrNoJobs) {
		t.Fatalf("err = %v", err)
	}
}

func TestJobNames(t *testing.T) {
	got := Names([]Job{{Name: "x"}, {Name: "x"}, {}, {Files: []string{"f.asm"}}})
	want := []string{"x", "x (2)", "job #3", "f.asm"}
	if !slices.Equal(got, want) {
		t.Fatalf("names = %q, want %q", got, want)
	}
}
