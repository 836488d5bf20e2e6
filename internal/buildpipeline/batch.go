// Package buildpipeline assembles several jobs in one batch, reporting
// progress per job and collecting failures into one diagnostics bag.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fasmgo/internal/diag"
	"fasmgo/internal/driver"
	"fasmgo/internal/source"
	"fasmgo/internal/trace"
)

// ErrNoJobs is returned for an empty batch.
var ErrNoJobs = errors.New("buildpipeline: nothing to assemble")

var errStopped = errors.New("buildpipeline: stopped after a failure")

// Job is one assemble call of the batch.
type Job struct {
	// Name labels the job in events and diagnostics; defaults to the
	// first file.
	Name      string
	Text      string
	Files     []string
	Origin    uint64
	HasOrigin bool
}

func (j Job) fill(b *source.Builder) error {
	if j.Text != "" {
		b.AddText(j.Text)
	}
	if len(j.Files) > 0 {
		return b.AddFiles(j.Files...)
	}
	return nil
}

// Request configures a batch.
type Request struct {
	Jobs    []Job
	Options driver.Options
	// Parallel bounds concurrent jobs; 0 means GOMAXPROCS. Engine calls
	// are serialised regardless, file loading is not.
	Parallel int
	// FailFast skips jobs not yet started after the first failure.
	FailFast       bool
	Progress       ProgressSink
	MaxDiagnostics int
}

// JobResult is the outcome of one job. Result is nil for skipped jobs.
type JobResult struct {
	Name    string
	Job     Job
	Result  *driver.Result
	Elapsed time.Duration
	Skipped bool
}

// Failed reports whether the job ran and failed.
func (r JobResult) Failed() bool { return r.Result != nil && r.Result.Failure != nil }

// Result is the outcome of a batch, jobs in request order.
type Result struct {
	Jobs    []JobResult
	Bag     *diag.Bag
	Timings Timings
	Failed  int
	Skipped int
}

// Build runs every job of req. Job failures end up in Result.Bag; the
// returned error is reserved for an empty batch and cancellation.
func Build(ctx context.Context, req *Request) (Result, error) {
	var out Result
	if req == nil || len(req.Jobs) == 0 {
		return out, ErrNoJobs
	}
	shared := *req
	if shared.Options.Loader == nil {
		// одно чтение на файл за всю сборку
		shared.Options.Loader = source.NewFileSet()
	}
	req = &shared
	tr := req.Options.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	names := jobNames(req.Jobs)
	emitQueued(req.Progress, names)

	span := trace.Begin(tr, trace.ScopeSession, "batch", req.Options.Parent)
	span.Set(trace.Int("jobs", len(req.Jobs)))
	start := time.Now()
	emit(req.Progress, Event{Stage: StageBatch, Status: StatusWorking})

	out.Jobs = make([]JobResult, len(req.Jobs))
	g, gctx := errgroup.WithContext(ctx)
	limit := req.Parallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for i, job := range req.Jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out.Jobs[i] = JobResult{Name: names[i], Job: job, Skipped: true}
				emit(req.Progress, Event{File: names[i], Stage: StageBatch, Status: StatusError, Err: err})
				return nil
			}
			// индекс i уникален, мьютекс не нужен
			out.Jobs[i] = runJob(req, job, names[i], span.ID())
			if req.FailFast && out.Jobs[i].Failed() {
				return fmt.Errorf("%w: %s", errStopped, names[i])
			}
			return nil
		})
	}
	waitErr := g.Wait()

	maxDiags := req.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = len(req.Jobs)
	}
	out.Bag = diag.NewBag(maxDiags)
	for _, jr := range out.Jobs {
		switch {
		case jr.Skipped:
			out.Skipped++
		case jr.Failed():
			out.Failed++
			d := jr.Result.Failure.Diagnostic()
			if d.Path == "" {
				d.Path = jr.Name
			}
			out.Bag.Add(d)
		}
		if jr.Result != nil {
			addTimings(&out.Timings, jr.Result)
		}
	}
	out.Bag.Sort()
	elapsed := time.Since(start)
	out.Timings.Set(StageBatch, elapsed)

	var err error
	if waitErr != nil && !errors.Is(waitErr, errStopped) {
		err = waitErr
	} else if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	status := StatusDone
	if err != nil || out.Bag.HasErrors() {
		status = StatusError
		span.MarkFailed()
	}
	emit(req.Progress, Event{Stage: StageBatch, Status: status, Err: err, Elapsed: elapsed})
	span.Set(trace.Int("failed", out.Failed), trace.Int("skipped", out.Skipped)).End(string(status))
	return out, err
}

func runJob(req *Request, job Job, name string, parent uint64) JobResult {
	opts := req.Options
	opts.Parent = parent
	next := opts.Observer
	opts.Observer = func(from, to driver.State) {
		if next != nil {
			next(from, to)
		}
		if stage, ok := stageOf(to); ok {
			emit(req.Progress, Event{File: name, Stage: stage, Status: StatusWorking})
		}
	}

	start := time.Now()
	res := driver.Assemble(opts, driver.Request{
		Name:      name,
		Fill:      job.fill,
		Origin:    job.Origin,
		HasOrigin: job.HasOrigin,
	})
	elapsed := time.Since(start)
	if res.Failure != nil {
		emit(req.Progress, Event{File: name, Stage: StageTranslate, Status: StatusError, Err: res.Failure, Elapsed: elapsed})
	} else {
		emit(req.Progress, Event{File: name, Stage: StageTranslate, Status: StatusDone, Elapsed: elapsed})
	}
	return JobResult{Name: name, Job: job, Result: res, Elapsed: elapsed}
}

func stageOf(s driver.State) (Stage, bool) {
	switch s {
	case driver.StateBuildingSource:
		return StageLoad, true
	case driver.StateInvoking:
		return StageAssemble, true
	case driver.StateRetrying:
		return StageGrow, true
	default:
		return "", false
	}
}

func addTimings(t *Timings, res *driver.Result) {
	for _, st := range res.Timings.Stages {
		dur := time.Duration(st.DurationMS * float64(time.Millisecond))
		switch {
		case st.Name == "build":
			t.Add(StageLoad, dur)
		case strings.HasPrefix(st.Name, "invoke"):
			t.Add(StageAssemble, dur)
		case st.Name == "translate":
			t.Add(StageTranslate, dur)
		}
	}
}

// jobNames returns a distinct display name per job.
func jobNames(jobs []Job) []string {
	names := make([]string, len(jobs))
	seen := make(map[string]int, len(jobs))
	for i, job := range jobs {
		name := job.Name
		if name == "" && len(job.Files) > 0 {
			name = job.Files[0]
		}
		if name == "" {
			name = "job #" + strconv.Itoa(i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s (%d)", name, n+1)
		} else {
			seen[name] = 1
		}
		names[i] = name
	}
	return names
}

// Names returns the display names Build uses for jobs, in order.
func Names(jobs []Job) []string { return jobNames(jobs) }

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}

func emitQueued(sink ProgressSink, names []string) {
	if sink == nil {
		return
	}
	for _, name := range names {
		sink.OnEvent(Event{File: name, Stage: StageLoad, Status: StatusQueued})
	}
}
