package driver

import (
	"errors"
	"fmt"
	"strconv"

	"fasmgo/engine"
	"fasmgo/internal/diag"
	"fasmgo/internal/membuf"
	"fasmgo/internal/observ"
	"fasmgo/internal/source"
	"fasmgo/internal/trace"
)

// Options configure every call made through a driver.
type Options struct {
	Engine     engine.Engine
	MemorySize int
	MaxGrowth  int
	Passes     uint16
	Tracer     trace.Tracer
	Loader     source.LineLoader

	EnableTimings bool
	Observer      StateObserver
	// Parent nests call spans under an outer span (batch builds).
	Parent uint64
}

// Request describes one call.
type Request struct {
	// Name labels the call in traces.
	Name string
	// Fill adds the caller's input to the builder.
	Fill func(b *source.Builder) error
	// Origin, when HasOrigin is set, becomes an "org" prelude line.
	Origin    uint64
	HasOrigin bool
}

// Result is everything a call produced. Exactly one of Output and Failure
// is meaningful: Output is nil whenever Failure is set.
type Result struct {
	Output   []byte
	Failure  *diag.Failure
	Document *source.Document
	States   []State
	Attempts int
	Size     int
	Timings  observ.Report
}

// Err returns the failure as an error, or nil.
func (r *Result) Err() error {
	if r == nil || r.Failure == nil {
		return nil
	}
	return r.Failure
}

// OriginPrelude is the synthetic line placed before the caller's source for
// a load origin.
func OriginPrelude(origin uint64) string {
	return "org 0x" + strconv.FormatUint(origin, 16)
}

// Assemble runs one call: build the source, negotiate buffers with the
// engine, translate the outcome.
func Assemble(opts Options, req Request) *Result {
	tr := opts.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	name := req.Name
	if name == "" {
		name = "assemble"
	}
	var timer *observ.Timer
	if opts.EnableTimings {
		timer = observ.NewTimer()
	}

	m := newMachine(opts.Observer)
	res := &Result{}
	span := trace.Begin(tr, trace.ScopeCall, name, opts.Parent)
	defer func() {
		res.States = m.history
		res.Timings = timer.Report()
		if res.Failure != nil {
			span.MarkFailed()
			trace.Fail(tr, trace.ScopeCall, name, res.Failure.Error(), span.ID())
			span.End(res.Failure.Kind.String())
			return
		}
		span.Set(trace.Int("bytes", len(res.Output)), trace.Int("attempts", res.Attempts)).End("ok")
	}()

	fail := func(f *diag.Failure) *Result {
		m.to(StateFailed)
		res.Output = nil
		res.Failure = f
		return res
	}

	m.to(StateBuildingSource)
	idx := timer.Begin("build")
	b := source.NewBuilder(opts.Loader)
	if req.HasOrigin {
		b.Prelude(OriginPrelude(req.Origin))
	}
	if req.Fill != nil {
		if err := req.Fill(b); err != nil {
			timer.End(idx, "failed")
			return fail(inputFailure(err))
		}
	}
	doc := b.Build()
	res.Document = doc
	timer.End(idx, doc.String())
	if err := doc.Fragments.Validate(); err != nil {
		return fail(diag.BadState(doc, err))
	}

	neg := &membuf.Negotiator{
		Engine:      opts.Engine,
		InitialSize: opts.MemorySize,
		MaxGrowth:   opts.MaxGrowth,
		Passes:      opts.Passes,
		Tracer:      tr,
		Parent:      span.ID(),
	}
	invokeIdx := -1
	neg.OnAttempt = func(attempt, size int) {
		if attempt > 0 {
			timer.End(invokeIdx, "out of memory")
			m.to(StateRetrying)
		}
		m.to(StateInvoking)
		invokeIdx = timer.Begin("invoke #" + strconv.Itoa(attempt+1) + " " + strconv.Itoa(size))
	}

	out, err := neg.Run(doc.Text)
	res.Attempts, res.Size = out.Attempts, out.Size
	timer.End(invokeIdx, out.Raw.Condition.String())

	idx = timer.Begin("translate")
	defer timer.End(idx, "")
	var ex *membuf.ExhaustedError
	switch {
	case errors.As(err, &ex):
		return fail(diag.Exhausted(doc, ex.Size, ex.Attempts))
	case errors.Is(err, membuf.ErrAlloc):
		return fail(diag.AllocFailed(doc, err))
	case err != nil:
		return fail(diag.BadState(doc, err))
	case out.Raw.Condition != engine.ConditionOK:
		return fail(diag.Translate(out.Raw, doc))
	}

	m.to(StateSuccess)
	res.Output = out.Output
	if res.Output == nil {
		res.Output = []byte{}
	}
	return res
}

func inputFailure(err error) *diag.Failure {
	var f *diag.Failure
	switch {
	case errors.As(err, &f):
		return f
	case errors.Is(err, source.ErrFormat):
		return diag.BadFormat(err)
	default:
		var le *source.LoadError
		if errors.As(err, &le) {
			return diag.LoadFailed(err)
		}
		return diag.LoadFailed(fmt.Errorf("input: %w", err))
	}
}
