// Package membuf owns the native regions of one assemble call and grows the
// work region when the engine runs out of memory.
package membuf

import (
	"errors"
	"fmt"

	"fasmgo/engine"
	"fasmgo/internal/trace"
)

const (
	// DefaultMemorySize is the first work region size, the value the flat
	// assembler's own DLL samples use.
	DefaultMemorySize = 0x5E8000
	// DefaultMaxGrowth is how many times the work region may double.
	DefaultMaxGrowth = 6
	// DefaultPasses is the pass limit handed to the engine.
	DefaultPasses = 100
)

var (
	// ErrExhausted is wrapped when the work region cannot grow any further.
	ErrExhausted = errors.New("membuf: work region growth exhausted")
	// ErrAlloc is wrapped when the engine allocator refuses a region.
	ErrAlloc = errors.New("membuf: region allocation failed")
)

// ExhaustedError reports the last size tried.
type ExhaustedError struct {
	Size     int
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v: %d attempt(s), last region %d bytes", ErrExhausted, e.Attempts, e.Size)
}

func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

// Negotiator runs the engine with a growing work region.
type Negotiator struct {
	Engine      engine.Engine
	InitialSize int
	MaxGrowth   int
	Passes      uint16
	Tracer      trace.Tracer
	// Parent is the span the invocations are nested under.
	Parent uint64
	// OnAttempt, when set, is called before every engine invocation.
	OnAttempt func(attempt, size int)
}

// Outcome is what survives the regions: everything is copied out before
// they are freed.
type Outcome struct {
	Raw      engine.Raw
	Output   []byte // nil unless Raw.Condition is ConditionOK
	Size     int    // work region size of the last attempt
	Attempts int
}

func (n *Negotiator) sizes() (initial, growth int) {
	initial, growth = n.InitialSize, n.MaxGrowth
	if initial <= 0 {
		initial = DefaultMemorySize
	}
	if growth < 0 {
		growth = 0
	}
	return initial, growth
}

// Run submits text to the engine. Every region is released before Run
// returns, on every path; release failures are joined into the error.
func (n *Negotiator) Run(text string) (out Outcome, err error) {
	tr := n.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	passes := n.Passes
	if passes == 0 {
		passes = DefaultPasses
	}
	initial, growth := n.sizes()

	src, err := n.Engine.Alloc(len(text) + 1)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: source region of %d bytes: %w", ErrAlloc, len(text)+1, err)
	}
	trace.Point(tr, trace.ScopeBuffer, "alloc", "source", n.Parent, trace.Int("size", len(text)+1))
	defer func() {
		err = errors.Join(err, release(tr, src, n.Parent))
	}()
	buf := src.Bytes()
	copy(buf, text)
	buf[len(text)] = 0

	size := initial
	for attempt := 0; ; attempt++ {
		out.Attempts = attempt + 1
		out.Size = size
		if n.OnAttempt != nil {
			n.OnAttempt(attempt, size)
		}

		raw, output, err := n.invoke(tr, src, size, passes)
		if err != nil {
			return out, err
		}
		if raw.Condition != engine.ConditionOutOfMemory {
			out.Raw, out.Output = raw, output
			return out, nil
		}

		next := size * 2
		if attempt >= growth || next > engine.MaxRegionSize {
			trace.Fail(tr, trace.ScopeInvoke, "exhausted", "", n.Parent, trace.Int("size", size), trace.Int("attempts", out.Attempts))
			return out, &ExhaustedError{Size: size, Attempts: out.Attempts}
		}
		trace.Point(tr, trace.ScopeInvoke, "retry", "", n.Parent, trace.Int("from", size), trace.Int("to", next))
		size = next
	}
}

// invoke runs one attempt with a fresh work region of size bytes.
func (n *Negotiator) invoke(tr trace.Tracer, src engine.Region, size int, passes uint16) (raw engine.Raw, output []byte, err error) {
	mem, err := n.Engine.Alloc(size)
	if err != nil {
		return engine.Raw{}, nil, fmt.Errorf("%w: work region of %d bytes: %w", ErrAlloc, size, err)
	}
	span := trace.Begin(tr, trace.ScopeInvoke, "invoke", n.Parent, trace.Int("size", size))
	defer func() {
		err = errors.Join(err, release(tr, mem, span.ID()))
	}()

	raw = engine.Invoke(n.Engine, src, mem, passes)
	span.End(raw.Condition.String())
	if raw.Condition == engine.ConditionOK {
		view, err := raw.Output(mem)
		if err != nil {
			return raw, nil, err
		}
		// копия: регион освобождается до возврата
		output = make([]byte, len(view))
		copy(output, view)
	}
	return raw, output, nil
}

func release(tr trace.Tracer, r engine.Region, parent uint64) error {
	size := len(r.Bytes())
	if err := r.Free(); err != nil {
		return fmt.Errorf("membuf: release: %w", err)
	}
	trace.Point(tr, trace.ScopeBuffer, "free", "", parent, trace.Int("size", size))
	return nil
}
