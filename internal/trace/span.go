package trace

import (
	"slices"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

func nextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a process-unique id, also used to number sessions.
func NextSpanID() uint64 { return spanCounter.Add(1) }

// Span is one traced operation between Begin and End. A Span from a
// disabled tracer is inert; every method is safe on it.
type Span struct {
	tracer Tracer
	id     uint64
	parent uint64
	scope  Scope
	name   string
	start  time.Time
	attrs  []Attr
	failed bool
}

// Begin opens a span under parent (0 for a root) and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64, attrs ...Attr) *Span {
	if !recording(t, scope) {
		return &Span{}
	}
	s := &Span{
		tracer: t,
		id:     NextSpanID(),
		parent: parent,
		scope:  scope,
		name:   name,
		start:  time.Now(),
		attrs:  slices.Clone(attrs),
	}
	t.Emit(&Event{
		Time:   s.start,
		Kind:   KindSpanBegin,
		Scope:  scope,
		SpanID: s.id,
		Parent: parent,
		Name:   name,
		Attrs:  s.attrs,
	})
	return s
}

// Set adds attributes reported with the end event.
func (s *Span) Set(attrs ...Attr) *Span {
	if s != nil && s.tracer != nil {
		s.attrs = append(s.attrs, attrs...)
	}
	return s
}

// MarkFailed flags the end event.
func (s *Span) MarkFailed() *Span {
	if s != nil {
		s.failed = true
	}
	return s
}

// ID is 0 for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// End emits the end event and returns how long the span was open.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	now := time.Now()
	elapsed := now.Sub(s.start)
	s.tracer.Emit(&Event{
		Time:    now,
		Kind:    KindSpanEnd,
		Scope:   s.scope,
		SpanID:  s.id,
		Parent:  s.parent,
		Name:    s.name,
		Detail:  detail,
		Failed:  s.failed,
		Elapsed: elapsed,
		Attrs:   s.attrs,
	})
	return elapsed
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string, parent uint64, attrs ...Attr) {
	if !recording(t, scope) {
		return
	}
	t.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: scope, Parent: parent, Name: name, Detail: detail, Attrs: attrs})
}

// Fail emits a failure point. It is recorded at every level except off.
func Fail(t Tracer, scope Scope, name, detail string, parent uint64, attrs ...Attr) {
	if t == nil || !t.Enabled() {
		return
	}
	t.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: scope, Parent: parent, Name: name, Detail: detail, Failed: true, Attrs: attrs})
}

func recording(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}
