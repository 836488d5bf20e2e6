// Package trace records what assemble calls do, for diagnosing slow or
// failing builds.
//
//	fasmgo asm --trace=- --trace-level=detail main.asm
//
// Tracers: Nop when tracing is off, StreamTracer writes every event (text or
// NDJSON), RingTracer keeps the last N events for a dump after a failure.
// New combines the last two for ModeBoth.
//
// Scopes from coarse to fine are ScopeSession (a batch or a Session),
// ScopeCall (one assemble call), ScopeInvoke (one engine call) and
// ScopeBuffer (one region). LevelCall records down to calls, LevelDetail
// adds invocations, LevelDebug adds buffers. Failures pass every level
// except LevelOff.
//
//	span := trace.Begin(t, trace.ScopeInvoke, "invoke", parent, trace.Int("size", size))
//	defer span.End("ok")
package trace
