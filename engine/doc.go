// Package engine talks to the flat assembler.
//
// An Engine assembles a NUL-terminated source held in one Region into a work
// Region and reports a Condition. Everything else (output, error code, failing
// line) is encoded inside the work region using fasm's own FASM_STATE and
// LINE_HEADER layout and is read back with Invoke.
//
// The engine is not reentrant. Invoke and QueryVersion hold a process-wide
// lock for the whole call, regardless of how many Engine values exist.
//
// Three backends exist: Native links the fasm object library through cgo
// (build tag "fasm", 32-bit x86 only), Exec runs the fasm binary, and
// enginetest.Toy is an in-process stand-in for tests.
package engine
