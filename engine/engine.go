package engine

import (
	"errors"
	"sync"
)

// Engine is the raw call contract to an external flat assembler.
//
// Assemble receives a NUL-terminated source region and a work region. The
// engine writes a FASM_STATE header at the start of mem and returns the
// condition it also stored there. Engines never retry and never interpret
// their own results.
type Engine interface {
	Allocator

	// Version returns the packed engine version: major in the low word,
	// minor in the high word.
	Version() uint32

	// Assemble runs one assembly over src using mem as work and output memory.
	Assemble(src, mem Region, passes uint16) Condition
}

// Region is one block of memory handed across the engine boundary.
type Region interface {
	// Bytes exposes the block. The slice is invalid after Free.
	Bytes() []byte
	// Base is the address the engine sees for Bytes()[0]. Pointers stored by
	// the engine inside the block are relative to it.
	Base() uintptr
	// Free releases the block. A second call returns ErrDoubleFree.
	Free() error
}

// Allocator hands out regions the engine can address.
type Allocator interface {
	Alloc(size int) (Region, error)
}

var (
	// ErrDoubleFree is returned when a region is released twice.
	ErrDoubleFree = errors.New("engine: region already freed")
	// ErrBadSize is returned for negative or oversized allocations.
	ErrBadSize = errors.New("engine: invalid region size")
	// ErrUnavailable is returned when no engine backend can be reached.
	ErrUnavailable = errors.New("engine: assembler unavailable")
)

// engineMu serialises every call into any engine. The flat assembler keeps
// process-global state and is not reentrant.
var engineMu sync.Mutex

// Invoke calls e.Assemble under the engine lock and decodes the state the
// engine left in mem. The contents of mem are not modified.
func Invoke(e Engine, src, mem Region, passes uint16) Raw {
	engineMu.Lock()
	cond := e.Assemble(src, mem, passes)
	engineMu.Unlock()

	raw := decodeState(mem)
	// движок мог не записать заголовок (слишком маленький буфер), верим коду возврата
	raw.Condition = cond
	return raw
}

// QueryVersion asks the engine for its version under the engine lock.
func QueryVersion(e Engine) Version {
	engineMu.Lock()
	defer engineMu.Unlock()
	return UnpackVersion(e.Version())
}
