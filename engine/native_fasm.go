//go:build fasm && cgo && 386

package engine

/*
#cgo LDFLAGS: -lfasm
#include <stdlib.h>

int fasm_Assemble(char *source, unsigned char *memory, int size, int passes, int display_pipe);
unsigned int fasm_GetVersion(void);
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// Native calls the flat assembler object library linked into the process.
// Regions come from the C heap so the engine can keep raw pointers into them.
type Native struct {
	mu   sync.Mutex
	live int
}

// NewNative returns the linked engine.
func NewNative() *Native { return &Native{} }

type cRegion struct {
	owner *Native
	ptr   unsafe.Pointer
	size  int
	freed bool
}

// Alloc implements Allocator using C.malloc.
func (n *Native) Alloc(size int) (Region, error) {
	if size <= 0 || size > MaxRegionSize {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	ptr := C.malloc(C.size_t(size))
	if ptr == nil {
		return nil, fmt.Errorf("%w: malloc(%d) failed", ErrBadSize, size)
	}
	n.mu.Lock()
	n.live++
	n.mu.Unlock()
	return &cRegion{owner: n, ptr: ptr, size: size}, nil
}

// Live reports regions not yet freed.
func (n *Native) Live() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.live
}

func (r *cRegion) Bytes() []byte {
	if r.freed {
		return nil
	}
	return unsafe.Slice((*byte)(r.ptr), r.size)
}

func (r *cRegion) Base() uintptr { return uintptr(r.ptr) }

func (r *cRegion) Free() error {
	if r.freed {
		return ErrDoubleFree
	}
	r.freed = true
	C.free(r.ptr)
	r.owner.mu.Lock()
	r.owner.live--
	r.owner.mu.Unlock()
	return nil
}

// Version implements Engine.
func (n *Native) Version() uint32 {
	return uint32(C.fasm_GetVersion())
}

// Assemble implements Engine.
func (n *Native) Assemble(src, mem Region, passes uint16) Condition {
	s, ok := src.(*cRegion)
	m, ok2 := mem.(*cRegion)
	if !ok || !ok2 {
		return PutCondition(mem, ConditionInvalidParameter)
	}
	ret := C.fasm_Assemble((*C.char)(s.ptr), (*C.uchar)(m.ptr), C.int(m.size), C.int(passes), 0)
	return Condition(int32(ret))
}

func init() {
	nativeEngine = func() (Engine, error) { return NewNative(), nil }
}
