package engine

import (
	"fmt"
	"sync"
)

// MaxRegionSize caps a single allocation.
const MaxRegionSize = 1 << 30

// Heap allocates regions from Go memory. Pointers the engine stores inside
// such a region are plain offsets (Base is 0), which is what in-process
// engines expect. Heap tracks live allocations so callers and tests can
// verify nothing leaks.
type Heap struct {
	mu     sync.Mutex
	next   uint64
	live   map[uint64]int
	allocs uint64
	peak   int
}

// NewHeap returns an empty allocator.
func NewHeap() *Heap {
	return &Heap{next: 1, live: make(map[uint64]int, 4)}
}

type heapRegion struct {
	heap   *Heap
	handle uint64
	data   []byte
	freed  bool
}

// Alloc returns a zeroed region of size bytes.
func (h *Heap) Alloc(size int) (Region, error) {
	if size < 0 || size > MaxRegionSize {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := h.next
	h.next++
	h.live[handle] = size
	h.allocs++
	h.peak = max(h.peak, size)
	return &heapRegion{heap: h, handle: handle, data: make([]byte, size)}, nil
}

// Live reports the number of regions not yet freed.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// Allocs reports how many regions were handed out in total.
func (h *Heap) Allocs() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocs
}

// Peak reports the largest single region handed out.
func (h *Heap) Peak() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peak
}

func (r *heapRegion) Bytes() []byte { return r.data }

func (r *heapRegion) Base() uintptr { return 0 }

func (r *heapRegion) Free() error {
	r.heap.mu.Lock()
	defer r.heap.mu.Unlock()
	if r.freed {
		return fmt.Errorf("%w: handle %d", ErrDoubleFree, r.handle)
	}
	r.freed = true
	delete(r.heap.live, r.handle)
	r.data = nil
	return nil
}
