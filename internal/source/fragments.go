package source

import (
	"errors"
	"fmt"
	"sort"
)

// ErrBadFragments is returned by FragmentMap.Validate.
var ErrBadFragments = errors.New("source: fragment map is not contiguous")

// FragmentMap lists the fragments of a flattened text in order.
// Line ranges are contiguous, start at line 1 and do not overlap; byte
// ranges cover the text exactly.
type FragmentMap []Fragment

// Lines returns the total line count covered by the map.
func (m FragmentMap) Lines() int {
	if len(m) == 0 {
		return 0
	}
	return m[len(m)-1].End() - 1
}

// Size returns the total byte count covered by the map.
func (m FragmentMap) Size() int {
	if len(m) == 0 {
		return 0
	}
	last := m[len(m)-1]
	return last.Offset + last.Size
}

// Validate checks the contiguity invariants.
func (m FragmentMap) Validate() error {
	line, off := 1, 0
	for i, f := range m {
		if f.Start != line || f.Offset != off || f.Count < 0 || f.Size < 0 {
			return fmt.Errorf("%w: fragment %d starts at line %d offset %d, want %d/%d",
				ErrBadFragments, i, f.Start, f.Offset, line, off)
		}
		if f.Count == 0 && f.Size != 0 {
			return fmt.Errorf("%w: fragment %d has bytes but no lines", ErrBadFragments, i)
		}
		line += f.Count
		off += f.Size
	}
	return nil
}

// Locate returns the fragment holding line (1-based) of the flattened text.
func (m FragmentMap) Locate(line int) (Fragment, bool) {
	i := sort.Search(len(m), func(i int) bool { return m[i].End() > line })
	if i == len(m) || !m[i].Contains(line) {
		return Fragment{}, false
	}
	return m[i], true
}

// LocateOffset returns the fragment holding byte off of the flattened text.
func (m FragmentMap) LocateOffset(off int) (Fragment, bool) {
	i := sort.Search(len(m), func(i int) bool { return m[i].Offset+m[i].Size > off })
	if i == len(m) || off < m[i].Offset {
		return Fragment{}, false
	}
	return m[i], true
}
