package source

import (
	"errors"
	"testing"
)

func TestFragmentMap_Locate(t *testing.T) {
	m := FragmentMap{
		{ID: 0, Start: 1, Count: 2, Offset: 0, Size: 10},
		{ID: 1, Start: 3, Count: 0, Offset: 10, Size: 0},
		{ID: 2, Start: 3, Count: 3, Offset: 10, Size: 12},
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	for line, want := range map[int]int{1: 0, 2: 0, 3: 2, 5: 2} {
		f, ok := m.Locate(line)
		if !ok || f.ID != want {
			t.Errorf("Locate(%d) = %d, %v; want %d", line, f.ID, ok, want)
		}
	}
	for _, line := range []int{0, 6, -1} {
		if _, ok := m.Locate(line); ok {
			t.Errorf("Locate(%d) should fail", line)
		}
	}
	if f, ok := m.LocateOffset(10); !ok || f.ID != 2 {
		t.Errorf("LocateOffset(10) = %d, %v", f.ID, ok)
	}
	if m.Lines() != 5 || m.Size() != 22 {
		t.Errorf("Lines = %d, Size = %d", m.Lines(), m.Size())
	}
}

func TestFragmentMap_Validate(t *testing.T) {
	bad := []FragmentMap{
		{{Start: 2, Count: 1, Size: 2}},
		{{Start: 1, Count: 1, Size: 2}, {Start: 3, Count: 1, Offset: 2, Size: 2}},
		{{Start: 1, Count: 1, Size: 2}, {Start: 2, Count: 1, Offset: 3, Size: 2}},
		{{Start: 1, Count: 0, Size: 2}},
	}
	for i, m := range bad {
		if err := m.Validate(); !errors.Is(err, ErrBadFragments) {
			t.Errorf("case %d: err = %v", i, err)
		}
	}
}
