package vm

import "github.com/onyx-protocol/neovm/errors"

// Slot is a fixed-size array of variables, initially Null.
type Slot struct {
	items []Item
	rc    *ReferenceCounter
}

func newSlot(n int, rc *ReferenceCounter) *Slot {
	s := &Slot{items: make([]Item, n), rc: rc}
	null := NewNull()
	for i := range s.items {
		s.items[i] = null
		rc.addRoot(null)
	}
	return s
}

// Len returns the number of variables.
func (s *Slot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Get returns variable i.
func (s *Slot) Get(i int) (Item, error) {
	if s == nil || i < 0 || i >= len(s.items) {
		return nil, errors.WithDetailf(ErrBadValue, "slot index %d of %d", i, s.Len())
	}
	return s.items[i], nil
}

// Set stores it in variable i.
func (s *Slot) Set(i int, it Item) error {
	if s == nil || i < 0 || i >= len(s.items) {
		return errors.WithDetailf(ErrBadValue, "slot index %d of %d", i, s.Len())
	}
	old := s.items[i]
	s.items[i] = it
	s.rc.addRoot(it)
	s.rc.removeRoot(old)
	return nil
}

// clear releases every variable.
func (s *Slot) clear() {
	if s == nil {
		return
	}
	for i, it := range s.items {
		s.rc.removeRoot(it)
		s.items[i] = nil
	}
	s.items = nil
}
