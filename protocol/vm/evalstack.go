package vm

import "github.com/onyx-protocol/neovm/errors"

// Stack is an evaluation stack. Index 0 of Peek, Insert and Remove
// is the top.
type Stack struct {
	items []Item // items[len(items)-1] is the top
	rc    *ReferenceCounter
}

func newStack(rc *ReferenceCounter) *Stack {
	return &Stack{rc: rc}
}

// Len returns the number of items.
func (s *Stack) Len() int { return len(s.items) }

// Items returns the items, bottom first. The result must not be
// modified.
func (s *Stack) Items() []Item { return s.items }

// Push adds it on top.
func (s *Stack) Push(it Item) {
	s.items = append(s.items, it)
	s.rc.addRoot(it)
}

// Pop removes and returns the top item.
func (s *Stack) Pop() (Item, error) {
	if len(s.items) == 0 {
		return nil, ErrStackUnderflow
	}
	it := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	s.rc.removeRoot(it)
	return it, nil
}

// Peek returns the item n positions below the top.
func (s *Stack) Peek(n int) (Item, error) {
	if n < 0 {
		return nil, errors.WithDetailf(ErrBadValue, "negative stack index %d", n)
	}
	if n >= len(s.items) {
		return nil, errors.WithDetailf(ErrStackUnderflow, "index %d in stack of %d", n, len(s.items))
	}
	return s.items[len(s.items)-1-n], nil
}

// Insert places it so that n items are above it.
func (s *Stack) Insert(n int, it Item) error {
	if n < 0 {
		return errors.WithDetailf(ErrBadValue, "negative stack index %d", n)
	}
	if n > len(s.items) {
		return errors.WithDetailf(ErrStackUnderflow, "index %d in stack of %d", n, len(s.items))
	}
	i := len(s.items) - n
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = it
	s.rc.addRoot(it)
	return nil
}

// Remove deletes and returns the item n positions below the top.
func (s *Stack) Remove(n int) (Item, error) {
	if n < 0 {
		return nil, errors.WithDetailf(ErrBadValue, "negative stack index %d", n)
	}
	if n >= len(s.items) {
		return nil, errors.WithDetailf(ErrStackUnderflow, "index %d in stack of %d", n, len(s.items))
	}
	i := len(s.items) - 1 - n
	it := s.items[i]
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	s.rc.removeRoot(it)
	return it, nil
}

// Reverse reverses the order of the top n items.
func (s *Stack) Reverse(n int) error {
	if n < 0 {
		return errors.WithDetailf(ErrBadValue, "negative count %d", n)
	}
	if n > len(s.items) {
		return errors.WithDetailf(ErrStackUnderflow, "reverse %d in stack of %d", n, len(s.items))
	}
	for i, j := len(s.items)-n, len(s.items)-1; i < j; i, j = i+1, j-1 {
		s.items[i], s.items[j] = s.items[j], s.items[i]
	}
	return nil
}

// Clear removes every item.
func (s *Stack) Clear() {
	for i, it := range s.items {
		s.rc.removeRoot(it)
		s.items[i] = nil
	}
	s.items = s.items[:0]
}

// moveTo transfers the top n items to dst, keeping their order.
// A negative n moves everything.
func (s *Stack) moveTo(dst *Stack, n int) error {
	if n < 0 {
		n = len(s.items)
	}
	if n > len(s.items) {
		return errors.WithDetailf(ErrStackUnderflow, "move %d from stack of %d", n, len(s.items))
	}
	i := len(s.items) - n
	dst.items = append(dst.items, s.items[i:]...)
	for j := i; j < len(s.items); j++ {
		s.items[j] = nil
	}
	s.items = s.items[:i]
	return nil
}
