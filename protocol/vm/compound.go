package vm

import (
	"fmt"

	"github.com/onyx-protocol/neovm/errors"
)

// Array is a mutable ordered sequence compared by identity.
// Once an Array is reachable from an engine, its mutation methods
// keep that engine's reference counter current.
type Array struct {
	header
	items []Item
	rc    *ReferenceCounter
}

// Struct is an Array compared by value. APPEND and SETITEM store
// a clone of a Struct operand, never the operand itself.
type Struct struct {
	Array
}

// NewArray returns an Array holding items.
func NewArray(items ...Item) *Array {
	return &Array{items: items}
}

// NewStruct returns a Struct holding items.
func NewStruct(items ...Item) *Struct {
	return &Struct{Array{items: items}}
}

func (*Array) Type() Type  { return ArrayType }
func (*Struct) Type() Type { return StructType }

func (a *Array) String() string  { return fmt.Sprintf("Array[%d]", len(a.items)) }
func (s *Struct) String() string { return fmt.Sprintf("Struct[%d]", len(s.items)) }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// At returns element i.
func (a *Array) At(i int) Item { return a.items[i] }

// Items returns the elements. The result must not be modified.
func (a *Array) Items() []Item { return a.items }

// Append adds it at the end.
func (a *Array) Append(it Item) {
	a.items = append(a.items, it)
	if a.rc != nil {
		a.rc.addParent(it)
	}
}

// SetAt replaces element i.
func (a *Array) SetAt(i int, it Item) {
	old := a.items[i]
	a.items[i] = it
	if a.rc != nil {
		a.rc.addParent(it)
		a.rc.removeParent(old)
	}
}

// RemoveAt deletes element i and returns it.
func (a *Array) RemoveAt(i int) Item {
	old := a.items[i]
	copy(a.items[i:], a.items[i+1:])
	a.items[len(a.items)-1] = nil
	a.items = a.items[:len(a.items)-1]
	if a.rc != nil {
		a.rc.removeParent(old)
	}
	return old
}

// Clear deletes every element.
func (a *Array) Clear() {
	old := a.items
	a.items = nil
	if a.rc != nil {
		for _, it := range old {
			a.rc.removeParent(it)
		}
	}
}

// Reverse reverses the elements in place.
func (a *Array) Reverse() {
	for i, j := 0, len(a.items)-1; i < j; i, j = i+1, j-1 {
		a.items[i], a.items[j] = a.items[j], a.items[i]
	}
}

// Clone returns a copy of s in which nested Structs are copied
// too and everything else is shared. At most limit elements are
// copied.
func (s *Struct) Clone(limit int) (*Struct, error) {
	result := &Struct{}
	type pair struct{ dst, src *Struct }
	queue := []pair{{result, s}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		p.dst.items = make([]Item, 0, len(p.src.items))
		for _, it := range p.src.items {
			limit--
			if limit < 0 {
				return nil, errors.WithDetail(ErrItemCountExceeded, "struct too large to clone")
			}
			if sub, ok := it.(*Struct); ok {
				c := &Struct{}
				p.dst.items = append(p.dst.items, c)
				queue = append(queue, pair{c, sub})
				continue
			}
			p.dst.items = append(p.dst.items, it)
		}
	}
	return result, nil
}

// asArray returns the sequence behind an Array or Struct.
func asArray(it Item) (*Array, bool) {
	switch x := it.(type) {
	case *Array:
		return x, true
	case *Struct:
		return &x.Array, true
	}
	return nil, false
}

// Map is an insertion-ordered mapping from primitive keys to items,
// compared by identity.
type Map struct {
	header
	keys  []Item
	vals  []Item
	index map[string]int
	rc    *ReferenceCounter
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

func (*Map) Type() Type       { return MapType }
func (m *Map) String() string { return fmt.Sprintf("Map[%d]", len(m.keys)) }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order. The result must not be
// modified.
func (m *Map) Keys() []Item { return m.keys }

// Values returns the values in key insertion order. The result must
// not be modified.
func (m *Map) Values() []Item { return m.vals }

// mapKey returns the index key of it. Keys must be primitive and at
// most MaxKeySize bytes.
func mapKey(it Item) (string, error) {
	if !isPrimitive(it) {
		return "", errors.WithDetailf(ErrInvalidCast, "%s cannot be a map key", it.Type())
	}
	b, err := ToBytes(it)
	if err != nil {
		return "", err
	}
	if len(b) > MaxKeySize {
		return "", errors.WithDetailf(ErrItemSizeExceeded, "map key of %d bytes", len(b))
	}
	return string(append([]byte{byte(it.Type())}, b...)), nil
}

// Get returns the value stored under key.
func (m *Map) Get(key Item) (Item, bool, error) {
	k, err := mapKey(key)
	if err != nil {
		return nil, false, err
	}
	i, ok := m.index[k]
	if !ok {
		return nil, false, nil
	}
	return m.vals[i], true, nil
}

// Set stores val under key, keeping the position of an existing key.
func (m *Map) Set(key, val Item) error {
	k, err := mapKey(key)
	if err != nil {
		return err
	}
	if i, ok := m.index[k]; ok {
		old := m.vals[i]
		m.vals[i] = val
		if m.rc != nil {
			m.rc.addParent(val)
			m.rc.removeParent(old)
		}
		return nil
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, val)
	if m.rc != nil {
		m.rc.addParent(key)
		m.rc.addParent(val)
	}
	return nil
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key Item) (bool, error) {
	k, err := mapKey(key)
	if err != nil {
		return false, err
	}
	i, ok := m.index[k]
	if !ok {
		return false, nil
	}
	oldKey, oldVal := m.keys[i], m.vals[i]
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.keys); j++ {
		kj, _ := mapKey(m.keys[j])
		m.index[kj] = j
	}
	if m.rc != nil {
		m.rc.removeParent(oldKey)
		m.rc.removeParent(oldVal)
	}
	return true, nil
}

// Clear removes every entry.
func (m *Map) Clear() {
	keys, vals := m.keys, m.vals
	m.keys, m.vals = nil, nil
	m.index = make(map[string]int)
	if m.rc != nil {
		for i := range keys {
			m.rc.removeParent(keys[i])
			m.rc.removeParent(vals[i])
		}
	}
}

// forEachChild calls f for every item directly held by it.
func forEachChild(it Item, f func(Item)) {
	switch x := it.(type) {
	case *Array:
		for _, c := range x.items {
			f(c)
		}
	case *Struct:
		for _, c := range x.items {
			f(c)
		}
	case *Map:
		for i := range x.keys {
			f(x.keys[i])
			f(x.vals[i])
		}
	}
}

// counter returns the reference counter field of a compound item,
// or nil for other items.
func counter(it Item) **ReferenceCounter {
	switch x := it.(type) {
	case *Array:
		return &x.rc
	case *Struct:
		return &x.rc
	case *Map:
		return &x.rc
	}
	return nil
}
