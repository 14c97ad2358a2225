package vm

import (
	"math"
	"math/big"

	"github.com/onyx-protocol/neovm/errors"
)

// popCount pops an element count bounded by MaxItemCount.
func (e *Engine) popCount() (int, error) {
	n, err := e.PopInt()
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 {
		return 0, errors.WithDetailf(ErrBadValue, "negative count %s", n)
	}
	if !n.IsInt64() || n.Int64() > int64(e.limits.MaxItemCount) {
		return 0, errors.WithDetailf(ErrItemCountExceeded, "count %s", n)
	}
	return int(n.Int64()), nil
}

// index converts it to an index in [0, n).
func index(it Item, n int) (int, error) {
	i, err := ToBigInt(it)
	if err != nil {
		return 0, err
	}
	if !i.IsInt64() || i.Int64() < 0 || i.Int64() >= int64(n) {
		return 0, errors.WithDetailf(ErrBadValue, "index %s out of range [0, %d)", i, n)
	}
	return int(i.Int64()), nil
}

// stored returns the item to store in a compound: a clone for a
// Struct, it itself otherwise.
func (e *Engine) stored(it Item) (Item, error) {
	if s, ok := it.(*Struct); ok {
		return s.Clone(e.limits.MaxItemCount)
	}
	return it, nil
}

func opPackMap(e *Engine, inst Instruction) error {
	n, err := e.popCount()
	if err != nil {
		return err
	}
	if 2*n > e.current().Estack().Len() {
		return errors.WithDetailf(ErrStackUnderflow, "PACKMAP %d entries", n)
	}
	m := NewMap()
	for i := 0; i < n; i++ {
		k, err := e.Pop()
		if err != nil {
			return err
		}
		v, err := e.Pop()
		if err != nil {
			return err
		}
		if err := m.Set(k, v); err != nil {
			return err
		}
	}
	e.Push(m)
	return nil
}

// opPack handles PACK and PACKSTRUCT. The top item becomes element 0.
func opPack(e *Engine, inst Instruction) error {
	n, err := e.popCount()
	if err != nil {
		return err
	}
	if n > e.current().Estack().Len() {
		return errors.WithDetailf(ErrStackUnderflow, "%s %d items", inst.Op, n)
	}
	items := make([]Item, n)
	for i := range items {
		if items[i], err = e.Pop(); err != nil {
			return err
		}
	}
	if inst.Op == OP_PACKSTRUCT {
		e.Push(NewStruct(items...))
	} else {
		e.Push(NewArray(items...))
	}
	return nil
}

// opUnpack pushes the elements of a compound so that element 0 is on
// top, followed by the count. Map entries push the value, then the
// key.
func opUnpack(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	switch x := it.(type) {
	case *Map:
		for i := len(x.keys) - 1; i >= 0; i-- {
			e.Push(x.vals[i])
			e.Push(x.keys[i])
		}
		e.Push(NewInt(int64(len(x.keys))))
		return nil
	}
	a, ok := asArray(it)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "UNPACK on %s", it.Type())
	}
	for i := len(a.items) - 1; i >= 0; i-- {
		e.Push(a.items[i])
	}
	e.Push(NewInt(int64(len(a.items))))
	return nil
}

// opNewArray0 handles NEWARRAY0 and NEWSTRUCT0.
func opNewArray0(e *Engine, inst Instruction) error {
	if inst.Op == OP_NEWSTRUCT0 {
		e.Push(NewStruct())
	} else {
		e.Push(NewArray())
	}
	return nil
}

// opNewArray handles NEWARRAY, NEWARRAY_T and NEWSTRUCT. Every
// element is the same immutable default item.
func opNewArray(e *Engine, inst Instruction) error {
	t := AnyType
	if inst.Op == OP_NEWARRAY_T {
		t = Type(inst.Data[0])
		if !t.isValid() {
			return errors.WithDetailf(ErrBadValue, "NEWARRAY_T type 0x%02x", inst.Data[0])
		}
	}
	n, err := e.popCount()
	if err != nil {
		return err
	}
	items := make([]Item, n)
	if n > 0 {
		def := defaultItem(t)
		for i := range items {
			items[i] = def
		}
	}
	if inst.Op == OP_NEWSTRUCT {
		e.Push(NewStruct(items...))
	} else {
		e.Push(NewArray(items...))
	}
	return nil
}

func opNewMap(e *Engine, inst Instruction) error {
	e.Push(NewMap())
	return nil
}

func opSize(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	var n int
	switch x := it.(type) {
	case *Map:
		n = len(x.keys)
	case *Array:
		n = len(x.items)
	case *Struct:
		n = len(x.items)
	case *Buffer:
		n = len(x.b)
	default:
		b, err := ToBytes(it)
		if err != nil {
			return err
		}
		n = len(b)
	}
	e.Push(NewInt(int64(n)))
	return nil
}

func opHasKey(e *Engine, inst Instruction) error {
	key, err := e.Pop()
	if err != nil {
		return err
	}
	it, err := e.Pop()
	if err != nil {
		return err
	}
	var n int
	switch x := it.(type) {
	case *Map:
		_, ok, err := x.Get(key)
		if err != nil {
			return err
		}
		e.Push(NewBool(ok))
		return nil
	case *Array:
		n = len(x.items)
	case *Struct:
		n = len(x.items)
	case *Buffer:
		n = len(x.b)
	case *ByteString:
		n = len(x.b)
	default:
		return errors.WithDetailf(ErrInvalidCast, "HASKEY on %s", it.Type())
	}
	i, err := ToBigInt(key)
	if err != nil {
		return err
	}
	if i.Sign() < 0 {
		return errors.WithDetailf(ErrBadValue, "negative index %s", i)
	}
	e.Push(NewBool(i.Cmp(big.NewInt(int64(n))) < 0))
	return nil
}

func opKeys(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	m, ok := it.(*Map)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "KEYS on %s", it.Type())
	}
	e.Push(NewArray(append([]Item(nil), m.keys...)...))
	return nil
}

func opValues(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	var src []Item
	if m, ok := it.(*Map); ok {
		src = m.vals
	} else if a, ok := asArray(it); ok {
		src = a.items
	} else {
		return errors.WithDetailf(ErrInvalidCast, "VALUES on %s", it.Type())
	}
	items := make([]Item, len(src))
	for i, v := range src {
		if items[i], err = e.stored(v); err != nil {
			return err
		}
	}
	e.Push(NewArray(items...))
	return nil
}

func opPickItem(e *Engine, inst Instruction) error {
	key, err := e.Pop()
	if err != nil {
		return err
	}
	it, err := e.Pop()
	if err != nil {
		return err
	}
	switch x := it.(type) {
	case *Map:
		v, ok, err := x.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			return errors.WithDetailf(ErrBadValue, "key %s not found", key)
		}
		e.Push(v)
		return nil
	case *Array, *Struct:
		a, _ := asArray(x)
		i, err := index(key, len(a.items))
		if err != nil {
			return err
		}
		e.Push(a.items[i])
		return nil
	case *Boolean, *Integer, *ByteString, *Buffer:
		b, _ := ToBytes(x)
		i, err := index(key, len(b))
		if err != nil {
			return err
		}
		e.Push(NewInt(int64(b[i])))
		return nil
	}
	return errors.WithDetailf(ErrInvalidCast, "PICKITEM on %s", it.Type())
}

func opAppend(e *Engine, inst Instruction) error {
	v, err := e.Pop()
	if err != nil {
		return err
	}
	it, err := e.Pop()
	if err != nil {
		return err
	}
	a, ok := asArray(it)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "APPEND to %s", it.Type())
	}
	if len(a.items) >= e.limits.MaxItemCount {
		return errors.WithDetailf(ErrItemCountExceeded, "array of %d items", len(a.items))
	}
	if v, err = e.stored(v); err != nil {
		return err
	}
	a.Append(v)
	return nil
}

func opSetItem(e *Engine, inst Instruction) error {
	v, err := e.Pop()
	if err != nil {
		return err
	}
	key, err := e.Pop()
	if err != nil {
		return err
	}
	it, err := e.Pop()
	if err != nil {
		return err
	}
	switch x := it.(type) {
	case *Map:
		if v, err = e.stored(v); err != nil {
			return err
		}
		if _, ok, _ := x.Get(key); !ok && len(x.keys) >= e.limits.MaxItemCount {
			return errors.WithDetailf(ErrItemCountExceeded, "map of %d entries", len(x.keys))
		}
		return x.Set(key, v)
	case *Array, *Struct:
		a, _ := asArray(x)
		i, err := index(key, len(a.items))
		if err != nil {
			return err
		}
		if v, err = e.stored(v); err != nil {
			return err
		}
		a.SetAt(i, v)
		return nil
	case *Buffer:
		i, err := index(key, len(x.b))
		if err != nil {
			return err
		}
		n, err := ToBigInt(v)
		if err != nil {
			return err
		}
		if !n.IsInt64() || n.Int64() < math.MinInt8 || n.Int64() > math.MaxUint8 {
			return errors.WithDetailf(ErrBadValue, "byte value %s", n)
		}
		x.b[i] = byte(n.Int64())
		return nil
	}
	return errors.WithDetailf(ErrInvalidCast, "SETITEM on %s", it.Type())
}

func opReverseItems(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	if b, ok := it.(*Buffer); ok {
		reverse(b.b)
		return nil
	}
	a, ok := asArray(it)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "REVERSEITEMS on %s", it.Type())
	}
	a.Reverse()
	return nil
}

func opRemove(e *Engine, inst Instruction) error {
	key, err := e.Pop()
	if err != nil {
		return err
	}
	it, err := e.Pop()
	if err != nil {
		return err
	}
	if m, ok := it.(*Map); ok {
		_, err := m.Delete(key)
		return err
	}
	a, ok := asArray(it)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "REMOVE from %s", it.Type())
	}
	i, err := index(key, len(a.items))
	if err != nil {
		return err
	}
	a.RemoveAt(i)
	return nil
}

func opClearItems(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	if m, ok := it.(*Map); ok {
		m.Clear()
		return nil
	}
	a, ok := asArray(it)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "CLEARITEMS on %s", it.Type())
	}
	a.Clear()
	return nil
}

func opPopItem(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	a, ok := asArray(it)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "POPITEM on %s", it.Type())
	}
	if len(a.items) == 0 {
		return errors.WithDetail(ErrBadValue, "POPITEM on an empty array")
	}
	e.Push(a.RemoveAt(len(a.items) - 1))
	return nil
}
