package vm

import (
	"math"

	"github.com/onyx-protocol/neovm/errors"
)

func opNewBuffer(e *Engine, inst Instruction) error {
	n, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	if err := e.checkSize(n); err != nil {
		return err
	}
	e.Push(NewBuffer(n))
	return nil
}

// opMemcpy copies count bytes from src at si into the Buffer dst
// at di.
func opMemcpy(e *Engine, inst Instruction) error {
	count, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	si, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	src, err := e.PopBytes()
	if err != nil {
		return err
	}
	if si+count > len(src) {
		return errors.WithDetailf(ErrBadValue, "source range [%d, %d) of %d bytes", si, si+count, len(src))
	}
	di, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	it, err := e.Pop()
	if err != nil {
		return err
	}
	dst, ok := it.(*Buffer)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "MEMCPY into %s", it.Type())
	}
	if di+count > len(dst.b) {
		return errors.WithDetailf(ErrBadValue, "destination range [%d, %d) of %d bytes", di, di+count, len(dst.b))
	}
	copy(dst.b[di:di+count], src[si:si+count])
	return nil
}

func opCat(e *Engine, inst Instruction) error {
	x2, err := e.PopBytes()
	if err != nil {
		return err
	}
	x1, err := e.PopBytes()
	if err != nil {
		return err
	}
	if err := e.checkSize(len(x1) + len(x2)); err != nil {
		return err
	}
	b := make([]byte, 0, len(x1)+len(x2))
	b = append(append(b, x1...), x2...)
	e.Push(&Buffer{b: b})
	return nil
}

func opSubstr(e *Engine, inst Instruction) error {
	count, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	index, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	x, err := e.PopBytes()
	if err != nil {
		return err
	}
	if index+count > len(x) {
		return errors.WithDetailf(ErrBadValue, "range [%d, %d) of %d bytes", index, index+count, len(x))
	}
	e.Push(NewBufferBytes(x[index : index+count]))
	return nil
}

func opLeft(e *Engine, inst Instruction) error {
	count, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	x, err := e.PopBytes()
	if err != nil {
		return err
	}
	if count > len(x) {
		return errors.WithDetailf(ErrBadValue, "%d bytes of %d", count, len(x))
	}
	e.Push(NewBufferBytes(x[:count]))
	return nil
}

func opRight(e *Engine, inst Instruction) error {
	count, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	x, err := e.PopBytes()
	if err != nil {
		return err
	}
	if count > len(x) {
		return errors.WithDetailf(ErrBadValue, "%d bytes of %d", count, len(x))
	}
	e.Push(NewBufferBytes(x[len(x)-count:]))
	return nil
}
