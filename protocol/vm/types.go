package vm

import "github.com/onyx-protocol/neovm/errors"

func opIsNull(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	_, ok := it.(*Null)
	e.Push(NewBool(ok))
	return nil
}

func opIsType(e *Engine, inst Instruction) error {
	t := Type(inst.Data[0])
	if t == AnyType || !t.isValid() {
		return errors.WithDetailf(ErrBadValue, "ISTYPE type 0x%02x", inst.Data[0])
	}
	it, err := e.Pop()
	if err != nil {
		return err
	}
	e.Push(NewBool(it.Type() == t))
	return nil
}

func opConvert(e *Engine, inst Instruction) error {
	t := Type(inst.Data[0])
	it, err := e.Pop()
	if err != nil {
		return err
	}
	r, err := Convert(it, t)
	if err != nil {
		return err
	}
	e.Push(r)
	return nil
}
