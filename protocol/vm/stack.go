package vm

import "math"

func opDepth(e *Engine, inst Instruction) error {
	e.Push(NewInt(int64(e.current().Estack().Len())))
	return nil
}

func opDrop(e *Engine, inst Instruction) error {
	_, err := e.Pop()
	return err
}

func opNip(e *Engine, inst Instruction) error {
	_, err := e.current().Estack().Remove(1)
	return err
}

func opXDrop(e *Engine, inst Instruction) error {
	n, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	_, err = e.current().Estack().Remove(n)
	return err
}

func opClear(e *Engine, inst Instruction) error {
	e.current().Estack().Clear()
	return nil
}

func opDup(e *Engine, inst Instruction) error {
	return pick(e, 0)
}

func opOver(e *Engine, inst Instruction) error {
	return pick(e, 1)
}

func opPick(e *Engine, inst Instruction) error {
	n, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	return pick(e, n)
}

func pick(e *Engine, n int) error {
	it, err := e.Peek(n)
	if err != nil {
		return err
	}
	e.Push(it)
	return nil
}

func opTuck(e *Engine, inst Instruction) error {
	it, err := e.Peek(0)
	if err != nil {
		return err
	}
	return e.current().Estack().Insert(2, it)
}

func opSwap(e *Engine, inst Instruction) error {
	return e.current().Estack().Reverse(2)
}

func opRot(e *Engine, inst Instruction) error {
	return roll(e, 2)
}

func opRoll(e *Engine, inst Instruction) error {
	n, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	return roll(e, n)
}

// roll moves the item n positions below the top to the top.
func roll(e *Engine, n int) error {
	if n == 0 {
		return nil
	}
	it, err := e.current().Estack().Remove(n)
	if err != nil {
		return err
	}
	e.Push(it)
	return nil
}

func opReverse3(e *Engine, inst Instruction) error {
	return e.current().Estack().Reverse(3)
}

func opReverse4(e *Engine, inst Instruction) error {
	return e.current().Estack().Reverse(4)
}

func opReverseN(e *Engine, inst Instruction) error {
	n, err := e.popIntRange(0, math.MaxInt32)
	if err != nil {
		return err
	}
	return e.current().Estack().Reverse(n)
}
