package vm

import "math/big"

func opInvert(e *Engine, inst Instruction) error {
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	return e.pushInt(new(big.Int).Not(x))
}

func opAnd(e *Engine, inst Instruction) error {
	return binaryInt(e, (*big.Int).And)
}

func opOr(e *Engine, inst Instruction) error {
	return binaryInt(e, (*big.Int).Or)
}

func opXor(e *Engine, inst Instruction) error {
	return binaryInt(e, (*big.Int).Xor)
}

func opEqual(e *Engine, inst Instruction) error {
	eq, err := popEqual(e)
	if err != nil {
		return err
	}
	e.Push(NewBool(eq))
	return nil
}

func opNotEqual(e *Engine, inst Instruction) error {
	eq, err := popEqual(e)
	if err != nil {
		return err
	}
	e.Push(NewBool(!eq))
	return nil
}

func popEqual(e *Engine) (bool, error) {
	x2, err := e.Pop()
	if err != nil {
		return false, err
	}
	x1, err := e.Pop()
	if err != nil {
		return false, err
	}
	return Equal(x1, x2, &e.limits)
}

// binaryInt pops x2 then x1 and pushes f(x1, x2).
func binaryInt(e *Engine, f func(z, x, y *big.Int) *big.Int) error {
	x2, err := e.PopInt()
	if err != nil {
		return err
	}
	x1, err := e.PopInt()
	if err != nil {
		return err
	}
	return e.pushInt(f(new(big.Int), x1, x2))
}

// unaryInt pops x and pushes f(x).
func unaryInt(e *Engine, f func(z, x *big.Int) *big.Int) error {
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	return e.pushInt(f(new(big.Int), x))
}
