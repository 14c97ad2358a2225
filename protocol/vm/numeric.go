package vm

import (
	"math/big"

	"github.com/onyx-protocol/neovm/errors"
)

func opSign(e *Engine, inst Instruction) error {
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	e.Push(NewInt(int64(x.Sign())))
	return nil
}

func opAbs(e *Engine, inst Instruction) error {
	return unaryInt(e, (*big.Int).Abs)
}

func opNegate(e *Engine, inst Instruction) error {
	return unaryInt(e, (*big.Int).Neg)
}

func opInc(e *Engine, inst Instruction) error {
	return unaryInt(e, func(z, x *big.Int) *big.Int { return z.Add(x, bigOne) })
}

func opDec(e *Engine, inst Instruction) error {
	return unaryInt(e, func(z, x *big.Int) *big.Int { return z.Sub(x, bigOne) })
}

func opAdd(e *Engine, inst Instruction) error {
	return binaryInt(e, (*big.Int).Add)
}

func opSub(e *Engine, inst Instruction) error {
	return binaryInt(e, (*big.Int).Sub)
}

func opMul(e *Engine, inst Instruction) error {
	return binaryInt(e, (*big.Int).Mul)
}

// opDiv and opMod truncate toward zero, so that
// x1 == (x1 / x2) * x2 + x1 % x2.
func opDiv(e *Engine, inst Instruction) error {
	return divide(e, (*big.Int).Quo)
}

func opMod(e *Engine, inst Instruction) error {
	return divide(e, (*big.Int).Rem)
}

func divide(e *Engine, f func(z, x, y *big.Int) *big.Int) error {
	x2, err := e.PopInt()
	if err != nil {
		return err
	}
	x1, err := e.PopInt()
	if err != nil {
		return err
	}
	if x2.Sign() == 0 {
		return ErrDivideByZero
	}
	return e.pushInt(f(new(big.Int), x1, x2))
}

func opPow(e *Engine, inst Instruction) error {
	exp, err := e.popIntRange(0, int64(e.limits.MaxShift))
	if err != nil {
		return err
	}
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	return e.pushInt(new(big.Int).Exp(x, big.NewInt(int64(exp)), nil))
}

func opSqrt(e *Engine, inst Instruction) error {
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	if x.Sign() < 0 {
		return errors.WithDetail(ErrBadValue, "square root of a negative number")
	}
	return e.pushInt(new(big.Int).Sqrt(x))
}

func opModMul(e *Engine, inst Instruction) error {
	m, err := e.PopInt()
	if err != nil {
		return err
	}
	x2, err := e.PopInt()
	if err != nil {
		return err
	}
	x1, err := e.PopInt()
	if err != nil {
		return err
	}
	if m.Sign() == 0 {
		return ErrDivideByZero
	}
	z := new(big.Int).Mul(x1, x2)
	return e.pushInt(z.Rem(z, m))
}

// opModPow computes value^exp mod m with the sign of value, or the
// modular inverse of value when exp is -1.
func opModPow(e *Engine, inst Instruction) error {
	m, err := e.PopInt()
	if err != nil {
		return err
	}
	exp, err := e.PopInt()
	if err != nil {
		return err
	}
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	if exp.Sign() < 0 {
		if exp.Cmp(big.NewInt(-1)) != 0 {
			return errors.WithDetailf(ErrBadValue, "exponent %s", exp)
		}
		if x.Sign() <= 0 || m.Cmp(big.NewInt(2)) < 0 {
			return errors.WithDetail(ErrBadValue, "modular inverse needs value > 0 and modulus >= 2")
		}
		z := new(big.Int).ModInverse(x, m)
		if z == nil {
			return errors.WithDetailf(ErrBadValue, "%s has no inverse modulo %s", x, m)
		}
		return e.pushInt(z)
	}
	if m.Sign() == 0 {
		return ErrDivideByZero
	}
	z := new(big.Int).Exp(new(big.Int).Abs(x), exp, new(big.Int).Abs(m))
	if x.Sign() < 0 && exp.Bit(0) == 1 {
		z.Neg(z)
	}
	return e.pushInt(z)
}

func opShl(e *Engine, inst Instruction) error {
	return shift(e, (*big.Int).Lsh)
}

func opShr(e *Engine, inst Instruction) error {
	return shift(e, (*big.Int).Rsh)
}

// shift leaves x in place for a shift of zero.
func shift(e *Engine, f func(z, x *big.Int, n uint) *big.Int) error {
	n, err := e.PopInt()
	if err != nil {
		return err
	}
	if n.Sign() < 0 || n.Cmp(big.NewInt(int64(e.limits.MaxShift))) > 0 {
		return errors.WithDetailf(ErrInvalidShiftAmount, "shift %s", n)
	}
	if n.Sign() == 0 {
		return nil
	}
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	return e.pushInt(f(new(big.Int), x, uint(n.Int64())))
}

func opNot(e *Engine, inst Instruction) error {
	b, err := e.PopBool()
	if err != nil {
		return err
	}
	e.Push(NewBool(!b))
	return nil
}

func opBoolAnd(e *Engine, inst Instruction) error {
	return binaryBool(e, func(a, b bool) bool { return a && b })
}

func opBoolOr(e *Engine, inst Instruction) error {
	return binaryBool(e, func(a, b bool) bool { return a || b })
}

func binaryBool(e *Engine, f func(a, b bool) bool) error {
	x2, err := e.PopBool()
	if err != nil {
		return err
	}
	x1, err := e.PopBool()
	if err != nil {
		return err
	}
	e.Push(NewBool(f(x1, x2)))
	return nil
}

func opNz(e *Engine, inst Instruction) error {
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	e.Push(NewBool(x.Sign() != 0))
	return nil
}

func opNumEqual(e *Engine, inst Instruction) error {
	return compareInt(e, func(c int) bool { return c == 0 })
}

func opNumNotEqual(e *Engine, inst Instruction) error {
	return compareInt(e, func(c int) bool { return c != 0 })
}

func compareInt(e *Engine, f func(c int) bool) error {
	x2, err := e.PopInt()
	if err != nil {
		return err
	}
	x1, err := e.PopInt()
	if err != nil {
		return err
	}
	e.Push(NewBool(f(x1.Cmp(x2))))
	return nil
}

// opCompare handles LT, LE, GT and GE. A Null operand compares
// false.
func opCompare(e *Engine, inst Instruction) error {
	y, err := e.Pop()
	if err != nil {
		return err
	}
	x, err := e.Pop()
	if err != nil {
		return err
	}
	_, xnull := x.(*Null)
	_, ynull := y.(*Null)
	if xnull || ynull {
		e.Push(NewBool(false))
		return nil
	}
	x1, err := ToBigInt(x)
	if err != nil {
		return err
	}
	x2, err := ToBigInt(y)
	if err != nil {
		return err
	}
	c := x1.Cmp(x2)
	var r bool
	switch inst.Op {
	case OP_LT:
		r = c < 0
	case OP_LE:
		r = c <= 0
	case OP_GT:
		r = c > 0
	case OP_GE:
		r = c >= 0
	}
	e.Push(NewBool(r))
	return nil
}

func opMin(e *Engine, inst Instruction) error {
	return binaryInt(e, func(z, x, y *big.Int) *big.Int {
		if x.Cmp(y) <= 0 {
			return z.Set(x)
		}
		return z.Set(y)
	})
}

func opMax(e *Engine, inst Instruction) error {
	return binaryInt(e, func(z, x, y *big.Int) *big.Int {
		if x.Cmp(y) >= 0 {
			return z.Set(x)
		}
		return z.Set(y)
	})
}

// opWithin pushes whether a <= x < b.
func opWithin(e *Engine, inst Instruction) error {
	b, err := e.PopInt()
	if err != nil {
		return err
	}
	a, err := e.PopInt()
	if err != nil {
		return err
	}
	x, err := e.PopInt()
	if err != nil {
		return err
	}
	e.Push(NewBool(a.Cmp(x) <= 0 && x.Cmp(b) < 0))
	return nil
}
