package vm

import "github.com/onyx-protocol/neovm/errors"

func opNop(e *Engine, inst Instruction) error {
	return nil
}

// jump moves the current context delta bytes from the instruction
// being executed.
func (e *Engine) jump(delta int32) error {
	ctx := e.current()
	t, err := ctx.Script().target(ctx.ip, delta)
	if err != nil {
		return err
	}
	ctx.ip = t
	e.jumping = true
	return nil
}

func opJmp(e *Engine, inst Instruction) error {
	return e.jump(inst.offset())
}

func opJmpIf(e *Engine, inst Instruction) error {
	b, err := e.PopBool()
	if err != nil || !b {
		return err
	}
	return e.jump(inst.offset())
}

func opJmpIfNot(e *Engine, inst Instruction) error {
	b, err := e.PopBool()
	if err != nil || b {
		return err
	}
	return e.jump(inst.offset())
}

// opJmpCmp handles JMPEQ through JMPLE_L.
func opJmpCmp(e *Engine, inst Instruction) error {
	x2, err := e.PopInt()
	if err != nil {
		return err
	}
	x1, err := e.PopInt()
	if err != nil {
		return err
	}
	c := x1.Cmp(x2)
	var ok bool
	switch OP_JMPEQ + (inst.Op-OP_JMPEQ)&^1 {
	case OP_JMPEQ:
		ok = c == 0
	case OP_JMPNE:
		ok = c != 0
	case OP_JMPGT:
		ok = c > 0
	case OP_JMPGE:
		ok = c >= 0
	case OP_JMPLT:
		ok = c < 0
	case OP_JMPLE:
		ok = c <= 0
	}
	if !ok {
		return nil
	}
	return e.jump(inst.offset())
}

func opCall(e *Engine, inst Instruction) error {
	ctx := e.current()
	t, err := ctx.Script().target(ctx.ip, inst.offset())
	if err != nil {
		return err
	}
	_, err = e.LoadCall(t)
	return err
}

func opCallA(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	p, ok := it.(*Pointer)
	if !ok {
		return errors.WithDetailf(ErrInvalidCast, "CALLA on %s", it.Type())
	}
	if p.script != e.current().Script() {
		return errors.WithDetail(ErrBadValue, "pointer into another script")
	}
	_, err = e.LoadCall(p.pos)
	return err
}

func opAbort(e *Engine, inst Instruction) error {
	return ErrAbort
}

func opAbortMsg(e *Engine, inst Instruction) error {
	msg, err := e.PopBytes()
	if err != nil {
		return err
	}
	return errors.WithDetailf(ErrAbort, "%s", msg)
}

func opAssert(e *Engine, inst Instruction) error {
	b, err := e.PopBool()
	if err != nil {
		return err
	}
	if !b {
		return ErrAssertFailed
	}
	return nil
}

func opAssertMsg(e *Engine, inst Instruction) error {
	msg, err := e.PopBytes()
	if err != nil {
		return err
	}
	b, err := e.PopBool()
	if err != nil {
		return err
	}
	if !b {
		return errors.WithDetailf(ErrAssertFailed, "%s", msg)
	}
	return nil
}

// opRet returns from the current context. Its evaluation stack goes
// to the caller, or to the result stack from the outermost context,
// unless the two are shared.
func opRet(e *Engine, inst Instruction) error {
	ctx := e.current()
	dst := e.rstack
	if len(e.istack) > 1 {
		dst = e.istack[len(e.istack)-2].Estack()
	}
	if ctx.Estack() != dst {
		if ctx.rvcount >= 0 && ctx.Estack().Len() != ctx.rvcount {
			return errors.WithDetailf(ErrBadValue, "returning %d values, want %d", ctx.Estack().Len(), ctx.rvcount)
		}
		if err := ctx.Estack().moveTo(dst, -1); err != nil {
			return err
		}
	}
	e.unloadContext()
	if len(e.istack) == 0 {
		e.state = Halt
	}
	e.jumping = true
	return nil
}
