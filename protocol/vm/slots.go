package vm

import "github.com/onyx-protocol/neovm/errors"

func opInitSSlot(e *Engine, inst Instruction) error {
	ctx := e.current()
	if ctx.shared.statics != nil {
		return errors.WithDetail(ErrBadValue, "static slot already initialized")
	}
	n := inst.u8(0)
	if n == 0 {
		return errors.WithDetail(ErrBadValue, "INITSSLOT with no fields")
	}
	ctx.shared.statics = newSlot(n, e.rc)
	return nil
}

// opInitSlot allocates the local and argument slots. Arguments are
// popped so that the top of the stack becomes argument 0.
func opInitSlot(e *Engine, inst Instruction) error {
	ctx := e.current()
	if ctx.locals != nil || ctx.args != nil {
		return errors.WithDetail(ErrBadValue, "slots already initialized")
	}
	nlocals, nargs := inst.u8(0), inst.u8(1)
	if nlocals == 0 && nargs == 0 {
		return errors.WithDetail(ErrBadValue, "INITSLOT with no locals or arguments")
	}
	if ctx.Estack().Len() < nargs {
		return errors.WithDetailf(ErrStackUnderflow, "%d arguments, have %d items", nargs, ctx.Estack().Len())
	}
	if nlocals > 0 {
		ctx.locals = newSlot(nlocals, e.rc)
	}
	if nargs > 0 {
		ctx.args = newSlot(nargs, e.rc)
		for i := 0; i < nargs; i++ {
			it, err := e.Pop()
			if err != nil {
				return err
			}
			if err := ctx.args.Set(i, it); err != nil {
				return err
			}
		}
	}
	return nil
}

// slotOf returns the slot a load or store op addresses and the
// first of its numbered forms.
func slotOf(ctx *Context, op Op) (*Slot, Op) {
	switch {
	case op <= OP_LDSFLD:
		return ctx.shared.statics, OP_LDSFLD0
	case op <= OP_STSFLD:
		return ctx.shared.statics, OP_STSFLD0
	case op <= OP_LDLOC:
		return ctx.locals, OP_LDLOC0
	case op <= OP_STLOC:
		return ctx.locals, OP_STLOC0
	case op <= OP_LDARG:
		return ctx.args, OP_LDARG0
	}
	return ctx.args, OP_STARG0
}

func opLoadSlot(e *Engine, inst Instruction) error {
	slot, base := slotOf(e.current(), inst.Op)
	it, err := slot.Get(inst.slotIndex(base))
	if err != nil {
		return err
	}
	e.Push(it)
	return nil
}

func opStoreSlot(e *Engine, inst Instruction) error {
	slot, base := slotOf(e.current(), inst.Op)
	it, err := e.Pop()
	if err != nil {
		return err
	}
	return slot.Set(inst.slotIndex(base), it)
}
