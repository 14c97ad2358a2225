package vm

import "github.com/onyx-protocol/neovm/errors"

// TryState is the progress of a TryFrame.
type TryState uint8

const (
	TryBlock TryState = iota
	CatchBlock
	FinallyBlock
)

func (s TryState) String() string {
	switch s {
	case TryBlock:
		return "Try"
	case CatchBlock:
		return "Catch"
	case FinallyBlock:
		return "Finally"
	}
	return "TryState(?)"
}

// TryFrame is the state of one TRY block. Absent pointers are -1.
type TryFrame struct {
	CatchPointer   int
	FinallyPointer int
	EndPointer     int
	State          TryState
}

func (t *TryFrame) hasCatch() bool   { return t.CatchPointer >= 0 }
func (t *TryFrame) hasFinally() bool { return t.FinallyPointer >= 0 }

// throw makes it the pending exception and transfers control to the
// innermost handler. cause is the fault that produced it, if any.
func (e *Engine) throw(it Item, cause error) {
	e.setUncaught(it, cause)
	e.handleException()
}

func (e *Engine) setUncaught(it Item, cause error) {
	if e.uncaught != nil {
		e.rc.removeRoot(e.uncaught)
	}
	e.uncaught, e.uncaughtCause = it, cause
	if it != nil {
		e.rc.addRoot(it)
	}
}

// handleException searches the try stacks of the invocation stack,
// innermost first. Frames already in their catch block (with no
// finally) or their finally block are discarded. Contexts above the
// handler are unloaded.
func (e *Engine) handleException() {
	for i := len(e.istack) - 1; i >= 0; i-- {
		ctx := e.istack[i]
		for len(ctx.tries) > 0 {
			t := ctx.tries[len(ctx.tries)-1]
			if t.State == FinallyBlock || (t.State == CatchBlock && !t.hasFinally()) {
				ctx.tries = ctx.tries[:len(ctx.tries)-1]
				continue
			}
			for len(e.istack) > i+1 {
				e.unloadContext()
			}
			if t.State == TryBlock && t.hasCatch() {
				t.State = CatchBlock
				ctx.Estack().Push(e.uncaught)
				e.setUncaught(nil, nil)
				ctx.ip = t.CatchPointer
			} else {
				t.State = FinallyBlock
				ctx.ip = t.FinallyPointer
			}
			e.jumping = true
			return
		}
	}

	cause := e.uncaughtCause
	if cause == nil {
		cause = errors.WithDetailf(ErrUncaughtException, "%s", exceptionMessage(e.uncaught))
	}
	e.setFault(cause)
}

// exceptionMessage renders an exception item for a fault message.
func exceptionMessage(it Item) string {
	if it == nil {
		return "<nil>"
	}
	if b, ok := it.(*ByteString); ok {
		return string(b.b)
	}
	return it.String()
}

func opTry(e *Engine, inst Instruction) error {
	ctx := e.current()
	if len(ctx.tries) >= e.limits.MaxTryNestingDepth {
		return errors.WithDetailf(ErrBadValue, "try nesting depth %d exceeded", e.limits.MaxTryNestingDepth)
	}
	c, f := inst.tryOffsets()
	if c == 0 && f == 0 {
		return errors.WithDetail(ErrBadValue, "TRY with neither catch nor finally")
	}
	frame := &TryFrame{CatchPointer: -1, FinallyPointer: -1, EndPointer: -1}
	if c != 0 {
		t, err := ctx.Script().target(ctx.ip, c)
		if err != nil {
			return err
		}
		frame.CatchPointer = t
	}
	if f != 0 {
		t, err := ctx.Script().target(ctx.ip, f)
		if err != nil {
			return err
		}
		frame.FinallyPointer = t
	}
	ctx.tries = append(ctx.tries, frame)
	return nil
}

func opEndTry(e *Engine, inst Instruction) error {
	ctx := e.current()
	if len(ctx.tries) == 0 {
		return errors.WithDetail(ErrBadValue, "ENDTRY outside of a try block")
	}
	t := ctx.tries[len(ctx.tries)-1]
	if t.State == FinallyBlock {
		return errors.WithDetail(ErrBadValue, "ENDTRY inside a finally block")
	}
	end, err := ctx.Script().target(ctx.ip, inst.offset())
	if err != nil {
		return err
	}
	if t.hasFinally() {
		t.State = FinallyBlock
		t.EndPointer = end
		ctx.ip = t.FinallyPointer
	} else {
		ctx.tries = ctx.tries[:len(ctx.tries)-1]
		ctx.ip = end
	}
	e.jumping = true
	return nil
}

func opEndFinally(e *Engine, inst Instruction) error {
	ctx := e.current()
	if len(ctx.tries) == 0 {
		return errors.WithDetail(ErrBadValue, "ENDFINALLY outside of a try block")
	}
	t := ctx.tries[len(ctx.tries)-1]
	if t.State != FinallyBlock {
		return errors.WithDetail(ErrBadValue, "ENDFINALLY outside of a finally block")
	}
	ctx.tries = ctx.tries[:len(ctx.tries)-1]
	if e.uncaught == nil {
		if t.EndPointer < 0 {
			return errors.WithDetail(ErrBadValue, "ENDFINALLY with no pending exception or end")
		}
		ctx.ip = t.EndPointer
		e.jumping = true
		return nil
	}
	e.handleException()
	return nil
}

func opThrow(e *Engine, inst Instruction) error {
	it, err := e.Pop()
	if err != nil {
		return err
	}
	e.throw(it, nil)
	return nil
}
