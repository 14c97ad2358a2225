package vm

import "github.com/onyx-protocol/neovm/errors"

// sharedState is shared by a context and the contexts it CALLs.
type sharedState struct {
	script  *Script
	estack  *Stack
	statics *Slot
}

// Context is one activation record on the invocation stack.
type Context struct {
	shared  *sharedState
	ip      int
	locals  *Slot
	args    *Slot
	tries   []*TryFrame
	rvcount int // -1 means any number of return values
}

// Script returns the script being executed.
func (c *Context) Script() *Script { return c.shared.script }

// IP returns the position of the next instruction.
func (c *Context) IP() int { return c.ip }

// Estack returns the evaluation stack.
func (c *Context) Estack() *Stack { return c.shared.estack }

// Statics returns the static slot, or nil before INITSSLOT.
func (c *Context) Statics() *Slot { return c.shared.statics }

// Locals returns the local slot, or nil before INITSLOT.
func (c *Context) Locals() *Slot { return c.locals }

// Args returns the argument slot, or nil before INITSLOT.
func (c *Context) Args() *Slot { return c.args }

// RVCount returns the number of values the context must return,
// or -1 for any number.
func (c *Context) RVCount() int { return c.rvcount }

// TryStack returns the exception handling frames, innermost last.
func (c *Context) TryStack() []*TryFrame { return c.tries }

// NextInstruction decodes the instruction at ip. Running off the
// end of the script is an implicit RET.
func (c *Context) NextInstruction() (Instruction, error) {
	if c.ip >= c.shared.script.Len() {
		return Instruction{Op: OP_RET, Len: 1}, nil
	}
	return c.shared.script.GetInstruction(c.ip)
}

// Jump moves the context to pos, which must be an instruction
// start. It is used to enter a loaded script at a method offset.
func (c *Context) Jump(pos int) error {
	if !c.shared.script.IsInstructionStart(pos) {
		return errors.WithDetailf(ErrInvalidJumpTarget, "entry at %d", pos)
	}
	c.ip = pos
	return nil
}

// call returns a context for a CALL to pos, sharing the caller's
// script, evaluation stack and static slot.
func (c *Context) call(pos int) *Context {
	return &Context{shared: c.shared, ip: pos}
}
