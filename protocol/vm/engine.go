package vm

import (
	"context"
	"math/big"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/math/checked"
)

// State is the execution state of an engine.
type State uint8

const (
	None State = iota
	Halt
	Fault
	Break
)

func (s State) String() string {
	switch s {
	case None:
		return "NONE"
	case Halt:
		return "HALT"
	case Fault:
		return "FAULT"
	case Break:
		return "BREAK"
	}
	return "State(?)"
}

// cancelCheckInterval is how many instructions Run executes between
// checks of its context.
const cancelCheckInterval = 256

// Engine executes scripts. An Engine is not safe for concurrent
// use; run independent scripts on independent engines.
type Engine struct {
	limits    Limits
	prices    *PriceTable
	feeFactor int64
	interop   InteropService
	trace     func(*Context, Instruction)

	istack []*Context
	rstack *Stack
	rc     *ReferenceCounter

	gasConsumed int64
	gasLimit    int64

	state         State
	fault         error
	uncaught      Item
	uncaughtCause error
	jumping       bool
}

// New returns an engine in state None.
func New(opts ...Option) *Engine {
	e := &Engine{
		limits:    DefaultLimits(),
		prices:    DefaultPrices(),
		feeFactor: 1,
		rc:        NewReferenceCounter(),
	}
	e.rstack = newStack(e.rc)
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns the execution state.
func (e *Engine) State() State { return e.state }

// Fault returns the error that put the engine in state Fault.
// Its root is one of the fault sentinels; errors.Data reports the
// position and opcode where it occurred.
func (e *Engine) Fault() error { return e.fault }

// UncaughtException returns the pending exception, if any.
func (e *Engine) UncaughtException() Item { return e.uncaught }

// Limits returns the engine's limits.
func (e *Engine) Limits() Limits { return e.limits }

// ReferenceCounter returns the engine's reference counter.
func (e *Engine) ReferenceCounter() *ReferenceCounter { return e.rc }

// ResultStack returns the values returned by the outermost context.
func (e *Engine) ResultStack() *Stack { return e.rstack }

// InvocationStack returns the contexts, outermost first. The result
// must not be modified.
func (e *Engine) InvocationStack() []*Context { return e.istack }

// CurrentContext returns the executing context, or nil.
func (e *Engine) CurrentContext() *Context {
	if len(e.istack) == 0 {
		return nil
	}
	return e.istack[len(e.istack)-1]
}

func (e *Engine) current() *Context { return e.istack[len(e.istack)-1] }

// GasConsumed returns the gas charged so far.
func (e *Engine) GasConsumed() int64 { return e.gasConsumed }

// GasLimit returns the gas limit.
func (e *Engine) GasLimit() int64 { return e.gasLimit }

// FeeFactor returns the multiplier applied to opcode prices.
// Interop services apply it to their own prices.
func (e *Engine) FeeFactor() int64 { return e.feeFactor }

// GasLeft returns the gas that may still be charged.
func (e *Engine) GasLeft() int64 { return e.gasLimit - e.gasConsumed }

// chargeOp charges the price of op times the fee factor. A product
// that overflows int64 is more than any gas limit.
func (e *Engine) chargeOp(op Op) error {
	price, ok := checked.MulInt64(e.prices[op], e.feeFactor)
	if !ok || price < 0 {
		return errors.WithDetailf(ErrOutOfGas, "price of %s overflows", op)
	}
	return e.AddGas(price)
}

// AddGas charges n units of gas. A charge that would exceed the
// limit fails with ErrOutOfGas and is not applied.
func (e *Engine) AddGas(n int64) error {
	if n < 0 {
		return errors.WithDetailf(ErrBadValue, "negative gas %d", n)
	}
	g, ok := checked.AddInt64(e.gasConsumed, n)
	if !ok || g > e.gasLimit {
		return errors.WithDetailf(ErrOutOfGas, "charge %d with %d of %d used", n, e.gasConsumed, e.gasLimit)
	}
	e.gasConsumed = g
	return nil
}

// LoadScript pushes a new context for s with its own evaluation
// stack, sets the gas limit and pushes args so that args[0] is on
// top. The outermost context's return values go to the result
// stack.
func (e *Engine) LoadScript(s *Script, gasLimit int64, args ...Item) (*Context, error) {
	if gasLimit < 0 {
		return nil, errors.WithDetailf(ErrBadValue, "negative gas limit %d", gasLimit)
	}
	e.gasLimit = gasLimit
	return e.LoadCallee(s, -1, args...)
}

// LoadCallee pushes a new context for s with its own evaluation
// stack and static slot. rvcount is the number of values it must
// return, or -1 for any number.
func (e *Engine) LoadCallee(s *Script, rvcount int, args ...Item) (*Context, error) {
	if e.state == Halt || e.state == Fault {
		return nil, errors.WithDetailf(ErrBadValue, "engine in state %s", e.state)
	}
	ctx := &Context{
		shared:  &sharedState{script: s, estack: newStack(e.rc)},
		rvcount: rvcount,
	}
	if err := e.loadContext(ctx); err != nil {
		return nil, err
	}
	for i := len(args) - 1; i >= 0; i-- {
		ctx.shared.estack.Push(args[i])
	}
	return ctx, nil
}

// LoadCall pushes a context that runs s from pos, sharing the
// current context's evaluation stack and static slot when s is the
// current script, as CALL does.
func (e *Engine) LoadCall(pos int) (*Context, error) {
	cur := e.CurrentContext()
	if cur == nil {
		return nil, errors.WithDetail(ErrBadValue, "no current context")
	}
	if pos < 0 || !cur.Script().IsInstructionStart(pos) {
		return nil, errors.WithDetailf(ErrInvalidJumpTarget, "call to %d", pos)
	}
	ctx := cur.call(pos)
	if err := e.loadContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (e *Engine) loadContext(ctx *Context) error {
	if len(e.istack) >= e.limits.MaxInvocationStackSize {
		return errors.WithDetailf(ErrInvocationDepthExceeded, "depth %d", len(e.istack))
	}
	e.istack = append(e.istack, ctx)
	return nil
}

// unloadContext pops the current context and releases what it
// alone held.
func (e *Engine) unloadContext() {
	ctx := e.current()
	e.istack[len(e.istack)-1] = nil
	e.istack = e.istack[:len(e.istack)-1]
	next := e.CurrentContext()
	if next == nil || next.shared.statics != ctx.shared.statics {
		ctx.shared.statics.clear()
	}
	ctx.locals.clear()
	ctx.args.clear()
	if next == nil || next.shared.estack != ctx.shared.estack {
		ctx.shared.estack.Clear()
	}
	ctx.tries = nil
}

// Execute runs until the engine halts or faults.
func (e *Engine) Execute() State {
	if e.state == Break {
		e.state = None
	}
	for e.state == None {
		e.executeNext()
	}
	return e.state
}

// Run is like Execute, but faults with ErrCanceled once ctx is done.
func (e *Engine) Run(ctx context.Context) State {
	if e.state == Break {
		e.state = None
	}
	for n := 0; e.state == None; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				e.setFault(errors.Wrap(ErrCanceled, err))
				break
			}
		}
		e.executeNext()
	}
	return e.state
}

// Step executes one instruction. It returns Break if execution
// can continue.
func (e *Engine) Step() State {
	if e.state == Halt || e.state == Fault {
		return e.state
	}
	e.state = None
	e.executeNext()
	if e.state == None {
		e.state = Break
	}
	return e.state
}

func (e *Engine) executeNext() {
	if len(e.istack) == 0 {
		e.state = Halt
		return
	}
	ctx := e.current()
	var inst Instruction
	defer func() {
		if r := recover(); r != nil {
			e.setFault(e.located(ctx, inst, errors.WithDetailf(ErrUnexpected, "%v", r)))
		}
	}()

	inst, err := ctx.NextInstruction()
	if err != nil {
		e.handleError(ctx, inst, err)
		return
	}

	if e.trace != nil {
		e.trace(ctx, inst)
	}
	if err := e.chargeOp(inst.Op); err != nil {
		e.handleError(ctx, inst, err)
		return
	}
	if n := ops[inst.Op].pops; ctx.Estack().Len() < n {
		err := errors.WithDetailf(ErrStackUnderflow, "%s needs %d items, have %d", inst.Op, n, ctx.Estack().Len())
		e.handleError(ctx, inst, err)
		return
	}

	e.jumping = false
	err = handlers[inst.Op](e, inst)
	if e.state == Fault || e.state == Halt {
		return
	}
	if err == nil {
		err = e.checkLimits()
	}
	if err != nil {
		e.handleError(ctx, inst, err)
		return
	}
	if !e.jumping {
		ctx.ip += inst.Len
	}
}

// checkLimits collects garbage and enforces the item count and
// stack size limits.
func (e *Engine) checkLimits() error {
	e.rc.Collect()
	if e.rc.count > e.limits.MaxItemCount {
		return errors.WithDetailf(ErrItemCountExceeded, "%d items", e.rc.count)
	}
	if e.rc.rootRefs > e.limits.MaxStackSize {
		return errors.WithDetailf(ErrStackSizeExceeded, "%d stack entries", e.rc.rootRefs)
	}
	return nil
}

// handleError turns a catchable fault into an exception and ends
// execution on any other.
func (e *Engine) handleError(ctx *Context, inst Instruction, err error) {
	if !isFault(err) {
		err = errors.Sub(ErrUnexpected, err)
	}
	err = e.located(ctx, inst, err)
	if !KindOf(err).Catchable() {
		e.setFault(err)
		return
	}
	e.throw(NewByteString([]byte(err.Error())), err)
}

func (e *Engine) located(ctx *Context, inst Instruction, err error) error {
	if errors.Data(err) != nil {
		return err
	}
	return errors.WithData(err, "pos", ctx.ip, "op", inst.Op.String())
}

func (e *Engine) setFault(err error) {
	e.state = Fault
	e.fault = err
}

// Push pushes it on the current evaluation stack.
func (e *Engine) Push(it Item) {
	e.current().Estack().Push(it)
}

// Pop pops the top of the current evaluation stack.
func (e *Engine) Pop() (Item, error) {
	return e.current().Estack().Pop()
}

// Peek returns the item n positions below the top of the current
// evaluation stack.
func (e *Engine) Peek(n int) (Item, error) {
	return e.current().Estack().Peek(n)
}

// PopInt pops an integer.
func (e *Engine) PopInt() (*big.Int, error) {
	it, err := e.Pop()
	if err != nil {
		return nil, err
	}
	return ToBigInt(it)
}

// popIntRange pops an integer that must lie in [min, max].
func (e *Engine) popIntRange(min, max int64) (int, error) {
	n, err := e.PopInt()
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() < min || n.Int64() > max {
		return 0, errors.WithDetailf(ErrBadValue, "%s not in [%d, %d]", n, min, max)
	}
	return int(n.Int64()), nil
}

// PopBytes pops a primitive or Buffer and returns its bytes.
// The result must not be modified.
func (e *Engine) PopBytes() ([]byte, error) {
	it, err := e.Pop()
	if err != nil {
		return nil, err
	}
	return ToBytes(it)
}

// PopBool pops an item and returns its truth value.
func (e *Engine) PopBool() (bool, error) {
	it, err := e.Pop()
	if err != nil {
		return false, err
	}
	return ToBool(it)
}

// pushInt pushes n, failing if it does not fit in an Integer.
func (e *Engine) pushInt(n *big.Int) error {
	it, err := NewBigInt(n)
	if err != nil {
		return errors.WithDetailf(err, "integer of %d bits", n.BitLen())
	}
	e.Push(it)
	return nil
}

// checkSize fails if n bytes exceed the item size limit.
func (e *Engine) checkSize(n int) error {
	if n < 0 || n > e.limits.MaxItemSize {
		return errors.WithDetailf(ErrItemSizeExceeded, "%d bytes", n)
	}
	return nil
}
