package vmutil

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

// Builder assembles a program one instruction at a time. Jump, call,
// TRY and PUSHA operands refer to jump targets that are resolved to
// relative offsets by Build. The first error is reported by Build.
type Builder struct {
	program     []byte
	jumpCounter int
	err         error

	// Maps a jump target number to its absolute address.
	jumpAddr map[int]int

	// Maps a jump target number to the operands that must be filled
	// in with its offset once known.
	jumpPlaceholders map[int][]placeholder
}

// placeholder is a relative offset operand of size bytes at pos,
// measured from the instruction starting at inst.
type placeholder struct {
	inst, pos, size int
}

func NewBuilder() *Builder {
	return &Builder{
		jumpAddr:         make(map[int]int),
		jumpPlaceholders: make(map[int][]placeholder),
	}
}

// Len returns the current length of the program.
func (b *Builder) Len() int {
	return len(b.program)
}

// AddInt64 adds the shortest instruction that pushes n.
func (b *Builder) AddInt64(n int64) *Builder {
	b.program = append(b.program, vm.PushdataInt64(n)...)
	return b
}

// AddBigInt adds the shortest instruction that pushes n.
func (b *Builder) AddBigInt(n *big.Int) *Builder {
	p, err := vm.PushdataBigInt(n)
	if err != nil {
		return b.fail(err)
	}
	b.program = append(b.program, p...)
	return b
}

// AddData adds a pushdata instruction for a given byte string.
func (b *Builder) AddData(data []byte) *Builder {
	b.program = append(b.program, vm.PushdataBytes(data)...)
	return b
}

// AddBool adds PUSHT or PUSHF.
func (b *Builder) AddBool(v bool) *Builder {
	if v {
		return b.AddOp(vm.OP_PUSHT)
	}
	return b.AddOp(vm.OP_PUSHF)
}

// AddRawBytes simply appends the given bytes to the program. (It does
// not introduce a pushdata opcode.)
func (b *Builder) AddRawBytes(data []byte) *Builder {
	b.program = append(b.program, data...)
	return b
}

// AddOp adds op with its fixed-size operand, if any. It fails for
// ops with a variable operand; use AddData for those.
func (b *Builder) AddOp(op vm.Op, operand ...byte) *Builder {
	if !op.IsValid() {
		return b.fail(errors.WithDetailf(vm.ErrInvalidOpcode, "opcode 0x%02x", byte(op)))
	}
	size, prefix := op.Operand()
	if prefix > 0 || len(operand) != size {
		return b.fail(errors.WithDetailf(ErrOperand, "%s takes %d operand bytes, got %d", op, size, len(operand)))
	}
	b.program = append(b.program, byte(op))
	b.program = append(b.program, operand...)
	return b
}

// AddType adds NEWARRAY_T, ISTYPE or CONVERT with a type operand.
func (b *Builder) AddType(op vm.Op, t vm.Type) *Builder {
	return b.AddOp(op, byte(t))
}

// AddInitSlot adds INITSLOT.
func (b *Builder) AddInitSlot(locals, args int) *Builder {
	if locals < 0 || locals > math.MaxUint8 || args < 0 || args > math.MaxUint8 {
		return b.fail(errors.WithDetailf(ErrOperand, "INITSLOT %d %d", locals, args))
	}
	return b.AddOp(vm.OP_INITSLOT, byte(locals), byte(args))
}

// AddSyscall adds a SYSCALL of the named interop service.
func (b *Builder) AddSyscall(name string) *Builder {
	return b.AddSyscallID(vm.InteropID(name))
}

// AddSyscallID adds a SYSCALL with the given service id.
func (b *Builder) AddSyscallID(id uint32) *Builder {
	var operand [4]byte
	binary.LittleEndian.PutUint32(operand[:], id)
	return b.AddOp(vm.OP_SYSCALL, operand[:]...)
}

// NewJumpTarget allocates a number that can be used as a jump target
// in AddJump, AddCall, AddTry, AddEndTry and AddPushA. Call
// SetJumpTarget to associate the number with a program location.
// Target numbers are never zero.
func (b *Builder) NewJumpTarget() int {
	b.jumpCounter++
	return b.jumpCounter
}

// AddJump adds op, which must take a single relative target, with
// the given target number. The short forms fail in Build if the
// offset does not fit in one byte.
func (b *Builder) AddJump(op vm.Op, target int) *Builder {
	if !op.IsJump() {
		return b.fail(errors.WithDetailf(ErrOperand, "%s does not take a jump target", op))
	}
	size, _ := op.Operand()
	inst := len(b.program)
	b.program = append(b.program, byte(op))
	b.addPlaceholder(target, inst, size)
	return b
}

// AddCall adds CALL_L to the target.
func (b *Builder) AddCall(target int) *Builder {
	return b.AddJump(vm.OP_CALL_L, target)
}

// AddPushA adds PUSHA with a pointer to the target.
func (b *Builder) AddPushA(target int) *Builder {
	inst := len(b.program)
	b.program = append(b.program, byte(vm.OP_PUSHA))
	b.addPlaceholder(target, inst, 4)
	return b
}

// AddTry adds TRY_L. A zero target number means the block has no
// catch or no finally handler.
func (b *Builder) AddTry(catch, finally int) *Builder {
	inst := len(b.program)
	b.program = append(b.program, byte(vm.OP_TRY_L))
	for _, t := range []int{catch, finally} {
		if t == 0 {
			b.program = append(b.program, 0, 0, 0, 0)
			continue
		}
		b.addPlaceholder(t, inst, 4)
	}
	return b
}

// AddEndTry adds ENDTRY_L continuing at the target.
func (b *Builder) AddEndTry(target int) *Builder {
	return b.AddJump(vm.OP_ENDTRY_L, target)
}

func (b *Builder) addPlaceholder(target, inst, size int) {
	b.jumpPlaceholders[target] = append(b.jumpPlaceholders[target], placeholder{inst: inst, pos: len(b.program), size: size})
	b.program = append(b.program, make([]byte, size)...)
}

// SetJumpTarget associates the given jump-target number with the
// current position in the program, so that the first instruction
// executed by a jump to it is whatever instruction is added next.
func (b *Builder) SetJumpTarget(target int) *Builder {
	b.jumpAddr[target] = len(b.program)
	return b
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

var (
	ErrUnresolvedJump = errors.New("unresolved jump target")
	ErrOperand        = errors.New("bad operand")
)

// Build produces the bytecode of the program. It first resolves any
// jumps in the program by filling in the offsets of their targets.
// This requires SetJumpTarget to be called prior to Build for each
// jump target used. If any target's address hasn't been set in this
// way, this function produces ErrUnresolvedJump. A short jump whose
// offset does not fit produces ErrOperand, as does any earlier
// malformed instruction.
func (b *Builder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	for target, placeholders := range b.jumpPlaceholders {
		addr, ok := b.jumpAddr[target]
		if !ok {
			return nil, errors.Wrapf(ErrUnresolvedJump, "target %d", target)
		}
		for _, p := range placeholders {
			delta := addr - p.inst
			switch p.size {
			case 1:
				if delta < math.MinInt8 || delta > math.MaxInt8 {
					return nil, errors.WithDetailf(ErrOperand, "offset %d at %d does not fit in a short jump", delta, p.inst)
				}
				b.program[p.pos] = byte(int8(delta))
			case 4:
				binary.LittleEndian.PutUint32(b.program[p.pos:p.pos+4], uint32(int32(delta)))
			}
		}
	}
	return b.program, nil
}
