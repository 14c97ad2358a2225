package vm

import (
	"bytes"
	"sync"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/math/checked"
)

// Script is an immutable program. It may be shared by any number
// of engines running concurrently.
type Script struct {
	prog []byte

	once    sync.Once
	starts  []uint64 // bitset of instruction start positions
	decoded bool     // false if prog has a malformed instruction
	decErr  error
}

// NewScript returns a Script holding a copy of prog.
func NewScript(prog []byte) *Script {
	return &Script{prog: append([]byte(nil), prog...)}
}

// Bytes returns the program. Callers must not modify it.
func (s *Script) Bytes() []byte { return s.prog }

// Len returns the program length in bytes.
func (s *Script) Len() int { return len(s.prog) }

// Equal reports whether s and other hold the same program.
func (s *Script) Equal(other *Script) bool {
	return s == other || (other != nil && bytes.Equal(s.prog, other.prog))
}

// offsets builds the start table once. Decoding stops at the first
// malformed instruction; positions after it are never starts.
func (s *Script) offsets() {
	s.once.Do(func() {
		s.starts = make([]uint64, (len(s.prog)+63)/64)
		for pc := 0; pc < len(s.prog); {
			inst, err := ParseOp(s.prog, pc)
			if err != nil {
				s.decErr = err
				return
			}
			s.starts[pc/64] |= 1 << uint(pc%64)
			pc += inst.Len
		}
		s.decoded = true
	})
}

// IsInstructionStart reports whether an instruction begins at pos.
func (s *Script) IsInstructionStart(pos int) bool {
	if pos < 0 || pos >= len(s.prog) {
		return false
	}
	s.offsets()
	return s.starts[pos/64]&(1<<uint(pos%64)) != 0
}

// GetInstruction decodes the instruction at pos. It fails with
// ErrInvalidOffset if pos is not the start of an instruction.
func (s *Script) GetInstruction(pos int) (Instruction, error) {
	if !s.IsInstructionStart(pos) {
		if pos >= 0 && pos < len(s.prog) && s.decErr != nil {
			// pos may lie past a malformed instruction; report why
			if inst, err := ParseOp(s.prog, pos); err != nil {
				return inst, err
			}
		}
		return Instruction{}, errors.WithDetailf(ErrInvalidOffset, "%d is not an instruction start", pos)
	}
	return ParseOp(s.prog, pos)
}

// target resolves the relative offset delta from the instruction
// at pos and checks that it lands on an instruction start.
func (s *Script) target(pos int, delta int32) (int, error) {
	t, ok := checked.Offset(pos, delta, len(s.prog))
	if !ok || !s.IsInstructionStart(t) {
		return 0, errors.WithDetailf(ErrInvalidJumpTarget, "offset %d from %d", delta, pos)
	}
	return t, nil
}

// Validate decodes the whole program and checks every static
// jump, call, try and PUSHA target. Engines do not require it;
// targets are checked again when they are used.
func (s *Script) Validate() error {
	s.offsets()
	if !s.decoded {
		return s.decErr
	}
	for pc := 0; pc < len(s.prog); {
		inst, err := ParseOp(s.prog, pc)
		if err != nil {
			return err
		}
		switch {
		case inst.Op.isJump():
			if _, err := s.target(pc, inst.offset()); err != nil {
				return errors.Wrapf(err, "%s at %d", inst.Op, pc)
			}
		case inst.Op == OP_TRY || inst.Op == OP_TRY_L:
			c, f := inst.tryOffsets()
			if c == 0 && f == 0 {
				return errors.WithDetailf(ErrBadValue, "%s at %d has neither catch nor finally", inst.Op, pc)
			}
			for _, d := range []int32{c, f} {
				if d == 0 {
					continue
				}
				if _, err := s.target(pc, d); err != nil {
					return errors.Wrapf(err, "%s at %d", inst.Op, pc)
				}
			}
		case inst.Op == OP_PUSHA:
			t, ok := checked.Offset(pc, inst.i32(0), len(s.prog)+1)
			if !ok || (t < len(s.prog) && !s.IsInstructionStart(t)) {
				return errors.WithDetailf(ErrInvalidJumpTarget, "PUSHA at %d: offset %d", pc, inst.i32(0))
			}
		case inst.Op == OP_NEWARRAY_T || inst.Op == OP_ISTYPE || inst.Op == OP_CONVERT:
			t := Type(inst.Data[0])
			if !t.isValid() || (inst.Op == OP_ISTYPE && t == AnyType) {
				return errors.WithDetailf(ErrBadValue, "%s at %d: type 0x%02x", inst.Op, pc, inst.Data[0])
			}
		}
		pc += inst.Len
	}
	return nil
}
