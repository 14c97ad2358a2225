package vm

import (
	"math/big"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/math/checked"
)

func opPushInt(e *Engine, inst Instruction) error {
	e.Push(&Integer{v: bigFromBytes(inst.Data)})
	return nil
}

func opPushT(e *Engine, inst Instruction) error {
	e.Push(NewBool(true))
	return nil
}

func opPushF(e *Engine, inst Instruction) error {
	e.Push(NewBool(false))
	return nil
}

func opPushNull(e *Engine, inst Instruction) error {
	e.Push(NewNull())
	return nil
}

// opPushA pushes a Pointer. The target may be the end of the script;
// CALLA checks that it is an instruction start.
func opPushA(e *Engine, inst Instruction) error {
	ctx := e.current()
	t, ok := checked.Offset(ctx.ip, inst.i32(0), ctx.Script().Len()+1)
	if !ok {
		return errors.WithDetailf(ErrInvalidJumpTarget, "PUSHA offset %d from %d", inst.i32(0), ctx.ip)
	}
	e.Push(NewPointer(ctx.Script(), t))
	return nil
}

func opPushData(e *Engine, inst Instruction) error {
	if err := e.checkSize(len(inst.Data)); err != nil {
		return err
	}
	e.Push(NewByteString(inst.Data))
	return nil
}

// opPushSmall handles PUSHM1 and PUSH0 through PUSH16.
func opPushSmall(e *Engine, inst Instruction) error {
	e.Push(NewInt(int64(inst.Op) - int64(OP_PUSH0)))
	return nil
}

// PushdataBytes returns the shortest PUSHDATA instruction for b.
func PushdataBytes(b []byte) []byte {
	n := len(b)
	var prog []byte
	switch {
	case n < 1<<8:
		prog = []byte{byte(OP_PUSHDATA1), byte(n)}
	case n < 1<<16:
		prog = []byte{byte(OP_PUSHDATA2), byte(n), byte(n >> 8)}
	default:
		prog = []byte{byte(OP_PUSHDATA4), byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
	}
	return append(prog, b...)
}

// PushdataInt64 returns the shortest instruction that pushes n.
func PushdataInt64(n int64) []byte {
	if n >= -1 && n <= 16 {
		return []byte{byte(int64(OP_PUSH0) + n)}
	}
	b := bigToBytes(big.NewInt(n))
	switch {
	case len(b) <= 1:
		return append([]byte{byte(OP_PUSHINT8)}, pad(b, 1)...)
	case len(b) <= 2:
		return append([]byte{byte(OP_PUSHINT16)}, pad(b, 2)...)
	case len(b) <= 4:
		return append([]byte{byte(OP_PUSHINT32)}, pad(b, 4)...)
	}
	return append([]byte{byte(OP_PUSHINT64)}, pad(b, 8)...)
}

// PushdataBigInt returns the shortest instruction that pushes n.
// It fails if n does not fit in an Integer.
func PushdataBigInt(n *big.Int) ([]byte, error) {
	if n.IsInt64() {
		return PushdataInt64(n.Int64()), nil
	}
	if !fitsInteger(n) {
		return nil, errors.WithDetailf(ErrItemSizeExceeded, "integer of %d bits", n.BitLen())
	}
	b := bigToBytes(n)
	if len(b) <= 16 {
		return append([]byte{byte(OP_PUSHINT128)}, pad(b, 16)...), nil
	}
	return append([]byte{byte(OP_PUSHINT256)}, pad(b, 32)...), nil
}

// pad sign-extends little-endian two's complement b to n bytes.
func pad(b []byte, n int) []byte {
	var fill byte
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		fill = 0xff
	}
	for len(b) < n {
		b = append(b, fill)
	}
	return b
}

// PushdataIntSized returns a PUSHINT instruction of exactly size
// operand bytes (1, 2, 4, 8, 16 or 32) for n.
func PushdataIntSized(n *big.Int, size int) ([]byte, error) {
	var op Op
	switch size {
	case 1:
		op = OP_PUSHINT8
	case 2:
		op = OP_PUSHINT16
	case 4:
		op = OP_PUSHINT32
	case 8:
		op = OP_PUSHINT64
	case 16:
		op = OP_PUSHINT128
	case 32:
		op = OP_PUSHINT256
	default:
		return nil, errors.WithDetailf(ErrBadValue, "no PUSHINT of %d bytes", size)
	}
	b := bigToBytes(n)
	if len(b) > size {
		return nil, errors.WithDetailf(ErrItemSizeExceeded, "%s does not fit in %d bytes", n, size)
	}
	return append([]byte{byte(op)}, pad(b, size)...), nil
}
