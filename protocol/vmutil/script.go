package vmutil

import (
	"encoding/binary"
	"math/big"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

var ErrNotPushOnly = errors.New("program is not push-only")

// ContractCallSyscall is the interop service that CallProgram invokes.
const ContractCallSyscall = "System.Contract.Call"

// AddValue adds instructions that push v, which may be nil, a bool,
// an int, int64, *big.Int, []byte, string, or a []interface{} of
// those (pushed as an Array).
func (b *Builder) AddValue(v interface{}) *Builder {
	switch x := v.(type) {
	case nil:
		return b.AddOp(vm.OP_PUSHNULL)
	case bool:
		return b.AddBool(x)
	case int:
		return b.AddInt64(int64(x))
	case int64:
		return b.AddInt64(x)
	case *big.Int:
		return b.AddBigInt(x)
	case []byte:
		return b.AddData(x)
	case string:
		return b.AddData([]byte(x))
	case []interface{}:
		return b.AddArray(x)
	}
	return b.fail(errors.WithDetailf(ErrOperand, "cannot push %T", v))
}

// AddArray adds instructions that push an Array of vals, with
// vals[0] at index 0.
func (b *Builder) AddArray(vals []interface{}) *Builder {
	if len(vals) == 0 {
		return b.AddOp(vm.OP_NEWARRAY0)
	}
	for i := len(vals) - 1; i >= 0; i-- {
		b.AddValue(vals[i])
	}
	return b.AddInt64(int64(len(vals))).AddOp(vm.OP_PACK)
}

// CallProgram returns a program that calls method of the contract
// with the given hash. The result is:
// <args array> <method> <hash> SYSCALL System.Contract.Call
func CallProgram(hash []byte, method string, args ...interface{}) ([]byte, error) {
	if method == "" {
		return nil, errors.WithDetail(ErrOperand, "empty method name")
	}
	b := NewBuilder()
	b.AddArray(args).AddData([]byte(method)).AddData(hash)
	b.AddSyscall(ContractCallSyscall)
	return b.Build()
}

// ParseCallProgram returns the contract hash and method of a
// program built by CallProgram.
func ParseCallProgram(prog []byte) (hash []byte, method string, err error) {
	insts, err := vm.ParseProgram(prog)
	if err != nil {
		return nil, "", err
	}
	if len(insts) < 4 {
		return nil, "", errors.WithDetail(ErrOperand, "too short for a contract call")
	}
	last := insts[len(insts)-1]
	if last.Op != vm.OP_SYSCALL || !sameID(last.Data, vm.InteropID(ContractCallSyscall)) {
		return nil, "", errors.WithDetail(ErrOperand, "no System.Contract.Call")
	}
	h, m := insts[len(insts)-2], insts[len(insts)-3]
	if !isPushData(h.Op) || !isPushData(m.Op) {
		return nil, "", errors.WithDetail(ErrOperand, "hash and method must be pushed as data")
	}
	return h.Data, string(m.Data), nil
}

func sameID(operand []byte, id uint32) bool {
	return len(operand) == 4 && binary.LittleEndian.Uint32(operand) == id
}

func isPushData(op vm.Op) bool {
	return op >= vm.OP_PUSHDATA1 && op <= vm.OP_PUSHDATA4
}

// ParsePushOnly returns the items pushed by a program made only of
// constant pushes, in push order. It is used to decode the argument
// scripts passed to an invocation.
func ParsePushOnly(prog []byte) ([]vm.Item, error) {
	insts, err := vm.ParseProgram(prog)
	if err != nil {
		return nil, err
	}
	items := make([]vm.Item, 0, len(insts))
	for _, inst := range insts {
		it, ok := constant(inst)
		if !ok {
			return nil, errors.WithDetailf(ErrNotPushOnly, "found %s", inst.Op)
		}
		items = append(items, it)
	}
	return items, nil
}

// constant returns the item a constant push instruction pushes.
func constant(inst vm.Instruction) (vm.Item, bool) {
	switch op := inst.Op; {
	case op >= vm.OP_PUSHINT8 && op <= vm.OP_PUSHINT256:
		n, err := vm.ToBigInt(vm.NewByteString(inst.Data))
		if err != nil {
			return nil, false
		}
		it, err := vm.NewBigInt(n)
		return it, err == nil
	case op == vm.OP_PUSHT || op == vm.OP_PUSHF:
		return vm.NewBool(op == vm.OP_PUSHT), true
	case op == vm.OP_PUSHNULL:
		return vm.NewNull(), true
	case isPushData(op):
		return vm.NewByteString(inst.Data), true
	case op >= vm.OP_PUSHM1 && op <= vm.OP_PUSH16:
		return vm.NewInt(int64(op) - int64(vm.OP_PUSH0)), true
	}
	return nil, false
}
