package vm

import "github.com/onyx-protocol/neovm/errors"

// Fault kinds. The root (errors.Root) of every fault the engine
// records is one of these.
var (
	ErrStackUnderflow          = errors.New("stack underflow")
	ErrInvalidOffset           = errors.New("invalid offset")
	ErrInvalidJumpTarget       = errors.New("invalid jump target")
	ErrInvalidCast             = errors.New("invalid cast")
	ErrDivideByZero            = errors.New("division by zero")
	ErrInvalidShiftAmount      = errors.New("invalid shift amount")
	ErrItemCountExceeded       = errors.New("item count exceeded")
	ErrStackSizeExceeded       = errors.New("stack size exceeded")
	ErrInvocationDepthExceeded = errors.New("invocation depth exceeded")
	ErrItemSizeExceeded        = errors.New("item size exceeded")
	ErrOutOfGas                = errors.New("out of gas")
	ErrUncaughtException       = errors.New("uncaught exception")
	ErrInteropFailure          = errors.New("interop failure")
	ErrInvalidOpcode           = errors.New("invalid opcode")
	ErrBadValue                = errors.New("bad value")
	ErrAssertFailed            = errors.New("ASSERT failed")
	ErrAbort                   = errors.New("ABORT executed")
	ErrCanceled                = errors.New("execution canceled")
	ErrUnexpected              = errors.New("unexpected error")
)

// FaultKind classifies a fault for receipts and metrics.
type FaultKind uint8

const (
	NoFault FaultKind = iota
	StackUnderflow
	InvalidOffset
	InvalidJumpTarget
	InvalidCast
	DivideByZero
	InvalidShiftAmount
	ItemCountExceeded
	StackSizeExceeded
	InvocationDepthExceeded
	ItemSizeExceeded
	OutOfGas
	UncaughtException
	InteropFailure
	InvalidOpcode
	BadValue
	AssertFailed
	Abort
	Canceled
	Unexpected
)

var faultKinds = map[error]FaultKind{
	ErrStackUnderflow:          StackUnderflow,
	ErrInvalidOffset:           InvalidOffset,
	ErrInvalidJumpTarget:       InvalidJumpTarget,
	ErrInvalidCast:             InvalidCast,
	ErrDivideByZero:            DivideByZero,
	ErrInvalidShiftAmount:      InvalidShiftAmount,
	ErrItemCountExceeded:       ItemCountExceeded,
	ErrStackSizeExceeded:       StackSizeExceeded,
	ErrInvocationDepthExceeded: InvocationDepthExceeded,
	ErrItemSizeExceeded:        ItemSizeExceeded,
	ErrOutOfGas:                OutOfGas,
	ErrUncaughtException:       UncaughtException,
	ErrInteropFailure:          InteropFailure,
	ErrInvalidOpcode:           InvalidOpcode,
	ErrBadValue:                BadValue,
	ErrAssertFailed:            AssertFailed,
	ErrAbort:                   Abort,
	ErrCanceled:                Canceled,
	ErrUnexpected:              Unexpected,
}

var faultKindNames = [...]string{
	NoFault:                 "None",
	StackUnderflow:          "StackUnderflow",
	InvalidOffset:           "InvalidOffset",
	InvalidJumpTarget:       "InvalidJumpTarget",
	InvalidCast:             "InvalidCast",
	DivideByZero:            "DivideByZero",
	InvalidShiftAmount:      "InvalidShiftAmount",
	ItemCountExceeded:       "ItemCountExceeded",
	StackSizeExceeded:       "StackSizeExceeded",
	InvocationDepthExceeded: "InvocationDepthExceeded",
	ItemSizeExceeded:        "ItemSizeExceeded",
	OutOfGas:                "OutOfGas",
	UncaughtException:       "UncaughtException",
	InteropFailure:          "InteropFailure",
	InvalidOpcode:           "InvalidOpcode",
	BadValue:                "BadValue",
	AssertFailed:            "AssertFailed",
	Abort:                   "Abort",
	Canceled:                "Canceled",
	Unexpected:              "Unexpected",
}

func (k FaultKind) String() string {
	if int(k) < len(faultKindNames) {
		return faultKindNames[k]
	}
	return "Unknown"
}

// KindOf returns the fault kind of err. A nil error is NoFault;
// an error whose root is not a fault sentinel is Unexpected.
func KindOf(err error) FaultKind {
	if err == nil {
		return NoFault
	}
	if k, ok := faultKinds[errors.Root(err)]; ok {
		return k
	}
	return Unexpected
}

// isFault reports whether err already carries a fault kind.
func isFault(err error) bool {
	_, ok := faultKinds[errors.Root(err)]
	return ok
}

// Catchable reports whether bytecode exception handlers may
// intercept a fault of this kind.
func (k FaultKind) Catchable() bool {
	switch k {
	case OutOfGas, Abort, Canceled, Unexpected:
		return false
	}
	return true
}
