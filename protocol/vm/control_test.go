package vm

import (
	"strings"
	"testing"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/testutil"
)

func TestControlOps(t *testing.T) {
	runCases(t, []opCase{{
		name: "NOP",
		prog: code(OP_NOP, 1),
		want: "1",
	}, {
		name: "JMP",
		prog: code(OP_JMP, int8(3), 5, 6),
		want: "6",
	}, {
		name: "JMP_L",
		prog: code(OP_JMP_L, int32(6), 5, 6),
		want: "6",
	}, {
		name: "JMPIF taken",
		prog: code(1, OP_JMPIF, int8(3), 5, 6),
		want: "6",
	}, {
		name: "JMPIF not taken",
		prog: code(0, OP_JMPIF, int8(3), 5, 6),
		want: "5 6",
	}, {
		name: "JMPIFNOT",
		prog: code(1, OP_JMPIFNOT, int8(3), 5, 6, 0, OP_JMPIFNOT_L, int32(6), 7, 8),
		want: "5 6 8",
	}, {
		name: "JMPEQ",
		prog: code(2, 2, OP_JMPEQ, int8(3), 5, 6),
		want: "6",
	}, {
		name: "JMPNE",
		prog: code(2, 2, OP_JMPNE, int8(3), 5, 6),
		want: "5 6",
	}, {
		name: "JMPGT",
		prog: code(3, 2, OP_JMPGT, int8(3), 5, 6),
		want: "6",
	}, {
		name: "JMPGE",
		prog: code(2, 3, OP_JMPGE_L, int32(6), 5, 6),
		want: "5 6",
	}, {
		name: "JMPLT",
		prog: code(2, 3, OP_JMPLT, int8(3), 5, 6),
		want: "6",
	}, {
		name: "JMPLE",
		prog: code(3, 3, OP_JMPLE, int8(3), 5, 6),
		want: "6",
	}, {
		name:    "JMPEQ non-integer",
		prog:    code(OP_NEWMAP, 2, OP_JMPEQ, int8(2)),
		wantErr: ErrInvalidCast,
	}, {
		name: "loop",
		prog: code(
			0,                                     // 0: counter
			OP_INC, OP_DUP, 5, OP_JMPLT, int8(-3), // 1
		),
		want: "5",
	}, {
		name: "CALL shares the evaluation stack",
		prog: code(
			1,                // 0
			OP_CALL, int8(3), // 1
			OP_RET,         // 3
			OP_INC, OP_RET, // 4
		),
		want: "2",
	}, {
		name: "CALL_L",
		prog: code(OP_CALL_L, int32(6), OP_RET, 2, OP_RET),
		want: "2",
	}, {
		name: "CALLA",
		prog: code(
			OP_PUSHA, int32(7), // 0
			OP_CALLA, // 5
			OP_RET,   // 6
			2,        // 7
			OP_RET,   // 8
		),
		want: "2",
	}, {
		name:    "CALLA non-pointer",
		prog:    code(1, OP_CALLA),
		wantErr: ErrInvalidCast,
	}, {
		name: "CALL shares statics",
		prog: code(
			OP_INITSSLOT, byte(1), // 0
			7, OP_STSFLD0, // 2
			OP_CALL, int8(3), // 4
			OP_RET,     // 6
			OP_LDSFLD0, // 7
			OP_RET,     // 8
		),
		want: "7",
	}, {
		name: "CALL gets its own locals",
		prog: code(
			OP_INITSLOT, byte(1), byte(0), // 0
			7, OP_STLOC0, // 3
			OP_CALL, int8(4), // 5
			OP_LDLOC0, OP_RET, // 7
			OP_INITSLOT, byte(1), byte(0), OP_LDLOC0, OP_RET, // 9
		),
		want: "Null 7",
	}, {
		name:    "ASSERT",
		prog:    code(1, OP_ASSERT, 0, OP_ASSERT),
		wantErr: ErrAssertFailed,
	}, {
		name: "ASSERT true",
		prog: code(1, OP_ASSERT, 2),
		want: "2",
	}, {
		name:    "ASSERTMSG",
		prog:    code(0, "boom", OP_ASSERTMSG),
		wantErr: ErrAssertFailed,
	}, {
		name:    "ABORT",
		prog:    code(OP_ABORT),
		wantErr: ErrAbort,
	}, {
		name:    "ABORTMSG",
		prog:    code("boom", OP_ABORTMSG),
		wantErr: ErrAbort,
	}, {
		name:    "SYSCALL without a service",
		prog:    code(OP_SYSCALL, uint32(1)),
		wantErr: ErrInteropFailure,
	}, {
		name:    "CALLT without a loader",
		prog:    code(OP_CALLT, uint16(1)),
		wantErr: ErrInteropFailure,
	}})
}

func TestAssertMessage(t *testing.T) {
	e := run(t, code(0, "boom", OP_ASSERTMSG), testGas)
	if !strings.Contains(e.Fault().Error(), "boom") {
		t.Errorf("fault %q does not carry the message", e.Fault())
	}
	e = run(t, code("stop", OP_ABORTMSG), testGas)
	testutil.ExpectEqual(t, errors.Detail(e.Fault()), "stop", "abort detail")
}

func TestSlotOps(t *testing.T) {
	runCases(t, []opCase{{
		name: "statics",
		prog: code(OP_INITSSLOT, byte(8), 5, OP_STSFLD0, 6, OP_STSFLD, byte(7), OP_LDSFLD, byte(7), OP_LDSFLD0),
		want: "6 5",
	}, {
		name: "locals start null",
		prog: code(OP_INITSLOT, byte(2), byte(0), OP_LDLOC1),
		want: "Null",
	}, {
		name: "arguments",
		prog: code(1, 2, 3, OP_INITSLOT, byte(0), byte(3), OP_LDARG0, OP_LDARG2, 9, OP_STARG1, OP_LDARG1),
		want: "3 1 9",
	}, {
		name:    "arguments underflow",
		prog:    code(1, OP_INITSLOT, byte(0), byte(2)),
		wantErr: ErrStackUnderflow,
	}, {
		name:    "INITSLOT twice",
		prog:    code(OP_INITSLOT, byte(1), byte(0), OP_INITSLOT, byte(1), byte(0)),
		wantErr: ErrBadValue,
	}, {
		name:    "INITSLOT empty",
		prog:    code(OP_INITSLOT, byte(0), byte(0)),
		wantErr: ErrBadValue,
	}, {
		name:    "INITSSLOT empty",
		prog:    code(OP_INITSSLOT, byte(0)),
		wantErr: ErrBadValue,
	}, {
		name:    "load without a slot",
		prog:    code(OP_LDLOC0),
		wantErr: ErrBadValue,
	}, {
		name:    "load past the slot",
		prog:    code(OP_INITSSLOT, byte(1), OP_LDSFLD1),
		wantErr: ErrBadValue,
	}})
}

func TestExceptions(t *testing.T) {
	runCases(t, []opCase{{
		name: "catch",
		prog: code(
			OP_TRY, int8(5), int8(0), // 0
			1, OP_THROW, // 3
			OP_INC,             // 5: exception is on the stack
			OP_ENDTRY, int8(2), // 6
			OP_RET, // 8
		),
		want: "2",
	}, {
		name: "finally after a normal exit",
		prog: code(
			OP_TRY, int8(0), int8(6), // 0
			1,                  // 3
			OP_ENDTRY, int8(4), // 4
			2, OP_ENDFINALLY, // 6
			OP_RET, // 8
		),
		want: "1 2",
	}, {
		name: "catch then finally",
		prog: code(
			OP_TRY, int8(6), int8(9), // 0
			1, OP_THROW, OP_NOP, // 3
			OP_DROP, OP_ENDTRY, int8(4), // 6
			3, OP_ENDFINALLY, // 9
			4, // 11
		),
		want: "3 4",
	}, {
		name: "finally rethrows",
		prog: code(
			OP_TRY, int8(0), int8(5), // 0
			1, OP_THROW, // 3
			2, OP_ENDFINALLY, // 5
		),
		wantErr: ErrUncaughtException,
	}, {
		name: "throw from catch reaches the outer handler",
		prog: code(
			OP_TRY, int8(12), int8(0), // 0
			OP_TRY, int8(5), int8(0), // 3
			1, OP_THROW, // 6
			OP_INC, OP_THROW, // 8
			OP_ENDTRY, int8(5), // 10
			OP_INC,             // 12
			OP_ENDTRY, int8(2), // 13
			OP_RET, // 15
		),
		want: "3",
	}, {
		name: "fault is caught",
		prog: code(
			OP_TRY, int8(6), int8(0), // 0
			1, 0, OP_DIV, // 3
			OP_ISTYPE, ByteStringType, // 6
			OP_ENDTRY, int8(2), // 8
			OP_RET, // 10
		),
		want: "true",
	}, {
		name: "exception from a callee",
		prog: code(
			OP_TRY, int8(7), int8(0), // 0
			OP_CALL, int8(7), // 3
			OP_ENDTRY, int8(7), // 5
			OP_DROP, 5, // 7
			OP_RET,      // 9
			1, OP_THROW, // 10
			OP_RET, // 12
		),
		want: "5",
	}, {
		name:    "abort is not caught",
		prog:    code(OP_TRY, int8(4), int8(0), OP_ABORT, 1),
		wantErr: ErrAbort,
	}, {
		name:    "try without handlers",
		prog:    code(OP_TRY, int8(0), int8(0)),
		wantErr: ErrBadValue,
	}, {
		name:    "ENDTRY outside a try",
		prog:    code(OP_ENDTRY, int8(2), OP_RET),
		wantErr: ErrBadValue,
	}, {
		name:    "ENDFINALLY outside a finally",
		prog:    code(OP_TRY, int8(0), int8(4), OP_ENDFINALLY, OP_ENDFINALLY),
		wantErr: ErrBadValue,
	}, {
		name:    "try nesting",
		prog:    code(OP_TRY, int8(0), int8(3), OP_TRY, int8(0), int8(3), OP_NOP),
		wantErr: ErrBadValue,
		limits:  func(l *Limits) { l.MaxTryNestingDepth = 1 },
	}})
}

func TestUncaughtException(t *testing.T) {
	e := run(t, code("oops", OP_THROW), testGas)
	if e.State() != Fault {
		t.Fatalf("state = %s", e.State())
	}
	testutil.ExpectEqual(t, KindOf(e.Fault()), UncaughtException, "fault kind")
	if e.UncaughtException() == nil || e.UncaughtException().String() != "0x6f6f7073" {
		t.Errorf("uncaught exception = %v", e.UncaughtException())
	}
	if !strings.Contains(e.Fault().Error(), "oops") {
		t.Errorf("fault %q does not carry the exception", e.Fault())
	}

	// An uncaught fault reports its own kind.
	e = run(t, code(OP_TRY, int8(0), int8(6), 1, 0, OP_DIV, OP_ENDFINALLY), testGas)
	testutil.ExpectEqual(t, KindOf(e.Fault()), DivideByZero, "fault kind after finally")
}
