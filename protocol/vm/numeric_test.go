package vm

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/onyx-protocol/neovm/testutil"
)

func TestNumericOps(t *testing.T) {
	maxInt256 := append(bytesOf(0xff, 31), 0x7f)
	runCases(t, []opCase{{
		name: "SIGN",
		prog: code(-5, OP_SIGN, 0, OP_SIGN, 5, OP_SIGN),
		want: "-1 0 1",
	}, {
		name: "ABS",
		prog: code(-5, OP_ABS),
		want: "5",
	}, {
		name: "NEGATE",
		prog: code(5, OP_NEGATE),
		want: "-5",
	}, {
		name: "INC DEC",
		prog: code(5, OP_INC, 5, OP_DEC),
		want: "6 4",
	}, {
		name: "ADD",
		prog: code(2, 3, OP_ADD),
		want: "5",
	}, {
		name: "ADD byte string",
		prog: code("\x01", 1, OP_ADD),
		want: "2",
	}, {
		name: "ADD boolean",
		prog: code(OP_PUSHT, 1, OP_ADD),
		want: "2",
	}, {
		name:    "ADD array",
		prog:    code(OP_NEWARRAY0, 1, OP_ADD),
		wantErr: ErrInvalidCast,
	}, {
		name:    "ADD oversized byte string",
		prog:    code(string(bytesOf(1, 33)), 1, OP_ADD),
		wantErr: ErrInvalidCast,
	}, {
		name: "SUB",
		prog: code(2, 3, OP_SUB),
		want: "-1",
	}, {
		name: "MUL",
		prog: code(4, 3, OP_MUL),
		want: "12",
	}, {
		name: "DIV truncates toward zero",
		prog: code(-7, 2, OP_DIV),
		want: "-3",
	}, {
		name: "MOD takes the sign of the dividend",
		prog: code(-7, 2, OP_MOD, 7, -2, OP_MOD),
		want: "-1 1",
	}, {
		name:    "DIV by zero",
		prog:    code(2, 0, OP_DIV),
		wantErr: ErrDivideByZero,
	}, {
		name:    "MOD by zero",
		prog:    code(2, 0, OP_MOD),
		wantErr: ErrDivideByZero,
	}, {
		name: "POW",
		prog: code(2, 10, OP_POW),
		want: "1024",
	}, {
		name:    "POW negative exponent",
		prog:    code(2, -1, OP_POW),
		wantErr: ErrBadValue,
	}, {
		name: "SQRT",
		prog: code(17, OP_SQRT),
		want: "4",
	}, {
		name:    "SQRT negative",
		prog:    code(-1, OP_SQRT),
		wantErr: ErrBadValue,
	}, {
		name: "MODMUL",
		prog: code(3, 4, 5, OP_MODMUL),
		want: "2",
	}, {
		name: "MODPOW",
		prog: code(2, 10, 1000, OP_MODPOW),
		want: "24",
	}, {
		name: "MODPOW inverse",
		prog: code(3, -1, 7, OP_MODPOW),
		want: "5",
	}, {
		name:    "MODPOW no inverse",
		prog:    code(2, -1, 4, OP_MODPOW),
		wantErr: ErrBadValue,
	}, {
		name: "SHL",
		prog: code(1, 8, OP_SHL),
		want: "256",
	}, {
		name: "SHR",
		prog: code(256, 4, OP_SHR),
		want: "16",
	}, {
		name: "SHR negative rounds down",
		prog: code(-3, 1, OP_SHR),
		want: "-2",
	}, {
		name: "SHL by zero",
		prog: code(5, 0, OP_SHL),
		want: "5",
	}, {
		name:    "SHL past the limit",
		prog:    code(1, 257, OP_SHL),
		wantErr: ErrInvalidShiftAmount,
	}, {
		name:    "SHL negative",
		prog:    code(1, -1, OP_SHL),
		wantErr: ErrInvalidShiftAmount,
	}, {
		name:    "INC overflow",
		prog:    code(OP_PUSHINT256, maxInt256, OP_INC),
		wantErr: ErrItemSizeExceeded,
	}, {
		name:    "SHL overflow",
		prog:    code(1, 256, OP_SHL),
		wantErr: ErrItemSizeExceeded,
	}, {
		name: "NOT",
		prog: code(0, OP_NOT, 2, OP_NOT),
		want: "true false",
	}, {
		name: "BOOLAND BOOLOR",
		prog: code(1, 0, OP_BOOLAND, 1, 0, OP_BOOLOR),
		want: "false true",
	}, {
		name: "NZ",
		prog: code(0, OP_NZ, -3, OP_NZ),
		want: "false true",
	}, {
		name: "NUMEQUAL NUMNOTEQUAL",
		prog: code(2, 2, OP_NUMEQUAL, 2, 2, OP_NUMNOTEQUAL),
		want: "true false",
	}, {
		name: "LT LE GT GE",
		prog: code(1, 2, OP_LT, 2, 2, OP_LE, 1, 2, OP_GT, 2, 2, OP_GE),
		want: "true true false true",
	}, {
		name: "LT with Null",
		prog: code(OP_PUSHNULL, 1, OP_LT, 1, OP_PUSHNULL, OP_GE),
		want: "false false",
	}, {
		name: "MIN MAX",
		prog: code(3, -4, OP_MIN, 3, -4, OP_MAX),
		want: "-4 3",
	}, {
		name: "WITHIN",
		prog: code(2, 1, 3, OP_WITHIN, 3, 1, 3, OP_WITHIN),
		want: "true false",
	}, {
		name: "AND OR XOR",
		prog: code(12, 10, OP_AND, 12, 10, OP_OR, 12, 10, OP_XOR),
		want: "8 14 6",
	}, {
		name: "INVERT",
		prog: code(0, OP_INVERT, -6, OP_INVERT),
		want: "-1 5",
	}, {
		name:    "arithmetic underflow",
		prog:    code(1, OP_ADD),
		wantErr: ErrStackUnderflow,
	}})
}

// x1 == (x1 / x2) * x2 + x1 % x2 for every sign combination.
func TestDivisionLaw(t *testing.T) {
	vals := []int64{-17, -7, -1, 1, 2, 7, 17}
	for _, x1 := range vals {
		for _, x2 := range vals {
			e := run(t, code(int(x1), int(x2), OP_DIV, int(x1), int(x2), OP_MOD), testGas)
			items := e.ResultStack().Items()
			if len(items) != 2 {
				t.Fatalf("%d, %d: state %s, fault %v", x1, x2, e.State(), e.Fault())
			}
			q, r := items[0].(*Integer).Big(), items[1].(*Integer).Big()
			got := new(big.Int).Mul(q, big.NewInt(x2))
			got.Add(got, r)
			testutil.ExpectEqual(t, got.Int64(), x1, fmt.Sprintf("(%d / %d) * %d + %d %% %d", x1, x2, x2, x1, x2))
			testutil.ExpectEqual(t, q.Int64(), x1/x2, fmt.Sprintf("%d / %d", x1, x2))
			testutil.ExpectEqual(t, r.Int64(), x1%x2, fmt.Sprintf("%d %% %d", x1, x2))
		}
	}
}

func bytesOf(b byte, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = b
	}
	return s
}
