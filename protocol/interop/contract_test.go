package interop

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/onyx-protocol/neovm/protocol/vm"
	"github.com/onyx-protocol/neovm/protocol/vmutil"
	"github.com/onyx-protocol/neovm/testutil"
)

// countingProvider counts lookups that reach the provider.
type countingProvider struct {
	*MemoryContracts
	n int
}

func (p *countingProvider) ContractState(hash []byte) (*ContractState, error) {
	p.n++
	return p.MemoryContracts.ContractState(hash)
}

func deploy(t testing.TB, p *MemoryContracts, src string, tokens []MethodToken, methods ...Method) []byte {
	t.Helper()
	hash, err := p.Deploy(&ContractState{Script: asm(t, src), Methods: methods, Tokens: tokens})
	if err != nil {
		testutil.FatalErr(t, err)
	}
	return hash
}

const mathSrc = `
	INITSLOT 0 2 LDARG0 LDARG1 SUB RET
	1 2 RET
	RET
`

var mathMethods = []Method{
	{Name: "sub", Offset: 0, Params: 2, Returns: true},
	{Name: "two", Offset: 7, Params: 0, Returns: true},
	{Name: "none", Offset: 10, Params: 0, Returns: false},
	{Name: "_deploy", Offset: 10, Params: 0, Returns: false},
}

func callProg(t testing.TB, hash []byte, method string, args ...interface{}) []byte {
	t.Helper()
	prog, err := vmutil.CallProgram(hash, method, args...)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	return prog
}

func TestContractCall(t *testing.T) {
	p := NewMemoryContracts()
	hash := deploy(t, p, mathSrc, nil, mathMethods...)
	contracts := NewContractCache(p, 0)

	cases := []struct {
		name      string
		prog      []byte
		want      string
		wantFault vm.FaultKind
	}{
		{name: "argument order", prog: callProg(t, hash, "sub", 2, 3), want: "-1"},
		{name: "no return value", prog: callProg(t, hash, "none"), want: ""},
		{name: "too many return values", prog: callProg(t, hash, "two"), wantFault: vm.BadValue},
		{name: "private method", prog: callProg(t, hash, "_deploy"), wantFault: vm.InteropFailure},
		{name: "unknown method", prog: callProg(t, hash, "mul", 2, 3), wantFault: vm.InteropFailure},
		{name: "argument count", prog: callProg(t, hash, "sub", 2), wantFault: vm.InteropFailure},
		{name: "unknown contract", prog: callProg(t, make([]byte, HashSize), "sub", 2, 3), wantFault: vm.InteropFailure},
		{name: "short hash", prog: callProg(t, hash[:3], "sub", 2, 3), wantFault: vm.BadValue},
		{name: "arguments not an array", prog: asm(t, "1 'sub' 0x"+hex.EncodeToString(hash)+" SYSCALL 'System.Contract.Call'"), wantFault: vm.InvalidCast},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := run(t, NewService(testCtx, WithContracts(contracts)), c.prog)
			if c.wantFault != vm.NoFault {
				mustFault(t, e, c.wantFault)
				return
			}
			if got := stackString(mustHalt(t, e)); got != c.want {
				t.Errorf("result = %q, want %q", got, c.want)
			}
		})
	}
}

func TestContractCallWithoutContracts(t *testing.T) {
	e := run(t, NewService(testCtx), callProg(t, make([]byte, HashSize), "sub", 1, 2))
	mustFault(t, e, vm.InteropFailure)
	if !strings.Contains(e.Fault().Error(), ErrUnknownContract.Error()) {
		t.Errorf("fault %v does not mention an unknown contract", e.Fault())
	}
}

// A fault in the callee is caught by the caller's handler, and the
// callee's context is gone afterward.
func TestContractCallCaught(t *testing.T) {
	p := NewMemoryContracts()
	hash := deploy(t, p, "'boom' THROW", nil, Method{Name: "fail", Returns: true})
	prog := asm(t, `
		TRY @catch 0
		NEWARRAY0 'fail' 0x`+hex.EncodeToString(hash)+` SYSCALL 'System.Contract.Call'
	catch:
		ENDTRY @done
	done:
		RET
	`)
	e := run(t, NewService(testCtx, WithContracts(NewContractCache(p, 0))), prog)
	if got := stackString(mustHalt(t, e)); got != "0x626f6f6d" {
		t.Errorf("result = %s", got)
	}
}

func TestCallT(t *testing.T) {
	p := NewMemoryContracts()
	double := deploy(t, p, "INITSLOT 0 1 LDARG0 2 MUL RET", nil,
		Method{Name: "double", Params: 1, Returns: true})
	tokens := []MethodToken{
		{Hash: double, Method: "double", Params: 1, Returns: true},
		{Hash: double, Method: "double", Params: 2, Returns: true},
	}
	caller := deploy(t, p, "21 CALLT 0 RET 1 2 CALLT 1 RET 1 CALLT 2 RET", tokens,
		Method{Name: "run", Offset: 0, Returns: true},
		Method{Name: "mismatch", Offset: 6, Returns: true},
		Method{Name: "missing", Offset: 12, Returns: true},
	)
	contracts := NewContractCache(p, 0)

	cases := []struct {
		name      string
		prog      []byte
		want      string
		wantFault vm.FaultKind
	}{
		{name: "token call", prog: callProg(t, caller, "run"), want: "42"},
		{name: "token does not match method", prog: callProg(t, caller, "mismatch"), wantFault: vm.InteropFailure},
		{name: "token out of range", prog: callProg(t, caller, "missing"), wantFault: vm.BadValue},
		{name: "entry script has no tokens", prog: asm(t, "1 CALLT 0"), wantFault: vm.InteropFailure},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := run(t, NewService(testCtx, WithContracts(contracts)), c.prog)
			if c.wantFault != vm.NoFault {
				mustFault(t, e, c.wantFault)
				return
			}
			if got := stackString(mustHalt(t, e)); got != c.want {
				t.Errorf("result = %q, want %q", got, c.want)
			}
		})
	}
}

func TestCallingScriptHash(t *testing.T) {
	p := NewMemoryContracts()
	hash := deploy(t, p, `
		SYSCALL 'System.Runtime.GetCallingScriptHash'
		SYSCALL 'System.Runtime.GetExecutingScriptHash'
		2 PACK RET
	`, nil, Method{Name: "who", Returns: true})
	prog := callProg(t, hash, "who")
	items := mustHalt(t, run(t, NewService(testCtx, WithContracts(NewContractCache(p, 0))), prog))
	arr, ok := items[0].(*vm.Array)
	if !ok || arr.Len() != 2 {
		t.Fatalf("result = %v", items)
	}
	if got, want := arr.At(0).String(), "0x"+hex.EncodeToString(hash); got != want {
		t.Errorf("executing = %s, want %s", got, want)
	}
	if got, want := arr.At(1).String(), "0x"+hex.EncodeToString(Hash160(prog)); got != want {
		t.Errorf("calling = %s, want %s", got, want)
	}
}

func TestContractCache(t *testing.T) {
	p := &countingProvider{MemoryContracts: NewMemoryContracts()}
	a := deploy(t, p.MemoryContracts, "RET", nil, Method{Name: "a"})
	b := deploy(t, p.MemoryContracts, "NOP RET", nil, Method{Name: "b"})
	c := NewContractCache(p, 1)

	for i := 0; i < 3; i++ {
		got, err := c.Contract(a)
		if err != nil {
			testutil.FatalErr(t, err)
		}
		if !bytes.Equal(got.Hash, a) {
			t.Fatalf("hash = %x, want %x", got.Hash, a)
		}
	}
	if p.n != 1 {
		t.Errorf("provider called %d times, want 1", p.n)
	}
	if _, err := c.Contract(b); err != nil {
		testutil.FatalErr(t, err)
	}
	if _, err := c.Contract(a); err != nil {
		testutil.FatalErr(t, err)
	}
	if p.n != 3 || c.Len() != 1 {
		t.Errorf("after eviction: %d provider calls, %d cached", p.n, c.Len())
	}
	testutil.ExpectError(t, ErrUnknownContract, "unknown", func() error {
		_, err := c.Contract(make([]byte, HashSize))
		return err
	})
}

func TestNewContractErrors(t *testing.T) {
	cases := []struct {
		name    string
		state   ContractState
		wantErr error
	}{
		{"bad script", ContractState{Script: []byte{0x0c, 0x05}}, vm.ErrInvalidOffset},
		{"offset inside instruction", ContractState{
			Script:  asm(t, "PUSHINT32 7 RET"),
			Methods: []Method{{Name: "m", Offset: 1}},
		}, vm.ErrInvalidJumpTarget},
		{"duplicate method", ContractState{
			Script:  asm(t, "RET"),
			Methods: []Method{{Name: "m"}, {Name: "m"}},
		}, vm.ErrBadValue},
		{"bad token", ContractState{
			Script: asm(t, "RET"),
			Tokens: []MethodToken{{Hash: []byte{1}, Method: "m"}},
		}, vm.ErrBadValue},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			testutil.ExpectError(t, c.wantErr, c.name, func() error {
				_, err := NewContract(&c.state)
				return err
			})
		})
	}
}
