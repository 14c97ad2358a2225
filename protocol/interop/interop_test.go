package interop

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/log"
	"github.com/onyx-protocol/neovm/protocol/receipt"
	"github.com/onyx-protocol/neovm/protocol/vm"
	"github.com/onyx-protocol/neovm/protocol/vmutil"
	"github.com/onyx-protocol/neovm/testutil"
)

var testCtx = log.NewContext(context.Background(), "interop-test")

func asm(t testing.TB, src string) []byte {
	t.Helper()
	prog, err := vmutil.Assemble(src)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	return prog
}

// run executes prog with svc attached and returns the engine.
func run(t testing.TB, svc *Service, prog []byte, opts ...vm.Option) *vm.Engine {
	t.Helper()
	e := vm.New(append([]vm.Option{vm.WithInterop(svc)}, opts...)...)
	if _, err := e.LoadScript(vm.NewScript(prog), 1<<30); err != nil {
		testutil.FatalErr(t, err)
	}
	e.Execute()
	return e
}

func mustHalt(t testing.TB, e *vm.Engine) []vm.Item {
	t.Helper()
	if e.State() != vm.Halt {
		t.Fatalf("state %s, fault %v", e.State(), e.Fault())
	}
	return e.ResultStack().Items()
}

func mustFault(t testing.TB, e *vm.Engine, want vm.FaultKind) {
	t.Helper()
	if e.State() != vm.Fault {
		t.Fatalf("state %s, want Fault", e.State())
	}
	if got := vm.KindOf(e.Fault()); got != want {
		t.Fatalf("fault %v (%s), want %s", e.Fault(), got, want)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := func(*Service, *vm.Engine) error { return nil }
	testutil.ExpectError(t, nil, "register", func() error { return r.Register("A.B", 5, noop) })
	testutil.ExpectError(t, ErrDuplicate, "register again", func() error { return r.Register("A.B", 5, noop) })
	testutil.ExpectError(t, vm.ErrBadValue, "negative price", func() error { return r.Register("A.C", -1, noop) })
	testutil.ExpectError(t, vm.ErrBadValue, "no handler", func() error { return r.Register("A.D", 1, nil) })

	sc, ok := r.Lookup(vm.InteropID("A.B"))
	if !ok || sc.Name != "A.B" || sc.Price != 5 {
		t.Errorf("Lookup = %+v, %v", sc, ok)
	}
	if _, ok := r.LookupName("A.X"); ok {
		t.Error("LookupName found an unregistered name")
	}

	r2, err := r.WithPrices(map[string]int64{"A.B": 9})
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if sc, _ := r2.LookupName("A.B"); sc.Price != 9 {
		t.Errorf("overridden price = %d", sc.Price)
	}
	if sc, _ := r.LookupName("A.B"); sc.Price != 5 {
		t.Errorf("original price changed to %d", sc.Price)
	}
	testutil.ExpectError(t, ErrUnknownSyscall, "override unknown", func() error {
		_, err := r.WithPrices(map[string]int64{"A.Z": 1})
		return err
	})

	names := DefaultRegistry.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
	if len(names) != 18 {
		t.Errorf("default registry has %d syscalls", len(names))
	}
}

func TestInvokeChargesGas(t *testing.T) {
	prog := asm(t, "SYSCALL 'System.Runtime.Platform'")
	for _, factor := range []int64{1, 30} {
		e := run(t, NewService(testCtx), prog, vm.WithFeeFactor(factor))
		items := mustHalt(t, e)
		if len(items) != 1 || items[0].String() != "0x4e454f" {
			t.Errorf("result = %v", items)
		}
		if got, want := e.GasConsumed(), 8*factor; got != want {
			t.Errorf("fee factor %d: gas %d, want %d", factor, got, want)
		}
	}
}

func TestUnknownSyscall(t *testing.T) {
	e := run(t, NewService(testCtx), asm(t, "SYSCALL 0x01020304"))
	mustFault(t, e, vm.InteropFailure)
	if errors.Root(e.Fault()) != vm.ErrInteropFailure {
		t.Errorf("root = %v", errors.Root(e.Fault()))
	}
}

func TestUnknownSyscallCaught(t *testing.T) {
	e := run(t, NewService(testCtx), asm(t, `
		TRY @catch 0
		SYSCALL 0x01020304
	catch:
		DROP 1
		ENDTRY @done
	done:
		RET
	`))
	items := mustHalt(t, e)
	if len(items) != 1 || items[0].String() != "1" {
		t.Errorf("result = %v", items)
	}
}

func TestRuntime(t *testing.T) {
	cases := []struct {
		name      string
		src       string
		want      string
		wantFault vm.FaultKind
	}{
		{name: "gas left", src: "SYSCALL 'System.Runtime.GasLeft'", want: "1073741808"},
		{name: "burn", src: "100 SYSCALL 'System.Runtime.BurnGas' SYSCALL 'System.Runtime.GasLeft'", want: "1073741691"},
		{name: "burn zero", src: "0 SYSCALL 'System.Runtime.BurnGas'", wantFault: vm.BadValue},
		{name: "burn too much", src: "9223372036854775807 SYSCALL 'System.Runtime.BurnGas'", wantFault: vm.OutOfGas},
		{name: "log", src: "'hello' SYSCALL 'System.Runtime.Log' 1", want: "1"},
		{name: "log not utf8", src: "0xff SYSCALL 'System.Runtime.Log'", wantFault: vm.BadValue},
		{name: "notify", src: "1 2 2 PACK 'ev' SYSCALL 'System.Runtime.Notify' 1", want: "1"},
		{name: "notify not array", src: "1 'ev' SYSCALL 'System.Runtime.Notify'", wantFault: vm.InvalidCast},
		{name: "notify long name", src: "NEWARRAY0 '0123456789012345678901234567890123' SYSCALL 'System.Runtime.Notify'", wantFault: vm.BadValue},
		{name: "log underflow", src: "SYSCALL 'System.Runtime.Log'", wantFault: vm.StackUnderflow},
		{name: "no calling script", src: "SYSCALL 'System.Runtime.GetCallingScriptHash'", want: "Null"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := run(t, NewService(testCtx), asm(t, c.src))
			if c.wantFault != vm.NoFault {
				mustFault(t, e, c.wantFault)
				return
			}
			items := mustHalt(t, e)
			if len(items) == 0 || items[len(items)-1].String() != c.want {
				t.Errorf("result = %v, want %s on top", items, c.want)
			}
		})
	}
}

func TestNotificationsAndLogs(t *testing.T) {
	prog := asm(t, `
		'first' SYSCALL 'System.Runtime.Log'
		'x' 7 2 PACK 'Transfer' SYSCALL 'System.Runtime.Notify'
		'second' SYSCALL 'System.Runtime.Log'
	`)
	svc := NewService(testCtx)
	mustHalt(t, run(t, svc, prog))

	hash := Hash160(prog)
	logs := svc.Logs()
	if len(logs) != 2 || logs[0].Message != "first" || logs[1].Message != "second" {
		t.Fatalf("logs = %+v", logs)
	}
	if hex.EncodeToString(logs[0].Contract) != hex.EncodeToString(hash) {
		t.Errorf("log contract = %x, want %x", logs[0].Contract, hash)
	}
	notes := svc.Notifications()
	if len(notes) != 1 || notes[0].Name != "Transfer" {
		t.Fatalf("notifications = %+v", notes)
	}
	if got := notes[0].State.String(); got != "Array[7 0x78]" {
		t.Errorf("state = %s", got)
	}

	r := new(receipt.Receipt)
	svc.Fill(r)
	if len(r.Logs) != 2 || len(r.Notifications) != 1 {
		t.Errorf("filled receipt = %+v", r)
	}
}

// The notification keeps the state it was raised with even if the
// array changes afterward.
func TestNotificationIsCopied(t *testing.T) {
	svc := NewService(testCtx)
	mustHalt(t, run(t, svc, asm(t, `
		1 1 PACK DUP
		'ev' SYSCALL 'System.Runtime.Notify'
		DUP 0 9 SETITEM
	`)))
	if got := svc.Notifications()[0].State.String(); got != "Array[1]" {
		t.Errorf("state = %s", got)
	}
}

func TestExecutingScriptHash(t *testing.T) {
	prog := asm(t, "SYSCALL 'System.Runtime.GetExecutingScriptHash'")
	items := mustHalt(t, run(t, NewService(testCtx), prog))
	if want := "0x" + hex.EncodeToString(Hash160(prog)); items[0].String() != want {
		t.Errorf("hash = %s, want %s", items[0], want)
	}
}
