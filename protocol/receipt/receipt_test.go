package receipt

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/onyx-protocol/neovm/protocol/vm"
	"github.com/onyx-protocol/neovm/protocol/vmutil"
	"github.com/onyx-protocol/neovm/testutil"
)

func runSrc(t testing.TB, src string) *vm.Engine {
	t.Helper()
	prog, err := vmutil.Assemble(src)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	e := vm.New()
	if _, err := e.LoadScript(vm.NewScript(prog), 1<<20); err != nil {
		testutil.FatalErr(t, err)
	}
	e.Execute()
	return e
}

func TestReceiptRoundTrip(t *testing.T) {
	e := runSrc(t, "-300 'ab' 2 PACK PUSHT NEWMAP DUP 'k' 0 SETITEM PUSHNULL 2 NEWBUFFER")
	r, err := New(e)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if r.State != "Halt" || r.FaultKind != "" || r.GasConsumed != e.GasConsumed() {
		t.Errorf("receipt = %+v", r)
	}
	var got []string
	for _, v := range r.Stack {
		got = append(got, v.String())
	}
	want := []string{"Array[0x6162 -300]", "true", "Map{0x6b:0}", "Null", "Buffer(0x0000)"}
	testutil.ExpectEqual(t, got, want, "stack")

	b, err := r.Encode()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	r2, err := Decode(b)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if len(r2.Stack) != len(r.Stack) {
		t.Fatalf("decoded %d stack values, want %d", len(r2.Stack), len(r.Stack))
	}
	for i := range r.Stack {
		if !r.Stack[i].Equal(r2.Stack[i]) {
			t.Errorf("value %d: decoded %s, want %s\n%s", i, r2.Stack[i], r.Stack[i], spew.Sdump(r2.Stack[i]))
		}
	}
	b2, err := r2.Encode()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if !bytes.Equal(b, b2) {
		t.Errorf("re-encoding differs:\n%x\n%x", b, b2)
	}
}

func TestDigestDeterministic(t *testing.T) {
	const src = "1 2 3 3 PACK 'x' 0 5 NEWARRAY_T Integer"
	d1, err := mustReceipt(t, runSrc(t, src)).Digest()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	d2, err := mustReceipt(t, runSrc(t, src)).Digest()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if d1 != d2 {
		t.Errorf("digests differ: %x %x", d1, d2)
	}
	d3, err := mustReceipt(t, runSrc(t, src+" DROP")).Digest()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if d1 == d3 {
		t.Error("different runs have the same digest")
	}
}

func mustReceipt(t testing.TB, e *vm.Engine) *Receipt {
	t.Helper()
	r, err := New(e)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	return r
}

func TestFaultReceipt(t *testing.T) {
	r := mustReceipt(t, runSrc(t, "1 0 DIV"))
	if r.State != "Fault" || r.FaultKind != "DivideByZero" || r.Fault == "" {
		t.Errorf("receipt = %+v", r)
	}

	r = mustReceipt(t, runSrc(t, "'oops' THROW"))
	if r.FaultKind != "UncaughtException" || r.Exception == nil || r.Exception.String() != "0x6f6f7073" {
		t.Errorf("receipt = %s", spew.Sdump(r))
	}
}

func TestNotTerminal(t *testing.T) {
	e := vm.New()
	if _, err := e.LoadScript(vm.NewScript([]byte{byte(vm.OP_NOP)}), 10); err != nil {
		testutil.FatalErr(t, err)
	}
	testutil.ExpectError(t, ErrNotTerminal, "New before Execute", func() error {
		_, err := New(e)
		return err
	})
}

func TestFromItem(t *testing.T) {
	self := vm.NewArray(vm.NewInt(1))
	self.Append(self)

	m := vm.NewMap()
	if err := m.Set(vm.NewByteString([]byte("k")), vm.NewStruct(vm.NewBool(false))); err != nil {
		t.Fatal(err)
	}

	big1, _ := vm.NewBigInt(new(big.Int).Lsh(big.NewInt(-1), 200))
	cases := []struct {
		item vm.Item
		want string
	}{
		{vm.NewNull(), "Null"},
		{big1, big1.String()},
		{vm.NewByteString(nil), "0x"},
		{vm.NewPointer(nil, 7), "Pointer(7)"},
		{vm.NewInterop(struct{}{}), "InteropInterface"},
		{self, "Array[1 <Array ref 1>]"},
		{m, "Map{0x6b:Struct[false]}"},
	}
	for _, c := range cases {
		v, err := FromItem(c.item)
		if err != nil {
			testutil.FatalErr(t, err)
		}
		if got := v.String(); got != c.want {
			t.Errorf("FromItem(%s) = %s, want %s", c.item, got, c.want)
		}
	}
}

func TestFromItemTooLarge(t *testing.T) {
	it := vm.Item(vm.NewInt(1))
	for i := 0; i < 15; i++ {
		it = vm.NewArray(it, it)
	}
	testutil.ExpectError(t, ErrTooLarge, "shared subtrees", func() error {
		_, err := FromItem(it)
		return err
	})
}
