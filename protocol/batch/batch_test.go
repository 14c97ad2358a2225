package batch

import (
	"context"
	"strconv"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/onyx-protocol/neovm/protocol/interop"
	"github.com/onyx-protocol/neovm/protocol/policy"
	"github.com/onyx-protocol/neovm/protocol/receipt"
	"github.com/onyx-protocol/neovm/protocol/vmutil"
	"github.com/onyx-protocol/neovm/testutil"
)

func job(t testing.TB, name, src string) Job {
	t.Helper()
	prog, err := vmutil.Assemble(src)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	return Job{Name: name, Program: prog}
}

func TestRunOrder(t *testing.T) {
	var jobs []Job
	for i := 0; i < 50; i++ {
		jobs = append(jobs, job(t, strconv.Itoa(i), strconv.Itoa(i)+" 1 ADD"))
	}
	results, sum, err := (&Runner{Workers: 4}).Run(context.Background(), jobs)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	for i, res := range results {
		if res.Name != jobs[i].Name {
			t.Fatalf("result %d is for job %s", i, res.Name)
		}
		if len(res.Receipt.Stack) != 1 || res.Receipt.Stack[0].String() != strconv.Itoa(i+1) {
			t.Errorf("job %d result:\n%s", i, spew.Sdump(res.Receipt))
		}
		d, err := res.Receipt.Digest()
		if err != nil {
			testutil.FatalErr(t, err)
		}
		if d != res.Digest {
			t.Errorf("job %d digest mismatch", i)
		}
	}
	if sum.Runs != 50 || sum.Halted != 50 || sum.Faulted != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunFaults(t *testing.T) {
	jobs := []Job{
		job(t, "ok", "1 2 ADD"),
		job(t, "div", "1 0 DIV"),
		job(t, "throw", "'no' THROW"),
		{Name: "gas", Program: []byte{0x11, 0x12, 0x9e}, GasLimit: 5},
	}
	results, sum, err := new(Runner).Run(context.Background(), jobs)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	var kinds []string
	for _, res := range results {
		kinds = append(kinds, res.Receipt.State+"/"+res.Receipt.FaultKind)
	}
	want := []string{"Halt/", "Fault/DivideByZero", "Fault/UncaughtException", "Fault/OutOfGas"}
	testutil.ExpectEqual(t, kinds, want, "outcomes")
	testutil.ExpectEqual(t, sum.Faults, map[string]int{"DivideByZero": 1, "UncaughtException": 1, "OutOfGas": 1}, "fault counts")
	testutil.ExpectEqual(t, sum.Halted, 1, "halted")
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := []Job{job(t, "a", "1"), job(t, "b", "2")}
	results, sum, err := new(Runner).Run(ctx, jobs)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	for _, res := range results {
		if res.Receipt.FaultKind != "Canceled" {
			t.Errorf("job %s: %+v", res.Name, res.Receipt)
		}
	}
	testutil.ExpectEqual(t, sum.Faults["Canceled"], 2, "canceled runs")
}

// Only halted runs are committed, and writes to the same key land
// in input order.
func TestRunCommit(t *testing.T) {
	st := interop.NewStore()
	put := job(t, "put", "'v1' 'k' SYSCALL 'System.Storage.Put'")
	jobs := []Job{
		put,
		job(t, "put-fault", "'v2' 'k' SYSCALL 'System.Storage.Put' 1 0 DIV"),
		job(t, "other", "'v3' 'k' SYSCALL 'System.Storage.Put' NOP"),
	}
	r := &Runner{Store: st, Commit: true}
	if _, _, err := r.Run(context.Background(), jobs); err != nil {
		testutil.FatalErr(t, err)
	}
	testutil.ExpectEqual(t, st.Len(), 2, "committed keys")
	got, ok := st.Get(interop.StorageKey(interop.Hash160(put.Program), []byte("k")))
	if !ok || string(got) != "v1" {
		t.Errorf("committed value = %q, %v", got, ok)
	}

	// without Commit the store is untouched
	st2 := interop.NewStore()
	if _, _, err := (&Runner{Store: st2}).Run(context.Background(), jobs[:1]); err != nil {
		testutil.FatalErr(t, err)
	}
	testutil.ExpectEqual(t, st2.Len(), 0, "uncommitted keys")
}

func TestRunPolicy(t *testing.T) {
	p := policy.Default()
	p.FeeFactor = 3
	results, _, err := (&Runner{Policy: p}).Run(context.Background(), []Job{job(t, "add", "1 2 ADD")})
	if err != nil {
		testutil.FatalErr(t, err)
	}
	testutil.ExpectEqual(t, results[0].Receipt.GasConsumed, int64(3*(1+1+8)), "gas")

	p.OpcodePrices = map[string]int64{"FROB": 1}
	testutil.ExpectError(t, policy.ErrInvalid, "bad opcode price", func() error {
		_, _, err := (&Runner{Policy: p}).Run(context.Background(), nil)
		return err
	})
}

func TestRunContracts(t *testing.T) {
	p := interop.NewMemoryContracts()
	prog, err := vmutil.Assemble("7 RET")
	if err != nil {
		testutil.FatalErr(t, err)
	}
	hash, err := p.Deploy(&interop.ContractState{Script: prog, Methods: []interop.Method{{Name: "seven", Returns: true}}})
	if err != nil {
		testutil.FatalErr(t, err)
	}
	call, err := vmutil.CallProgram(hash, "seven")
	if err != nil {
		testutil.FatalErr(t, err)
	}
	r := &Runner{Contracts: interop.NewContractCache(p, 0)}
	results, _, err := r.Run(context.Background(), []Job{{Name: "a", Program: call}, {Name: "b", Program: call}})
	if err != nil {
		testutil.FatalErr(t, err)
	}
	for _, res := range results {
		if len(res.Receipt.Stack) != 1 || res.Receipt.Stack[0].String() != "7" {
			t.Errorf("job %s: %s", res.Name, spew.Sdump(res.Receipt))
		}
	}
	if results[0].Digest != results[1].Digest {
		t.Error("identical jobs have different digests")
	}
}

func TestSummarize(t *testing.T) {
	var results []Result
	for _, gas := range []int64{10, 20, 30, 40} {
		results = append(results, Result{Receipt: &receipt.Receipt{State: "Halt", GasConsumed: gas}})
	}
	results = append(results, Result{})
	s := Summarize(results)
	want := &Summary{
		Runs:     4,
		Halted:   4,
		Faults:   map[string]int{},
		GasTotal: 100,
		GasMean:  25,
		GasP50:   20,
		GasP95:   40,
		GasP99:   40,
		GasMax:   40,
	}
	testutil.ExpectEqual(t, s, want, "summary")

	empty := Summarize(nil)
	if empty.Runs != 0 || empty.GasMax != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}
