// Package batch runs independent scripts concurrently, one engine
// per script, the way the transactions of a block are run. Each run
// gets its own storage snapshot. Results come back in input order.
package batch

import (
	"context"
	"runtime"
	"time"

	"github.com/codahale/hdrhistogram"
	"golang.org/x/sync/errgroup"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/log"
	"github.com/onyx-protocol/neovm/metrics"
	"github.com/onyx-protocol/neovm/protocol/interop"
	"github.com/onyx-protocol/neovm/protocol/policy"
	"github.com/onyx-protocol/neovm/protocol/receipt"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

// Job is one script to run.
type Job struct {
	Name     string
	Program  []byte
	GasLimit int64 // 0 means the policy's gas limit
}

// Result is the outcome of one job.
type Result struct {
	Name    string
	Receipt *receipt.Receipt
	Digest  [32]byte
}

// Runner runs batches of jobs under one policy.
type Runner struct {
	// Policy is the protocol parameters. Nil means policy.Default().
	Policy *policy.Policy

	// Contracts resolves System.Contract.Call and CALLT. Nil means
	// contract calls fail.
	Contracts *interop.ContractCache

	// Store is the storage runs read. Nil means storage syscalls
	// fail.
	Store *interop.Store

	// Commit applies the storage writes of halted runs to Store in
	// input order once the batch is done. Faulted runs are
	// discarded.
	Commit bool

	// Workers bounds the number of concurrent engines. 0 means
	// GOMAXPROCS.
	Workers int
}

// Run runs jobs and returns their results in input order along
// with a summary. An error means the batch could not be run at all;
// a job that faults still has a result. If ctx is canceled,
// unfinished runs fault with vm.Canceled.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, *Summary, error) {
	p := r.Policy
	if p == nil {
		p = policy.Default()
	}
	opts, err := p.EngineOptions()
	if err != nil {
		return nil, nil, err
	}
	registry, err := p.Registry(interop.DefaultRegistry)
	if err != nil {
		return nil, nil, err
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(jobs))
	snapshots := make([]*interop.Snapshot, len(jobs))

	var g errgroup.Group
	ch := make(chan int, len(jobs))
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for n := range ch {
				sn, res, err := r.runJob(ctx, p, registry, opts, jobs[n])
				if err != nil {
					return errors.Wrapf(err, "job %d (%s)", n, jobs[n].Name)
				}
				results[n] = res
				snapshots[n] = sn
			}
			return nil
		})
	}
	for i := range jobs {
		ch <- i
	}
	close(ch)
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if r.Commit && r.Store != nil {
		for i, sn := range snapshots {
			if sn != nil && results[i].Receipt.State == vm.Halt.String() {
				sn.Commit()
			}
		}
	}
	return results, Summarize(results), nil
}

func (r *Runner) runJob(ctx context.Context, p *policy.Policy, registry *interop.Registry, opts []vm.Option, job Job) (*interop.Snapshot, Result, error) {
	start := time.Now()
	ctx = log.NewContext(ctx, log.NewRunID())

	svcOpts := []interop.Option{interop.WithRegistry(registry)}
	if r.Contracts != nil {
		svcOpts = append(svcOpts, interop.WithContracts(r.Contracts))
	}
	var sn *interop.Snapshot
	if r.Store != nil {
		sn = r.Store.Snapshot()
		svcOpts = append(svcOpts, interop.WithSnapshot(sn))
	}
	svc := interop.NewService(ctx, svcOpts...)

	e := vm.New(append(opts[:len(opts):len(opts)], vm.WithInterop(svc))...)
	gas := job.GasLimit
	if gas <= 0 {
		gas = p.GasLimit
	}
	if _, err := e.LoadScript(vm.NewScript(job.Program), gas); err != nil {
		return nil, Result{}, err
	}
	state := e.Run(ctx)

	rec, err := receipt.New(e)
	if err != nil {
		return nil, Result{}, err
	}
	svc.Fill(rec)
	digest, err := rec.Digest()
	if err != nil {
		return nil, Result{}, err
	}

	metrics.RecordRun(rec.State, rec.FaultKind, rec.GasConsumed)
	metrics.RecordElapsed(start)
	kv := []interface{}{"job", job.Name, "state", state, "gas", rec.GasConsumed}
	if rec.FaultKind != "" {
		kv = append(kv, "fault", rec.FaultKind)
	}
	log.Printkv(ctx, kv...)

	return sn, Result{Name: job.Name, Receipt: rec, Digest: digest}, nil
}

// Summary describes the gas use and outcomes of a batch.
type Summary struct {
	Runs    int
	Halted  int
	Faulted int
	Faults  map[string]int // by fault kind

	GasTotal int64
	GasMean  float64
	GasP50   int64
	GasP95   int64
	GasP99   int64
	GasMax   int64
}

// maxSummaryGas bounds the gas histogram. Larger values are
// recorded as the bound.
const maxSummaryGas = 1 << 40

// Summarize computes the summary of results.
func Summarize(results []Result) *Summary {
	s := &Summary{Faults: make(map[string]int)}
	h := hdrhistogram.New(0, maxSummaryGas, 3)
	for _, res := range results {
		rec := res.Receipt
		if rec == nil {
			continue
		}
		s.Runs++
		if rec.State == vm.Halt.String() {
			s.Halted++
		} else {
			s.Faulted++
			s.Faults[rec.FaultKind]++
		}
		s.GasTotal += rec.GasConsumed
		gas := rec.GasConsumed
		if gas > maxSummaryGas {
			gas = maxSummaryGas
		}
		h.RecordValue(gas)
	}
	if s.Runs == 0 {
		return s
	}
	s.GasMean = h.Mean()
	s.GasP50 = h.ValueAtQuantile(50)
	s.GasP95 = h.ValueAtQuantile(95)
	s.GasP99 = h.ValueAtQuantile(99)
	s.GasMax = h.Max()
	return s
}
