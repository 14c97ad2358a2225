// Command vmbatch runs many scripts concurrently and prints a
// receipt digest per script and a gas summary.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/onyx-protocol/neovm/env"
	"github.com/onyx-protocol/neovm/log"
	"github.com/onyx-protocol/neovm/protocol/batch"
	"github.com/onyx-protocol/neovm/protocol/interop"
	"github.com/onyx-protocol/neovm/protocol/policy"
	"github.com/onyx-protocol/neovm/protocol/vmutil"
)

const help = `Usage: vmbatch [flags] [file]

Command vmbatch reads one script per line from file, or from stdin
if no file is named, runs them concurrently and prints one line per
script in input order:

	name state fault gas digest

followed by a summary. Blank lines and lines starting with # are
skipped. A line may start with "name:" to name its script; otherwise
the line number is the name. Scripts are hex unless -a is given, in
which case each line is assembly source.

All scripts share one in-memory store. With -commit, the writes of
scripts that halted are applied in input order and the number of
stored keys is printed.

Exit code 0 indicates every script halted.
Exit code 1 indicates at least one fault, or an error reading the
scripts. Errors are logged to stderr.
Exit code 2 indicates a usage error.

Environment:

	VMBATCH_WORKERS  default for -workers
	VMBATCH_TIMEOUT  cancels unfinished runs after this long (0 means never)

Flags:
`

var (
	flagA      = flag.Bool("a", false, "lines are assembly, not hex")
	flagPolicy = flag.String("policy", "", "policy TOML file")
	flagCommit = flag.Bool("commit", false, "commit storage writes of halted scripts")
	flagW      = flag.Int("workers", 0, "concurrent engines (default VMBATCH_WORKERS or GOMAXPROCS)")

	workers = env.Int("VMBATCH_WORKERS", 0)
	timeout = env.Duration("VMBATCH_TIMEOUT", 0)
)

func main() {
	env.Parse()
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, help)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}

	log.SetOutput(os.Stderr)
	log.SetPrefix("app", "vmbatch")
	ctx := log.NewContext(context.Background(), log.NewRunID())
	defer log.RecoverAndLogError(ctx)
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	in := io.Reader(os.Stdin)
	if name := flag.Arg(0); name != "" {
		f, err := os.Open(name)
		if err != nil {
			fatal(ctx, err)
		}
		defer f.Close()
		in = f
	}
	jobs, err := readJobs(in, *flagA)
	if err != nil {
		fatal(ctx, err)
	}

	p := policy.Default()
	if *flagPolicy != "" {
		p, err = policy.Load(*flagPolicy)
		if err != nil {
			fatal(ctx, err)
		}
	}
	r := &batch.Runner{
		Policy:  p,
		Store:   interop.NewStore(),
		Commit:  *flagCommit,
		Workers: *flagW,
	}
	if r.Workers == 0 {
		r.Workers = *workers
	}

	start := time.Now()
	results, sum, err := r.Run(ctx, jobs)
	if err != nil {
		fatal(ctx, err)
	}
	elapsed := time.Since(start)

	for _, res := range results {
		rec := res.Receipt
		fault := rec.FaultKind
		if fault == "" {
			fault = "-"
		}
		fmt.Printf("%s %s %s %d %x\n", res.Name, rec.State, fault, rec.GasConsumed, res.Digest)
	}
	printSummary(os.Stdout, sum, elapsed)
	if *flagCommit {
		fmt.Printf("stored keys %d\n", r.Store.Len())
	}
	log.Printkv(ctx, "jobs", sum.Runs, "halted", sum.Halted, "faulted", sum.Faulted, "elapsed", elapsed)
	if sum.Faulted > 0 {
		os.Exit(1)
	}
}

func readJobs(r io.Reader, asm bool) ([]batch.Job, error) {
	var jobs []batch.Job
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, 1<<24)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := strconv.Itoa(n)
		if i := strings.Index(line, ":"); i > 0 && !strings.ContainsAny(line[:i], " \t'") {
			name, line = line[:i], strings.TrimSpace(line[i+1:])
		}
		var (
			prog []byte
			err  error
		)
		if asm {
			prog, err = vmutil.Assemble(line)
		} else {
			prog, err = hex.DecodeString(line)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", n, err)
		}
		jobs = append(jobs, batch.Job{Name: name, Program: prog})
	}
	return jobs, sc.Err()
}

func printSummary(w io.Writer, s *batch.Summary, elapsed time.Duration) {
	fmt.Fprintf(w, "runs %d halted %d faulted %d in %s\n", s.Runs, s.Halted, s.Faulted, elapsed)
	kinds := make([]string, 0, len(s.Faults))
	for k := range s.Faults {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "fault %s %d\n", k, s.Faults[k])
	}
	fmt.Fprintf(w, "gas total %d mean %.1f p50 %d p95 %d p99 %d max %d\n",
		s.GasTotal, s.GasMean, s.GasP50, s.GasP95, s.GasP99, s.GasMax)
}

func fatal(ctx context.Context, err error) {
	log.Fatalkv(ctx, log.KeyError, err)
}
