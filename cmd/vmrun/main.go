// Command vmrun runs one script and prints its receipt.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/onyx-protocol/neovm/env"
	"github.com/onyx-protocol/neovm/log"
	"github.com/onyx-protocol/neovm/protocol/interop"
	"github.com/onyx-protocol/neovm/protocol/policy"
	"github.com/onyx-protocol/neovm/protocol/receipt"
	"github.com/onyx-protocol/neovm/protocol/vm"
	"github.com/onyx-protocol/neovm/protocol/vmutil"
)

const help = `Usage: vmrun [flags] [file]

Command vmrun reads a script from file, or from stdin if no file
is named, runs it and prints the receipt to stdout. The script is
assembly source unless -x is given, in which case it is hex.

	echo '1 2 ADD' | vmrun

Exit code 0 indicates the script halted.
Exit code 1 indicates a fault, or an error reading or assembling the
script. Errors are logged to stderr.
Exit code 2 indicates a usage error.

Environment:

	VMRUN_POLICY  default for -policy
	VMRUN_BREAK   default for -b

Flags:
`

var (
	flagX      = flag.Bool("x", false, "input is hex, not assembly")
	flagT      = flag.Bool("t", false, "print execution trace to stderr")
	flagGas    = flag.Int64("gas", 0, "gas limit (default from policy)")
	flagPolicy = flag.String("policy", "", "policy TOML file")
	flagBreak  = flag.String("b", "", "comma-separated breakpoint offsets; stops and prints the stack at each")
	flagCBOR   = flag.Bool("cbor", false, "print the encoded receipt in hex")

	policyEnv = env.String("VMRUN_POLICY", "")
	breakEnv  = env.StringSlice("VMRUN_BREAK")
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
	log.SetPrefix("app", "vmrun")
	ctx := log.NewContext(context.Background(), log.NewRunID())
	defer log.RecoverAndLogError(ctx)

	prog, err := readProgram(flag.Arg(0), *flagX)
	if err != nil {
		fatal(ctx, err)
	}

	p := policy.Default()
	if path := firstNonEmpty(*flagPolicy, *policyEnv); path != "" {
		p, err = policy.Load(path)
		if err != nil {
			fatal(ctx, err)
		}
	}
	opts, err := p.EngineOptions()
	if err != nil {
		fatal(ctx, err)
	}
	registry, err := p.Registry(interop.DefaultRegistry)
	if err != nil {
		fatal(ctx, err)
	}

	store := interop.NewStore()
	svc := interop.NewService(ctx, interop.WithRegistry(registry), interop.WithSnapshot(store.Snapshot()))
	opts = append(opts, vm.WithInterop(svc))
	if *flagT {
		opts = append(opts, vm.WithTraceOut(os.Stderr))
	}
	e := vm.New(opts...)

	gas := *flagGas
	if gas <= 0 {
		gas = p.GasLimit
	}
	script := vm.NewScript(prog)
	if _, err := e.LoadScript(script, gas); err != nil {
		fatal(ctx, err)
	}

	d := vm.NewDebugger(e)
	breaks := *breakEnv
	if *flagBreak != "" {
		breaks = strings.Split(*flagBreak, ",")
	}
	for _, s := range breaks {
		pos, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			fatal(ctx, fmt.Errorf("bad breakpoint %q", s))
		}
		d.AddBreakPoint(script, pos)
	}
	for d.Execute() == vm.Break {
		printBreak(e)
	}

	r, err := receipt.New(e)
	if err != nil {
		fatal(ctx, err)
	}
	svc.Fill(r)
	printReceipt(os.Stdout, r)
	if *flagCBOR {
		b, err := r.Encode()
		if err != nil {
			fatal(ctx, err)
		}
		fmt.Printf("cbor %x\n", b)
	}
	if e.State() != vm.Halt {
		os.Exit(1)
	}
}

func readProgram(name string, isHex bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if name == "" {
		data, err = io.ReadAll(bufio.NewReader(os.Stdin))
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	if isHex {
		return hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
	}
	return vmutil.Assemble(string(data))
}

func printBreak(e *vm.Engine) {
	ctx := e.CurrentContext()
	fmt.Fprintf(os.Stderr, "break at %d\n", ctx.IP())
	items := ctx.Estack().Items()
	for i := len(items) - 1; i >= 0; i-- {
		fmt.Fprintf(os.Stderr, "  stack %d: %s\n", len(items)-1-i, items[i])
	}
}

func printReceipt(w io.Writer, r *receipt.Receipt) {
	fmt.Fprintf(w, "state %s\n", r.State)
	if r.FaultKind != "" {
		fmt.Fprintf(w, "fault %s: %s\n", r.FaultKind, r.Fault)
	}
	if r.Exception != nil {
		fmt.Fprintf(w, "exception %s\n", r.Exception)
	}
	fmt.Fprintf(w, "gas %d\n", r.GasConsumed)
	for i, v := range r.Stack {
		fmt.Fprintf(w, "result %d: %s\n", i, v)
	}
	for _, n := range r.Notifications {
		fmt.Fprintf(w, "notify %x %s %s\n", n.Contract, n.Name, n.State)
	}
	for _, l := range r.Logs {
		fmt.Fprintf(w, "log %x %s\n", l.Contract, l.Message)
	}
	if d, err := r.Digest(); err == nil {
		fmt.Fprintf(w, "digest %x\n", d)
	}
}

func firstNonEmpty(a ...string) string {
	for _, s := range a {
		if s != "" {
			return s
		}
	}
	return ""
}

func fatal(ctx context.Context, err error) {
	log.Fatalkv(ctx, log.KeyError, err)
}
