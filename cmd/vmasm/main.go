// Command vmasm assembles and disassembles scripts.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/onyx-protocol/neovm/protocol/vm"
	"github.com/onyx-protocol/neovm/protocol/vmutil"
)

const help = `Usage: vmasm [-d [-l]] <input

Command vmasm reads assembly source from stdin and writes the
assembled script to stdout in hex.

Flag -d disassembles instead: it reads hex from stdin, skipping
whitespace, and writes the disassembly. With -l the output is a
listing with one instruction per line and absolute jump targets.

	echo 'PUSH1 PUSH2 ADD' | vmasm
	echo 11129e | vmasm -d

Flags:
`

var (
	flagD = flag.Bool("d", false, "disassemble")
	flagL = flag.Bool("l", false, "with -d, write a listing")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, help)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 0 || (*flagL && !*flagD) {
		flag.Usage()
		os.Exit(2)
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(err)
	}

	if !*flagD {
		prog, err := vmutil.Assemble(string(data))
		if err != nil {
			fatal(err)
		}
		fmt.Println(hex.EncodeToString(prog))
		return
	}

	prog, err := hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
	if err != nil {
		fatal(err)
	}
	if *flagL {
		if err := vm.WriteListing(os.Stdout, prog); err != nil {
			fatal(err)
		}
		return
	}
	text, err := vm.Disassemble(prog)
	if err != nil {
		fatal(err)
	}
	fmt.Println(text)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "vmasm:", err)
	os.Exit(1)
}
