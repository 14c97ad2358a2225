package vm

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Disassemble renders prog as space-separated tokens: opcode names
// followed by their operands, with 0x-prefixed hex standing for a
// PUSHDATA instruction, signed relative offsets for jumps and type
// names for type operands.
func Disassemble(prog []byte) (string, error) {
	var tokens []string
	for pc := 0; pc < len(prog); {
		inst, err := ParseOp(prog, pc)
		if err != nil {
			return "", err
		}
		tokens = append(tokens, formatInst(inst)...)
		pc += inst.Len
	}
	return strings.Join(tokens, " "), nil
}

func formatInst(inst Instruction) []string {
	name := inst.Op.String()
	switch {
	case inst.Op >= OP_PUSHINT8 && inst.Op <= OP_PUSHINT256:
		return []string{name, bigFromBytes(inst.Data).String()}
	case inst.Op >= OP_PUSHDATA1 && inst.Op <= OP_PUSHDATA4:
		return []string{"0x" + hex.EncodeToString(inst.Data)}
	case inst.Op.isJump() || inst.Op == OP_PUSHA:
		if inst.Op == OP_PUSHA {
			return []string{name, fmt.Sprint(inst.i32(0))}
		}
		return []string{name, fmt.Sprint(inst.offset())}
	case inst.Op == OP_TRY || inst.Op == OP_TRY_L:
		c, f := inst.tryOffsets()
		return []string{name, fmt.Sprint(c), fmt.Sprint(f)}
	case inst.Op == OP_NEWARRAY_T || inst.Op == OP_ISTYPE || inst.Op == OP_CONVERT:
		return []string{name, Type(inst.Data[0]).String()}
	case inst.Op == OP_CALLT:
		return []string{name, fmt.Sprint(inst.u16())}
	case inst.Op == OP_SYSCALL:
		return []string{name, fmt.Sprintf("0x%08x", inst.u32())}
	case len(inst.Data) > 0:
		toks := []string{name}
		for _, b := range inst.Data {
			toks = append(toks, fmt.Sprint(b))
		}
		return toks
	}
	return []string{name}
}

// WriteListing writes one line per instruction of prog to w: the
// position, the encoded bytes and the disassembly, with absolute
// jump targets.
func WriteListing(w io.Writer, prog []byte) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for pc := 0; pc < len(prog); {
		inst, err := ParseOp(prog, pc)
		if err != nil {
			tw.Flush()
			return err
		}
		text := strings.Join(formatInst(inst), " ")
		if inst.Op.isJump() {
			text = fmt.Sprintf("%s %d", inst.Op, pc+int(inst.offset()))
		}
		enc := hex.EncodeToString(prog[pc : pc+inst.Len])
		if len(enc) > 24 {
			enc = enc[:21] + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", pc, enc, text)
		pc += inst.Len
	}
	return tw.Flush()
}
