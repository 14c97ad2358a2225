package vmutil

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/onyx-protocol/neovm/protocol/vm"
)

func TestAssemble(t *testing.T) {
	cases := []struct {
		src     string
		want    string
		wantErr string
	}{
		{src: "2 3 ADD 5 NUMEQUAL", want: "12139e15b3"},
		{src: "0x02 3 ADD", want: "0c0102139e"},
		{src: "'Hello' 'WORLD' CAT", want: "0c0548656c6c6f0c05574f524c448b"},
		{src: `'H\'E' 'a\\b'`, want: "0c034827450c03615c62"},
		{src: "-1 17 -1000 100000000000", want: "0f00110118fc0300e8764817000000"},
		{src: "PUSHINT32 5 PUSHDATA2 'ab' PUSHDATA1 0x", want: "02050000000d020061620c00"},
		{src: "add # comment\n  nop", want: "9e21"},
		{src: "loop: NOP JMP @loop", want: "2122ff"},
		{src: "JMP_L @end NOP end: RET", want: "23060000002140"},
		{src: "TRY @catch 0 1 THROW catch: DROP ENDTRY @done done: RET", want: "3b0500113a453d0240"},
		{src: "TRY_L 0 @fin RET fin: ENDFINALLY", want: "3c000000000a000000403f"},
		{src: "PUSHA @f CALLA RET f: 1", want: "0a07000000364011"},
		{src: "JMP -2 CALL_L 7", want: "22fe3507000000"},
		{src: "SYSCALL 0x01020304", want: "4104030201"},
		{src: "CONVERT Integer ISTYPE Map NEWARRAY_T 64", want: "db21d948c440"},
		{src: "INITSLOT 2 1 LDLOC 7 CALLT 258", want: "5702016f07370201"},
		{src: "NEWARRAY_T 0x40", wantErr: "bad operand"},
		{src: "BADTOKEN", wantErr: "bad mnemonic"},
		{src: "'Unterminated quote", wantErr: "unexpected"},
		{src: `'escaped end\'`, wantErr: "unexpected"},
		{src: "JMP @nowhere", wantErr: "undefined label"},
		{src: "x: x: NOP", wantErr: "defined twice"},
		{src: "JMP 128", wantErr: "does not fit"},
		{src: "INITSLOT 1", wantErr: "missing operand"},
		{src: "PUSHINT8 200", wantErr: "does not fit"},
		{src: "CONVERT Float", wantErr: "unknown type"},
		{src: "0xabc", wantErr: "bad hex"},
		{src: "$", wantErr: "unexpected"},
	}
	for _, c := range cases {
		got, err := Assemble(c.src)
		if c.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("Assemble(%q) error = %v, want %q", c.src, err, c.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Assemble(%q): %v", c.src, err)
			continue
		}
		if hex.EncodeToString(got) != c.want {
			t.Errorf("Assemble(%q) = %x want %s", c.src, got, c.want)
		}
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	src := "PUSHINT8 17 'ab' JMP -4 SYSCALL 'System.Runtime.Log' CONVERT Integer " +
		"TRY 3 0 INITSLOT 1 2 CALLT 9 PUSHA -2 PUSH5 PUSHM1 PUSHINT16 -1000 LDARG 9 STSFLD0"
	prog, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	text, err := vm.Disassemble(prog)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Assemble(text)
	if err != nil {
		t.Fatalf("Assemble(%q): %v", text, err)
	}
	if !bytes.Equal(again, prog) {
		t.Errorf("round trip through %q: got %x want %x", text, again, prog)
	}
}

func TestAssembledProgramRuns(t *testing.T) {
	prog, err := Assemble(`
		# factorial of 5
		INITSLOT 1 0
		1 STLOC0
		5
	loop:
		DUP LDLOC0 MUL STLOC0
		DEC DUP JMPIF @loop
		DROP LDLOC0
	`)
	if err != nil {
		t.Fatal(err)
	}
	items := run(t, prog).ResultStack().Items()
	if len(items) != 1 || items[0].String() != "120" {
		t.Errorf("result = %v", items)
	}
}
