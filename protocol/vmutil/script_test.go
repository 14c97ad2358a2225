package vmutil

import (
	"bytes"
	"testing"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

func TestCallProgram(t *testing.T) {
	hash := bytes.Repeat([]byte{0xab}, 20)
	prog, err := CallProgram(hash, "transfer", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.NewScript(prog).Validate(); err != nil {
		t.Fatal(err)
	}
	gotHash, method, err := ParseCallProgram(prog)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotHash, hash) || method != "transfer" {
		t.Errorf("ParseCallProgram = %x, %q", gotHash, method)
	}

	if _, err := CallProgram(hash, ""); errors.Root(err) != ErrOperand {
		t.Errorf("CallProgram with no method: %v", err)
	}
}

func TestParseCallProgramErrors(t *testing.T) {
	cases := []struct {
		name    string
		prog    []byte
		wantErr error
	}{{
		name:    "too short",
		prog:    []byte{byte(vm.OP_NOP)},
		wantErr: ErrOperand,
	}, {
		name:    "other syscall",
		prog:    mustBuild(t, NewBuilder().AddOp(vm.OP_NEWARRAY0).AddData([]byte("m")).AddData([]byte("h")).AddSyscall("System.Runtime.Log")),
		wantErr: ErrOperand,
	}, {
		name:    "computed method",
		prog:    mustBuild(t, NewBuilder().AddOp(vm.OP_NEWARRAY0).AddInt64(1).AddData([]byte("h")).AddSyscall(ContractCallSyscall)),
		wantErr: ErrOperand,
	}, {
		name:    "malformed",
		prog:    []byte{byte(vm.OP_PUSHDATA1), 9},
		wantErr: vm.ErrInvalidOffset,
	}}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := ParseCallProgram(c.prog)
			if errors.Root(err) != c.wantErr {
				t.Errorf("ParseCallProgram error = %v want %v", err, c.wantErr)
			}
		})
	}
}

func TestParsePushOnly(t *testing.T) {
	prog := mustBuild(t, NewBuilder().
		AddInt64(-1).AddInt64(16).AddInt64(1000).
		AddBool(true).AddValue(nil).AddData([]byte("xy")))
	items, err := ParsePushOnly(prog)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.String())
	}
	want := []string{"-1", "16", "1000", "true", "Null", "0x7879"}
	if len(got) != len(want) {
		t.Fatalf("items = %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %s want %s", i, got[i], want[i])
		}
	}

	_, err = ParsePushOnly(mustBuild(t, NewBuilder().AddInt64(1).AddInt64(2).AddOp(vm.OP_ADD)))
	if errors.Root(err) != ErrNotPushOnly {
		t.Errorf("ParsePushOnly with ADD: %v", err)
	}
}

func mustBuild(t *testing.T, b *Builder) []byte {
	t.Helper()
	prog, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return prog
}
