package vm

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/onyx-protocol/neovm/errors"
)

// InteropService executes SYSCALL instructions. Invoke works on the
// engine's current evaluation stack and may charge gas with AddGas.
// An error whose root is not a fault sentinel faults InteropFailure.
type InteropService interface {
	Invoke(e *Engine, id uint32) error
}

// TokenLoader is implemented by interop services that support
// CALLT. LoadToken loads the context for method token n.
type TokenLoader interface {
	LoadToken(e *Engine, n uint16) error
}

// InteropID returns the SYSCALL operand for the named service:
// the first four bytes of its SHA-256 hash, little endian.
func InteropID(name string) uint32 {
	h := sha256.Sum256([]byte(name))
	return binary.LittleEndian.Uint32(h[:4])
}

func opSyscall(e *Engine, inst Instruction) error {
	if e.interop == nil {
		return errors.WithDetailf(ErrInteropFailure, "no interop service for 0x%08x", inst.u32())
	}
	return interopErr(e.interop.Invoke(e, inst.u32()))
}

func opCallT(e *Engine, inst Instruction) error {
	l, ok := e.interop.(TokenLoader)
	if !ok {
		return errors.WithDetailf(ErrInteropFailure, "no token loader for token %d", inst.u16())
	}
	return interopErr(l.LoadToken(e, inst.u16()))
}

func interopErr(err error) error {
	if err == nil || isFault(err) {
		return err
	}
	return errors.Sub(ErrInteropFailure, err)
}
