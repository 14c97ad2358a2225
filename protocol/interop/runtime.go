package interop

import (
	"unicode/utf8"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/receipt"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

const (
	MaxLogSize       = 1024
	MaxEventNameSize = 32

	// Platform is pushed by System.Runtime.Platform.
	Platform = "NEO"
)

func runtimeLog(s *Service, e *vm.Engine) error {
	msg, err := e.PopBytes()
	if err != nil {
		return err
	}
	if len(msg) > MaxLogSize {
		return errors.WithDetailf(vm.ErrBadValue, "log message of %d bytes", len(msg))
	}
	if !utf8.Valid(msg) {
		return errors.WithDetail(vm.ErrBadValue, "log message is not UTF-8")
	}
	s.logs = append(s.logs, receipt.Log{Contract: s.currentHash(e), Message: string(msg)})
	s.logkv(e, "at", "runtime.log", "message", string(msg))
	return nil
}

func runtimeNotify(s *Service, e *vm.Engine) error {
	name, err := e.PopBytes()
	if err != nil {
		return err
	}
	if len(name) > MaxEventNameSize {
		return errors.WithDetailf(vm.ErrBadValue, "event name of %d bytes", len(name))
	}
	state, err := e.Pop()
	if err != nil {
		return err
	}
	switch state.(type) {
	case *vm.Array, *vm.Struct:
	default:
		return errors.WithDetailf(vm.ErrInvalidCast, "event state is %s, not an array", state.Type())
	}
	v, err := receipt.FromItem(state)
	if err != nil {
		return err
	}
	s.notifications = append(s.notifications, receipt.Notification{
		Contract: s.currentHash(e),
		Name:     string(name),
		State:    v,
	})
	s.logkv(e, "at", "runtime.notify", "event", string(name), "state", v)
	return nil
}

func runtimeGasLeft(s *Service, e *vm.Engine) error {
	e.Push(vm.NewInt(e.GasLeft()))
	return nil
}

func runtimeBurnGas(s *Service, e *vm.Engine) error {
	n, err := e.PopInt()
	if err != nil {
		return err
	}
	if n.Sign() <= 0 || !n.IsInt64() {
		return errors.WithDetailf(vm.ErrBadValue, "burning %s gas", n)
	}
	return e.AddGas(n.Int64())
}

func runtimePlatform(s *Service, e *vm.Engine) error {
	e.Push(vm.NewByteString([]byte(Platform)))
	return nil
}

func runtimeExecutingScriptHash(s *Service, e *vm.Engine) error {
	e.Push(vm.NewByteString(s.currentHash(e)))
	return nil
}

// runtimeCallingScriptHash pushes the hash of the script below the
// current one on the invocation stack, or Null for the entry script.
// Contexts entered with CALL share their caller's script and are
// skipped.
func runtimeCallingScriptHash(s *Service, e *vm.Engine) error {
	istack := e.InvocationStack()
	cur := istack[len(istack)-1].Script()
	for i := len(istack) - 2; i >= 0; i-- {
		if sc := istack[i].Script(); sc != cur {
			e.Push(vm.NewByteString(s.ScriptHash(sc)))
			return nil
		}
	}
	e.Push(vm.NewNull())
	return nil
}
