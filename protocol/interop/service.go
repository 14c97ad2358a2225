package interop

import (
	"context"
	"encoding/hex"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/log"
	"github.com/onyx-protocol/neovm/math/checked"
	"github.com/onyx-protocol/neovm/protocol/receipt"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

// Service is the interop state of one run. It implements
// vm.InteropService and vm.TokenLoader, and must not be shared
// between engines.
type Service struct {
	ctx       context.Context
	registry  *Registry
	contracts *ContractCache
	snapshot  *Snapshot

	notifications []receipt.Notification
	logs          []receipt.Log

	loaded map[*vm.Script]*Contract
	hashes map[*vm.Script][]byte
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry sets the syscalls the service serves. The default
// is DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithContracts sets where System.Contract.Call and CALLT find
// contracts. Without it, contract calls fail.
func WithContracts(c *ContractCache) Option {
	return func(s *Service) { s.contracts = c }
}

// WithSnapshot sets the storage the System.Storage syscalls read
// and write. Without it, storage syscalls fail.
func WithSnapshot(sn *Snapshot) Option {
	return func(s *Service) { s.snapshot = sn }
}

// NewService returns a service that logs to ctx.
func NewService(ctx context.Context, opts ...Option) *Service {
	s := &Service{
		ctx:      ctx,
		registry: DefaultRegistry,
		loaded:   make(map[*vm.Script]*Contract),
		hashes:   make(map[*vm.Script][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invoke runs the syscall with the given id after charging its
// price times the engine's fee factor.
func (s *Service) Invoke(e *vm.Engine, id uint32) error {
	sc, ok := s.registry.Lookup(id)
	if !ok {
		return errors.WithDetailf(ErrUnknownSyscall, "0x%08x", id)
	}
	price, ok := checked.MulInt64(sc.Price, e.FeeFactor())
	if !ok {
		return errors.WithDetailf(vm.ErrOutOfGas, "price of %s overflows", sc.Name)
	}
	if err := e.AddGas(price); err != nil {
		return err
	}
	return errors.Wrap(sc.Handler(s, e), sc.Name)
}

// Notifications returns the events raised so far, in order.
func (s *Service) Notifications() []receipt.Notification { return s.notifications }

// Logs returns the messages logged so far, in order.
func (s *Service) Logs() []receipt.Log { return s.logs }

// Snapshot returns the storage snapshot, or nil.
func (s *Service) Snapshot() *Snapshot { return s.snapshot }

// Fill copies the notifications and logs into r.
func (s *Service) Fill(r *receipt.Receipt) {
	r.Notifications = append(r.Notifications[:0], s.notifications...)
	r.Logs = append(r.Logs[:0], s.logs...)
}

// ScriptHash returns the hash160 of script, which identifies it as
// a contract and scopes its storage.
func (s *Service) ScriptHash(script *vm.Script) []byte {
	if h, ok := s.hashes[script]; ok {
		return h
	}
	h := Hash160(script.Bytes())
	s.hashes[script] = h
	return h
}

func (s *Service) currentHash(e *vm.Engine) []byte {
	return s.ScriptHash(e.CurrentContext().Script())
}

func (s *Service) logkv(e *vm.Engine, keyvals ...interface{}) {
	kv := append([]interface{}{"contract", hex.EncodeToString(s.currentHash(e))}, keyvals...)
	log.Printkv(s.ctx, kv...)
}
