// Package interop implements the host services that bytecode reaches
// through SYSCALL and CALLT: runtime notifications and logs, hashing
// and signature checks, contract storage and contract calls.
//
// A Registry maps syscall ids to handlers and prices and is shared by
// every engine. A Service holds the per-run state (storage snapshot,
// notifications, loaded contracts) and is attached to one engine with
// vm.WithInterop.
package interop

import (
	"sort"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

var (
	ErrDuplicate      = errors.New("duplicate syscall")
	ErrUnknownSyscall = errors.New("unknown syscall")
)

// Handler executes a syscall against the current evaluation stack
// of e.
type Handler func(s *Service, e *vm.Engine) error

// Syscall is a registered interop service.
type Syscall struct {
	Name    string
	ID      uint32
	Price   int64 // multiplied by the engine's fee factor
	Handler Handler
}

// Registry is a set of syscalls indexed by id. It must not be
// modified once a Service uses it.
type Registry struct {
	byID map[uint32]*Syscall
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint32]*Syscall)}
}

// Register adds the named syscall. It fails if the name, or another
// name with the same id, is already registered.
func (r *Registry) Register(name string, price int64, h Handler) error {
	if name == "" || h == nil {
		return errors.WithDetail(vm.ErrBadValue, "syscall needs a name and a handler")
	}
	if price < 0 {
		return errors.WithDetailf(vm.ErrBadValue, "negative price %d for %s", price, name)
	}
	id := vm.InteropID(name)
	if old, ok := r.byID[id]; ok {
		return errors.WithDetailf(ErrDuplicate, "%s collides with %s", name, old.Name)
	}
	r.byID[id] = &Syscall{Name: name, ID: id, Price: price, Handler: h}
	return nil
}

// Lookup returns the syscall with the given id.
func (r *Registry) Lookup(id uint32) (*Syscall, bool) {
	sc, ok := r.byID[id]
	return sc, ok
}

// LookupName returns the named syscall.
func (r *Registry) LookupName(name string) (*Syscall, bool) {
	sc, ok := r.byID[vm.InteropID(name)]
	if !ok || sc.Name != name {
		return nil, false
	}
	return sc, true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byID))
	for _, sc := range r.byID {
		names = append(names, sc.Name)
	}
	sort.Strings(names)
	return names
}

// WithPrices returns a copy of r in which the named syscalls have
// the given prices. Every name must be registered.
func (r *Registry) WithPrices(prices map[string]int64) (*Registry, error) {
	c := NewRegistry()
	for id, sc := range r.byID {
		cp := *sc
		c.byID[id] = &cp
	}
	for name, p := range prices {
		sc, ok := c.LookupName(name)
		if !ok {
			return nil, errors.WithDetailf(ErrUnknownSyscall, "%s", name)
		}
		if p < 0 {
			return nil, errors.WithDetailf(vm.ErrBadValue, "negative price %d for %s", p, name)
		}
		sc.Price = p
	}
	return c, nil
}

func (r *Registry) mustRegister(name string, price int64, h Handler) {
	if err := r.Register(name, price, h); err != nil {
		panic(err)
	}
}

// Syscall names served by the default registry.
const (
	RuntimeLog      = "System.Runtime.Log"
	RuntimeNotify   = "System.Runtime.Notify"
	RuntimeGasLeft  = "System.Runtime.GasLeft"
	RuntimeBurnGas  = "System.Runtime.BurnGas"
	RuntimePlatform = "System.Runtime.Platform"
	CryptoSha256    = "System.Crypto.Sha256"
	CryptoRipemd160 = "System.Crypto.Ripemd160"
	CryptoHash160   = "System.Crypto.Hash160"
	CryptoKeccak256 = "System.Crypto.Keccak256"
	CryptoSha3      = "System.Crypto.Sha3"
	CryptoSecp256k1 = "System.Crypto.VerifySecp256k1"
	CryptoEd25519   = "System.Crypto.VerifyEd25519"
	StorageGet      = "System.Storage.Get"
	StoragePut      = "System.Storage.Put"
	StorageDelete   = "System.Storage.Delete"
	ContractCall    = "System.Contract.Call"

	RuntimeExecutingScriptHash = "System.Runtime.GetExecutingScriptHash"
	RuntimeCallingScriptHash   = "System.Runtime.GetCallingScriptHash"
)

// DefaultRegistry holds every syscall this package implements, at
// N3 prices.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister(RuntimeLog, 1<<15, runtimeLog)
	r.mustRegister(RuntimeNotify, 1<<15, runtimeNotify)
	r.mustRegister(RuntimeGasLeft, 1<<4, runtimeGasLeft)
	r.mustRegister(RuntimeBurnGas, 1<<4, runtimeBurnGas)
	r.mustRegister(RuntimePlatform, 1<<3, runtimePlatform)
	r.mustRegister(CryptoSha256, 1<<15, hashHandler(sha256Sum))
	r.mustRegister(CryptoRipemd160, 1<<15, hashHandler(ripemd160Sum))
	r.mustRegister(CryptoHash160, 1<<15, hashHandler(Hash160))
	r.mustRegister(CryptoKeccak256, 1<<15, hashHandler(keccak256Sum))
	r.mustRegister(CryptoSha3, 1<<15, hashHandler(sha3Sum))
	r.mustRegister(CryptoSecp256k1, 1<<15, verifySecp256k1)
	r.mustRegister(CryptoEd25519, 1<<15, verifyEd25519)
	r.mustRegister(StorageGet, 1<<15, storageGet)
	r.mustRegister(StoragePut, 1<<15, storagePut)
	r.mustRegister(StorageDelete, 1<<15, storageDelete)
	r.mustRegister(ContractCall, 1<<15, contractCall)
	r.mustRegister(RuntimeExecutingScriptHash, 1<<4, runtimeExecutingScriptHash)
	r.mustRegister(RuntimeCallingScriptHash, 1<<4, runtimeCallingScriptHash)
	return r
}
