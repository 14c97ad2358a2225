package interop

import (
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

// HashSize is the size of a contract hash.
const HashSize = 20

// DefaultCacheSize is the number of contracts a ContractCache keeps
// when NewContractCache is given a size of zero.
const DefaultCacheSize = 1000

var (
	ErrUnknownContract = errors.New("unknown contract")
	ErrUnknownMethod   = errors.New("unknown method")
	ErrArgCount        = errors.New("wrong number of arguments")
	ErrNoTokens        = errors.New("script has no method tokens")
)

// Method is an entry point of a contract.
type Method struct {
	Name    string
	Offset  int
	Params  int
	Returns bool
}

// MethodToken is a call target that CALLT refers to by index.
type MethodToken struct {
	Hash    []byte
	Method  string
	Params  int
	Returns bool
}

// ContractState is a deployed contract as a ContractProvider stores
// it.
type ContractState struct {
	Script  []byte
	Methods []Method
	Tokens  []MethodToken
}

// Contract is a validated contract ready to be loaded.
type Contract struct {
	Hash    []byte
	Script  *vm.Script
	Methods map[string]Method
	Tokens  []MethodToken
}

// NewContract validates state. Its script must pass Script.Validate
// and every method offset must be an instruction start.
func NewContract(state *ContractState) (*Contract, error) {
	script := vm.NewScript(state.Script)
	if err := script.Validate(); err != nil {
		return nil, err
	}
	c := &Contract{
		Hash:    Hash160(state.Script),
		Script:  script,
		Methods: make(map[string]Method, len(state.Methods)),
		Tokens:  state.Tokens,
	}
	for _, m := range state.Methods {
		if m.Name == "" || m.Params < 0 {
			return nil, errors.WithDetailf(vm.ErrBadValue, "method %q with %d params", m.Name, m.Params)
		}
		if _, dup := c.Methods[m.Name]; dup {
			return nil, errors.WithDetailf(vm.ErrBadValue, "method %q defined twice", m.Name)
		}
		if !script.IsInstructionStart(m.Offset) {
			return nil, errors.WithDetailf(vm.ErrInvalidJumpTarget, "method %q at %d", m.Name, m.Offset)
		}
		c.Methods[m.Name] = m
	}
	for i, t := range state.Tokens {
		if len(t.Hash) != HashSize || t.Method == "" || t.Params < 0 {
			return nil, errors.WithDetailf(vm.ErrBadValue, "method token %d", i)
		}
	}
	return c, nil
}

// ContractProvider looks up deployed contracts. It returns an error
// with root ErrUnknownContract when there is no contract with the
// given hash.
type ContractProvider interface {
	ContractState(hash []byte) (*ContractState, error)
}

// MemoryContracts is a ContractProvider backed by a map. It is safe
// for concurrent use.
type MemoryContracts struct {
	mu        sync.RWMutex
	contracts map[string]*ContractState
}

// NewMemoryContracts returns an empty provider.
func NewMemoryContracts() *MemoryContracts {
	return &MemoryContracts{contracts: make(map[string]*ContractState)}
}

// Deploy validates and stores state and returns its hash.
func (m *MemoryContracts) Deploy(state *ContractState) ([]byte, error) {
	c, err := NewContract(state)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.contracts[string(c.Hash)] = state
	m.mu.Unlock()
	return c.Hash, nil
}

func (m *MemoryContracts) ContractState(hash []byte) (*ContractState, error) {
	m.mu.RLock()
	state, ok := m.contracts[string(hash)]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.WithDetailf(ErrUnknownContract, "%x", hash)
	}
	return state, nil
}

// ContractCache keeps recently loaded contracts so that their
// scripts are validated and indexed once. It is safe for concurrent
// use and may be shared by many services.
type ContractCache struct {
	provider ContractProvider

	mu  sync.Mutex
	lru *lru.Cache
}

// NewContractCache returns a cache of up to size contracts from p.
func NewContractCache(p ContractProvider, size int) *ContractCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &ContractCache{provider: p, lru: lru.New(size)}
}

// Contract returns the contract with the given hash.
func (c *ContractCache) Contract(hash []byte) (*Contract, error) {
	if len(hash) != HashSize {
		return nil, errors.WithDetailf(vm.ErrBadValue, "contract hash of %d bytes", len(hash))
	}
	key := string(hash)
	c.mu.Lock()
	v, ok := c.lru.Get(key)
	c.mu.Unlock()
	if ok {
		return v.(*Contract), nil
	}

	state, err := c.provider.ContractState(hash)
	if err != nil {
		return nil, err
	}
	contract, err := NewContract(state)
	if err != nil {
		return nil, errors.Wrapf(err, "contract %x", hash)
	}
	c.mu.Lock()
	c.lru.Add(key, contract)
	c.mu.Unlock()
	return contract, nil
}

// Len returns the number of cached contracts.
func (c *ContractCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (s *Service) contract(hash []byte) (*Contract, error) {
	if s.contracts == nil {
		return nil, errors.WithDetailf(ErrUnknownContract, "%x: no contracts attached", hash)
	}
	return s.contracts.Contract(hash)
}

// contractCall pops the contract hash, the method name and an Array
// of arguments, and enters the method in a new context. The
// argument layout matches vmutil.CallProgram.
func contractCall(s *Service, e *vm.Engine) error {
	hash, err := e.PopBytes()
	if err != nil {
		return err
	}
	name, err := e.PopBytes()
	if err != nil {
		return err
	}
	if strings.HasPrefix(string(name), "_") {
		return errors.WithDetailf(ErrUnknownMethod, "%q cannot be called", name)
	}
	it, err := e.Pop()
	if err != nil {
		return err
	}
	var args []vm.Item
	switch a := it.(type) {
	case *vm.Array:
		args = a.Items()
	case *vm.Struct:
		args = a.Items()
	default:
		return errors.WithDetailf(vm.ErrInvalidCast, "arguments are %s, not an array", it.Type())
	}
	c, err := s.contract(hash)
	if err != nil {
		return err
	}
	return s.call(e, c, string(name), args)
}

// LoadToken calls method token n of the contract whose script is
// running. Its arguments are popped from the current evaluation
// stack, first argument on top.
func (s *Service) LoadToken(e *vm.Engine, n uint16) error {
	cur := e.CurrentContext().Script()
	c, ok := s.loaded[cur]
	if !ok || len(c.Tokens) == 0 {
		return errors.WithDetailf(ErrNoTokens, "script %x", s.ScriptHash(cur))
	}
	if int(n) >= len(c.Tokens) {
		return errors.WithDetailf(vm.ErrBadValue, "token %d of %d", n, len(c.Tokens))
	}
	t := c.Tokens[n]
	if e.CurrentContext().Estack().Len() < t.Params {
		return errors.WithDetailf(vm.ErrStackUnderflow, "token %d needs %d arguments", n, t.Params)
	}
	args := make([]vm.Item, t.Params)
	for i := range args {
		var err error
		if args[i], err = e.Pop(); err != nil {
			return err
		}
	}
	target, err := s.contract(t.Hash)
	if err != nil {
		return err
	}
	m, ok := target.Methods[t.Method]
	if !ok || m.Params != t.Params || m.Returns != t.Returns {
		return errors.WithDetailf(ErrUnknownMethod, "token %d does not match %x.%s", n, t.Hash, t.Method)
	}
	return s.call(e, target, t.Method, args)
}

// call loads method name of c with args, args[0] on top of the new
// evaluation stack.
func (s *Service) call(e *vm.Engine, c *Contract, name string, args []vm.Item) error {
	m, ok := c.Methods[name]
	if !ok {
		return errors.WithDetailf(ErrUnknownMethod, "%x has no method %q", c.Hash, name)
	}
	if len(args) != m.Params {
		return errors.WithDetailf(ErrArgCount, "%s takes %d, got %d", name, m.Params, len(args))
	}
	rvcount := 0
	if m.Returns {
		rvcount = 1
	}
	ctx, err := e.LoadCallee(c.Script, rvcount, args...)
	if err != nil {
		return err
	}
	s.loaded[c.Script] = c
	s.hashes[c.Script] = c.Hash
	return ctx.Jump(m.Offset)
}
