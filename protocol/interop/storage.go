package interop

import (
	"sort"
	"sync"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/math/checked"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

const (
	MaxStorageKeySize   = 64
	MaxStorageValueSize = 65535

	// StorageBytePrice is charged, times the fee factor, for every
	// key and value byte written by System.Storage.Put.
	StorageBytePrice = 1 << 6
)

var ErrNoStorage = errors.New("no storage attached")

// Store is committed contract storage, keyed by contract hash
// followed by the contract's own key. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns the value stored under key.
func (st *Store) Get(key []byte) ([]byte, bool) {
	st.mu.RLock()
	v, ok := st.data[string(key)]
	st.mu.RUnlock()
	return v, ok
}

// Len returns the number of stored keys.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.data)
}

// Keys returns the stored keys in sorted order.
func (st *Store) Keys() [][]byte {
	st.mu.RLock()
	keys := make([]string, 0, len(st.data))
	for k := range st.data {
		keys = append(keys, k)
	}
	st.mu.RUnlock()
	sort.Strings(keys)
	res := make([][]byte, len(keys))
	for i, k := range keys {
		res[i] = []byte(k)
	}
	return res
}

// Snapshot returns an empty overlay on st.
func (st *Store) Snapshot() *Snapshot {
	return &Snapshot{store: st, changes: make(map[string][]byte)}
}

// Snapshot buffers the writes of one run. Reads see the buffered
// writes over the store. Nothing reaches the store until Commit.
// A Snapshot is not safe for concurrent use.
type Snapshot struct {
	store   *Store
	changes map[string][]byte // nil value means deleted
}

// Get returns the value under key as the run sees it.
func (sn *Snapshot) Get(key []byte) ([]byte, bool) {
	if v, ok := sn.changes[string(key)]; ok {
		return v, v != nil
	}
	return sn.store.Get(key)
}

// Put stores a copy of value under key.
func (sn *Snapshot) Put(key, value []byte) {
	sn.changes[string(key)] = append(make([]byte, 0, len(value)), value...)
}

// Delete removes key.
func (sn *Snapshot) Delete(key []byte) {
	sn.changes[string(key)] = nil
}

// Changes returns the number of buffered writes and deletes.
func (sn *Snapshot) Changes() int { return len(sn.changes) }

// Commit applies the buffered changes to the store and empties the
// snapshot.
func (sn *Snapshot) Commit() {
	sn.store.mu.Lock()
	for k, v := range sn.changes {
		if v == nil {
			delete(sn.store.data, k)
		} else {
			sn.store.data[k] = v
		}
	}
	sn.store.mu.Unlock()
	sn.Discard()
}

// Discard drops the buffered changes.
func (sn *Snapshot) Discard() {
	sn.changes = make(map[string][]byte)
}

// StorageKey returns the store key of key in the storage of the
// contract with the given hash.
func StorageKey(contract, key []byte) []byte {
	return append(append(make([]byte, 0, len(contract)+len(key)), contract...), key...)
}

func (s *Service) popStorageKey(e *vm.Engine) ([]byte, error) {
	if s.snapshot == nil {
		return nil, ErrNoStorage
	}
	key, err := e.PopBytes()
	if err != nil {
		return nil, err
	}
	if len(key) > MaxStorageKeySize {
		return nil, errors.WithDetailf(vm.ErrBadValue, "storage key of %d bytes", len(key))
	}
	return StorageKey(s.currentHash(e), key), nil
}

func storageGet(s *Service, e *vm.Engine) error {
	key, err := s.popStorageKey(e)
	if err != nil {
		return err
	}
	if v, ok := s.snapshot.Get(key); ok {
		e.Push(vm.NewByteString(v))
	} else {
		e.Push(vm.NewNull())
	}
	return nil
}

func storagePut(s *Service, e *vm.Engine) error {
	key, err := s.popStorageKey(e)
	if err != nil {
		return err
	}
	value, err := e.PopBytes()
	if err != nil {
		return err
	}
	if len(value) > MaxStorageValueSize {
		return errors.WithDetailf(vm.ErrBadValue, "storage value of %d bytes", len(value))
	}
	size := int64(len(key) - HashSize + len(value))
	price, ok := checked.MulInt64(size*StorageBytePrice, e.FeeFactor())
	if !ok {
		return errors.WithDetail(vm.ErrOutOfGas, "storage price overflows")
	}
	if err := e.AddGas(price); err != nil {
		return err
	}
	s.snapshot.Put(key, value)
	return nil
}

func storageDelete(s *Service, e *vm.Engine) error {
	key, err := s.popStorageKey(e)
	if err != nil {
		return err
	}
	s.snapshot.Delete(key)
	return nil
}
