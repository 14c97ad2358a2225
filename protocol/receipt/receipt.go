// Package receipt records the outcome of a script run in a canonical
// CBOR encoding, so that two nodes running the same script can
// compare results by digest.
package receipt

import (
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/sha3"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

var ErrNotTerminal = errors.New("engine has not finished")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(errors.Wrap(err, "receipt: cbor encoding mode"))
	}
	encMode = em
}

// Notification is an event raised with System.Runtime.Notify.
type Notification struct {
	Contract []byte `cbor:"1,keyasint"` // hash160 of the raising script
	Name     string `cbor:"2,keyasint"`
	State    Value  `cbor:"3,keyasint"`
}

// Log is a message written with System.Runtime.Log.
type Log struct {
	Contract []byte `cbor:"1,keyasint"`
	Message  string `cbor:"2,keyasint"`
}

// Receipt is the outcome of one run.
type Receipt struct {
	State         string         `cbor:"1,keyasint"`
	FaultKind     string         `cbor:"2,keyasint,omitempty"`
	Fault         string         `cbor:"3,keyasint,omitempty"`
	Exception     *Value         `cbor:"4,keyasint,omitempty"`
	GasConsumed   int64          `cbor:"5,keyasint"`
	Stack         []Value        `cbor:"6,keyasint,omitempty"`
	Notifications []Notification `cbor:"7,keyasint,omitempty"`
	Logs          []Log          `cbor:"8,keyasint,omitempty"`
}

// New returns the receipt of an engine that has halted or faulted.
// The result stack is copied bottom first. Notifications and logs
// are left for the caller to fill in.
func New(e *vm.Engine) (*Receipt, error) {
	s := e.State()
	if s != vm.Halt && s != vm.Fault {
		return nil, errors.WithDetailf(ErrNotTerminal, "state %s", s)
	}
	r := &Receipt{
		State:       s.String(),
		GasConsumed: e.GasConsumed(),
	}
	if err := e.Fault(); err != nil {
		r.FaultKind = vm.KindOf(err).String()
		r.Fault = err.Error()
	}
	if it := e.UncaughtException(); it != nil {
		v, err := FromItem(it)
		if err != nil {
			return nil, errors.Wrap(err, "exception")
		}
		r.Exception = &v
	}
	for i, it := range e.ResultStack().Items() {
		v, err := FromItem(it)
		if err != nil {
			return nil, errors.Wrapf(err, "result %d", i)
		}
		r.Stack = append(r.Stack, v)
	}
	return r, nil
}

// Encode returns the canonical CBOR encoding of r.
func (r *Receipt) Encode() ([]byte, error) {
	b, err := encMode.Marshal(r)
	return b, errors.Wrap(err, "encoding receipt")
}

// Digest returns the SHA3-256 hash of r's encoding.
func (r *Receipt) Digest() ([32]byte, error) {
	b, err := r.Encode()
	if err != nil {
		return [32]byte{}, err
	}
	return sha3.Sum256(b), nil
}

// Decode parses an encoded receipt.
func Decode(data []byte) (*Receipt, error) {
	r := new(Receipt)
	if err := cbor.Unmarshal(data, r); err != nil {
		return nil, errors.Wrap(err, "decoding receipt")
	}
	return r, nil
}
