package interop

import (
	"crypto/sha256"
	"math/big"

	"github.com/agl/ed25519"
	"github.com/btcsuite/btcd/btcec"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

// Hash160 returns ripemd160(sha256(data)).
func Hash160(data []byte) []byte {
	return ripemd160Sum(sha256Sum(data))
}

func sha256Sum(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

func ripemd160Sum(data []byte) []byte {
	h := ripemd160.New()
	h.Write(data)
	return h.Sum(nil)
}

func keccak256Sum(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

func sha3Sum(data []byte) []byte {
	h := sha3.Sum256(data)
	return h[:]
}

// hashHandler returns a syscall that replaces the top item with its
// digest under f.
func hashHandler(f func([]byte) []byte) Handler {
	return func(s *Service, e *vm.Engine) error {
		data, err := e.PopBytes()
		if err != nil {
			return err
		}
		e.Push(vm.NewByteString(f(data)))
		return nil
	}
}

// popSigArgs pops the message, public key and signature of a
// verification syscall, in that order.
func popSigArgs(e *vm.Engine) (msg, pub, sig []byte, err error) {
	if msg, err = e.PopBytes(); err != nil {
		return
	}
	if pub, err = e.PopBytes(); err != nil {
		return
	}
	sig, err = e.PopBytes()
	return
}

// verifySecp256k1 checks a 64-byte r||s signature of sha256(msg).
// Malformed keys and signatures verify as false.
func verifySecp256k1(s *Service, e *vm.Engine) error {
	msg, pub, sig, err := popSigArgs(e)
	if err != nil {
		return err
	}
	e.Push(vm.NewBool(VerifySecp256k1(msg, pub, sig)))
	return nil
}

// VerifySecp256k1 reports whether sig is a valid r||s signature of
// sha256(msg) by the compressed or uncompressed key pub.
func VerifySecp256k1(msg, pub, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	key, err := btcec.ParsePubKey(pub, btcec.S256())
	if err != nil {
		return false
	}
	signature := &btcec.Signature{
		R: new(big.Int).SetBytes(sig[:32]),
		S: new(big.Int).SetBytes(sig[32:]),
	}
	return signature.Verify(sha256Sum(msg), key)
}

func verifyEd25519(s *Service, e *vm.Engine) error {
	msg, pub, sig, err := popSigArgs(e)
	if err != nil {
		return err
	}
	if len(pub) != ed25519.PublicKeySize {
		return errors.WithDetailf(vm.ErrBadValue, "ed25519 key of %d bytes", len(pub))
	}
	var (
		key       [ed25519.PublicKeySize]byte
		signature [ed25519.SignatureSize]byte
	)
	copy(key[:], pub)
	ok := len(sig) == ed25519.SignatureSize
	if ok {
		copy(signature[:], sig)
		ok = ed25519.Verify(&key, msg, &signature)
	}
	e.Push(vm.NewBool(ok))
	return nil
}
