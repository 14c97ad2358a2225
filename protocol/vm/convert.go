package vm

import (
	"bytes"
	"math/big"
	"reflect"

	"github.com/onyx-protocol/neovm/errors"
)

var (
	bigOne     = big.NewInt(1)
	minInteger = new(big.Int).Neg(new(big.Int).Lsh(bigOne, 8*integerSize-1))
)

// fitsInteger reports whether n fits in 32 bytes of two's complement.
func fitsInteger(n *big.Int) bool {
	return n.BitLen() < 8*integerSize || n.Cmp(minInteger) == 0
}

// bigToBytes returns the minimal little-endian two's complement
// encoding of n. Zero encodes as the empty string.
func bigToBytes(n *big.Int) []byte {
	switch n.Sign() {
	case 0:
		return []byte{}
	case 1:
		b := reverse(n.Bytes())
		if b[len(b)-1]&0x80 != 0 {
			b = append(b, 0)
		}
		return b
	}
	// ^n == -n-1 >= 0
	b := reverse(new(big.Int).Not(n).Bytes())
	for i := range b {
		b[i] = ^b[i]
	}
	if len(b) == 0 || b[len(b)-1]&0x80 == 0 {
		b = append(b, 0xff)
	}
	return b
}

// bigFromBytes decodes little-endian two's complement.
func bigFromBytes(b []byte) *big.Int {
	n := new(big.Int)
	if len(b) == 0 {
		return n
	}
	n.SetBytes(reverse(append([]byte(nil), b...)))
	if b[len(b)-1]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(bigOne, uint(8*len(b))))
	}
	return n
}

// reverse reverses b in place and returns it.
func reverse(b []byte) []byte {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// ToBigInt returns the integer value of a primitive or Buffer item.
func ToBigInt(it Item) (*big.Int, error) {
	switch x := it.(type) {
	case *Integer:
		return x.v, nil
	case *Boolean:
		if x.v {
			return big.NewInt(1), nil
		}
		return new(big.Int), nil
	case *ByteString:
		return bytesToInt(x.b)
	case *Buffer:
		return bytesToInt(x.b)
	}
	return nil, errors.WithDetailf(ErrInvalidCast, "%s to Integer", it.Type())
}

func bytesToInt(b []byte) (*big.Int, error) {
	if len(b) > integerSize {
		return nil, errors.WithDetailf(ErrInvalidCast, "%d bytes to Integer", len(b))
	}
	return bigFromBytes(b), nil
}

// ToBytes returns the byte representation of a primitive or Buffer
// item. The result must not be modified.
func ToBytes(it Item) ([]byte, error) {
	switch x := it.(type) {
	case *ByteString:
		return x.b, nil
	case *Buffer:
		return x.b, nil
	case *Integer:
		return bigToBytes(x.v), nil
	case *Boolean:
		if x.v {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	}
	return nil, errors.WithDetailf(ErrInvalidCast, "%s to ByteString", it.Type())
}

// ToBool returns the truth value of it.
func ToBool(it Item) (bool, error) {
	switch x := it.(type) {
	case *Null:
		return false, nil
	case *Boolean:
		return x.v, nil
	case *Integer:
		return x.v.Sign() != 0, nil
	case *ByteString:
		if len(x.b) > integerSize {
			return false, errors.WithDetailf(ErrInvalidCast, "%d bytes to Boolean", len(x.b))
		}
		for _, c := range x.b {
			if c != 0 {
				return true, nil
			}
		}
		return false, nil
	}
	return true, nil
}

// Convert returns it converted to type t.
func Convert(it Item, t Type) (Item, error) {
	if it.Type() == t {
		return it, nil
	}
	if _, ok := it.(*Null); ok {
		if !t.isValid() {
			return nil, errors.WithDetailf(ErrInvalidCast, "Null to %s", t)
		}
		return it, nil
	}
	if t == BooleanType {
		b, err := ToBool(it)
		if err != nil {
			return nil, err
		}
		return NewBool(b), nil
	}
	switch it.(type) {
	case *Boolean, *Integer, *ByteString, *Buffer:
		switch t {
		case IntegerType:
			n, err := ToBigInt(it)
			if err != nil {
				return nil, err
			}
			return &Integer{v: n}, nil
		case ByteStringType:
			b, err := ToBytes(it)
			if err != nil {
				return nil, err
			}
			return NewByteString(append([]byte(nil), b...)), nil
		case BufferType:
			b, err := ToBytes(it)
			if err != nil {
				return nil, err
			}
			return NewBufferBytes(b), nil
		}
	case *Array:
		if t == StructType {
			return NewStruct(append([]Item(nil), it.(*Array).items...)...), nil
		}
	case *Struct:
		if t == ArrayType {
			return NewArray(append([]Item(nil), it.(*Struct).items...)...), nil
		}
	}
	return nil, errors.WithDetailf(ErrInvalidCast, "%s to %s", it.Type(), t)
}

// Equal reports whether a and b are equal: primitives by type and
// value, Structs element by element, Pointers by position and
// everything else by identity. Struct comparison fails rather than
// exceed the element and byte bounds in lim.
func Equal(a, b Item, lim *Limits) (bool, error) {
	budget := lim.MaxComparableSize
	sa, ok := a.(*Struct)
	if !ok {
		return equal(a, b, &budget)
	}
	sb, ok := b.(*Struct)
	if !ok {
		return false, nil
	}

	count := lim.MaxItemCount
	left, right := []Item{sa}, []Item{sb}
	for len(left) > 0 {
		if count == 0 {
			return false, errors.WithDetail(ErrItemCountExceeded, "too many struct elements to compare")
		}
		count--
		x, y := left[len(left)-1], right[len(right)-1]
		left, right = left[:len(left)-1], right[:len(right)-1]
		xs, ok := x.(*Struct)
		if !ok {
			eq, err := equal(x, y, &budget)
			if err != nil || !eq {
				return false, err
			}
			continue
		}
		ys, ok := y.(*Struct)
		if !ok || len(xs.items) != len(ys.items) {
			return false, nil
		}
		if xs == ys {
			continue
		}
		left = append(left, xs.items...)
		right = append(right, ys.items...)
	}
	return true, nil
}

// equal compares two items of which a is not a Struct.
func equal(a, b Item, budget *int) (bool, error) {
	switch x := a.(type) {
	case *Null:
		_, ok := b.(*Null)
		return ok, nil
	case *Boolean:
		y, ok := b.(*Boolean)
		return ok && x.v == y.v, nil
	case *Integer:
		y, ok := b.(*Integer)
		return ok && x.v.Cmp(y.v) == 0, nil
	case *ByteString:
		y, ok := b.(*ByteString)
		if !ok {
			return false, nil
		}
		n := len(x.b)
		if len(y.b) > n {
			n = len(y.b)
		}
		if n > *budget {
			return false, errors.WithDetailf(ErrItemSizeExceeded, "comparison of %d bytes", n)
		}
		*budget -= n
		return bytes.Equal(x.b, y.b), nil
	case *Pointer:
		y, ok := b.(*Pointer)
		return ok && x.script == y.script && x.pos == y.pos, nil
	case *Interop:
		y, ok := b.(*Interop)
		if !ok {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		if x.v == nil || y.v == nil {
			return x.v == nil && y.v == nil, nil
		}
		if reflect.TypeOf(x.v) != reflect.TypeOf(y.v) || !reflect.TypeOf(x.v).Comparable() {
			return false, nil
		}
		return x.v == y.v, nil
	}
	return a == b, nil
}
