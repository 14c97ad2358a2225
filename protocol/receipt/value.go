package receipt

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

// MaxValueItems bounds the number of items FromItem copies, since a
// compound reachable along several paths is copied once per path.
const MaxValueItems = 1 << 14

var ErrTooLarge = errors.New("value too large")

// Value is a copy of a stack item that no longer depends on the
// engine that produced it.
//
// A compound that contains itself, directly or through other
// compounds, is copied once. The inner occurrence is a Value whose
// Ref counts the levels up to the enclosing copy.
type Value struct {
	Type  vm.Type  `cbor:"1,keyasint"`
	Bool  bool     `cbor:"2,keyasint,omitempty"`
	Int   *big.Int `cbor:"3,keyasint,omitempty"` // Integer value or Pointer position
	Bytes []byte   `cbor:"4,keyasint,omitempty"` // ByteString and Buffer contents
	Items []Value  `cbor:"5,keyasint,omitempty"` // Array and Struct elements, Map values
	Keys  []Value  `cbor:"6,keyasint,omitempty"` // Map keys
	Ref   int      `cbor:"7,keyasint,omitempty"`
}

// FromItem copies it.
func FromItem(it vm.Item) (Value, error) {
	c := copier{budget: MaxValueItems}
	return c.value(it)
}

type copier struct {
	budget int
	path   []vm.Item
}

func (c *copier) value(it vm.Item) (Value, error) {
	c.budget--
	if c.budget < 0 {
		return Value{}, errors.WithDetailf(ErrTooLarge, "more than %d items", MaxValueItems)
	}
	for i := len(c.path) - 1; i >= 0; i-- {
		if c.path[i] == it {
			return Value{Type: it.Type(), Ref: len(c.path) - i}, nil
		}
	}

	v := Value{Type: it.Type()}
	switch x := it.(type) {
	case *vm.Null, *vm.Interop:
	case *vm.Boolean:
		v.Bool = x.Bool()
	case *vm.Integer:
		v.Int = new(big.Int).Set(x.Big())
	case *vm.ByteString:
		v.Bytes = append([]byte{}, x.Bytes()...)
	case *vm.Buffer:
		v.Bytes = append([]byte{}, x.Bytes()...)
	case *vm.Pointer:
		v.Int = big.NewInt(int64(x.Position()))
	case *vm.Array:
		return c.compound(it, v, x.Items(), nil)
	case *vm.Struct:
		return c.compound(it, v, x.Items(), nil)
	case *vm.Map:
		return c.compound(it, v, x.Values(), x.Keys())
	default:
		return Value{}, errors.WithDetailf(vm.ErrInvalidCast, "cannot copy %T", it)
	}
	return v, nil
}

func (c *copier) compound(it vm.Item, v Value, items, keys []vm.Item) (Value, error) {
	c.path = append(c.path, it)
	defer func() { c.path = c.path[:len(c.path)-1] }()
	var err error
	if keys != nil {
		v.Keys, err = c.values(keys)
		if err != nil {
			return Value{}, err
		}
	}
	v.Items, err = c.values(items)
	return v, err
}

func (c *copier) values(items []vm.Item) ([]Value, error) {
	if len(items) == 0 {
		return nil, nil
	}
	vals := make([]Value, 0, len(items))
	for _, it := range items {
		v, err := c.value(it)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// Equal reports whether v and w are identical copies.
func (v Value) Equal(w Value) bool {
	if v.Type != w.Type || v.Bool != w.Bool || v.Ref != w.Ref || !bytes.Equal(v.Bytes, w.Bytes) {
		return false
	}
	if (v.Int == nil) != (w.Int == nil) || (v.Int != nil && v.Int.Cmp(w.Int) != 0) {
		return false
	}
	return valuesEqual(v.Items, w.Items) && valuesEqual(v.Keys, w.Keys)
}

func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// String formats v the way the disassembler and the vmrun command
// print stack contents.
func (v Value) String() string {
	if v.Ref > 0 {
		return fmt.Sprintf("<%s ref %d>", v.Type, v.Ref)
	}
	switch v.Type {
	case vm.AnyType:
		return "Null"
	case vm.BooleanType:
		return fmt.Sprint(v.Bool)
	case vm.IntegerType:
		return v.Int.String()
	case vm.ByteStringType:
		return "0x" + hex.EncodeToString(v.Bytes)
	case vm.BufferType:
		return "Buffer(0x" + hex.EncodeToString(v.Bytes) + ")"
	case vm.PointerType:
		return fmt.Sprintf("Pointer(%s)", v.Int)
	case vm.ArrayType, vm.StructType:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			parts[i] = it.String()
		}
		return v.Type.String() + "[" + strings.Join(parts, " ") + "]"
	case vm.MapType:
		parts := make([]string, len(v.Items))
		for i := range v.Items {
			parts[i] = v.Keys[i].String() + ":" + v.Items[i].String()
		}
		return "Map{" + strings.Join(parts, " ") + "}"
	}
	return v.Type.String()
}
