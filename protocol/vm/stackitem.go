package vm

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// Type identifies an Item variant. The values are the operand bytes
// of ISTYPE, CONVERT and NEWARRAY_T.
type Type byte

const (
	AnyType        Type = 0x00
	PointerType    Type = 0x10
	BooleanType    Type = 0x20
	IntegerType    Type = 0x21
	ByteStringType Type = 0x28
	BufferType     Type = 0x30
	ArrayType      Type = 0x40
	StructType     Type = 0x41
	MapType        Type = 0x48
	InteropType    Type = 0x60
)

var typeNames = map[Type]string{
	AnyType:        "Any",
	PointerType:    "Pointer",
	BooleanType:    "Boolean",
	IntegerType:    "Integer",
	ByteStringType: "ByteString",
	BufferType:     "Buffer",
	ArrayType:      "Array",
	StructType:     "Struct",
	MapType:        "Map",
	InteropType:    "InteropInterface",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(0x%02x)", byte(t))
}

func (t Type) isValid() bool {
	_, ok := typeNames[t]
	return ok
}

// TypeByName returns the type with the given name.
func TypeByName(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Item is a value on an evaluation stack, in a slot or inside a
// compound item. The variants are the pointer types defined in this
// package; an Item belongs to at most one engine.
type Item interface {
	Type() Type
	String() string
	hdr() *header
}

type color uint8

const (
	black  color = iota // in use
	gray                // possible member of a garbage cycle
	white               // member of a garbage cycle
	purple              // possible root of a garbage cycle
)

// header holds the reference-counting state of an item.
type header struct {
	stackRefs  int32 // references from stacks, slots and the engine
	parentRefs int32 // references from compound items
	color      color
	buffered   bool
	tracked    bool
}

func (h *header) hdr() *header { return h }

func (h *header) refs() int32 { return h.stackRefs + h.parentRefs }

type (
	// Null is the absence of a value.
	Null struct{ header }

	// Boolean is true or false.
	Boolean struct {
		header
		v bool
	}

	// Integer is a signed integer of at most 32 bytes
	// in two's complement. Its value must not be modified.
	Integer struct {
		header
		v *big.Int
	}

	// ByteString is an immutable byte sequence.
	ByteString struct {
		header
		b []byte
	}

	// Buffer is a mutable byte sequence compared by identity.
	Buffer struct {
		header
		b []byte
	}

	// Pointer is a position in a script.
	Pointer struct {
		header
		script *Script
		pos    int
	}

	// Interop wraps a host value handed to bytecode by an
	// interop service.
	Interop struct {
		header
		v interface{}
	}
)

// NewNull returns a new Null item.
func NewNull() *Null { return new(Null) }

// NewBool returns a Boolean item.
func NewBool(v bool) *Boolean { return &Boolean{v: v} }

// NewInt returns an Integer item.
func NewInt(n int64) *Integer { return &Integer{v: big.NewInt(n)} }

// NewBigInt returns an Integer item holding n. The caller must
// not modify n afterward. It fails if n does not fit in 32 bytes.
func NewBigInt(n *big.Int) (*Integer, error) {
	if !fitsInteger(n) {
		return nil, ErrItemSizeExceeded
	}
	return &Integer{v: n}, nil
}

// NewByteString returns a ByteString item holding b.
// The caller must not modify b afterward.
func NewByteString(b []byte) *ByteString { return &ByteString{b: b} }

// NewBuffer returns a zeroed Buffer of length n.
func NewBuffer(n int) *Buffer { return &Buffer{b: make([]byte, n)} }

// NewBufferBytes returns a Buffer holding a copy of b.
func NewBufferBytes(b []byte) *Buffer { return &Buffer{b: append(make([]byte, 0, len(b)), b...)} }

// NewPointer returns a Pointer to pos in s.
func NewPointer(s *Script, pos int) *Pointer { return &Pointer{script: s, pos: pos} }

// NewInterop wraps v.
func NewInterop(v interface{}) *Interop { return &Interop{v: v} }

func (*Null) Type() Type       { return AnyType }
func (*Boolean) Type() Type    { return BooleanType }
func (*Integer) Type() Type    { return IntegerType }
func (*ByteString) Type() Type { return ByteStringType }
func (*Buffer) Type() Type     { return BufferType }
func (*Pointer) Type() Type    { return PointerType }
func (*Interop) Type() Type    { return InteropType }

func (*Null) String() string { return "Null" }

func (b *Boolean) String() string {
	if b.v {
		return "true"
	}
	return "false"
}

func (n *Integer) String() string    { return n.v.String() }
func (s *ByteString) String() string { return "0x" + hex.EncodeToString(s.b) }
func (b *Buffer) String() string     { return "Buffer(0x" + hex.EncodeToString(b.b) + ")" }
func (p *Pointer) String() string    { return fmt.Sprintf("Pointer(%d)", p.pos) }
func (i *Interop) String() string    { return fmt.Sprintf("Interop(%T)", i.v) }

// Bool returns the value of b.
func (b *Boolean) Bool() bool { return b.v }

// Big returns the value of n. The result must not be modified.
func (n *Integer) Big() *big.Int { return n.v }

// Bytes returns the contents of s. The result must not be modified.
func (s *ByteString) Bytes() []byte { return s.b }

// Bytes returns the contents of b. Writes to the result are
// visible to every holder of b.
func (b *Buffer) Bytes() []byte { return b.b }

// Script returns the script p points into.
func (p *Pointer) Script() *Script { return p.script }

// Position returns the offset p points to.
func (p *Pointer) Position() int { return p.pos }

// Value returns the wrapped host value.
func (i *Interop) Value() interface{} { return i.v }

// isPrimitive reports whether it may be a map key.
func isPrimitive(it Item) bool {
	switch it.(type) {
	case *Boolean, *Integer, *ByteString:
		return true
	}
	return false
}

// defaultItem returns the initial element value NEWARRAY_T uses
// for type t.
func defaultItem(t Type) Item {
	switch t {
	case BooleanType:
		return NewBool(false)
	case IntegerType:
		return NewInt(0)
	case ByteStringType:
		return NewByteString(nil)
	}
	return NewNull()
}
