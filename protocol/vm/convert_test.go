package vm

import (
	"bytes"
	"fmt"
	"math/big"
	"testing"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/testutil"
)

func TestIntegerEncoding(t *testing.T) {
	cases := []struct {
		n    int64
		want []byte
	}{
		{0, []byte{}},
		{1, []byte{0x01}},
		{-1, []byte{0xff}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x00}},
		{-128, []byte{0x80}},
		{-129, []byte{0x7f, 0xff}},
		{255, []byte{0xff, 0x00}},
		{256, []byte{0x00, 0x01}},
		{-256, []byte{0x00, 0xff}},
	}
	for _, c := range cases {
		got := bigToBytes(big.NewInt(c.n))
		if !bytes.Equal(got, c.want) {
			t.Errorf("bigToBytes(%d) = %x want %x", c.n, got, c.want)
		}
		if back := bigFromBytes(c.want); back.Int64() != c.n {
			t.Errorf("bigFromBytes(%x) = %s want %d", c.want, back, c.n)
		}
	}

	// Non-minimal encodings decode too.
	testutil.ExpectEqual(t, bigFromBytes([]byte{0x01, 0x00, 0x00}).Int64(), int64(1), "padded positive")
	testutil.ExpectEqual(t, bigFromBytes([]byte{0xff, 0xff}).Int64(), int64(-1), "padded negative")
}

func TestToBigInt(t *testing.T) {
	cases := []struct {
		it      Item
		want    int64
		wantErr error
	}{
		{NewInt(-5), -5, nil},
		{NewBool(true), 1, nil},
		{NewBool(false), 0, nil},
		{NewByteString(nil), 0, nil},
		{NewByteString([]byte{0xff}), -1, nil},
		{NewBufferBytes([]byte{0x00, 0x01}), 256, nil},
		{NewByteString(make([]byte, 33)), 0, ErrInvalidCast},
		{NewNull(), 0, ErrInvalidCast},
		{NewArray(), 0, ErrInvalidCast},
		{NewMap(), 0, ErrInvalidCast},
	}
	for _, c := range cases {
		got, err := ToBigInt(c.it)
		if errors.Root(err) != c.wantErr {
			t.Errorf("ToBigInt(%s) error = %v want %v", c.it, err, c.wantErr)
			continue
		}
		if err == nil && got.Int64() != c.want {
			t.Errorf("ToBigInt(%s) = %s want %d", c.it, got, c.want)
		}
	}
}

func TestToBool(t *testing.T) {
	cases := []struct {
		it      Item
		want    bool
		wantErr error
	}{
		{NewNull(), false, nil},
		{NewBool(true), true, nil},
		{NewInt(0), false, nil},
		{NewInt(-1), true, nil},
		{NewByteString(nil), false, nil},
		{NewByteString([]byte{0, 0}), false, nil},
		{NewByteString([]byte{0, 1}), true, nil},
		{NewByteString(make([]byte, 33)), false, ErrInvalidCast},
		{NewBuffer(0), true, nil},
		{NewArray(), true, nil},
		{NewMap(), true, nil},
		{NewInterop(nil), true, nil},
		{NewPointer(NewScript(nil), 0), true, nil},
	}
	for _, c := range cases {
		got, err := ToBool(c.it)
		if errors.Root(err) != c.wantErr {
			t.Errorf("ToBool(%s) error = %v want %v", c.it, err, c.wantErr)
			continue
		}
		if got != c.want {
			t.Errorf("ToBool(%s) = %v want %v", c.it, got, c.want)
		}
	}
}

func TestConvert(t *testing.T) {
	buf := NewBufferBytes([]byte("ab"))
	cases := []struct {
		it      Item
		t       Type
		want    string
		wantErr error
	}{
		{NewInt(1), IntegerType, "1", nil},
		{NewInt(258), ByteStringType, "0x0201", nil},
		{NewInt(258), BufferType, "Buffer(0x0201)", nil},
		{NewByteString([]byte{2}), IntegerType, "2", nil},
		{buf, ByteStringType, "0x6162", nil},
		{NewBool(true), ByteStringType, "0x01", nil},
		{NewBool(false), IntegerType, "0", nil},
		{NewBuffer(1), BooleanType, "true", nil},
		{NewNull(), MapType, "Null", nil},
		{NewStruct(NewInt(1)), ArrayType, "Array[1]", nil},
		{NewMap(), ArrayType, "", ErrInvalidCast},
		{NewInt(1), PointerType, "", ErrInvalidCast},
		{NewInterop(7), ByteStringType, "", ErrInvalidCast},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s to %s", c.it, c.t), func(t *testing.T) {
			got, err := Convert(c.it, c.t)
			if errors.Root(err) != c.wantErr {
				t.Fatalf("error = %v want %v", err, c.wantErr)
			}
			if err != nil {
				return
			}
			testutil.ExpectEqual(t, got.String(), c.want, "converted")
			if got.Type() != c.t && c.t != AnyType {
				if _, null := got.(*Null); !null {
					t.Errorf("type = %s want %s", got.Type(), c.t)
				}
			}
		})
	}

	// Converting a Buffer to a ByteString copies it.
	bs, err := Convert(buf, ByteStringType)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	buf.Bytes()[0] = 'z'
	testutil.ExpectEqual(t, bs.String(), "0x6162", "byte string after buffer write")
}

func TestEqual(t *testing.T) {
	lim := DefaultLimits()
	arr := NewArray()
	buf := NewBuffer(1)
	s := NewScript([]byte{byte(OP_NOP)})
	cases := []struct {
		a, b Item
		want bool
	}{
		{NewInt(1), NewInt(1), true},
		{NewInt(1), NewBool(true), false},
		{NewInt(1), NewByteString([]byte{1}), false},
		{NewByteString([]byte("a")), NewByteString([]byte("a")), true},
		{NewBool(false), NewBool(false), true},
		{NewNull(), NewNull(), true},
		{NewNull(), NewInt(0), false},
		{arr, arr, true},
		{NewArray(), NewArray(), false},
		{buf, buf, true},
		{NewBuffer(1), NewBuffer(1), false},
		{NewStruct(NewInt(1), NewStruct()), NewStruct(NewInt(1), NewStruct()), true},
		{NewStruct(NewInt(1)), NewStruct(NewInt(2)), false},
		{NewStruct(NewInt(1)), NewStruct(NewInt(1), NewInt(1)), false},
		{NewStruct(), NewArray(), false},
		{NewPointer(s, 0), NewPointer(s, 0), true},
		{NewPointer(s, 0), NewPointer(NewScript([]byte{byte(OP_NOP)}), 0), false},
		{NewInterop("x"), NewInterop("x"), true},
		{NewInterop([]int{1}), NewInterop([]int{1}), false},
	}
	for _, c := range cases {
		got, err := Equal(c.a, c.b, &lim)
		if err != nil {
			testutil.FatalErr(t, err)
		}
		if got != c.want {
			t.Errorf("Equal(%s, %s) = %v want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestEqualLimits(t *testing.T) {
	one := NewInt(1)
	a := NewStruct(one, one, one)
	b := NewStruct(one, one, one)

	eq, err := Equal(a, b, &Limits{MaxItemCount: 4, MaxComparableSize: 100})
	if err != nil || !eq {
		t.Errorf("Equal within the element limit = %v, %v", eq, err)
	}
	testutil.ExpectError(t, ErrItemCountExceeded, "past the element limit", func() error {
		_, err := Equal(a, b, &Limits{MaxItemCount: 3, MaxComparableSize: 100})
		return err
	})

	x := NewByteString(make([]byte, 10))
	y := NewByteString(make([]byte, 10))
	testutil.ExpectError(t, ErrItemSizeExceeded, "past the byte limit", func() error {
		_, err := Equal(x, y, &Limits{MaxItemCount: 4, MaxComparableSize: 5})
		return err
	})
	testutil.ExpectError(t, ErrItemSizeExceeded, "bytes summed across a struct", func() error {
		_, err := Equal(NewStruct(x, x), NewStruct(y, y), &Limits{MaxItemCount: 10, MaxComparableSize: 15})
		return err
	})
}
