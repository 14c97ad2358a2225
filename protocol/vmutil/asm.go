package vmutil

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

var ErrToken = errors.New("unrecognized token")

const (
	invalidTok = iota
	mnemonicTok
	labelTok
	refTok
	numberTok
	hexTok
	stringTok
)

type token struct {
	typ int
	lit string
}

// Assemble translates src into a program.
//
// Notation:
//
//	ADD        mnemonic
//	12345      shortest push of a number
//	0x0aff     shortest push of hex data
//	'foo'      shortest push of a string, with \' and \\ escapes
//	loop:      defines a label at the next instruction
//	@loop      a label as a jump, call, TRY or PUSHA operand
//	# ...      comment to the end of the line
//
// Operands follow their mnemonic: a number or label for jumps, calls
// and PUSHA (a number is a relative offset); two of them for TRY;
// a number for PUSHINT; hex or a string for PUSHDATA; a quoted
// service name or a 0x-prefixed id for SYSCALL; a type name such as
// Integer for NEWARRAY_T, ISTYPE and CONVERT; and numbers for the
// remaining fixed-size operands. Disassemble's output assembles
// back to the same program when it uses the shortest encodings.
func Assemble(src string) ([]byte, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	a := &assembler{b: NewBuilder(), labels: make(map[string]int), defined: make(map[string]bool)}
	for r := 0; r < len(tokens); {
		n, err := a.statement(tokens[r:])
		if err != nil {
			return nil, err
		}
		r += n
	}
	var missing []string
	for name := range a.labels {
		if !a.defined[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.WithDetailf(ErrUnresolvedJump, "undefined label %s", strings.Join(missing, ", "))
	}
	return a.b.Build()
}

type assembler struct {
	b       *Builder
	labels  map[string]int
	defined map[string]bool
}

func (a *assembler) target(name string) int {
	t, ok := a.labels[name]
	if !ok {
		t = a.b.NewJumpTarget()
		a.labels[name] = t
	}
	return t
}

// statement assembles one statement and returns the number of
// tokens it used.
func (a *assembler) statement(tokens []token) (int, error) {
	tok := tokens[0]
	switch tok.typ {
	case labelTok:
		name := tok.lit[:len(tok.lit)-1]
		if a.defined[name] {
			return 0, errors.WithDetailf(ErrToken, "label %s defined twice", name)
		}
		a.defined[name] = true
		a.b.SetJumpTarget(a.target(name))
		return 1, nil
	case numberTok:
		n, err := parseNumber(tok.lit)
		if err != nil {
			return 0, err
		}
		a.b.AddBigInt(n)
		return 1, nil
	case hexTok, stringTok:
		data, err := parseData(tok)
		if err != nil {
			return 0, err
		}
		a.b.AddData(data)
		return 1, nil
	case mnemonicTok:
		op, ok := vm.OpByName(strings.ToUpper(tok.lit))
		if !ok {
			return 0, errors.WithDetailf(ErrToken, "bad mnemonic %s", tok.lit)
		}
		n, err := a.instruction(op, tokens[1:])
		return n + 1, err
	}
	return 0, errors.WithDetailf(ErrToken, "unexpected %s", tok.lit)
}

// instruction assembles op with operands taken from tokens and
// returns the number of operand tokens used.
func (a *assembler) instruction(op vm.Op, tokens []token) (int, error) {
	size, prefix := op.Operand()
	operand := func(i int, types ...int) (token, error) {
		if i >= len(tokens) {
			return token{}, errors.WithDetailf(ErrToken, "%s: missing operand", op)
		}
		for _, typ := range types {
			if tokens[i].typ == typ {
				return tokens[i], nil
			}
		}
		return token{}, errors.WithDetailf(ErrToken, "%s: bad operand %s", op, tokens[i].lit)
	}

	switch {
	case op >= vm.OP_PUSHINT8 && op <= vm.OP_PUSHINT256:
		tok, err := operand(0, numberTok)
		if err != nil {
			return 0, err
		}
		n, err := parseNumber(tok.lit)
		if err != nil {
			return 0, err
		}
		p, err := vm.PushdataIntSized(n, size)
		if err != nil {
			return 0, err
		}
		a.b.AddRawBytes(p)
		return 1, nil

	case prefix > 0:
		tok, err := operand(0, hexTok, stringTok)
		if err != nil {
			return 0, err
		}
		data, err := parseData(tok)
		if err != nil {
			return 0, err
		}
		if uint64(len(data)) >= 1<<(8*uint(prefix)) {
			return 0, errors.WithDetailf(ErrOperand, "%d bytes do not fit %s", len(data), op)
		}
		var lenbuf [4]byte
		binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(data)))
		a.b.AddRawBytes([]byte{byte(op)}).AddRawBytes(lenbuf[:prefix]).AddRawBytes(data)
		return 1, nil

	case op.IsJump() || op == vm.OP_PUSHA || op == vm.OP_TRY || op == vm.OP_TRY_L:
		n := 1
		if op == vm.OP_TRY || op == vm.OP_TRY_L {
			n = 2
		}
		inst := a.b.Len()
		a.b.AddRawBytes([]byte{byte(op)})
		width := size / n
		for i := 0; i < n; i++ {
			tok, err := operand(i, refTok, numberTok)
			if err != nil {
				return 0, err
			}
			if tok.typ == refTok {
				a.b.addPlaceholder(a.target(tok.lit[1:]), inst, width)
				continue
			}
			b, err := parseFixed(tok.lit, width, true)
			if err != nil {
				return 0, errors.WithDetailf(err, "%s", op)
			}
			a.b.AddRawBytes(b)
		}
		return n, nil

	case op == vm.OP_SYSCALL:
		tok, err := operand(0, stringTok, hexTok, numberTok)
		if err != nil {
			return 0, err
		}
		switch tok.typ {
		case stringTok:
			name, err := parseData(tok)
			if err != nil {
				return 0, err
			}
			a.b.AddSyscall(string(name))
		case hexTok:
			id, err := strconv.ParseUint(tok.lit[2:], 16, 32)
			if err != nil {
				return 0, errors.WithDetailf(ErrOperand, "SYSCALL id %s", tok.lit)
			}
			a.b.AddSyscallID(uint32(id))
		default:
			id, err := strconv.ParseUint(tok.lit, 10, 32)
			if err != nil {
				return 0, errors.WithDetailf(ErrOperand, "SYSCALL id %s", tok.lit)
			}
			a.b.AddSyscallID(uint32(id))
		}
		return 1, nil

	case op == vm.OP_NEWARRAY_T || op == vm.OP_ISTYPE || op == vm.OP_CONVERT:
		tok, err := operand(0, mnemonicTok, numberTok)
		if err != nil {
			return 0, err
		}
		if tok.typ == mnemonicTok {
			t, ok := vm.TypeByName(tok.lit)
			if !ok {
				return 0, errors.WithDetailf(ErrOperand, "unknown type %s", tok.lit)
			}
			a.b.AddType(op, t)
			return 1, nil
		}
		b, err := parseFixed(tok.lit, 1, false)
		if err != nil {
			return 0, err
		}
		a.b.AddOp(op, b...)
		return 1, nil

	case op == vm.OP_CALLT:
		tok, err := operand(0, numberTok)
		if err != nil {
			return 0, err
		}
		b, err := parseFixed(tok.lit, 2, false)
		if err != nil {
			return 0, err
		}
		a.b.AddOp(op, b...)
		return 1, nil
	}

	// One byte per token, as in INITSLOT 2 1.
	var data []byte
	for i := 0; i < size; i++ {
		tok, err := operand(i, numberTok)
		if err != nil {
			return 0, err
		}
		b, err := parseFixed(tok.lit, 1, false)
		if err != nil {
			return 0, err
		}
		data = append(data, b...)
	}
	a.b.AddOp(op, data...)
	return size, nil
}

func parseNumber(lit string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(lit, 10)
	if !ok {
		return nil, errors.WithDetailf(ErrToken, "bad number %s", lit)
	}
	return n, nil
}

// parseFixed encodes a decimal number in width little-endian bytes,
// as a signed or unsigned value.
func parseFixed(lit string, width int, signed bool) ([]byte, error) {
	var u uint64
	if signed {
		n, err := strconv.ParseInt(lit, 10, 8*width)
		if err != nil {
			return nil, errors.WithDetailf(ErrOperand, "%s does not fit in %d signed bytes", lit, width)
		}
		u = uint64(n)
	} else {
		n, err := strconv.ParseUint(lit, 10, 8*width)
		if err != nil {
			return nil, errors.WithDetailf(ErrOperand, "%s does not fit in %d bytes", lit, width)
		}
		u = n
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], u)
	return buf[:width], nil
}

func parseData(tok token) ([]byte, error) {
	if tok.typ == hexTok {
		b, err := hex.DecodeString(tok.lit[2:])
		if err != nil {
			return nil, errors.WithDetailf(ErrToken, "bad hex literal %s", tok.lit)
		}
		return b, nil
	}
	lit := tok.lit
	if len(lit) < 2 || lit[len(lit)-1] != '\'' {
		return nil, errors.WithDetailf(ErrToken, "unterminated string %s", lit)
	}
	var b []byte
	for i := 1; i < len(lit)-1; i++ {
		if lit[i] == '\\' {
			i++
		}
		b = append(b, lit[i])
	}
	return b, nil
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	for r := skipWS(src); r < len(src); r += skipWS(src[r:]) {
		typ, n := scan(src[r:])
		if typ == invalidTok {
			return nil, errors.WithDetailf(ErrToken, "unexpected %q at offset %d", src[r:r+n], r)
		}
		tokens = append(tokens, token{typ: typ, lit: src[r : r+n]})
		r += n
	}
	return tokens, nil
}

// scan returns the type and length of the token at the start of src.
func scan(src string) (typ, n int) {
	switch c := src[0]; {
	case c == '\'':
		n, ok := scanString(src)
		if !ok {
			return invalidTok, n
		}
		return stringTok, n
	case c == '@':
		n = 1 + scanFunc(src[1:], isWordChar)
		if n == 1 {
			return invalidTok, 1
		}
		return refTok, n
	case c == '0' && len(src) > 1 && (src[1] == 'x' || src[1] == 'X'):
		return hexTok, 2 + scanFunc(src[2:], isHex)
	case c == '-' || isDigit(rune(c)):
		n = 1 + scanFunc(src[1:], isDigit)
		if c == '-' && n == 1 {
			return invalidTok, 1
		}
		return numberTok, n
	case c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		n = scanFunc(src, isWordChar)
		if n < len(src) && src[n] == ':' {
			return labelTok, n + 1
		}
		return mnemonicTok, n
	}
	_, size := utf8.DecodeRuneInString(src)
	return invalidTok, size
}

// skipWS returns the length of the leading whitespace and comments.
func skipWS(s string) (i int) {
	for i < len(s) {
		switch s[i] {
		case ' ', '\n', '\t', '\r':
			i++
		case '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		default:
			return i
		}
	}
	return i
}

// scanString returns the length of the quoted string at the start
// of s and whether it is terminated.
func scanString(s string) (int, bool) {
	for n := 1; n < len(s); n++ {
		switch s[n] {
		case '\\':
			n++
		case '\'':
			return n + 1, true
		}
	}
	return len(s), false
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isHex(r rune) bool {
	return isDigit(r) ||
		'a' <= r && r <= 'f' ||
		'A' <= r && r <= 'F'
}

func isWordChar(r rune) bool {
	return r == '_' || isDigit(r) || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

func scanFunc(s string, f func(rune) bool) (n int) {
	for n < len(s) {
		c, r := utf8.DecodeRuneInString(s[n:])
		if !f(c) {
			break
		}
		n += r
	}
	return n
}
