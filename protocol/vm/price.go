package vm

// PriceTable holds the base gas price of every opcode. The engine
// charges price * fee factor before executing an instruction.
type PriceTable [256]int64

// DefaultPrices returns the standard price table.
func DefaultPrices() *PriceTable {
	p := defaultPrices
	return &p
}

// Price returns the base price of op.
func (p *PriceTable) Price(op Op) int64 {
	return p[op]
}

// Set changes the base price of op.
func (p *PriceTable) Set(op Op, price int64) {
	p[op] = price
}

var defaultPrices = func() (p PriceTable) {
	set := func(price int64, ops ...Op) {
		for _, op := range ops {
			p[op] = price
		}
	}
	rng := func(price int64, from, to Op) {
		for op := from; op <= to; op++ {
			p[op] = price
		}
	}

	// constants
	rng(1, OP_PUSHINT8, OP_PUSHINT64)
	set(4, OP_PUSHINT128, OP_PUSHINT256, OP_PUSHA)
	set(1, OP_PUSHT, OP_PUSHF, OP_PUSHNULL)
	set(8, OP_PUSHDATA1)
	set(512, OP_PUSHDATA2)
	set(4096, OP_PUSHDATA4)
	rng(1, OP_PUSHM1, OP_PUSH16)

	// flow control
	set(1, OP_NOP)
	rng(2, OP_JMP, OP_JMPLE_L)
	set(512, OP_CALL, OP_CALL_L, OP_CALLA)
	set(32768, OP_CALLT)
	set(0, OP_ABORT)
	set(1, OP_ASSERT)
	set(512, OP_THROW)
	set(4, OP_TRY, OP_TRY_L, OP_ENDTRY, OP_ENDTRY_L, OP_ENDFINALLY)
	set(0, OP_RET, OP_SYSCALL)

	// stack
	set(2, OP_DEPTH, OP_DROP, OP_NIP, OP_DUP, OP_OVER, OP_PICK, OP_TUCK,
		OP_SWAP, OP_ROT, OP_REVERSE3, OP_REVERSE4)
	set(16, OP_XDROP, OP_CLEAR, OP_ROLL, OP_REVERSEN)

	// slots
	set(16, OP_INITSSLOT)
	set(64, OP_INITSLOT)
	rng(2, OP_LDSFLD0, OP_STARG)

	// splice
	set(256, OP_NEWBUFFER)
	set(2048, OP_MEMCPY, OP_CAT, OP_SUBSTR, OP_LEFT, OP_RIGHT)

	// bitwise logic
	set(4, OP_INVERT)
	set(8, OP_AND, OP_OR, OP_XOR)
	set(32, OP_EQUAL, OP_NOTEQUAL)

	// arithmetic
	set(4, OP_SIGN, OP_ABS, OP_NEGATE, OP_INC, OP_DEC, OP_NOT, OP_NZ)
	set(8, OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD, OP_SHL, OP_SHR,
		OP_BOOLAND, OP_BOOLOR, OP_NUMEQUAL, OP_NUMNOTEQUAL,
		OP_LT, OP_LE, OP_GT, OP_GE, OP_MIN, OP_MAX, OP_WITHIN)
	set(64, OP_POW, OP_SQRT)
	set(32, OP_MODMUL)
	set(2048, OP_MODPOW)

	// compound types
	set(2048, OP_PACKMAP, OP_PACKSTRUCT, OP_PACK, OP_UNPACK)
	set(16, OP_NEWARRAY0, OP_NEWSTRUCT0)
	set(512, OP_NEWARRAY, OP_NEWARRAY_T, OP_NEWSTRUCT)
	set(8, OP_NEWMAP)
	set(4, OP_SIZE)
	set(64, OP_HASKEY, OP_PICKITEM)
	set(16, OP_KEYS, OP_REMOVE, OP_CLEARITEMS, OP_POPITEM)
	set(8192, OP_VALUES, OP_APPEND, OP_SETITEM, OP_REVERSEITEMS)

	// types
	set(2, OP_ISNULL, OP_ISTYPE)
	set(8192, OP_CONVERT)

	// extensions
	set(0, OP_ABORTMSG)
	set(1, OP_ASSERTMSG)
	return p
}()
