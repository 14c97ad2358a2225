package vm

// Limits bounds the resources a single engine run may use.
// Exceeding one faults with the matching kind.
type Limits struct {
	MaxStackSize           int // root references across all stacks and slots
	MaxItemCount           int // distinct live items, and elements per compound
	MaxInvocationStackSize int
	MaxItemSize            int // bytes in a ByteString or Buffer
	MaxShift               int
	MaxTryNestingDepth     int
	MaxComparableSize      int // bytes compared by a single EQUAL
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxStackSize:           2 * 1024,
		MaxItemCount:           2 * 1024,
		MaxInvocationStackSize: 1024,
		MaxItemSize:            1024 * 1024,
		MaxShift:               256,
		MaxTryNestingDepth:     16,
		MaxComparableSize:      65536,
	}
}

// MaxKeySize is the largest map key, in bytes.
const MaxKeySize = 64

// integerSize is the largest Integer, in bytes of two's complement.
const integerSize = 32
