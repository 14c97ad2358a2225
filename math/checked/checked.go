/*
Package checked implements the integer arithmetic the VM needs for gas
accounting and offset computation, with overflow checks.
*/
package checked

import "math"

// AddInt64 returns a + b
// with an integer overflow check.
func AddInt64(a, b int64) (sum int64, ok bool) {
	if (b > 0 && a > math.MaxInt64-b) ||
		(b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// MulInt64 returns a * b
// with an integer overflow check.
func MulInt64(a, b int64) (product int64, ok bool) {
	if (a > 0 && b > 0 && a > math.MaxInt64/b) ||
		(a > 0 && b <= 0 && b < math.MinInt64/a) ||
		(a <= 0 && b > 0 && a < math.MinInt64/b) ||
		(a < 0 && b <= 0 && b < math.MaxInt64/a) {
		return 0, false
	}
	return a * b, true
}

// AddInt32 returns a + b
// with an integer overflow check.
func AddInt32(a, b int32) (sum int32, ok bool) {
	if (b > 0 && a > math.MaxInt32-b) ||
		(b < 0 && a < math.MinInt32-b) {
		return 0, false
	}
	return a + b, true
}

// Offset returns pos + delta as a position in a program of length n.
// ok is false if the sum overflows or falls outside [0, n).
func Offset(pos int, delta int32, n int) (target int, ok bool) {
	if pos < 0 || pos > math.MaxInt32 {
		return 0, false
	}
	t, ok := AddInt32(int32(pos), delta)
	if !ok || t < 0 || int(t) >= n {
		return 0, false
	}
	return int(t), true
}
