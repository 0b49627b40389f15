// Package safe provides overflow-checked int64 arithmetic for ledger math.
// Overflow in money math is state corruption, not a recoverable error, so
// every violation panics and halts the process.
package safe

import (
	"math"
	"math/bits"
)

// Add performs int64 addition and panics on overflow/underflow.
func Add(a, b int64) int64 {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		panic("LEDGER_ADD_OVERFLOW")
	}
	return a + b
}

// Sub performs int64 subtraction and panics on overflow/underflow.
func Sub(a, b int64) int64 {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		panic("LEDGER_SUB_OVERFLOW")
	}
	return a - b
}

// Mul performs int64 multiplication and panics on overflow/underflow.
func Mul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > 0 {
		if b > 0 {
			if a > math.MaxInt64/b {
				panic("LEDGER_MUL_OVERFLOW")
			}
		} else if b < math.MinInt64/a {
			panic("LEDGER_MUL_OVERFLOW")
		}
	} else {
		if b > 0 {
			if a < math.MinInt64/b {
				panic("LEDGER_MUL_OVERFLOW")
			}
		} else if a < math.MaxInt64/b {
			panic("LEDGER_MUL_OVERFLOW")
		}
	}
	return a * b
}

// MulDiv returns a*b/den using a 128-bit intermediate, so the product may
// exceed int64 as long as the quotient fits. Truncates toward zero. Panics
// on a zero divisor or when the quotient overflows.
func MulDiv(a, b, den int64) int64 {
	if den == 0 {
		panic("LEDGER_DIV_BY_ZERO")
	}
	neg := (a < 0) != (b < 0)
	if den < 0 {
		neg = !neg
	}

	hi, lo := bits.Mul64(abs64(a), abs64(b))
	d := abs64(den)
	if hi >= d {
		panic("LEDGER_MUL_OVERFLOW")
	}
	q, _ := bits.Div64(hi, lo, d)

	if neg {
		if q > 1<<63 {
			panic("LEDGER_MUL_OVERFLOW")
		}
		return -int64(q)
	}
	if q > math.MaxInt64 {
		panic("LEDGER_MUL_OVERFLOW")
	}
	return int64(q)
}

// abs64 returns |v| as uint64; exact for MinInt64 via two's complement.
func abs64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// Div performs int64 division and panics on division by zero.
func Div(a, b int64) int64 {
	if b == 0 {
		panic("LEDGER_DIV_BY_ZERO")
	}
	if a == math.MinInt64 && b == -1 {
		panic("LEDGER_DIV_OVERFLOW")
	}
	return a / b
}
