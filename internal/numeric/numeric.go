// Package numeric implements integer and float arithmetic over terms. Every
// integer result goes through term.CanonicalInteger, so values that fit a
// SmallInteger are never left boxed, and every float result saturates at the
// largest finite double.
package numeric

import (
	"math"
	"math/big"

	"ember/internal/heap"
	"ember/internal/term"
)

// MaxShiftBits is the system limit on the bit length a left shift (bsl, or
// bsr with a negative shift) may produce. Results past it cannot be
// represented, so the shift fails with badarith, the core's failure for
// arithmetic it cannot carry out. Right shifts have no limit.
const MaxShiftBits = 1 << 26

// ToFloat returns the float value of a number term. Integers too large for a
// double saturate to ±math.MaxFloat64.
func ToFloat(t term.Term) (float64, bool) {
	switch n := t.(type) {
	case term.SmallInteger:
		return float64(n), true
	case *term.BigInteger:
		f, _ := new(big.Float).SetInt(n.Value).Float64()
		return heap.Saturate(f), true
	case *term.Float:
		return n.Value, true
	}
	return 0, false
}

// SaturateFloat clamps infinities to ±math.MaxFloat64. NaN is not a guest
// value and is reported as not ok.
func SaturateFloat(f float64) (float64, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	return heap.Saturate(f), true
}

type (
	intOp   func(x, y int64) (int64, bool)
	bigOp   func(z, x, y *big.Int) *big.Int
	floatOp func(x, y float64) float64
)

// arith dispatches a binary operation: small integers use the int64 fast
// path when it cannot overflow, other integers use big.Int, and anything
// involving a float is computed as a float.
func arith(h *heap.Heap, a, b term.Term, small intOp, wide bigOp, float floatOp) (term.Term, error) {
	if !term.IsNumber(a) || !term.IsNumber(b) {
		return nil, term.ErrBadarith
	}
	if term.IsInteger(a) && term.IsInteger(b) {
		if x, ok := a.(term.SmallInteger); ok {
			if y, ok := b.(term.SmallInteger); ok {
				if r, ok := small(int64(x), int64(y)); ok {
					return h.Integer(r)
				}
			}
		}
		x, _ := term.ToBig(a)
		y, _ := term.ToBig(b)
		return h.BigInteger(wide(new(big.Int), x, y))
	}
	x, _ := ToFloat(a)
	y, _ := ToFloat(b)
	r, ok := SaturateFloat(float(x, y))
	if !ok {
		return nil, term.ErrBadarith
	}
	return h.Float(r)
}

// Add returns a + b.
func Add(h *heap.Heap, a, b term.Term) (term.Term, error) {
	return arith(h, a, b,
		func(x, y int64) (int64, bool) { return x + y, true },
		(*big.Int).Add,
		func(x, y float64) float64 { return x + y })
}

// Sub returns a - b.
func Sub(h *heap.Heap, a, b term.Term) (term.Term, error) {
	return arith(h, a, b,
		func(x, y int64) (int64, bool) { return x - y, true },
		(*big.Int).Sub,
		func(x, y float64) float64 { return x - y })
}

// Mul returns a * b.
func Mul(h *heap.Heap, a, b term.Term) (term.Term, error) {
	return arith(h, a, b, mulSmall, (*big.Int).Mul,
		func(x, y float64) float64 { return x * y })
}

func mulSmall(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	r := x * y
	if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	return r, true
}

// Negate returns -a.
func Negate(h *heap.Heap, a term.Term) (term.Term, error) {
	return Sub(h, term.SmallInteger(0), a)
}

func integers(a, b term.Term) (*big.Int, *big.Int, error) {
	if !term.IsInteger(a) || !term.IsInteger(b) {
		return nil, nil, term.ErrBadarith
	}
	x, _ := term.ToBig(a)
	y, _ := term.ToBig(b)
	return x, y, nil
}

// Band returns the bitwise and of two integers.
func Band(h *heap.Heap, a, b term.Term) (term.Term, error) {
	return bitwise(h, a, b, func(x, y int64) int64 { return x & y }, (*big.Int).And)
}

// Bor returns the bitwise or of two integers.
func Bor(h *heap.Heap, a, b term.Term) (term.Term, error) {
	return bitwise(h, a, b, func(x, y int64) int64 { return x | y }, (*big.Int).Or)
}

// Bxor returns the bitwise exclusive or of two integers.
func Bxor(h *heap.Heap, a, b term.Term) (term.Term, error) {
	return bitwise(h, a, b, func(x, y int64) int64 { return x ^ y }, (*big.Int).Xor)
}

// Bnot returns the bitwise complement of an integer.
func Bnot(h *heap.Heap, a term.Term) (term.Term, error) {
	switch n := a.(type) {
	case term.SmallInteger:
		return h.Integer(^int64(n))
	case *term.BigInteger:
		return h.BigInteger(new(big.Int).Not(n.Value))
	}
	return nil, term.ErrBadarith
}

func bitwise(h *heap.Heap, a, b term.Term, small func(x, y int64) int64, wide bigOp) (term.Term, error) {
	if x, ok := a.(term.SmallInteger); ok {
		if y, ok := b.(term.SmallInteger); ok {
			return h.Integer(small(int64(x), int64(y)))
		}
	}
	x, y, err := integers(a, b)
	if err != nil {
		return nil, err
	}
	return h.BigInteger(wide(new(big.Int), x, y))
}

// Bsr shifts integer right by shift bits, arithmetically. A negative shift
// shifts left and is subject to MaxShiftBits.
func Bsr(h *heap.Heap, integer, shift term.Term) (term.Term, error) {
	x, s, err := integers(integer, shift)
	if err != nil {
		return nil, err
	}
	return shiftBy(h, x, new(big.Int).Neg(s))
}

// Bsl shifts integer left by shift bits. A negative shift shifts right.
func Bsl(h *heap.Heap, integer, shift term.Term) (term.Term, error) {
	x, s, err := integers(integer, shift)
	if err != nil {
		return nil, err
	}
	return shiftBy(h, x, s)
}

// shiftBy shifts x left by s bits, or right when s is negative.
func shiftBy(h *heap.Heap, x, s *big.Int) (term.Term, error) {
	if x.Sign() == 0 {
		return term.SmallInteger(0), nil
	}
	if s.Sign() < 0 {
		if !s.IsInt64() || -s.Int64() >= int64(x.BitLen())+1 {
			if x.Sign() < 0 {
				return term.SmallInteger(-1), nil
			}
			return term.SmallInteger(0), nil
		}
		return h.BigInteger(x.Rsh(x, uint(-s.Int64())))
	}
	if !s.IsInt64() || s.Int64()+int64(x.BitLen()) > MaxShiftBits {
		return nil, term.ErrBadarith
	}
	return h.BigInteger(x.Lsh(x, uint(s.Int64())))
}
