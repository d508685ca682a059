package term

import (
	"math/big"
	"strconv"
)

// SmallInteger range is 60-bit signed, leaving room for tag bits in a
// machine word and letting the sum of two small integers fit in an int64.
const (
	MaxSmallInteger int64 = 1<<59 - 1
	MinSmallInteger int64 = -(1 << 59)
)

var (
	maxSmallBig = big.NewInt(MaxSmallInteger)
	minSmallBig = big.NewInt(MinSmallInteger)
)

type SmallInteger int64

func (i SmallInteger) Type() TermType  { return SMALL_INTEGER_TERM }
func (i SmallInteger) Inspect() string { return strconv.FormatInt(int64(i), 10) }
func (SmallInteger) isTerm()           {}

// BigInteger holds integers outside the SmallInteger range. Values built
// through CanonicalInteger never fit in a SmallInteger.
type BigInteger struct {
	Value *big.Int
}

func (b *BigInteger) Type() TermType  { return BIG_INTEGER_TERM }
func (b *BigInteger) Inspect() string { return b.Value.String() }
func (*BigInteger) isTerm()           {}

// FitsSmall reports whether n lies in the SmallInteger range.
func FitsSmall(n int64) bool {
	return n >= MinSmallInteger && n <= MaxSmallInteger
}

// CanonicalInteger returns the narrowest variant that represents v exactly.
// It takes ownership of v.
func CanonicalInteger(v *big.Int) Term {
	if v.Cmp(minSmallBig) >= 0 && v.Cmp(maxSmallBig) <= 0 {
		return SmallInteger(v.Int64())
	}
	return &BigInteger{Value: v}
}

// IntegerFromInt64 is CanonicalInteger for an int64 input.
func IntegerFromInt64(n int64) Term {
	if FitsSmall(n) {
		return SmallInteger(n)
	}
	return &BigInteger{Value: big.NewInt(n)}
}

// ToBig returns the mathematical value of an integer term.
func ToBig(t Term) (*big.Int, bool) {
	switch n := t.(type) {
	case SmallInteger:
		return big.NewInt(int64(n)), true
	case *BigInteger:
		return new(big.Int).Set(n.Value), true
	}
	return nil, false
}

// ToInt64 returns the value of an integer term that fits in an int64.
func ToInt64(t Term) (int64, bool) {
	switch n := t.(type) {
	case SmallInteger:
		return int64(n), true
	case *BigInteger:
		if n.Value.IsInt64() {
			return n.Value.Int64(), true
		}
	}
	return 0, false
}

// IsCanonical reports whether an integer term is stored in its narrowest variant.
func IsCanonical(t Term) bool {
	switch n := t.(type) {
	case SmallInteger:
		return FitsSmall(int64(n))
	case *BigInteger:
		return n.Value.Cmp(minSmallBig) < 0 || n.Value.Cmp(maxSmallBig) > 0
	}
	return false
}
