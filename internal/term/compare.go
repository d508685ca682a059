package term

import (
	"math"
	"math/big"
	"strings"
)

// Ordering classes, lowest first:
// number < atom < reference < fun < port < pid < tuple < map < list < bitstring
const (
	rankNumber = iota
	rankAtom
	rankReference
	rankClosure
	rankPort
	rankPid
	rankTuple
	rankMap
	rankList
	rankBitstring
)

func rank(t Term) int {
	switch t.(type) {
	case SmallInteger, *BigInteger, *Float:
		return rankNumber
	case Atom:
		return rankAtom
	case LocalReference, *ExternalReference:
		return rankReference
	case *Closure:
		return rankClosure
	case LocalPort, *ExternalPort:
		return rankPort
	case LocalPid, *ExternalPid:
		return rankPid
	case *Tuple:
		return rankTuple
	case *Map:
		return rankMap
	case Nil, *Cons:
		return rankList
	case *Binary, *SubBinary:
		return rankBitstring
	}
	return rankBitstring + 1
}

// Compare orders any two terms. Numbers compare by mathematical value, so
// 1 and 1.0 compare equal.
func Compare(a, b Term) int {
	return compare(a, b, false)
}

// ExactCompare is Compare except that an integer sorts before a float of
// the same value. It is the order of map keys.
func ExactCompare(a, b Term) int {
	return compare(a, b, true)
}

// Equal is the guest's == operator.
func Equal(a, b Term) bool {
	return compare(a, b, false) == 0
}

// ExactEqual is the guest's =:= operator.
func ExactEqual(a, b Term) bool {
	return compare(a, b, true) == 0
}

// IsLessThan is the guest's < operator.
func IsLessThan(a, b Term) bool {
	return compare(a, b, false) < 0
}

func compare(a, b Term, exact bool) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return compareUint(uint64(ra), uint64(rb))
	}

	switch ra {
	case rankNumber:
		c := compareNumbers(a, b)
		if c == 0 && exact {
			_, af := a.(*Float)
			_, bf := b.(*Float)
			switch {
			case !af && bf:
				return -1
			case af && !bf:
				return 1
			}
		}
		return c
	case rankAtom:
		x, y := a.(Atom), b.(Atom)
		if x == y {
			return 0
		}
		return compareStrings(x.Name(), y.Name())
	case rankReference:
		return compareIdentity(referenceIdentity(a), referenceIdentity(b))
	case rankClosure:
		return compareClosures(a.(*Closure), b.(*Closure), exact)
	case rankPort:
		return compareIdentity(portIdentity(a), portIdentity(b))
	case rankPid:
		return compareIdentity(pidIdentity(a), pidIdentity(b))
	case rankTuple:
		x, y := a.(*Tuple), b.(*Tuple)
		if c := compareUint(uint64(len(x.Elements)), uint64(len(y.Elements))); c != 0 {
			return c
		}
		return compareSlices(x.Elements, y.Elements, exact)
	case rankMap:
		return compareMaps(a.(*Map), b.(*Map), exact)
	case rankList:
		return compareLists(a, b, exact)
	case rankBitstring:
		return compareBitstrings(a.(Bitstring), b.(Bitstring))
	}
	return 0
}

func compareSlices(x, y []Term, exact bool) int {
	for i := range x {
		if c := compare(x[i], y[i], exact); c != 0 {
			return c
		}
	}
	return 0
}

func compareMaps(x, y *Map, exact bool) int {
	if c := compareUint(uint64(x.Len()), uint64(y.Len())); c != 0 {
		return c
	}
	for i := range x.entries {
		if c := compare(x.entries[i].Key, y.entries[i].Key, true); c != 0 {
			return c
		}
	}
	for i := range x.entries {
		if c := compare(x.entries[i].Value, y.entries[i].Value, exact); c != 0 {
			return c
		}
	}
	return 0
}

// compareLists walks both lists iteratively so long lists do not grow the stack.
func compareLists(a, b Term, exact bool) int {
	for {
		x, xok := a.(*Cons)
		y, yok := b.(*Cons)
		if !xok || !yok {
			_, xnil := a.(Nil)
			_, ynil := b.(Nil)
			switch {
			case xok && ynil:
				return 1
			case yok && xnil:
				return -1
			case xnil && ynil:
				return 0
			}
			// at least one improper tail; ranks differ or neither is a list
			return compare(a, b, exact)
		}
		if c := compare(x.Head, y.Head, exact); c != 0 {
			return c
		}
		a, b = x.Tail, y.Tail
	}
}

func compareClosures(x, y *Closure, exact bool) int {
	if c := compareStrings(x.Module.Name(), y.Module.Name()); c != 0 {
		return c
	}
	if c := compareStrings(x.Function.Name(), y.Function.Name()); c != 0 {
		return c
	}
	if c := compareUint(uint64(x.Arity), uint64(y.Arity)); c != 0 {
		return c
	}
	if c := compareUint(uint64(x.Index), uint64(y.Index)); c != 0 {
		return c
	}
	if c := compareUint(uint64(len(x.Env)), uint64(len(y.Env))); c != 0 {
		return c
	}
	return compareSlices(x.Env, y.Env, exact)
}

// compareNumbers compares two numeric terms on the shared number line.
func compareNumbers(a, b Term) int {
	switch x := a.(type) {
	case SmallInteger:
		switch y := b.(type) {
		case SmallInteger:
			return compareInt(int64(x), int64(y))
		case *BigInteger:
			return -y.Value.Sign()
		case *Float:
			return compareIntFloat(big.NewInt(int64(x)), y.Value)
		}
	case *BigInteger:
		switch y := b.(type) {
		case SmallInteger:
			return x.Value.Sign()
		case *BigInteger:
			return x.Value.Cmp(y.Value)
		case *Float:
			return compareIntFloat(x.Value, y.Value)
		}
	case *Float:
		switch y := b.(type) {
		case SmallInteger:
			return -compareIntFloat(big.NewInt(int64(y)), x.Value)
		case *BigInteger:
			return -compareIntFloat(y.Value, x.Value)
		case *Float:
			return compareFloat(x.Value, y.Value)
		}
	}
	return 0
}

// compareIntFloat compares an integer and a float exactly, without rounding
// the integer to a double.
func compareIntFloat(i *big.Int, f float64) int {
	if math.IsInf(f, 1) {
		return -1
	}
	if math.IsInf(f, -1) {
		return 1
	}
	if i.IsInt64() {
		if n := i.Int64(); n > -(1<<53) && n < 1<<53 {
			return compareFloat(float64(n), f)
		}
	}
	return new(big.Float).SetInt(i).Cmp(big.NewFloat(f))
}

func compareFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compareInt(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compareUint(x, y uint64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compareStrings(x, y string) int {
	return strings.Compare(x, y)
}
