package clock

import (
	"fmt"
	"math/big"
)

// Unit is a time unit expressed as parts per second.
type Unit int64

const (
	Second      Unit = 1
	Millisecond Unit = 1000
	Microsecond Unit = 1000000
	Nanosecond  Unit = 1000000000
	Native           = Nanosecond
	PerfCounter      = Nanosecond
)

var unitNames = map[string]Unit{
	"second":       Second,
	"millisecond":  Millisecond,
	"microsecond":  Microsecond,
	"nanosecond":   Nanosecond,
	"native":       Native,
	"perf_counter": PerfCounter,
	// deprecated spellings
	"seconds":       Second,
	"milli_seconds": Millisecond,
	"micro_seconds": Microsecond,
	"nano_seconds":  Nanosecond,
}

// ParseUnit resolves a unit name.
func ParseUnit(name string) (Unit, error) {
	u, ok := unitNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown time unit %q", name)
	}
	return u, nil
}

// UnitFromParts returns the unit for a positive parts-per-second count.
func UnitFromParts(parts int64) (Unit, error) {
	if parts <= 0 {
		return 0, fmt.Errorf("invalid time unit %d", parts)
	}
	return Unit(parts), nil
}

// Convert converts a native reading to u, rounding toward negative infinity.
func (u Unit) Convert(native int64) *big.Int {
	n := new(big.Int).Mul(big.NewInt(native), big.NewInt(int64(u)))
	q, m := new(big.Int), new(big.Int)
	q.DivMod(n, big.NewInt(int64(Native)), m)
	return q
}
