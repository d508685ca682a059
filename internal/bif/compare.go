package bif

import "ember/internal/term"

// IsLessThan implements erlang:'<'/2 over the total term order.
func IsLessThan(a, b term.Term) term.Term {
	return term.Bool(term.IsLessThan(a, b))
}

// Min returns the smaller of a and b, or a when they compare equal.
func Min(a, b term.Term) term.Term {
	if term.Compare(b, a) < 0 {
		return b
	}
	return a
}

// Max returns the larger of a and b, or a when they compare equal.
func Max(a, b term.Term) term.Term {
	if term.Compare(b, a) > 0 {
		return b
	}
	return a
}

// Orelse implements the guest orelse: left must be a boolean; a false left
// yields right unchecked.
func Orelse(left, right term.Term) (term.Term, error) {
	switch left {
	case term.True:
		return term.True, nil
	case term.False:
		return right, nil
	}
	return nil, badarg()
}

// Andalso implements the guest andalso: left must be a boolean; a true left
// yields right unchecked.
func Andalso(left, right term.Term) (term.Term, error) {
	switch left {
	case term.False:
		return term.False, nil
	case term.True:
		return right, nil
	}
	return nil, badarg()
}
