package term

import "errors"

// The two failure kinds guest code can observe from core operations.
var (
	ErrBadarg   = errors.New("badarg")
	ErrBadarith = errors.New("badarith")
)
