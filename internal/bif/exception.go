// Package bif is the primitive operation surface exposed to guest code.
// Every operation takes the invoking process explicitly and returns either
// a term or an *Exception.
package bif

import (
	"errors"
	"fmt"

	"ember/internal/term"
)

// Exception is a guest-visible failure. Class is error; Reason is badarg
// or badarith. errors.Is matches the term.ErrBadarg and term.ErrBadarith
// sentinels.
type Exception struct {
	Class  term.Atom
	Reason term.Term
	cause  error
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s: %s", e.Class.Name(), e.Reason.Inspect())
}

func (e *Exception) Unwrap() error { return e.cause }

func badarg() error {
	return &Exception{Class: term.Error, Reason: term.Badarg, cause: term.ErrBadarg}
}

func badarith() error {
	return &Exception{Class: term.Error, Reason: term.Badarith, cause: term.ErrBadarith}
}

// raise turns sentinel errors from lower layers into exceptions. Anything
// else is an internal failure and passes through.
func raise(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, term.ErrBadarg):
		return badarg()
	case errors.Is(err, term.ErrBadarith):
		return badarith()
	}
	return err
}

func result(t term.Term, err error) (term.Term, error) {
	if err != nil {
		return nil, raise(err)
	}
	return t, nil
}
