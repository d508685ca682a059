package bif

import "ember/internal/term"

// parseOptions sets the entries of flags from a proplist of {Name, Boolean}
// pairs. Unknown names and anything else in the list are badarg.
func parseOptions(options term.Term, flags map[term.Atom]*bool) error {
	elems, tail := term.ListToSlice(options)
	if tail != term.NIL {
		return badarg()
	}
	for _, e := range elems {
		tup, ok := e.(*term.Tuple)
		if !ok || tup.Len() != 2 {
			return badarg()
		}
		name, ok := tup.Elements[0].(term.Atom)
		if !ok {
			return badarg()
		}
		flag, ok := flags[name]
		if !ok {
			return badarg()
		}
		switch tup.Elements[1] {
		case term.True:
			*flag = true
		case term.False:
			*flag = false
		default:
			return badarg()
		}
	}
	return nil
}
