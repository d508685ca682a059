package term

type TermType string

const (
	SMALL_INTEGER_TERM      = "SMALL_INTEGER"
	BIG_INTEGER_TERM        = "BIG_INTEGER"
	FLOAT_TERM              = "FLOAT"
	ATOM_TERM               = "ATOM"
	NIL_TERM                = "NIL"
	CONS_TERM               = "CONS"
	TUPLE_TERM              = "TUPLE"
	MAP_TERM                = "MAP"
	BINARY_TERM             = "BINARY"
	SUBBINARY_TERM          = "SUBBINARY"
	LOCAL_PID_TERM          = "LOCAL_PID"
	EXTERNAL_PID_TERM       = "EXTERNAL_PID"
	LOCAL_REFERENCE_TERM    = "LOCAL_REFERENCE"
	EXTERNAL_REFERENCE_TERM = "EXTERNAL_REFERENCE"
	LOCAL_PORT_TERM         = "LOCAL_PORT"
	EXTERNAL_PORT_TERM      = "EXTERNAL_PORT"
	CLOSURE_TERM            = "CLOSURE"
)

// Term is the dynamically typed value handle of the runtime. The set of
// implementations is closed: only types in this package satisfy it.
type Term interface {
	Type() TermType
	Inspect() string
	isTerm()
}

// Nil is the empty list.
type Nil struct{}

var NIL = Nil{}

func (Nil) Type() TermType  { return NIL_TERM }
func (Nil) Inspect() string { return "[]" }
func (Nil) isTerm()         {}

// Cons is a list cell.
type Cons struct {
	Head Term
	Tail Term
}

func (c *Cons) Type() TermType  { return CONS_TERM }
func (c *Cons) Inspect() string { return inspect(c) }
func (*Cons) isTerm()           {}

type Tuple struct {
	Elements []Term
}

func (t *Tuple) Type() TermType  { return TUPLE_TERM }
func (t *Tuple) Inspect() string { return inspect(t) }
func (*Tuple) isTerm()           {}
func (t *Tuple) Len() int        { return len(t.Elements) }

// Float is an IEEE-754 double. Guest floats are always finite.
type Float struct {
	Value float64
}

func (f *Float) Type() TermType  { return FLOAT_TERM }
func (f *Float) Inspect() string { return inspect(f) }
func (*Float) isTerm()           {}

// Code is the invocable body of a closure.
type Code func(args []Term) (Term, error)

// Closure captures a function reference and its free variables. Index
// distinguishes closures defined at different sites of the same function.
type Closure struct {
	Module   Atom
	Function Atom
	Arity    uint8
	Index    uint32
	Code     Code
	Env      []Term
}

func (c *Closure) Type() TermType  { return CLOSURE_TERM }
func (c *Closure) Inspect() string { return inspect(c) }
func (*Closure) isTerm()           {}

// IsNumber reports whether t is a SmallInteger, BigInteger or Float.
func IsNumber(t Term) bool {
	switch t.(type) {
	case SmallInteger, *BigInteger, *Float:
		return true
	}
	return false
}

// IsInteger reports whether t is a SmallInteger or BigInteger.
func IsInteger(t Term) bool {
	switch t.(type) {
	case SmallInteger, *BigInteger:
		return true
	}
	return false
}

func IsList(t Term) bool {
	switch t.(type) {
	case Nil, *Cons:
		return true
	}
	return false
}

func IsPid(t Term) bool {
	switch t.(type) {
	case LocalPid, *ExternalPid:
		return true
	}
	return false
}

func IsReference(t Term) bool {
	switch t.(type) {
	case LocalReference, *ExternalReference:
		return true
	}
	return false
}

// ListToSlice walks a list and returns its elements and final tail. The tail
// is NIL for proper lists.
func ListToSlice(t Term) ([]Term, Term) {
	var out []Term
	for {
		c, ok := t.(*Cons)
		if !ok {
			return out, t
		}
		out = append(out, c.Head)
		t = c.Tail
	}
}
