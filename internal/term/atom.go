package term

import "sync"

// Atom is an interned symbol. The value is an index into the node-wide atom table.
type Atom uint32

type atomTable struct {
	mu     sync.RWMutex
	byName map[string]Atom
	names  []string
}

var atoms = &atomTable{byName: make(map[string]Atom)}

// Intern returns the atom for name, adding it to the table on first use.
func Intern(name string) Atom {
	atoms.mu.RLock()
	a, ok := atoms.byName[name]
	atoms.mu.RUnlock()
	if ok {
		return a
	}

	atoms.mu.Lock()
	defer atoms.mu.Unlock()
	if a, ok := atoms.byName[name]; ok {
		return a
	}
	a = Atom(len(atoms.names))
	atoms.names = append(atoms.names, name)
	atoms.byName[name] = a
	return a
}

// Existing returns the atom for name only if it was already interned.
func Existing(name string) (Atom, bool) {
	atoms.mu.RLock()
	defer atoms.mu.RUnlock()
	a, ok := atoms.byName[name]
	return a, ok
}

func (a Atom) Name() string {
	atoms.mu.RLock()
	defer atoms.mu.RUnlock()
	if int(a) < len(atoms.names) {
		return atoms.names[a]
	}
	return ""
}

func (a Atom) Type() TermType  { return ATOM_TERM }
func (a Atom) Inspect() string { return inspect(a) }
func (Atom) isTerm()           {}

// Atoms the runtime itself produces.
var (
	True        = Intern("true")
	False       = Intern("false")
	Ok          = Intern("ok")
	Undefined   = Intern("undefined")
	Timeout     = Intern("timeout")
	CancelTimer = Intern("cancel_timer")
	ReadTimer   = Intern("read_timer")
	Badarg      = Intern("badarg")
	Badarith    = Intern("badarith")
	Error       = Intern("error")
	Exit        = Intern("exit")
	Throw       = Intern("throw")
	NoNode      = Intern("nonode@nohost")
)

// Bool converts a Go bool to the atom true or false.
func Bool(b bool) Atom {
	if b {
		return True
	}
	return False
}

// IsBoolean reports whether t is the atom true or false.
func IsBoolean(t Term) bool {
	a, ok := t.(Atom)
	return ok && (a == True || a == False)
}
