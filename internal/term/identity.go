package term

import (
	"sync"
	"sync/atomic"
)

// Node names a runtime instance. Creation distinguishes incarnations of the
// same node name.
type Node struct {
	Name     Atom
	Creation uint32
}

var (
	localNode    atomic.Value
	localNodeMu  sync.Mutex
	localClaimed bool
)

func init() {
	localNode.Store(Node{Name: NoNode})
}

// ClaimLocalNode makes n the node that local identifiers belong to, unless a
// node was already claimed in this process. It returns the node in effect,
// so identifiers handed out earlier never change meaning.
func ClaimLocalNode(n Node) Node {
	localNodeMu.Lock()
	defer localNodeMu.Unlock()
	if !localClaimed {
		localNode.Store(n)
		localClaimed = true
	}
	return LocalNode()
}

func LocalNode() Node {
	return localNode.Load().(Node)
}

// IsLocal reports whether n is the local node.
func (n Node) IsLocal() bool {
	return n == LocalNode()
}

type LocalPid struct {
	Number uint32
	Serial uint32
}

func (p LocalPid) Type() TermType  { return LOCAL_PID_TERM }
func (p LocalPid) Inspect() string { return inspect(p) }
func (LocalPid) isTerm()           {}

type ExternalPid struct {
	Node   Node
	Number uint32
	Serial uint32
}

func (p *ExternalPid) Type() TermType  { return EXTERNAL_PID_TERM }
func (p *ExternalPid) Inspect() string { return inspect(p) }
func (*ExternalPid) isTerm()           {}

// Local returns the local form of p when p names a process on this node.
func (p *ExternalPid) Local() (LocalPid, bool) {
	if !p.Node.IsLocal() {
		return LocalPid{}, false
	}
	return LocalPid{Number: p.Number, Serial: p.Serial}, true
}

type LocalReference struct {
	ID uint64
}

func (r LocalReference) Type() TermType  { return LOCAL_REFERENCE_TERM }
func (r LocalReference) Inspect() string { return inspect(r) }
func (LocalReference) isTerm()           {}

type ExternalReference struct {
	Node Node
	ID   uint64
}

func (r *ExternalReference) Type() TermType  { return EXTERNAL_REFERENCE_TERM }
func (r *ExternalReference) Inspect() string { return inspect(r) }
func (*ExternalReference) isTerm()           {}

type LocalPort struct {
	ID uint64
}

func (p LocalPort) Type() TermType  { return LOCAL_PORT_TERM }
func (p LocalPort) Inspect() string { return inspect(p) }
func (LocalPort) isTerm()           {}

type ExternalPort struct {
	Node Node
	ID   uint64
}

func (p *ExternalPort) Type() TermType  { return EXTERNAL_PORT_TERM }
func (p *ExternalPort) Inspect() string { return inspect(p) }
func (*ExternalPort) isTerm()           {}

// identity is the comparison key shared by local and external forms.
type identity struct {
	node Node
	a, b uint64
}

func pidIdentity(t Term) identity {
	switch p := t.(type) {
	case LocalPid:
		return identity{node: LocalNode(), a: uint64(p.Number), b: uint64(p.Serial)}
	case *ExternalPid:
		return identity{node: p.Node, a: uint64(p.Number), b: uint64(p.Serial)}
	}
	return identity{}
}

func referenceIdentity(t Term) identity {
	switch r := t.(type) {
	case LocalReference:
		return identity{node: LocalNode(), a: r.ID}
	case *ExternalReference:
		return identity{node: r.Node, a: r.ID}
	}
	return identity{}
}

func portIdentity(t Term) identity {
	switch p := t.(type) {
	case LocalPort:
		return identity{node: LocalNode(), a: p.ID}
	case *ExternalPort:
		return identity{node: p.Node, a: p.ID}
	}
	return identity{}
}

func compareIdentity(x, y identity) int {
	if x.node != y.node {
		if c := compareStrings(x.node.Name.Name(), y.node.Name.Name()); c != 0 {
			return c
		}
		if c := compareUint(uint64(x.node.Creation), uint64(y.node.Creation)); c != 0 {
			return c
		}
	}
	if c := compareUint(x.a, y.a); c != 0 {
		return c
	}
	return compareUint(x.b, y.b)
}
