// Package codec is the external encoding of terms. Terms are written as
// nested CBOR arrays in canonical form, so equal terms encode to equal bytes.
package codec

import (
	"fmt"
	"math"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"ember/internal/heap"
	"ember/internal/term"
)

type kind uint8

const (
	kindSmall kind = iota
	kindBig
	kindFloat
	kindAtom
	kindNil
	kindList
	kindTuple
	kindMap
	kindBinary
	kindBitstring
	kindPid
	kindReference
	kindPort
	kindClosure
)

// wire is the encoded form of one term. Fields a kind does not use stay zero.
type wire struct {
	_        struct{} `cbor:",toarray"`
	Kind     kind
	Int      int64
	Ext      uint64
	Float    float64
	Text     string
	Creation uint32
	Bytes    []byte
	Items    []wire
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{
		MaxNestedLevels:  65535,
		MaxArrayElements: math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Encode serializes t.
func Encode(t term.Term) ([]byte, error) {
	w, err := toWire(t)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(w)
}

// Decode deserializes a term onto h. Closures decode without code and can
// only be compared or printed.
func Decode(h *heap.Heap, data []byte) (term.Term, error) {
	var w wire
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("codec: unmarshal term: %w", err)
	}
	return fromWire(h, &w)
}

func toWire(t term.Term) (wire, error) {
	switch v := t.(type) {
	case term.SmallInteger:
		return wire{Kind: kindSmall, Int: int64(v)}, nil
	case *term.BigInteger:
		return wire{Kind: kindBig, Int: int64(v.Value.Sign()), Bytes: v.Value.Bytes()}, nil
	case *term.Float:
		return wire{Kind: kindFloat, Float: v.Value}, nil
	case term.Atom:
		return wire{Kind: kindAtom, Text: v.Name()}, nil
	case term.Nil:
		return wire{Kind: kindNil}, nil
	case *term.Cons:
		var items []wire
		var cur term.Term = v
		for {
			c, ok := cur.(*term.Cons)
			if !ok {
				break
			}
			w, err := toWire(c.Head)
			if err != nil {
				return wire{}, err
			}
			items = append(items, w)
			cur = c.Tail
		}
		tail, err := toWire(cur)
		if err != nil {
			return wire{}, err
		}
		return wire{Kind: kindList, Items: append(items, tail)}, nil
	case *term.Tuple:
		items, err := toWires(v.Elements)
		if err != nil {
			return wire{}, err
		}
		return wire{Kind: kindTuple, Items: items}, nil
	case *term.Map:
		items := make([]wire, 0, 2*v.Len())
		for _, p := range v.Entries() {
			k, err := toWire(p.Key)
			if err != nil {
				return wire{}, err
			}
			val, err := toWire(p.Value)
			if err != nil {
				return wire{}, err
			}
			items = append(items, k, val)
		}
		return wire{Kind: kindMap, Items: items}, nil
	case term.Bitstring:
		if v.BitSize()%8 == 0 {
			return wire{Kind: kindBinary, Bytes: v.Packed()}, nil
		}
		return wire{Kind: kindBitstring, Int: int64(v.BitSize()), Bytes: v.Packed()}, nil
	case term.LocalPid:
		return identity(kindPid, term.LocalNode(), uint64(v.Number), uint64(v.Serial)), nil
	case *term.ExternalPid:
		return identity(kindPid, v.Node, uint64(v.Number), uint64(v.Serial)), nil
	case term.LocalReference:
		return identity(kindReference, term.LocalNode(), v.ID, 0), nil
	case *term.ExternalReference:
		return identity(kindReference, v.Node, v.ID, 0), nil
	case term.LocalPort:
		return identity(kindPort, term.LocalNode(), v.ID, 0), nil
	case *term.ExternalPort:
		return identity(kindPort, v.Node, v.ID, 0), nil
	case *term.Closure:
		env, err := toWires(v.Env)
		if err != nil {
			return wire{}, err
		}
		fn := wire{Kind: kindAtom, Text: v.Function.Name()}
		return wire{Kind: kindClosure, Text: v.Module.Name(), Int: int64(v.Arity), Ext: uint64(v.Index), Items: append([]wire{fn}, env...)}, nil
	}
	return wire{}, fmt.Errorf("codec: cannot encode %T", t)
}

func toWires(terms []term.Term) ([]wire, error) {
	out := make([]wire, len(terms))
	for i, t := range terms {
		w, err := toWire(t)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// identity stores the id in Int as its bit pattern.
func identity(k kind, node term.Node, id, serial uint64) wire {
	return wire{Kind: k, Text: node.Name.Name(), Creation: node.Creation, Int: int64(id), Ext: serial}
}

func fromWire(h *heap.Heap, w *wire) (term.Term, error) {
	switch w.Kind {
	case kindSmall:
		return h.Integer(w.Int)
	case kindBig:
		n := new(big.Int).SetBytes(w.Bytes)
		if w.Int < 0 {
			n.Neg(n)
		}
		return h.BigInteger(n)
	case kindFloat:
		return h.Float(w.Float)
	case kindAtom:
		return term.Intern(w.Text), nil
	case kindNil:
		return term.NIL, nil
	case kindList:
		if len(w.Items) == 0 {
			return nil, fmt.Errorf("codec: list without tail")
		}
		elems, err := fromWires(h, w.Items)
		if err != nil {
			return nil, err
		}
		return h.ImproperList(elems[:len(elems)-1], elems[len(elems)-1])
	case kindTuple:
		elems, err := fromWires(h, w.Items)
		if err != nil {
			return nil, err
		}
		return h.TupleFromSlice(elems)
	case kindMap:
		if len(w.Items)%2 != 0 {
			return nil, fmt.Errorf("codec: map with odd item count")
		}
		elems, err := fromWires(h, w.Items)
		if err != nil {
			return nil, err
		}
		pairs := make([]term.Pair, len(elems)/2)
		for i := range pairs {
			pairs[i] = term.Pair{Key: elems[2*i], Value: elems[2*i+1]}
		}
		return h.MapFromSlice(pairs)
	case kindBinary:
		return h.BinaryFromBytes(w.Bytes)
	case kindBitstring:
		return h.Bitstring(w.Bytes, int(w.Int))
	case kindPid, kindReference, kindPort:
		return fromIdentity(h, w)
	case kindClosure:
		if len(w.Items) == 0 || w.Items[0].Kind != kindAtom {
			return nil, fmt.Errorf("codec: closure without function name")
		}
		env, err := fromWires(h, w.Items[1:])
		if err != nil {
			return nil, err
		}
		return h.Closure(term.Intern(w.Text), term.Intern(w.Items[0].Text), uint8(w.Int), uint32(w.Ext), nil, env)
	}
	return nil, fmt.Errorf("codec: unknown kind %d", w.Kind)
}

func fromWires(h *heap.Heap, ws []wire) ([]term.Term, error) {
	out := make([]term.Term, len(ws))
	for i := range ws {
		t, err := fromWire(h, &ws[i])
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func fromIdentity(h *heap.Heap, w *wire) (term.Term, error) {
	node := term.Node{Name: term.Intern(w.Text), Creation: w.Creation}
	id := uint64(w.Int)
	local := node.IsLocal()
	switch w.Kind {
	case kindPid:
		if local {
			return term.LocalPid{Number: uint32(id), Serial: uint32(w.Ext)}, nil
		}
		return h.ExternalPid(node, uint32(id), uint32(w.Ext))
	case kindReference:
		if local {
			return term.LocalReference{ID: id}, nil
		}
		return h.ExternalReference(node, id)
	}
	if local {
		return term.LocalPort{ID: id}, nil
	}
	return h.ExternalPort(node, id)
}
