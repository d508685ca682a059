package heap

import (
	"math"
	"math/big"

	"ember/internal/term"
)

// Word costs follow a header word plus payload.
const (
	wordBytes   = 8
	consWords   = 2
	floatWords  = 2
	headerWords = 1
	refWords    = 3
	// Binaries larger than this live off-heap and leave a reference-counted
	// handle on the process heap.
	heapBinaryLimit = 64
	procBinWords    = 4
	subBinaryWords  = 5
)

func wordsForBytes(n int) int {
	return (n + wordBytes - 1) / wordBytes
}

// Integer returns n in its canonical representation.
func (h *Heap) Integer(n int64) (term.Term, error) {
	if term.FitsSmall(n) {
		return term.SmallInteger(n), nil
	}
	return h.BigInteger(big.NewInt(n))
}

// BigInteger returns v in its canonical representation, charging heap space
// only when it does not fit in a SmallInteger. It takes ownership of v.
func (h *Heap) BigInteger(v *big.Int) (term.Term, error) {
	t := term.CanonicalInteger(v)
	if b, ok := t.(*term.BigInteger); ok {
		if err := h.alloc(headerWords + wordsForBytes(len(b.Value.Bytes()))); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Float boxes f. Guest floats are finite: infinities saturate to the largest
// finite double of the same sign and NaN is rejected.
func (h *Heap) Float(f float64) (term.Term, error) {
	if math.IsNaN(f) {
		return nil, term.ErrBadarg
	}
	if err := h.alloc(floatWords); err != nil {
		return nil, err
	}
	return &term.Float{Value: Saturate(f)}, nil
}

// Saturate clamps infinities to ±math.MaxFloat64.
func Saturate(f float64) float64 {
	switch {
	case math.IsInf(f, 1):
		return math.MaxFloat64
	case math.IsInf(f, -1):
		return -math.MaxFloat64
	}
	return f
}

func (h *Heap) Cons(head, tail term.Term) (term.Term, error) {
	if err := h.alloc(consWords); err != nil {
		return nil, err
	}
	return &term.Cons{Head: head, Tail: tail}, nil
}

// List builds a proper list of elems.
func (h *Heap) List(elems ...term.Term) (term.Term, error) {
	return h.ImproperList(elems, term.NIL)
}

// ImproperList builds a list of elems ending in tail.
func (h *Heap) ImproperList(elems []term.Term, tail term.Term) (term.Term, error) {
	if len(elems) == 0 {
		return tail, nil
	}
	if err := h.alloc(consWords * len(elems)); err != nil {
		return nil, err
	}
	cells := make([]term.Cons, len(elems))
	out := tail
	for i := len(elems) - 1; i >= 0; i-- {
		cells[i] = term.Cons{Head: elems[i], Tail: out}
		out = &cells[i]
	}
	return out, nil
}

// TupleFromSlice copies elems into a new tuple.
func (h *Heap) TupleFromSlice(elems []term.Term) (term.Term, error) {
	if err := h.alloc(headerWords + len(elems)); err != nil {
		return nil, err
	}
	out := make([]term.Term, len(elems))
	copy(out, elems)
	return &term.Tuple{Elements: out}, nil
}

// MapFromSlice builds a map; later pairs win over earlier ones with the same key.
func (h *Heap) MapFromSlice(pairs []term.Pair) (term.Term, error) {
	if err := h.alloc(headerWords + 2*len(pairs)); err != nil {
		return nil, err
	}
	return term.NewMap(pairs), nil
}

// BinaryFromBytes copies data into a new binary.
func (h *Heap) BinaryFromBytes(data []byte) (term.Term, error) {
	words := procBinWords
	if len(data) <= heapBinaryLimit {
		words = headerWords + 1 + wordsForBytes(len(data))
	}
	if err := h.alloc(words); err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return &term.Binary{Data: out}, nil
}

// Bitstring builds a bitstring of bits bits from data, MSB-first. A whole
// number of bytes yields a Binary; anything else is a SubBinary over a fresh
// backing binary.
func (h *Heap) Bitstring(data []byte, bits int) (term.Term, error) {
	if bits < 0 || bits > len(data)*8 {
		return nil, term.ErrBadarg
	}
	if bits%8 == 0 {
		return h.BinaryFromBytes(data[:bits/8])
	}
	orig, err := h.BinaryFromBytes(data[:(bits+7)/8])
	if err != nil {
		return nil, err
	}
	return h.SubBinary(orig, 0, bits)
}

// SubBinary slices bits [bitOffset, bitOffset+bits) of a bitstring.
func (h *Heap) SubBinary(of term.Term, bitOffset, bits int) (term.Term, error) {
	var orig *term.Binary
	base := 0
	switch b := of.(type) {
	case *term.Binary:
		orig = b
	case *term.SubBinary:
		orig = b.Original
		base = b.BitOffset
		if bitOffset < 0 || bits < 0 || bitOffset+bits > b.Bits {
			return nil, term.ErrBadarg
		}
	default:
		return nil, term.ErrBadarg
	}
	if bitOffset < 0 || bits < 0 || base+bitOffset+bits > len(orig.Data)*8 {
		return nil, term.ErrBadarg
	}
	if err := h.alloc(subBinaryWords); err != nil {
		return nil, err
	}
	return &term.SubBinary{Original: orig, BitOffset: base + bitOffset, Bits: bits}, nil
}

// Closure builds a closure capturing env.
func (h *Heap) Closure(module, function term.Atom, arity uint8, index uint32, code term.Code, env []term.Term) (term.Term, error) {
	if err := h.alloc(headerWords + 3 + len(env)); err != nil {
		return nil, err
	}
	captured := make([]term.Term, len(env))
	copy(captured, env)
	return &term.Closure{Module: module, Function: function, Arity: arity, Index: index, Code: code, Env: captured}, nil
}

// ExternalPid boxes a pid that lives on another node.
func (h *Heap) ExternalPid(node term.Node, number, serial uint32) (term.Term, error) {
	if err := h.alloc(refWords); err != nil {
		return nil, err
	}
	return &term.ExternalPid{Node: node, Number: number, Serial: serial}, nil
}

// ExternalReference boxes a reference created on another node.
func (h *Heap) ExternalReference(node term.Node, id uint64) (term.Term, error) {
	if err := h.alloc(refWords); err != nil {
		return nil, err
	}
	return &term.ExternalReference{Node: node, ID: id}, nil
}

// ExternalPort boxes a port owned by another node.
func (h *Heap) ExternalPort(node term.Node, id uint64) (term.Term, error) {
	if err := h.alloc(refWords); err != nil {
		return nil, err
	}
	return &term.ExternalPort{Node: node, ID: id}, nil
}
