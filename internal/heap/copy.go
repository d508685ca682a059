package heap

import (
	"fmt"
	"math/big"

	"ember/internal/term"
)

// Copy deep copies t onto h. Immediates are returned as they are. Binaries
// above the heap binary limit are shared, since they are immutable and live
// off-heap. The copy is structurally equal to t.
func (h *Heap) Copy(t term.Term) (term.Term, error) {
	switch v := t.(type) {
	case term.SmallInteger, term.Atom, term.Nil, term.LocalPid, term.LocalReference, term.LocalPort:
		return t, nil
	case *term.BigInteger:
		if err := h.alloc(headerWords + wordsForBytes(len(v.Value.Bytes()))); err != nil {
			return nil, err
		}
		return &term.BigInteger{Value: new(big.Int).Set(v.Value)}, nil
	case *term.Float:
		return h.Float(v.Value)
	case *term.Cons:
		return h.copyList(v)
	case *term.Tuple:
		elems, err := h.copySlice(v.Elements)
		if err != nil {
			return nil, err
		}
		if err := h.alloc(headerWords + len(elems)); err != nil {
			return nil, err
		}
		return &term.Tuple{Elements: elems}, nil
	case *term.Map:
		entries := v.Entries()
		pairs := make([]term.Pair, len(entries))
		for i, e := range entries {
			k, err := h.Copy(e.Key)
			if err != nil {
				return nil, err
			}
			val, err := h.Copy(e.Value)
			if err != nil {
				return nil, err
			}
			pairs[i] = term.Pair{Key: k, Value: val}
		}
		return h.MapFromSlice(pairs)
	case *term.Binary:
		return h.copyBinary(v)
	case *term.SubBinary:
		orig, err := h.copyBinary(v.Original)
		if err != nil {
			return nil, err
		}
		if err := h.alloc(subBinaryWords); err != nil {
			return nil, err
		}
		return &term.SubBinary{Original: orig, BitOffset: v.BitOffset, Bits: v.Bits}, nil
	case *term.Closure:
		env, err := h.copySlice(v.Env)
		if err != nil {
			return nil, err
		}
		if err := h.alloc(headerWords + 3 + len(env)); err != nil {
			return nil, err
		}
		return &term.Closure{Module: v.Module, Function: v.Function, Arity: v.Arity, Index: v.Index, Code: v.Code, Env: env}, nil
	case *term.ExternalPid:
		return h.ExternalPid(v.Node, v.Number, v.Serial)
	case *term.ExternalReference:
		return h.ExternalReference(v.Node, v.ID)
	case *term.ExternalPort:
		return h.ExternalPort(v.Node, v.ID)
	}
	return nil, fmt.Errorf("heap: cannot copy %T", t)
}

func (h *Heap) copySlice(in []term.Term) ([]term.Term, error) {
	out := make([]term.Term, len(in))
	for i, e := range in {
		c, err := h.Copy(e)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// copyList walks the spine iteratively so long lists do not grow the stack.
func (h *Heap) copyList(c *term.Cons) (term.Term, error) {
	var heads []term.Term
	var tail term.Term = c
	for {
		cell, ok := tail.(*term.Cons)
		if !ok {
			break
		}
		hd, err := h.Copy(cell.Head)
		if err != nil {
			return nil, err
		}
		heads = append(heads, hd)
		tail = cell.Tail
	}
	t, err := h.Copy(tail)
	if err != nil {
		return nil, err
	}
	return h.ImproperList(heads, t)
}

func (h *Heap) copyBinary(b *term.Binary) (*term.Binary, error) {
	if len(b.Data) > heapBinaryLimit {
		if err := h.alloc(procBinWords); err != nil {
			return nil, err
		}
		return b, nil
	}
	t, err := h.BinaryFromBytes(b.Data)
	if err != nil {
		return nil, err
	}
	return t.(*term.Binary), nil
}
