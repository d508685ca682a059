package heap

import "ember/internal/term"

// Tuple element indices are 1-based.

func asTuple(t term.Term) (*term.Tuple, bool) {
	tup, ok := t.(*term.Tuple)
	return tup, ok
}

// Element returns element index of tuple.
func Element(index int, tuple term.Term) (term.Term, error) {
	tup, ok := asTuple(tuple)
	if !ok || index < 1 || index > tup.Len() {
		return nil, term.ErrBadarg
	}
	return tup.Elements[index-1], nil
}

// InsertElement returns a new tuple with value inserted at index. index may
// be one past the end to append.
func (h *Heap) InsertElement(index int, tuple, value term.Term) (term.Term, error) {
	tup, ok := asTuple(tuple)
	if !ok || index < 1 || index > tup.Len()+1 {
		return nil, term.ErrBadarg
	}
	elems := make([]term.Term, 0, tup.Len()+1)
	elems = append(elems, tup.Elements[:index-1]...)
	elems = append(elems, value)
	elems = append(elems, tup.Elements[index-1:]...)
	return h.tuple(elems)
}

// DeleteElement returns a new tuple without the element at index.
func (h *Heap) DeleteElement(index int, tuple term.Term) (term.Term, error) {
	tup, ok := asTuple(tuple)
	if !ok || index < 1 || index > tup.Len() {
		return nil, term.ErrBadarg
	}
	elems := make([]term.Term, 0, tup.Len()-1)
	elems = append(elems, tup.Elements[:index-1]...)
	elems = append(elems, tup.Elements[index:]...)
	return h.tuple(elems)
}

// SetElement returns a new tuple with the element at index replaced.
func (h *Heap) SetElement(index int, tuple, value term.Term) (term.Term, error) {
	tup, ok := asTuple(tuple)
	if !ok || index < 1 || index > tup.Len() {
		return nil, term.ErrBadarg
	}
	elems := make([]term.Term, tup.Len())
	copy(elems, tup.Elements)
	elems[index-1] = value
	return h.tuple(elems)
}

// tuple takes ownership of elems.
func (h *Heap) tuple(elems []term.Term) (term.Term, error) {
	if err := h.alloc(headerWords + len(elems)); err != nil {
		return nil, err
	}
	return &term.Tuple{Elements: elems}, nil
}
