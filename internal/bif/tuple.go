package bif

import (
	"ember/internal/heap"
	"ember/internal/process"
	"ember/internal/term"
)

// index converts a guest tuple index. Anything but a small integer is badarg.
func index(t term.Term) (int, error) {
	n, ok := t.(term.SmallInteger)
	if !ok {
		return 0, badarg()
	}
	return int(n), nil
}

// InsertElement implements erlang:insert_element/3.
func InsertElement(p *process.Process, idx, tuple, value term.Term) (term.Term, error) {
	i, err := index(idx)
	if err != nil {
		return nil, err
	}
	return result(p.Heap().InsertElement(i, tuple, value))
}

// DeleteElement implements erlang:delete_element/2.
func DeleteElement(p *process.Process, idx, tuple term.Term) (term.Term, error) {
	i, err := index(idx)
	if err != nil {
		return nil, err
	}
	return result(p.Heap().DeleteElement(i, tuple))
}

// SetElement implements erlang:setelement/3.
func SetElement(p *process.Process, idx, tuple, value term.Term) (term.Term, error) {
	i, err := index(idx)
	if err != nil {
		return nil, err
	}
	return result(p.Heap().SetElement(i, tuple, value))
}

// Element implements erlang:element/2.
func Element(idx, tuple term.Term) (term.Term, error) {
	i, err := index(idx)
	if err != nil {
		return nil, err
	}
	return result(heap.Element(i, tuple))
}
