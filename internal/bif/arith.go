package bif

import (
	"ember/internal/numeric"
	"ember/internal/process"
	"ember/internal/term"
)

// Add implements erlang:'+'/2.
func Add(p *process.Process, a, b term.Term) (term.Term, error) {
	return result(numeric.Add(p.Heap(), a, b))
}

// Sub implements erlang:'-'/2.
func Sub(p *process.Process, a, b term.Term) (term.Term, error) {
	return result(numeric.Sub(p.Heap(), a, b))
}

// Mul implements erlang:'*'/2.
func Mul(p *process.Process, a, b term.Term) (term.Term, error) {
	return result(numeric.Mul(p.Heap(), a, b))
}

// Negate implements erlang:'-'/1.
func Negate(p *process.Process, a term.Term) (term.Term, error) {
	return result(numeric.Negate(p.Heap(), a))
}

// Bsr implements erlang:'bsr'/2.
func Bsr(p *process.Process, integer, shift term.Term) (term.Term, error) {
	return result(numeric.Bsr(p.Heap(), integer, shift))
}

// Bsl implements erlang:'bsl'/2.
func Bsl(p *process.Process, integer, shift term.Term) (term.Term, error) {
	return result(numeric.Bsl(p.Heap(), integer, shift))
}

func Band(p *process.Process, a, b term.Term) (term.Term, error) {
	return result(numeric.Band(p.Heap(), a, b))
}

func Bor(p *process.Process, a, b term.Term) (term.Term, error) {
	return result(numeric.Bor(p.Heap(), a, b))
}

func Bxor(p *process.Process, a, b term.Term) (term.Term, error) {
	return result(numeric.Bxor(p.Heap(), a, b))
}

func Bnot(p *process.Process, a term.Term) (term.Term, error) {
	return result(numeric.Bnot(p.Heap(), a))
}
