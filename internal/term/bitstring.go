package term

import "bytes"

// Bitstring is implemented by Binary and SubBinary.
type Bitstring interface {
	Term
	// BitSize is the number of bits in the bitstring.
	BitSize() int
	// Packed returns the bits MSB-first; a trailing partial byte is
	// left-aligned and zero padded.
	Packed() []byte
}

// Binary is a contiguous byte sequence.
type Binary struct {
	Data []byte
}

func (b *Binary) Type() TermType  { return BINARY_TERM }
func (b *Binary) Inspect() string { return inspect(b) }
func (*Binary) isTerm()           {}
func (b *Binary) BitSize() int    { return len(b.Data) * 8 }
func (b *Binary) Packed() []byte  { return b.Data }

// SubBinary is a bit-addressed slice of a Binary.
type SubBinary struct {
	Original  *Binary
	BitOffset int
	Bits      int
}

func (s *SubBinary) Type() TermType  { return SUBBINARY_TERM }
func (s *SubBinary) Inspect() string { return inspect(s) }
func (*SubBinary) isTerm()           {}
func (s *SubBinary) BitSize() int    { return s.Bits }

func (s *SubBinary) Packed() []byte {
	if s.BitOffset%8 == 0 && s.Bits%8 == 0 {
		start := s.BitOffset / 8
		return s.Original.Data[start : start+s.Bits/8]
	}
	out := make([]byte, (s.Bits+7)/8)
	for i := 0; i < s.Bits; i++ {
		src := s.BitOffset + i
		if s.Original.Data[src/8]&(0x80>>(src%8)) != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

// IsBinary reports whether t is a bitstring with a whole number of bytes.
func IsBinary(t Term) bool {
	b, ok := t.(Bitstring)
	return ok && b.BitSize()%8 == 0
}

func compareBitstrings(a, b Bitstring) int {
	pa, pb := a.Packed(), b.Packed()
	la, lb := a.BitSize(), b.BitSize()
	n := la
	if lb < n {
		n = lb
	}
	full := n / 8
	if c := bytes.Compare(pa[:full], pb[:full]); c != 0 {
		return c
	}
	if rem := n % 8; rem != 0 {
		mask := byte(0xFF << (8 - rem))
		x, y := pa[full]&mask, pb[full]&mask
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return compareUint(uint64(la), uint64(lb))
}
