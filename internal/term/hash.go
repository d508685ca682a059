package term

import (
	"encoding/binary"
	"math"

	"github.com/delaneyj/toolbelt/bytebufferpool"
	"github.com/zeebo/xxh3"
)

// Hash returns a 64-bit hash consistent with ExactEqual: exactly equal terms
// hash alike regardless of which heap holds them.
func Hash(t Term) uint64 {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	writeHashKey(buf, t)
	return xxh3.Hash(buf.Bytes())
}

func writeHashKey(buf *bytebufferpool.ByteBuffer, t Term) {
	var scratch [8]byte
	putUint := func(n uint64) {
		binary.BigEndian.PutUint64(scratch[:], n)
		buf.Write(scratch[:])
	}
	putString := func(s string) {
		putUint(uint64(len(s)))
		buf.WriteString(s)
	}
	putIdentity := func(tag byte, id identity) {
		buf.WriteByte(tag)
		putString(id.node.Name.Name())
		putUint(uint64(id.node.Creation))
		putUint(id.a)
		putUint(id.b)
	}

	switch v := t.(type) {
	case SmallInteger:
		buf.WriteByte('i')
		putUint(uint64(v))
	case *BigInteger:
		buf.WriteByte('I')
		buf.WriteByte(byte(v.Value.Sign() + 1))
		b := v.Value.Bytes()
		putUint(uint64(len(b)))
		buf.Write(b)
	case *Float:
		f := v.Value
		if f == 0 {
			f = 0 // -0.0 and 0.0 are exactly equal
		}
		buf.WriteByte('f')
		putUint(math.Float64bits(f))
	case Atom:
		buf.WriteByte('a')
		putString(v.Name())
	case Nil:
		buf.WriteByte('n')
	case *Cons:
		elems, tail := ListToSlice(v)
		buf.WriteByte('l')
		putUint(uint64(len(elems)))
		for _, e := range elems {
			writeHashKey(buf, e)
		}
		writeHashKey(buf, tail)
	case *Tuple:
		buf.WriteByte('t')
		putUint(uint64(len(v.Elements)))
		for _, e := range v.Elements {
			writeHashKey(buf, e)
		}
	case *Map:
		buf.WriteByte('m')
		putUint(uint64(v.Len()))
		for _, p := range v.entries {
			writeHashKey(buf, p.Key)
			writeHashKey(buf, p.Value)
		}
	case Bitstring:
		buf.WriteByte('b')
		putUint(uint64(v.BitSize()))
		buf.Write(v.Packed())
	case LocalPid, *ExternalPid:
		putIdentity('p', pidIdentity(v))
	case LocalReference, *ExternalReference:
		putIdentity('r', referenceIdentity(v))
	case LocalPort, *ExternalPort:
		putIdentity('o', portIdentity(v))
	case *Closure:
		buf.WriteByte('c')
		putString(v.Module.Name())
		putString(v.Function.Name())
		putUint(uint64(v.Arity))
		putUint(uint64(v.Index))
		putUint(uint64(len(v.Env)))
		for _, e := range v.Env {
			writeHashKey(buf, e)
		}
	}
}
