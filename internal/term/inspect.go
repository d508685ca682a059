package term

import (
	"strconv"
	"strings"

	"github.com/delaneyj/toolbelt/bytebufferpool"
)

func inspect(t Term) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	writeTerm(buf, t)
	return buf.String()
}

func writeTerm(buf *bytebufferpool.ByteBuffer, t Term) {
	switch v := t.(type) {
	case SmallInteger, *BigInteger, Nil:
		buf.WriteString(v.Inspect())
	case *Float:
		buf.WriteString(formatFloat(v.Value))
	case Atom:
		writeAtom(buf, v)
	case *Cons:
		buf.WriteByte('[')
		var cur Term = v
		first := true
		for {
			c, ok := cur.(*Cons)
			if !ok {
				break
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeTerm(buf, c.Head)
			cur = c.Tail
		}
		if _, ok := cur.(Nil); !ok {
			buf.WriteByte('|')
			writeTerm(buf, cur)
		}
		buf.WriteByte(']')
	case *Tuple:
		buf.WriteByte('{')
		for i, e := range v.Elements {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeTerm(buf, e)
		}
		buf.WriteByte('}')
	case *Map:
		buf.WriteString("#{")
		for i, p := range v.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeTerm(buf, p.Key)
			buf.WriteString(" => ")
			writeTerm(buf, p.Value)
		}
		buf.WriteByte('}')
	case Bitstring:
		writeBitstring(buf, v)
	case LocalPid:
		buf.WriteString("<0." + strconv.FormatUint(uint64(v.Number), 10) + "." + strconv.FormatUint(uint64(v.Serial), 10) + ">")
	case *ExternalPid:
		buf.WriteString("<" + v.Node.Name.Name() + "." + strconv.FormatUint(uint64(v.Number), 10) + "." + strconv.FormatUint(uint64(v.Serial), 10) + ">")
	case LocalReference:
		buf.WriteString("#Ref<0." + strconv.FormatUint(v.ID, 10) + ">")
	case *ExternalReference:
		buf.WriteString("#Ref<" + v.Node.Name.Name() + "." + strconv.FormatUint(v.ID, 10) + ">")
	case LocalPort:
		buf.WriteString("#Port<0." + strconv.FormatUint(v.ID, 10) + ">")
	case *ExternalPort:
		buf.WriteString("#Port<" + v.Node.Name.Name() + "." + strconv.FormatUint(v.ID, 10) + ">")
	case *Closure:
		buf.WriteString("#Fun<" + v.Module.Name() + "." + v.Function.Name() + "." + strconv.Itoa(int(v.Arity)) + ">")
	}
}

func writeBitstring(buf *bytebufferpool.ByteBuffer, b Bitstring) {
	packed := b.Packed()
	bits := b.BitSize()
	buf.WriteString("<<")
	for i := 0; i < bits/8; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(packed[i])))
	}
	if rem := bits % 8; rem != 0 {
		if bits >= 8 {
			buf.WriteByte(',')
		}
		last := packed[bits/8] >> (8 - rem)
		buf.WriteString(strconv.Itoa(int(last)) + ":" + strconv.Itoa(rem))
	}
	buf.WriteString(">>")
}

func writeAtom(buf *bytebufferpool.ByteBuffer, a Atom) {
	name := a.Name()
	if isBareAtom(name) {
		buf.WriteString(name)
		return
	}
	buf.WriteByte('\'')
	buf.WriteString(strings.ReplaceAll(name, "'", "\\'"))
	buf.WriteByte('\'')
}

func isBareAtom(name string) bool {
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '@') {
			return false
		}
	}
	return true
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
