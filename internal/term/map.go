package term

import "sort"

type Pair struct {
	Key   Term
	Value Term
}

// Map is an immutable association keyed under exact equality. Entries are
// kept sorted by key in term order.
type Map struct {
	entries []Pair
}

// NewMap builds a map from pairs. When a key repeats, the last value wins.
func NewMap(pairs []Pair) *Map {
	entries := make([]Pair, len(pairs))
	copy(entries, pairs)
	sort.SliceStable(entries, func(i, j int) bool {
		return ExactCompare(entries[i].Key, entries[j].Key) < 0
	})
	out := entries[:0]
	for _, p := range entries {
		if n := len(out); n > 0 && ExactCompare(out[n-1].Key, p.Key) == 0 {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return &Map{entries: out}
}

func (m *Map) Type() TermType  { return MAP_TERM }
func (m *Map) Inspect() string { return inspect(m) }
func (*Map) isTerm()           {}
func (m *Map) Len() int        { return len(m.entries) }

// Entries returns the pairs in key order. Callers must not modify the slice.
func (m *Map) Entries() []Pair { return m.entries }

func (m *Map) Get(key Term) (Term, bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return ExactCompare(m.entries[i].Key, key) >= 0
	})
	if i < len(m.entries) && ExactCompare(m.entries[i].Key, key) == 0 {
		return m.entries[i].Value, true
	}
	return nil, false
}
