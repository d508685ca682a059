package process

import (
	"sort"

	"ember/internal/term"
)

// dictionary buckets entries by term hash; keys match exactly.
type dictionary map[uint64][]term.Pair

func (d dictionary) lookup(key term.Term) (uint64, int) {
	h := term.Hash(key)
	for i, p := range d[h] {
		if term.ExactEqual(p.Key, key) {
			return h, i
		}
	}
	return h, -1
}

// Put stores value under key in the process dictionary and returns the
// previous value, or undefined. Both must live on the process heap.
func (p *Process) Put(key, value term.Term) term.Term {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dict == nil {
		return term.Undefined
	}
	h, i := p.dict.lookup(key)
	if i < 0 {
		p.dict[h] = append(p.dict[h], term.Pair{Key: key, Value: value})
		return term.Undefined
	}
	old := p.dict[h][i].Value
	p.dict[h][i].Value = value
	return old
}

// Get returns the value stored under key, or undefined.
func (p *Process) Get(key term.Term) term.Term {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, i := p.dict.lookup(key)
	if i < 0 {
		return term.Undefined
	}
	return p.dict[h][i].Value
}

// Erase removes key and returns its value, or undefined.
func (p *Process) Erase(key term.Term) term.Term {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, i := p.dict.lookup(key)
	if i < 0 {
		return term.Undefined
	}
	bucket := p.dict[h]
	old := bucket[i].Value
	bucket = append(bucket[:i], bucket[i+1:]...)
	if len(bucket) == 0 {
		delete(p.dict, h)
	} else {
		p.dict[h] = bucket
	}
	return old
}

// DictionaryKeys returns the keys of the process dictionary in term order.
func (p *Process) DictionaryKeys() []term.Term {
	p.mu.Lock()
	defer p.mu.Unlock()
	var keys []term.Term
	for _, bucket := range p.dict {
		for _, pair := range bucket {
			keys = append(keys, pair.Key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return term.ExactCompare(keys[i], keys[j]) < 0 })
	return keys
}
