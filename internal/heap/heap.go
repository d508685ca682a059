// Package heap is the per-process arena that owns every composite term a
// process builds. Storage itself is managed by the Go runtime; the heap
// accounts for it in machine words so the surrounding runtime can size,
// collect and reclaim process memory as one unit.
package heap

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultInitialWords is the young arena size of a fresh process heap.
const DefaultInitialWords = 233

// ErrReleased is returned when allocating on a heap whose process has exited.
var ErrReleased = errors.New("heap: released")

// Heap is a bump-accounted arena. Allocations that do not fit in the young
// arena spill into fragments until the next collection folds them back in.
// Each spill fragment is twice the size of the one before it, so a heap that
// keeps growing opens a logarithmic number of them. Attached messages count
// as one fragment each.
//
// The owning process is the only writer of its terms. The mutex covers the
// accounting so message delivery can attach fragments from another goroutine.
type Heap struct {
	mu            sync.Mutex
	capacity      int
	top           int
	fragments     int
	fragmentWords int
	spillSize     int // size of the open spill fragment
	spillFree     int // words left in it
	released      bool
	unbounded     bool
}

// Stats is a snapshot of a heap's accounting.
type Stats struct {
	Capacity      int
	Used          int
	Fragments     int
	FragmentWords int
}

func (s Stats) Total() int {
	return s.Used + s.FragmentWords
}

func New(initialWords int) *Heap {
	if initialWords <= 0 {
		initialWords = DefaultInitialWords
	}
	return &Heap{capacity: initialWords}
}

// NewFragment returns a standalone heap that grows without bound. It is used
// to build messages and timer payloads off the destination's heap; the
// destination takes it over with Attach.
func NewFragment() *Heap {
	return &Heap{unbounded: true}
}

// alloc charges words to the heap.
func (h *Heap) alloc(words int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	if h.unbounded {
		h.top += words
		return nil
	}
	if h.top+words <= h.capacity {
		h.top += words
		return nil
	}
	if words > h.spillFree {
		h.openSpill(words)
	}
	h.spillFree -= words
	h.fragmentWords += words
	return nil
}

// openSpill starts a fragment with room for at least words. Caller holds h.mu.
func (h *Heap) openSpill(words int) {
	size := h.spillSize * 2
	if size == 0 {
		size = max(h.capacity, DefaultInitialWords)
	}
	h.spillSize = max(size, words)
	h.spillFree = h.spillSize
	h.fragments++
}

// Attach transfers the accounting of a message fragment into h.
func (h *Heap) Attach(frag *Heap) error {
	if frag == nil || frag == h {
		return nil
	}
	frag.mu.Lock()
	words := frag.top + frag.fragmentWords
	frag.released = true
	frag.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	if words > 0 {
		h.fragments++
		h.fragmentWords += words
	}
	return nil
}

// Collect folds fragments into a young arena sized to hold live words. The
// surrounding collector reports how many words survived.
func (h *Heap) Collect(liveWords int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	if liveWords < 0 {
		return fmt.Errorf("heap: negative live size %d", liveWords)
	}
	h.dropFragments()
	h.top = liveWords
	if h.capacity == 0 {
		h.capacity = DefaultInitialWords
	}
	for h.capacity < liveWords*2 {
		h.capacity *= 2
	}
	return nil
}

// Release reclaims the heap wholesale. Later allocations fail.
func (h *Heap) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.dropFragments()
	h.top = 0
}

func (h *Heap) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Capacity:      h.capacity,
		Used:          h.top,
		Fragments:     h.fragments,
		FragmentWords: h.fragmentWords,
	}
}

func (h *Heap) dropFragments() {
	h.fragments, h.fragmentWords = 0, 0
	h.spillSize, h.spillFree = 0, 0
}
