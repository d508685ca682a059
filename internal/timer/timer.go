// Package timer schedules one-shot messages against the monotonic clock.
//
// A timer is keyed by its reference and moves from Scheduled to exactly one of
// Fired or Cancelled. The registry and deadline queue share one mutex; due
// messages are delivered after it is released, so delivery never runs under
// the timer lock.
package timer

import (
	"container/heap"
	"fmt"
	"sync"

	"ember/internal/clock"
	"ember/internal/codec"
	emberheap "ember/internal/heap"
	"ember/internal/journal"
	"ember/internal/logger"
	"ember/internal/term"
)

var log = logger.Subsystem("timer", logger.INFO)

type State int

const (
	Scheduled State = iota
	Fired
	Cancelled
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Fired:
		return "fired"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Deliverer hands a fired message to its destination, a pid or a registered
// name. Unknown or dead destinations drop the message.
type Deliverer interface {
	DeliverTo(dest term.Term, msg term.Term, frag *emberheap.Heap)
}

type Timer struct {
	Reference   term.LocalReference
	Destination term.Term
	// Deadline is in native clock units.
	Deadline int64
	Wrap     bool

	message term.Term
	frag    *emberheap.Heap
	state   State
	seq     uint64
	index   int
}

type Service struct {
	mu          sync.Mutex
	clock       clock.Source
	deliverer   Deliverer
	recorder    journal.Recorder
	incarnation string
	timers      map[uint64]*Timer
	queue       queue
	seq         uint64
	fired       uint64
	cancelled   uint64
}

func New(src clock.Source, deliverer Deliverer) *Service {
	return &Service{
		clock:     src,
		deliverer: deliverer,
		recorder:  journal.Nop{},
		timers:    make(map[uint64]*Timer),
	}
}

// SetRecorder sends lifecycle events to rec, tagged with the node incarnation.
func (s *Service) SetRecorder(rec journal.Recorder, incarnation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = rec
	s.incarnation = incarnation
}

// Now is the current reading of the service clock.
func (s *Service) Now() int64 {
	return s.clock.Nanos()
}

// Start schedules msg for dest at deadline. The message is copied off the
// caller's heap so the timer does not depend on it. ref must be fresh.
func (s *Service) Start(ref term.LocalReference, deadline int64, dest, msg term.Term, wrap bool) error {
	frag := emberheap.NewFragment()
	payload, err := frag.Copy(msg)
	if err != nil {
		return fmt.Errorf("timer: copy message: %w", err)
	}
	t := &Timer{
		Reference:   ref,
		Destination: dest,
		Deadline:    deadline,
		Wrap:        wrap,
		message:     payload,
		frag:        frag,
	}

	s.mu.Lock()
	if _, exists := s.timers[ref.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("timer: reference %s already in use", ref.Inspect())
	}
	s.seq++
	t.seq = s.seq
	s.timers[ref.ID] = t
	heap.Push(&s.queue, t)
	rec, inc := s.recorder, s.incarnation
	s.mu.Unlock()

	log.Debugf("started %s for %s at %d", ref.Inspect(), dest.Inspect(), deadline)
	record(rec, inc, journal.TimerStarted, t)
	return nil
}

// Cancel removes the timer for ref and returns the time it had left, in
// native units. A timer that already fired or was cancelled is not found.
func (s *Service) Cancel(ref term.LocalReference) (int64, bool) {
	now := s.clock.Nanos()
	s.mu.Lock()
	t, ok := s.timers[ref.ID]
	if !ok {
		s.mu.Unlock()
		return 0, false
	}
	s.remove(t)
	t.state = Cancelled
	s.cancelled++
	rec, inc := s.recorder, s.incarnation
	s.mu.Unlock()

	record(rec, inc, journal.TimerCancelled, t)
	return remaining(t.Deadline, now), true
}

// Read returns the time left on the timer for ref, in native units.
func (s *Service) Read(ref term.LocalReference) (int64, bool) {
	now := s.clock.Nanos()
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[ref.ID]
	if !ok {
		return 0, false
	}
	return remaining(t.Deadline, now), true
}

// CancelFor cancels every timer addressed to dest. It is used when a
// process exits. It returns the number of timers cancelled.
func (s *Service) CancelFor(dest term.Term) int {
	s.mu.Lock()
	var victims []*Timer
	for _, t := range s.timers {
		if term.ExactEqual(t.Destination, dest) {
			victims = append(victims, t)
		}
	}
	for _, t := range victims {
		s.remove(t)
		t.state = Cancelled
		s.cancelled++
	}
	rec, inc := s.recorder, s.incarnation
	s.mu.Unlock()

	for _, t := range victims {
		record(rec, inc, journal.TimerCancelled, t)
	}
	return len(victims)
}

// ProcessDue fires every timer whose deadline is at or before now and
// returns how many fired.
func (s *Service) ProcessDue(now int64) int {
	s.mu.Lock()
	var due []*Timer
	for len(s.queue) > 0 && s.queue[0].Deadline <= now {
		t := heap.Pop(&s.queue).(*Timer)
		delete(s.timers, t.Reference.ID)
		t.state = Fired
		due = append(due, t)
	}
	s.fired += uint64(len(due))
	rec, inc := s.recorder, s.incarnation
	s.mu.Unlock()

	for _, t := range due {
		s.fire(t)
		record(rec, inc, journal.TimerFired, t)
	}
	return len(due)
}

func (s *Service) fire(t *Timer) {
	msg := t.message
	if t.Wrap {
		wrapped, err := t.frag.TupleFromSlice([]term.Term{term.Timeout, t.Reference, t.message})
		if err != nil {
			log.Errorf("failed to build timeout message for %s: %v", t.Reference.Inspect(), err)
			return
		}
		msg = wrapped
	}
	s.deliverer.DeliverTo(t.Destination, msg, t.frag)
}

// Next returns the earliest pending deadline.
func (s *Service) Next() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].Deadline, true
}

// Len is the number of scheduled timers.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stats reports how many timers have fired and been cancelled.
func (s *Service) Stats() (fired, cancelled uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired, s.cancelled
}

// remove takes t out of the registry and queue. Caller holds s.mu.
func (s *Service) remove(t *Timer) {
	delete(s.timers, t.Reference.ID)
	if t.index >= 0 && t.index < len(s.queue) && s.queue[t.index] == t {
		heap.Remove(&s.queue, t.index)
	}
}

func remaining(deadline, now int64) int64 {
	if deadline <= now {
		return 0
	}
	return deadline - now
}

func record(rec journal.Recorder, incarnation string, kind journal.Kind, t *Timer) {
	if _, ok := rec.(journal.Nop); ok {
		return
	}
	payload, err := codec.Encode(t.message)
	if err != nil {
		log.Warnf("cannot encode payload of %s: %v", t.Reference.Inspect(), err)
	}
	rec.Record(journal.Event{
		Kind:        kind,
		Incarnation: incarnation,
		Reference:   t.Reference.ID,
		Pid:         t.Destination.Inspect(),
		Monotonic:   t.Deadline,
		Payload:     payload,
	})
}
