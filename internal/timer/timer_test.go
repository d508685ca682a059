package timer

import (
	"sync"
	"testing"
	"time"

	"ember/internal/clock"
	"ember/internal/heap"
	"ember/internal/journal"
	"ember/internal/term"
	"ember/internal/util/future"
)

type delivery struct {
	dest term.Term
	msg  term.Term
}

type recordingDeliverer struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (r *recordingDeliverer) DeliverTo(dest term.Term, msg term.Term, frag *heap.Heap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, delivery{dest: dest, msg: msg})
}

func (r *recordingDeliverer) all() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.deliveries...)
}

type memoryRecorder struct {
	mu     sync.Mutex
	events []journal.Event
}

func (m *memoryRecorder) Record(ev journal.Event) *future.Future[int64] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return future.FromValue(int64(len(m.events)))
}

func newService() (*Service, *clock.Manual, *recordingDeliverer) {
	c := clock.NewManual(0)
	d := &recordingDeliverer{}
	return New(c, d), c, d
}

var dest = term.LocalPid{Number: 5}

func TestWrappedTimerFiresOnce(t *testing.T) {
	s, c, d := newService()
	ref := term.LocalReference{ID: 1}
	msg := &term.Tuple{Elements: []term.Term{term.Intern("ping"), term.SmallInteger(1)}}

	if err := s.Start(ref, c.Nanos()+clock.Millis(100), dest, msg, true); err != nil {
		t.Fatal(err)
	}

	if n := s.ProcessDue(c.Advance(99 * time.Millisecond)); n != 0 {
		t.Fatalf("expected nothing due, %d fired", n)
	}
	if n := s.ProcessDue(c.Advance(time.Millisecond)); n != 1 {
		t.Fatalf("expected one timer to fire at its deadline, %d fired", n)
	}
	if n := s.ProcessDue(c.Advance(time.Second)); n != 0 {
		t.Fatalf("expected the timer to fire only once, %d fired", n)
	}

	got := d.all()
	if len(got) != 1 {
		t.Fatalf("expected one delivery, got %d", len(got))
	}
	want := &term.Tuple{Elements: []term.Term{term.Timeout, ref, msg}}
	if got[0].dest != dest || !term.ExactEqual(got[0].msg, want) {
		t.Errorf("expected %s to %s, got %s to %s", want.Inspect(), dest.Inspect(), got[0].msg.Inspect(), got[0].dest.Inspect())
	}
	if fired, _ := s.Stats(); fired != 1 {
		t.Errorf("expected fired count 1, got %d", fired)
	}
}

func TestUnwrappedTimerSendsMessageAsIs(t *testing.T) {
	s, c, d := newService()
	msg := term.Intern("hello")
	if err := s.Start(term.LocalReference{ID: 1}, c.Nanos(), dest, msg, false); err != nil {
		t.Fatal(err)
	}
	s.ProcessDue(c.Nanos())
	got := d.all()
	if len(got) != 1 || got[0].msg != msg {
		t.Errorf("expected hello to be delivered unwrapped, got %v", got)
	}
}

func TestDueTimersFireInDeadlineOrder(t *testing.T) {
	s, c, d := newService()
	deadlines := []int64{30, 10, 20, 10}
	for i, ms := range deadlines {
		ref := term.LocalReference{ID: uint64(i + 1)}
		if err := s.Start(ref, clock.Millis(ms), dest, term.SmallInteger(i), false); err != nil {
			t.Fatal(err)
		}
	}
	if next, ok := s.Next(); !ok || next != clock.Millis(10) {
		t.Errorf("expected next deadline 10ms, got %d", next)
	}

	s.ProcessDue(c.Advance(time.Second))
	var order []term.Term
	for _, dl := range d.all() {
		order = append(order, dl.msg)
	}
	want := []term.Term{term.SmallInteger(1), term.SmallInteger(3), term.SmallInteger(2), term.SmallInteger(0)}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
	if s.Len() != 0 {
		t.Errorf("expected no timers left, got %d", s.Len())
	}
}

func TestCancelAndRead(t *testing.T) {
	s, c, d := newService()
	ref := term.LocalReference{ID: 9}
	if err := s.Start(ref, clock.Millis(500), dest, term.Intern("x"), true); err != nil {
		t.Fatal(err)
	}

	c.Advance(200 * time.Millisecond)
	left, ok := s.Read(ref)
	if !ok || clock.ToMillis(left) != 300 {
		t.Errorf("expected 300ms left, got %d (found=%v)", clock.ToMillis(left), ok)
	}

	left, ok = s.Cancel(ref)
	if !ok || clock.ToMillis(left) != 300 {
		t.Errorf("expected cancel to report 300ms, got %d (found=%v)", clock.ToMillis(left), ok)
	}
	if _, ok := s.Cancel(ref); ok {
		t.Error("expected second cancel to find nothing")
	}
	if _, ok := s.Read(ref); ok {
		t.Error("expected read after cancel to find nothing")
	}

	s.ProcessDue(c.Advance(time.Second))
	if len(d.all()) != 0 {
		t.Error("cancelled timer must not fire")
	}
	if _, cancelled := s.Stats(); cancelled != 1 {
		t.Errorf("expected cancelled count 1, got %d", cancelled)
	}
}

func TestReadAfterFireIsNotFound(t *testing.T) {
	s, c, _ := newService()
	ref := term.LocalReference{ID: 3}
	s.Start(ref, clock.Millis(1), dest, term.NIL, true)
	s.ProcessDue(c.Advance(time.Millisecond))
	if _, ok := s.Read(ref); ok {
		t.Error("expected a fired timer to be gone")
	}
	if _, ok := s.Cancel(ref); ok {
		t.Error("expected cancel of a fired timer to find nothing")
	}
}

func TestDuplicateReference(t *testing.T) {
	s, _, _ := newService()
	ref := term.LocalReference{ID: 1}
	if err := s.Start(ref, 0, dest, term.NIL, true); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ref, 0, dest, term.NIL, true); err == nil {
		t.Error("expected an error for a reused reference")
	}
}

func TestMessageIsCopiedAtStart(t *testing.T) {
	s, c, d := newService()
	owner := heap.New(0)
	msg, _ := owner.List(term.SmallInteger(1), term.SmallInteger(2))
	s.Start(term.LocalReference{ID: 1}, 0, dest, msg, false)
	owner.Release()

	s.ProcessDue(c.Nanos())
	got := d.all()
	if len(got) != 1 || !term.ExactEqual(got[0].msg, msg) {
		t.Fatalf("expected the copied list, got %v", got)
	}
	if got[0].msg == msg {
		t.Error("expected the timer to hold its own copy")
	}
}

func TestCancelFor(t *testing.T) {
	s, c, d := newService()
	other := term.LocalPid{Number: 6}
	s.Start(term.LocalReference{ID: 1}, 0, dest, term.NIL, true)
	s.Start(term.LocalReference{ID: 2}, 0, other, term.NIL, true)
	s.Start(term.LocalReference{ID: 3}, 0, dest, term.NIL, true)

	if n := s.CancelFor(dest); n != 2 {
		t.Errorf("expected 2 cancelled, got %d", n)
	}
	s.ProcessDue(c.Nanos())
	got := d.all()
	if len(got) != 1 || got[0].dest != other {
		t.Errorf("expected only the timer for %s to fire, got %v", other.Inspect(), got)
	}
}

func TestConcurrentCancelAndFire(t *testing.T) {
	s, c, d := newService()
	const n = 200
	for i := 1; i <= n; i++ {
		s.Start(term.LocalReference{ID: uint64(i)}, clock.Millis(1), dest, term.SmallInteger(i), false)
	}
	c.Advance(time.Millisecond)

	var cancelled sync.Map
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.ProcessDue(c.Nanos())
	}()
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			if _, ok := s.Cancel(term.LocalReference{ID: uint64(i)}); ok {
				cancelled.Store(i, true)
			}
		}
	}()
	wg.Wait()

	fired := 0
	for _, dl := range d.all() {
		i := int(dl.msg.(term.SmallInteger))
		if _, ok := cancelled.Load(i); ok {
			t.Errorf("timer %d both fired and was cancelled", i)
		}
		fired++
	}
	count := 0
	cancelled.Range(func(any, any) bool { count++; return true })
	if fired+count != n {
		t.Errorf("expected every timer to fire or cancel exactly once: fired=%d cancelled=%d", fired, count)
	}
}

func TestRecorderSeesLifecycle(t *testing.T) {
	s, c, _ := newService()
	rec := &memoryRecorder{}
	s.SetRecorder(rec, "incarnation-1")

	s.Start(term.LocalReference{ID: 1}, clock.Millis(5), dest, term.Intern("a"), true)
	s.Start(term.LocalReference{ID: 2}, clock.Millis(5), dest, term.Intern("b"), true)
	s.Cancel(term.LocalReference{ID: 2})
	s.ProcessDue(c.Advance(time.Second))

	want := []journal.Kind{journal.TimerStarted, journal.TimerStarted, journal.TimerCancelled, journal.TimerFired}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(rec.events))
	}
	for i, k := range want {
		if rec.events[i].Kind != k {
			t.Errorf("event %d: expected %s, got %s", i, k, rec.events[i].Kind)
		}
		if rec.events[i].Incarnation != "incarnation-1" || len(rec.events[i].Payload) == 0 {
			t.Errorf("event %d missing incarnation or payload: %+v", i, rec.events[i])
		}
	}
}
