package bif

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"ember/internal/clock"
	"ember/internal/config"
	"ember/internal/kernel"
	"ember/internal/process"
	"ember/internal/term"
)

func setup(t *testing.T) (*kernel.Kernel, *process.Process, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(0)
	cfg := config.Default()
	cfg.Node.Name = "bif@localhost"
	k := kernel.NewKernel(cfg, c)
	return k, k.Spawn(), c
}

func atom(s string) term.Atom { return term.Intern(s) }

func tuple(elems ...term.Term) *term.Tuple {
	return &term.Tuple{Elements: elems}
}

func list(t *testing.T, p *process.Process, elems ...term.Term) term.Term {
	t.Helper()
	l, err := p.Heap().List(elems...)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func expectException(t *testing.T, err error, reason term.Atom) {
	t.Helper()
	var ex *Exception
	if !errors.As(err, &ex) {
		t.Fatalf("expected an exception, got %v", err)
	}
	if ex.Class != term.Error || ex.Reason != reason {
		t.Errorf("expected error:%s, got %s", reason.Name(), ex.Error())
	}
	want := term.ErrBadarg
	if reason == term.Badarith {
		want = term.ErrBadarith
	}
	if !errors.Is(err, want) {
		t.Errorf("expected %v to match %v", err, want)
	}
}

func expectTerm(t *testing.T, got term.Term, err error, want term.Term) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected %s, got error %v", want.Inspect(), err)
	}
	if !term.ExactEqual(got, want) {
		t.Errorf("expected %s, got %s", want.Inspect(), got.Inspect())
	}
}

func receive(t *testing.T, p *process.Process) term.Term {
	t.Helper()
	msg, ok := p.Mailbox.Receive()
	if !ok {
		t.Fatal("expected a message")
	}
	return msg
}

func TestArithmetic(t *testing.T) {
	_, p, _ := setup(t)
	overflow := new(big.Int).Add(big.NewInt(term.MaxSmallInteger), big.NewInt(1))

	got, err := Add(p, term.SmallInteger(1), term.SmallInteger(2))
	expectTerm(t, got, err, term.SmallInteger(3))

	got, err = Add(p, term.SmallInteger(term.MaxSmallInteger), term.SmallInteger(1))
	expectTerm(t, got, err, &term.BigInteger{Value: overflow})

	got, err = Sub(p, got, term.SmallInteger(1))
	expectTerm(t, got, err, term.SmallInteger(term.MaxSmallInteger))

	got, err = Mul(p, term.SmallInteger(6), term.SmallInteger(7))
	expectTerm(t, got, err, term.SmallInteger(42))

	_, err = Add(p, atom("a"), term.SmallInteger(1))
	expectException(t, err, term.Badarith)

	_, err = Bsr(p, term.SmallInteger(1), atom("a"))
	expectException(t, err, term.Badarith)
}

func TestBsr(t *testing.T) {
	_, p, _ := setup(t)
	tests := []struct {
		name           string
		integer, shift term.Term
		want           term.Term
	}{
		{"small", term.SmallInteger(16), term.SmallInteger(2), term.SmallInteger(4)},
		{"negative shift is left", term.SmallInteger(1), term.SmallInteger(-3), term.SmallInteger(8)},
		{"past width", term.SmallInteger(7), term.SmallInteger(64), term.SmallInteger(0)},
		{"negative past width", term.SmallInteger(-7), term.SmallInteger(64), term.SmallInteger(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bsr(p, tt.integer, tt.shift)
			expectTerm(t, got, err, tt.want)
		})
	}
}

func TestBitwise(t *testing.T) {
	_, p, _ := setup(t)
	got, err := Band(p, term.SmallInteger(12), term.SmallInteger(10))
	expectTerm(t, got, err, term.SmallInteger(8))
	got, err = Bor(p, term.SmallInteger(12), term.SmallInteger(10))
	expectTerm(t, got, err, term.SmallInteger(14))
	got, err = Bxor(p, term.SmallInteger(12), term.SmallInteger(10))
	expectTerm(t, got, err, term.SmallInteger(6))
	got, err = Bsl(p, term.SmallInteger(1), term.SmallInteger(4))
	expectTerm(t, got, err, term.SmallInteger(16))
	_, err = Band(p, &term.Float{Value: 1}, term.SmallInteger(1))
	expectException(t, err, term.Badarith)
}

func TestOrdering(t *testing.T) {
	one, oneFloat := term.SmallInteger(1), &term.Float{Value: 1}

	if IsLessThan(one, atom("a")) != term.True {
		t.Error("expected a number to sort before an atom")
	}
	if IsLessThan(tuple(), term.NIL) != term.True {
		t.Error("expected a tuple to sort before a list")
	}
	if IsLessThan(one, oneFloat) != term.False {
		t.Error("expected 1 < 1.0 to be false")
	}

	if got := Min(one, oneFloat); got != term.Term(one) {
		t.Errorf("expected min to keep its first argument on a tie, got %s", got.Inspect())
	}
	if got := Max(oneFloat, one); got != term.Term(oneFloat) {
		t.Errorf("expected max to keep its first argument on a tie, got %s", got.Inspect())
	}
	if got := Max(one, atom("a")); got != term.Term(atom("a")) {
		t.Errorf("expected the atom to be larger, got %s", got.Inspect())
	}
	if got := Min(term.NIL, one); got != term.Term(one) {
		t.Errorf("expected the number to be smaller, got %s", got.Inspect())
	}
}

func TestTupleElements(t *testing.T) {
	_, p, _ := setup(t)
	abc := tuple(atom("a"), atom("b"), atom("c"))
	x := atom("x")

	got, err := InsertElement(p, term.SmallInteger(4), abc, x)
	expectTerm(t, got, err, tuple(atom("a"), atom("b"), atom("c"), x))

	got, err = InsertElement(p, term.SmallInteger(1), abc, x)
	expectTerm(t, got, err, tuple(x, atom("a"), atom("b"), atom("c")))

	got, err = SetElement(p, term.SmallInteger(2), abc, x)
	expectTerm(t, got, err, tuple(atom("a"), x, atom("c")))

	got, err = DeleteElement(p, term.SmallInteger(3), abc)
	expectTerm(t, got, err, tuple(atom("a"), atom("b")))

	got, err = Element(term.SmallInteger(2), abc)
	expectTerm(t, got, err, atom("b"))

	if abc.Len() != 3 {
		t.Errorf("expected the original tuple untouched, got %s", abc.Inspect())
	}

	bad := []struct {
		name string
		call func() (term.Term, error)
	}{
		{"insert past end", func() (term.Term, error) { return InsertElement(p, term.SmallInteger(5), abc, x) }},
		{"insert at zero", func() (term.Term, error) { return InsertElement(p, term.SmallInteger(0), abc, x) }},
		{"insert into list", func() (term.Term, error) { return InsertElement(p, term.SmallInteger(1), term.NIL, x) }},
		{"float index", func() (term.Term, error) { return InsertElement(p, &term.Float{Value: 1}, abc, x) }},
		{"element past end", func() (term.Term, error) { return Element(term.SmallInteger(4), abc) }},
		{"delete from empty", func() (term.Term, error) { return DeleteElement(p, term.SmallInteger(1), tuple()) }},
		{"set with atom index", func() (term.Term, error) { return SetElement(p, atom("one"), abc, x) }},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call()
			expectException(t, err, term.Badarg)
		})
	}
}

func TestShortCircuit(t *testing.T) {
	anything := tuple(atom("not"), atom("checked"))

	got, err := Orelse(term.False, anything)
	expectTerm(t, got, err, anything)
	got, err = Orelse(term.True, anything)
	expectTerm(t, got, err, term.True)
	_, err = Orelse(term.SmallInteger(1), term.True)
	expectException(t, err, term.Badarg)

	got, err = Andalso(term.True, anything)
	expectTerm(t, got, err, anything)
	got, err = Andalso(term.False, anything)
	expectTerm(t, got, err, term.False)
	_, err = Andalso(atom("maybe"), term.True)
	expectException(t, err, term.Badarg)
}

func TestStartTimerFiresOnce(t *testing.T) {
	k, p, c := setup(t)
	hi := list(t, p, term.SmallInteger('h'), term.SmallInteger('i'))

	ref, err := StartTimer3(k, p, term.SmallInteger(50), Self(p), hi)
	if err != nil {
		t.Fatal(err)
	}
	if !term.IsReference(ref) {
		t.Fatalf("expected a reference, got %s", ref.Inspect())
	}

	c.Advance(49 * time.Millisecond)
	if n := k.Tick(); n != 0 {
		t.Fatalf("expected nothing due after 49ms, %d fired", n)
	}
	c.Advance(2 * time.Millisecond)
	if n := k.Tick(); n != 1 {
		t.Fatalf("expected one timer due after 51ms, %d fired", n)
	}
	if n := k.Tick(); n != 0 {
		t.Fatalf("expected the timer to fire only once, %d fired", n)
	}

	got := receive(t, p)
	want := tuple(term.Timeout, ref, hi)
	if !term.ExactEqual(got, want) {
		t.Errorf("expected %s, got %s", want.Inspect(), got.Inspect())
	}
	if p.Mailbox.Len() != 0 {
		t.Errorf("expected exactly one message, %d more queued", p.Mailbox.Len())
	}

	got, err = CancelTimer1(k, p, ref)
	expectTerm(t, got, err, term.Ok)
}

func TestSendAfterToRegisteredName(t *testing.T) {
	k, p, c := setup(t)
	if err := k.Register(atom("clock"), p.Pid); err != nil {
		t.Fatal(err)
	}
	if _, err := SendAfter3(k, p, term.SmallInteger(0), atom("clock"), atom("tick")); err != nil {
		t.Fatal(err)
	}
	c.Advance(0)
	k.Tick()
	expectTerm(t, receive(t, p), nil, atom("tick"))
}

func TestStartTimerAbsolute(t *testing.T) {
	k, p, c := setup(t)
	c.Set(int64(100 * time.Millisecond))
	opts := list(t, p, tuple(atom("abs"), term.True))

	ref, err := StartTimer4(k, p, term.SmallInteger(120), p.Pid, atom("late"), opts)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadTimer1(k, p, ref)
	expectTerm(t, got, err, term.SmallInteger(20))

	c.Set(int64(120 * time.Millisecond))
	if n := k.Tick(); n != 1 {
		t.Fatalf("expected the absolute timer to fire, %d fired", n)
	}
}

func TestStartTimerRejects(t *testing.T) {
	k, p, _ := setup(t)
	remote := &term.ExternalPid{Node: term.Node{Name: atom("other@host")}, Number: 1}

	tests := []struct {
		name               string
		time, dest, option term.Term
	}{
		{"negative delay", term.SmallInteger(-1), p.Pid, term.NIL},
		{"float delay", &term.Float{Value: 1}, p.Pid, term.NIL},
		{"huge delay", term.SmallInteger(term.MaxSmallInteger), p.Pid, term.NIL},
		{"tuple destination", term.SmallInteger(1), tuple(), term.NIL},
		{"remote destination", term.SmallInteger(1), remote, term.NIL},
		{"unknown option", term.SmallInteger(1), p.Pid, list(t, p, tuple(atom("wibble"), term.True))},
		{"option not boolean", term.SmallInteger(1), p.Pid, list(t, p, tuple(atom("abs"), atom("yes")))},
		{"improper options", term.SmallInteger(1), p.Pid, atom("abs")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StartTimer4(k, p, tt.time, tt.dest, atom("m"), tt.option)
			expectException(t, err, term.Badarg)
		})
	}
	if k.Timers.Len() != 0 {
		t.Errorf("expected no timers scheduled, got %d", k.Timers.Len())
	}
}

func TestCancelTimer(t *testing.T) {
	k, p, c := setup(t)
	unknown := MakeRef(k)

	got, err := CancelTimer1(k, p, unknown)
	expectTerm(t, got, err, term.Ok)

	ref, err := StartTimer3(k, p, term.SmallInteger(50), p.Pid, atom("m"))
	if err != nil {
		t.Fatal(err)
	}
	c.Advance(20 * time.Millisecond)
	got, err = CancelTimer1(k, p, ref)
	expectTerm(t, got, err, term.SmallInteger(30))

	got, err = CancelTimer1(k, p, ref)
	expectTerm(t, got, err, term.Ok)

	c.Advance(time.Second)
	if n := k.Tick(); n != 0 {
		t.Errorf("expected a cancelled timer never to fire, %d fired", n)
	}

	_, err = CancelTimer1(k, p, atom("ref"))
	expectException(t, err, term.Badarg)
}

func TestCancelTimerOptions(t *testing.T) {
	k, p, _ := setup(t)
	asyncInfo := list(t, p, tuple(atom("async"), term.True), tuple(atom("info"), term.True))
	noInfo := list(t, p, tuple(atom("info"), term.False))

	ref, _ := StartTimer3(k, p, term.SmallInteger(50), p.Pid, atom("m"))
	got, err := CancelTimer2(k, p, ref, noInfo)
	expectTerm(t, got, err, term.Ok)
	if k.Timers.Len() != 0 {
		t.Error("expected the timer to be cancelled without info")
	}

	ref, _ = StartTimer3(k, p, term.SmallInteger(50), p.Pid, atom("m"))
	got, err = CancelTimer2(k, p, ref, asyncInfo)
	expectTerm(t, got, err, term.Ok)
	expectTerm(t, receive(t, p), nil, tuple(term.CancelTimer, ref, term.SmallInteger(50)))

	unknown := MakeRef(k)
	got, err = CancelTimer2(k, p, unknown, asyncInfo)
	expectTerm(t, got, err, term.Ok)
	expectTerm(t, receive(t, p), nil, tuple(term.CancelTimer, unknown, term.False))

	asyncOnly := list(t, p, tuple(atom("async"), term.True), tuple(atom("info"), term.False))
	got, err = CancelTimer2(k, p, unknown, asyncOnly)
	expectTerm(t, got, err, term.Ok)
	if p.Mailbox.Len() != 0 {
		t.Error("expected no reply without info")
	}

	_, err = CancelTimer2(k, p, unknown, list(t, p, tuple(atom("abs"), term.True)))
	expectException(t, err, term.Badarg)
}

func TestReadTimer(t *testing.T) {
	k, p, c := setup(t)

	got, err := ReadTimer1(k, p, MakeRef(k))
	expectTerm(t, got, err, term.False)

	ref, _ := SendAfter3(k, p, term.SmallInteger(50), p.Pid, atom("m"))
	c.Advance(10*time.Millisecond + 1)
	got, err = ReadTimer1(k, p, ref)
	expectTerm(t, got, err, term.SmallInteger(40))

	async := list(t, p, tuple(atom("async"), term.True))
	got, err = ReadTimer2(k, p, ref, async)
	expectTerm(t, got, err, term.Ok)
	expectTerm(t, receive(t, p), nil, tuple(term.ReadTimer, ref, term.SmallInteger(40)))

	c.Advance(time.Second)
	k.Tick()
	expectTerm(t, receive(t, p), nil, atom("m"))

	got, err = ReadTimer2(k, p, ref, async)
	expectTerm(t, got, err, term.Ok)
	expectTerm(t, receive(t, p), nil, tuple(term.ReadTimer, ref, term.False))
}

func TestMonotonicTime(t *testing.T) {
	k, p, c := setup(t)
	c.Set(int64(1500 * time.Millisecond))

	got, err := MonotonicTime0(k, p)
	expectTerm(t, got, err, term.SmallInteger(1500000000))

	tests := []struct {
		unit term.Term
		want term.Term
	}{
		{atom("second"), term.SmallInteger(1)},
		{atom("millisecond"), term.SmallInteger(1500)},
		{atom("microsecond"), term.SmallInteger(1500000)},
		{atom("native"), term.SmallInteger(1500000000)},
		{term.SmallInteger(10), term.SmallInteger(15)},
	}
	for _, tt := range tests {
		t.Run(tt.unit.Inspect(), func(t *testing.T) {
			got, err := MonotonicTime1(k, p, tt.unit)
			expectTerm(t, got, err, tt.want)
		})
	}

	for _, bad := range []term.Term{atom("fortnight"), term.SmallInteger(0), term.NIL} {
		_, err := MonotonicTime1(k, p, bad)
		expectException(t, err, term.Badarg)
	}

	prev, _ := MonotonicTime0(k, p)
	c.Advance(time.Millisecond)
	next, _ := MonotonicTime0(k, p)
	if term.IsLessThan(next, prev) {
		t.Errorf("expected monotonic time not to go backwards: %s then %s", prev.Inspect(), next.Inspect())
	}
}

func TestSendSelfMakeRef(t *testing.T) {
	k, p, _ := setup(t)
	other := k.Spawn()

	msg := list(t, p, atom("hello"))
	got, err := Send(k, p, other.Pid, msg)
	expectTerm(t, got, err, msg)
	expectTerm(t, receive(t, other), nil, msg)
	if p.MessagesOut.Load() != 1 {
		t.Errorf("expected one message counted out, got %d", p.MessagesOut.Load())
	}

	_, err = Send(k, p, atom("nobody"), msg)
	expectException(t, err, term.Badarg)

	if Self(p) != term.Term(p.Pid) {
		t.Errorf("expected self to be %s", p.Pid.Inspect())
	}
	if term.ExactEqual(MakeRef(k), MakeRef(k)) {
		t.Error("expected fresh references")
	}
}

func TestInsertThenDeleteRoundTrips(t *testing.T) {
	_, p, _ := setup(t)
	tuples := []*term.Tuple{
		tuple(),
		tuple(atom("a")),
		tuple(term.SmallInteger(1), &term.Float{Value: 2}, term.NIL, tuple(atom("x"))),
	}
	for _, tup := range tuples {
		for i := 1; i <= tup.Len()+1; i++ {
			idx := term.SmallInteger(i)
			inserted, err := InsertElement(p, idx, tup, atom("new"))
			if err != nil {
				t.Fatalf("insert at %d into %s: %v", i, tup.Inspect(), err)
			}
			back, err := DeleteElement(p, idx, inserted)
			expectTerm(t, back, err, tup)
		}
	}
}
