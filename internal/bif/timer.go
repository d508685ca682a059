package bif

import (
	"ember/internal/clock"
	"ember/internal/heap"
	"ember/internal/kernel"
	"ember/internal/process"
	"ember/internal/term"
)

// Timeouts past this many milliseconds would overflow native deadlines.
const maxTimeout = 1 << 42

var (
	atomAbs   = term.Intern("abs")
	atomAsync = term.Intern("async")
	atomInfo  = term.Intern("info")
)

// StartTimer3 implements erlang:start_timer/3. The destination receives
// {timeout, Ref, Msg} after time milliseconds.
func StartTimer3(k *kernel.Kernel, p *process.Process, time, dest, msg term.Term) (term.Term, error) {
	return startTimer(k, time, dest, msg, term.NIL, true)
}

// StartTimer4 is StartTimer3 with options [{abs, Bool}].
func StartTimer4(k *kernel.Kernel, p *process.Process, time, dest, msg, options term.Term) (term.Term, error) {
	return startTimer(k, time, dest, msg, options, true)
}

// SendAfter3 implements erlang:send_after/3. The destination receives Msg
// itself.
func SendAfter3(k *kernel.Kernel, p *process.Process, time, dest, msg term.Term) (term.Term, error) {
	return startTimer(k, time, dest, msg, term.NIL, false)
}

func SendAfter4(k *kernel.Kernel, p *process.Process, time, dest, msg, options term.Term) (term.Term, error) {
	return startTimer(k, time, dest, msg, options, false)
}

func startTimer(k *kernel.Kernel, time, dest, msg, options term.Term, wrap bool) (term.Term, error) {
	var abs, async bool
	if err := parseOptions(options, map[term.Atom]*bool{atomAbs: &abs, atomAsync: &async}); err != nil {
		return nil, err
	}
	ms, ok := time.(term.SmallInteger)
	if !ok || ms > maxTimeout || ms < -maxTimeout || (!abs && ms < 0) {
		return nil, badarg()
	}
	target, err := timerDestination(dest)
	if err != nil {
		return nil, err
	}

	var deadline int64
	if abs {
		deadline = clock.Millis(int64(ms))
	} else {
		deadline = k.Timers.Now() + clock.Millis(int64(ms))
	}
	ref := k.NextReference()
	if err := k.Timers.Start(ref, deadline, target, msg, wrap); err != nil {
		return nil, raise(err)
	}
	return ref, nil
}

// timerDestination accepts a local pid or an atom. Names are resolved when
// the timer fires.
func timerDestination(dest term.Term) (term.Term, error) {
	switch v := dest.(type) {
	case term.LocalPid, term.Atom:
		return v, nil
	case *term.ExternalPid:
		if l, ok := v.Local(); ok {
			return l, nil
		}
	}
	return nil, badarg()
}

func timerReference(ref term.Term) (term.LocalReference, error) {
	switch v := ref.(type) {
	case term.LocalReference:
		return v, nil
	case *term.ExternalReference:
		if v.Node.IsLocal() {
			return term.LocalReference{ID: v.ID}, nil
		}
	}
	return term.LocalReference{}, badarg()
}

// CancelTimer1 implements erlang:cancel_timer/1: the remaining milliseconds,
// or ok when the timer is unknown, fired or already cancelled.
func CancelTimer1(k *kernel.Kernel, p *process.Process, ref term.Term) (term.Term, error) {
	return cancelTimer(k, p, ref, false, true)
}

// CancelTimer2 takes [{async, Bool}, {info, Bool}]. With async the call
// returns ok and, when info is set, the result arrives as
// {cancel_timer, Ref, Result} with Result false for an unknown timer.
func CancelTimer2(k *kernel.Kernel, p *process.Process, ref, options term.Term) (term.Term, error) {
	async, info := false, true
	if err := parseOptions(options, map[term.Atom]*bool{atomAsync: &async, atomInfo: &info}); err != nil {
		return nil, err
	}
	return cancelTimer(k, p, ref, async, info)
}

func cancelTimer(k *kernel.Kernel, p *process.Process, ref term.Term, async, info bool) (term.Term, error) {
	r, err := timerReference(ref)
	if err != nil {
		return nil, err
	}
	left, found := k.Timers.Cancel(r)
	switch {
	case async && info:
		reply(k, p, term.CancelTimer, ref, left, found)
		return term.Ok, nil
	case async, !info, !found:
		return term.Ok, nil
	}
	return result(p.Heap().Integer(clock.ToMillis(left)))
}

// ReadTimer1 implements erlang:read_timer/1: the remaining milliseconds or
// false.
func ReadTimer1(k *kernel.Kernel, p *process.Process, ref term.Term) (term.Term, error) {
	return readTimer(k, p, ref, false)
}

// ReadTimer2 takes [{async, Bool}]. With async the call returns ok and the
// result arrives as {read_timer, Ref, Result}.
func ReadTimer2(k *kernel.Kernel, p *process.Process, ref, options term.Term) (term.Term, error) {
	var async bool
	if err := parseOptions(options, map[term.Atom]*bool{atomAsync: &async}); err != nil {
		return nil, err
	}
	return readTimer(k, p, ref, async)
}

func readTimer(k *kernel.Kernel, p *process.Process, ref term.Term, async bool) (term.Term, error) {
	r, err := timerReference(ref)
	if err != nil {
		return nil, err
	}
	left, found := k.Timers.Read(r)
	if async {
		reply(k, p, term.ReadTimer, ref, left, found)
		return term.Ok, nil
	}
	if !found {
		return term.False, nil
	}
	return result(p.Heap().Integer(clock.ToMillis(left)))
}

// reply sends {tag, Ref, Result} to the caller, built on its own fragment.
func reply(k *kernel.Kernel, p *process.Process, tag term.Atom, ref term.Term, left int64, found bool) {
	frag := heap.NewFragment()
	var res term.Term = term.False
	if found {
		n, err := frag.Integer(clock.ToMillis(left))
		if err != nil {
			return
		}
		res = n
	}
	r, err := frag.Copy(ref)
	if err != nil {
		return
	}
	msg, err := frag.TupleFromSlice([]term.Term{tag, r, res})
	if err != nil {
		return
	}
	k.DeliverTo(p.Pid, msg, frag)
}

// MonotonicTime0 implements erlang:monotonic_time/0 in native units.
func MonotonicTime0(k *kernel.Kernel, p *process.Process) (term.Term, error) {
	return result(p.Heap().BigInteger(clock.Native.Convert(k.Clock.Nanos())))
}

// MonotonicTime1 takes a unit name or a positive parts-per-second integer.
func MonotonicTime1(k *kernel.Kernel, p *process.Process, unit term.Term) (term.Term, error) {
	u, err := timeUnit(unit)
	if err != nil {
		return nil, err
	}
	return result(p.Heap().BigInteger(u.Convert(k.Clock.Nanos())))
}

func timeUnit(t term.Term) (clock.Unit, error) {
	var (
		u   clock.Unit
		err error
	)
	switch v := t.(type) {
	case term.Atom:
		u, err = clock.ParseUnit(v.Name())
	case term.SmallInteger:
		u, err = clock.UnitFromParts(int64(v))
	default:
		return 0, badarg()
	}
	if err != nil {
		return 0, badarg()
	}
	return u, nil
}
