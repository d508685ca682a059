package kernel

import (
	"ember/internal/codec"
	"ember/internal/heap"
	"ember/internal/journal"
	"ember/internal/term"
)

// Send copies msg onto the destination's heap and appends it to its
// mailbox. dest is a pid or a registered name. A name that is not
// registered is badarg; a pid that is dead or belongs to another node
// drops the message silently.
func (k *Kernel) Send(dest, msg term.Term) error {
	target, err := k.resolve(dest)
	if err != nil {
		return err
	}
	if target == nil {
		k.Dropped.Add(1)
		return nil
	}

	frag := heap.NewFragment()
	c, err := frag.Copy(msg)
	if err != nil {
		return err
	}
	k.deliver(target, c, frag)
	return nil
}

// DeliverTo delivers a message already built on frag. Unknown names and
// dead pids drop it.
func (k *Kernel) DeliverTo(dest, msg term.Term, frag *heap.Heap) {
	target, err := k.resolve(dest)
	if err != nil || target == nil {
		k.Dropped.Add(1)
		return
	}
	k.deliver(target, msg, frag)
}

// resolve maps dest to a pid. It returns nil without error when dest is a
// pid with no live local process.
func (k *Kernel) resolve(dest term.Term) (term.Term, error) {
	switch v := dest.(type) {
	case term.Atom:
		pid, ok := k.Whereis(v)
		if !ok {
			return nil, term.ErrBadarg
		}
		return pid, nil
	case term.LocalPid:
		return v, nil
	case *term.ExternalPid:
		if l, ok := v.Local(); ok {
			return l, nil
		}
		return nil, nil
	}
	return nil, term.ErrBadarg
}

func (k *Kernel) deliver(pid, msg term.Term, frag *heap.Heap) {
	p, ok := k.Lookup(pid)
	if !ok || !p.Deliver(msg, frag) {
		k.Dropped.Add(1)
		return
	}
	k.Sent.Add(1)

	rec := k.getRecorder()
	if _, nop := rec.(journal.Nop); nop {
		return
	}
	payload, err := codec.Encode(msg)
	if err != nil {
		log.Warnf("cannot encode message to %s: %v", pid.Inspect(), err)
	}
	rec.Record(journal.Event{
		Kind:        journal.MessageSent,
		Incarnation: k.Incarnation.String(),
		Pid:         pid.Inspect(),
		Monotonic:   k.Clock.Nanos(),
		Payload:     payload,
	})
}
