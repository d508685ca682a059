package bif

import (
	"ember/internal/kernel"
	"ember/internal/process"
	"ember/internal/term"
)

// Send implements erlang:send/2 and returns msg.
func Send(k *kernel.Kernel, p *process.Process, dest, msg term.Term) (term.Term, error) {
	if err := k.Send(dest, msg); err != nil {
		return nil, raise(err)
	}
	p.MessagesOut.Add(1)
	return msg, nil
}

func Self(p *process.Process) term.Term {
	return p.Pid
}

// MakeRef implements erlang:make_ref/0.
func MakeRef(k *kernel.Kernel) term.Term {
	return k.NextReference()
}
