// Package process holds the per-process state of the runtime: identity,
// heap, mailbox and dictionary.
package process

import (
	"sync"
	"sync/atomic"

	"ember/internal/heap"
	"ember/internal/term"
)

type Status int32

const (
	Runnable Status = iota
	Exiting
	Exited
)

func (s Status) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Exiting:
		return "exiting"
	case Exited:
		return "exited"
	}
	return "unknown"
}

type Process struct {
	Pid     term.LocalPid
	Mailbox *Mailbox

	mu         sync.Mutex
	heap       *heap.Heap
	status     atomic.Int32
	exitReason term.Term
	dict       dictionary

	// simple accounting
	MessagesOut atomic.Uint64
}

func New(pid term.LocalPid, initialWords int) *Process {
	return &Process{
		Pid:     pid,
		Mailbox: &Mailbox{},
		heap:    heap.New(initialWords),
		dict:    make(dictionary),
	}
}

// Heap is the heap the process allocates its terms on.
func (p *Process) Heap() *heap.Heap {
	return p.heap
}

func (p *Process) Status() Status {
	return Status(p.status.Load())
}

func (p *Process) Alive() bool {
	return p.Status() == Runnable
}

// Deliver appends msg to the mailbox. msg must live on frag, which the
// process heap takes over; pass a nil frag for terms that need no storage.
// A process that has exited drops the message and reports false.
func (p *Process) Deliver(msg term.Term, frag *heap.Heap) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Alive() {
		return false
	}
	if err := p.heap.Attach(frag); err != nil {
		return false
	}
	return p.Mailbox.Push(msg)
}

// Exit marks the process exited, drops its mailbox and releases its heap.
// It reports false if the process had already exited.
func (p *Process) Exit(reason term.Term) bool {
	if !p.status.CompareAndSwap(int32(Runnable), int32(Exiting)) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exitReason = reason
	p.Mailbox.Close()
	p.heap.Release()
	p.dict = nil
	p.status.Store(int32(Exited))
	return true
}

// ExitReason is the reason given to Exit, or nil while the process runs.
func (p *Process) ExitReason() term.Term {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitReason
}
