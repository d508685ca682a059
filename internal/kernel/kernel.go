package kernel

// Ember node kernel
// -----------------
// The kernel owns everything that is node-wide: the process table, the
// registered-name index, pid and reference allocation, the timer service
// and the clock it runs on. It has no scheduler of its own; the host calls
// Tick (or Run) to fire due timers.

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"ember/internal/clock"
	"ember/internal/config"
	"ember/internal/journal"
	"ember/internal/logger"
	"ember/internal/process"
	"ember/internal/term"
	"ember/internal/timer"
)

var log = logger.Subsystem("kernel", logger.ERROR)

// ===== Kernel =====

type Kernel struct {
	Mu        sync.RWMutex
	NextPid   uint32
	Serial    uint32
	Processes map[term.LocalPid]*process.Process
	NameIdx   map[term.Atom]term.LocalPid // registered names

	Config      *config.Configuration
	Clock       clock.Source
	Timers      *timer.Service
	Incarnation uuid.UUID
	Node        term.Node

	nextRef  atomic.Uint64
	recorder journal.Recorder

	// simple accounting
	Sent    atomic.Uint64
	Dropped atomic.Uint64
}

// NewKernel boots a node named by cfg on the given clock and makes it the
// local node for identifiers.
func NewKernel(cfg *config.Configuration, src clock.Source) *Kernel {
	if cfg == nil {
		cfg = config.Default()
	}
	if src == nil {
		src = clock.NewSystem()
	}
	incarnation := uuid.New()
	k := &Kernel{
		Processes:   make(map[term.LocalPid]*process.Process),
		NameIdx:     make(map[term.Atom]term.LocalPid),
		Config:      cfg,
		Clock:       src,
		Incarnation: incarnation,
		recorder:    journal.Nop{},
	}
	k.Timers = timer.New(src, k)

	want := term.Node{
		Name:     term.Intern(cfg.Node.Name),
		Creation: binary.BigEndian.Uint32(incarnation[:4]),
	}
	k.Node = term.ClaimLocalNode(want)
	if k.Node.Name != want.Name {
		log.Warnf("node %s already runs in this process as %s", cfg.Node.Name, k.Node.Name.Name())
	}
	if !logger.EnvLevelSet() && cfg.Log.Level != "" {
		logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	}
	log.Infof("node %s incarnation %s", cfg.Node.Name, incarnation)
	return k
}

// SetRecorder journals timer and message events to rec.
func (k *Kernel) SetRecorder(rec journal.Recorder) {
	k.Mu.Lock()
	k.recorder = rec
	k.Mu.Unlock()
	k.Timers.SetRecorder(rec, k.Incarnation.String())
}

func (k *Kernel) getRecorder() journal.Recorder {
	k.Mu.RLock()
	defer k.Mu.RUnlock()
	return k.recorder
}

// Spawn creates a process with an empty mailbox and a fresh heap.
func (k *Kernel) Spawn() *process.Process {
	k.Mu.Lock()
	defer k.Mu.Unlock()
	k.NextPid++
	if k.NextPid == 0 {
		k.Serial++
		k.NextPid = 1
	}
	pid := term.LocalPid{Number: k.NextPid, Serial: k.Serial}
	p := process.New(pid, k.Config.Heap.InitialWords)
	k.Processes[pid] = p
	log.Debugf("spawned %s", pid.Inspect())
	return p
}

// Exit terminates the process named by pid: its registered names are
// dropped, timers addressed to it are cancelled and its heap is released.
func (k *Kernel) Exit(pid term.LocalPid, reason term.Term) bool {
	k.Mu.Lock()
	p, ok := k.Processes[pid]
	if ok {
		delete(k.Processes, pid)
		for name, owner := range k.NameIdx {
			if owner == pid {
				delete(k.NameIdx, name)
			}
		}
	}
	k.Mu.Unlock()
	if !ok {
		return false
	}

	cancelled := k.Timers.CancelFor(pid)
	p.Exit(reason)
	log.Debugf("exited %s (%s), %d timers cancelled", pid.Inspect(), reason.Inspect(), cancelled)
	return true
}

// Lookup finds a live local process by pid. External pids that name this
// node resolve to their local process.
func (k *Kernel) Lookup(pid term.Term) (*process.Process, bool) {
	var local term.LocalPid
	switch v := pid.(type) {
	case term.LocalPid:
		local = v
	case *term.ExternalPid:
		l, ok := v.Local()
		if !ok {
			return nil, false
		}
		local = l
	default:
		return nil, false
	}
	k.Mu.RLock()
	defer k.Mu.RUnlock()
	p, ok := k.Processes[local]
	if !ok || !p.Alive() {
		return nil, false
	}
	return p, true
}

// Register binds name to pid. It fails with badarg if the name is taken,
// is undefined, or the process does not exist.
func (k *Kernel) Register(name term.Atom, pid term.LocalPid) error {
	if name == term.Undefined {
		return term.ErrBadarg
	}
	k.Mu.Lock()
	defer k.Mu.Unlock()
	if _, taken := k.NameIdx[name]; taken {
		return term.ErrBadarg
	}
	if _, ok := k.Processes[pid]; !ok {
		return term.ErrBadarg
	}
	k.NameIdx[name] = pid
	return nil
}

func (k *Kernel) Unregister(name term.Atom) bool {
	k.Mu.Lock()
	defer k.Mu.Unlock()
	_, ok := k.NameIdx[name]
	delete(k.NameIdx, name)
	return ok
}

// Whereis resolves a registered name.
func (k *Kernel) Whereis(name term.Atom) (term.LocalPid, bool) {
	k.Mu.RLock()
	defer k.Mu.RUnlock()
	pid, ok := k.NameIdx[name]
	return pid, ok
}

// NextReference returns a reference that is unique for this incarnation.
func (k *Kernel) NextReference() term.LocalReference {
	return term.LocalReference{ID: k.nextRef.Add(1)}
}

// ProcessCount is the number of live processes.
func (k *Kernel) ProcessCount() int {
	k.Mu.RLock()
	defer k.Mu.RUnlock()
	return len(k.Processes)
}

func (k *Kernel) String() string {
	return fmt.Sprintf("kernel %s (%s)", k.Config.Node.Name, k.Incarnation)
}
