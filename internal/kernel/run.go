package kernel

import (
	"context"
	"sort"
	"time"

	"ember/internal/term"
)

// StatusInterval is how often Run logs a status line.
const StatusInterval = 30 * time.Second

// Tick fires every timer that is due now and returns how many fired.
func (k *Kernel) Tick() int {
	return k.Timers.ProcessDue(k.Clock.Nanos())
}

// Run calls Tick at the configured interval until ctx is done.
func (k *Kernel) Run(ctx context.Context) error {
	interval := k.Config.Timer.TickInterval.Std()
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	status := time.NewTicker(StatusInterval)
	defer status.Stop()

	log.Infof("tick driver running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			k.Tick()
			printStatus(k)
			return ctx.Err()
		case <-ticker.C:
			k.Tick()
		case <-status.C:
			printStatus(k)
		}
	}
}

func printStatus(k *Kernel) {
	k.Mu.RLock()
	defer k.Mu.RUnlock()
	fired, cancelled := k.Timers.Stats()
	log.Infof("Processes=%d Timers=%d fired=%d cancelled=%d sent=%d dropped=%d",
		len(k.Processes), k.Timers.Len(), fired, cancelled, k.Sent.Load(), k.Dropped.Load())
	var pids []term.LocalPid
	for pid := range k.Processes {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return term.Compare(pids[i], pids[j]) < 0 })
	for _, pid := range pids {
		p := k.Processes[pid]
		st := p.Heap().Stats()
		log.Debugf("  - Pid=%-10s mailbox=%3d received=%5d heap(used=%d fragments=%d)",
			pid.Inspect(), p.Mailbox.Len(), p.Mailbox.Received(), st.Used, st.FragmentWords)
	}
}
