// Package clock is the runtime's monotonic time source.
package clock

import (
	"sync"
	"time"

	"github.com/aristanetworks/goarista/monotime"
)

// Source reports monotonic time in native units (nanoseconds). Readings
// never decrease.
type Source interface {
	Nanos() int64
}

// System reads the host monotonic clock relative to when it was created.
type System struct {
	anchor uint64
}

func NewSystem() *System {
	return &System{anchor: monotime.Now()}
}

func (s *System) Nanos() int64 {
	return int64(monotime.Now() - s.anchor)
}

// Manual is a clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now int64
}

func NewManual(start int64) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Nanos() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (m *Manual) Advance(d time.Duration) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now += int64(d)
	}
	return m.now
}

// Set moves the clock to t if t is later than the current reading.
func (m *Manual) Set(t int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t > m.now {
		m.now = t
	}
}

// Millis converts a millisecond count to native units.
func Millis(ms int64) int64 {
	return ms * int64(time.Millisecond)
}

// ToMillis converts native units to whole milliseconds, rounding up so a
// timer that has not fired never reports zero remaining.
func ToMillis(ns int64) int64 {
	if ns <= 0 {
		return 0
	}
	return (ns + int64(time.Millisecond) - 1) / int64(time.Millisecond)
}
