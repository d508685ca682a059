// Package journal records timer and message lifecycle events in a SQL
// database. Writes are queued and performed by a single writer goroutine;
// callers get a future for the row id.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ember/internal/logger"
	"ember/internal/util/future"
)

var log = logger.Subsystem("journal", logger.INFO)

var (
	// ErrClosed is returned for writes to a closed journal.
	ErrClosed = errors.New("journal: closed")
	// ErrQueueFull is returned when the writer has fallen behind. The event
	// is dropped rather than blocking the caller.
	ErrQueueFull = errors.New("journal: queue full")
)

type Kind string

const (
	TimerStarted   Kind = "timer_started"
	TimerCancelled Kind = "timer_cancelled"
	TimerFired     Kind = "timer_fired"
	MessageSent    Kind = "message_sent"
)

type Event struct {
	ID          int64
	Kind        Kind
	Incarnation string
	Reference   uint64
	Pid         string
	Monotonic   int64
	Payload     []byte
	RecordedAt  time.Time
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	Kind      Kind
	Reference uint64
	AfterID   int64
	Limit     int
}

// Recorder accepts lifecycle events.
type Recorder interface {
	Record(ev Event) *future.Future[int64]
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(Event) *future.Future[int64] {
	return future.FromValue[int64](0)
}

type job struct {
	ev       Event
	complete func(int64, error)
}

type Journal struct {
	db      *sql.DB
	dialect dialect

	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}

	dropped atomic.Uint64
}

const queueSize = 1024

// Open connects to the database named by driver and dsn and creates the
// events table if needed. Supported drivers are sqlite3 and mysql.
func Open(ctx context.Context, driver, dsn string) (*Journal, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("journal: unsupported driver %q", driver)
	}
	db, err := d.open(dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: connect %s: %w", driver, err)
	}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: create schema: %w", err)
		}
	}

	j := &Journal{
		db:      db,
		dialect: d,
		queue:   make(chan job, queueSize),
		done:    make(chan struct{}),
	}
	go j.writer()
	log.Infof("journal open on %s", driver)
	return j, nil
}

// Record queues ev for writing and never blocks. The future completes with
// the new row id, or with ErrQueueFull if the writer is behind.
func (j *Journal) Record(ev Event) *future.Future[int64] {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return future.FromError[int64](ErrClosed)
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now()
	}
	f, complete := future.Pending[int64]()
	select {
	case j.queue <- job{ev: ev, complete: complete}:
	default:
		if j.dropped.Add(1)%queueSize == 1 {
			log.Warnf("writer is behind, %d events dropped so far", j.dropped.Load())
		}
		complete(0, ErrQueueFull)
	}
	return f
}

// Dropped is the number of events discarded because the queue was full.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// writer drains the queue, writing whatever is pending in one transaction.
func (j *Journal) writer() {
	defer close(j.done)
	for first := range j.queue {
		batch := []job{first}
	drain:
		for len(batch) < queueSize {
			select {
			case next, ok := <-j.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		j.write(batch)
	}
}

func (j *Journal) write(batch []job) {
	fail := func(err error) {
		log.Errorf("failed to write %d events: %v", len(batch), err)
		for _, b := range batch {
			b.complete(0, err)
		}
	}

	tx, err := j.db.Begin()
	if err != nil {
		fail(err)
		return
	}
	stmt, err := tx.Prepare(j.dialect.insert)
	if err != nil {
		tx.Rollback()
		fail(err)
		return
	}
	defer stmt.Close()

	ids := make([]int64, len(batch))
	for i, b := range batch {
		ev := b.ev
		result, err := stmt.Exec(string(ev.Kind), ev.Incarnation, int64(ev.Reference), ev.Pid, ev.Monotonic, ev.Payload, ev.RecordedAt.UnixNano())
		if err != nil {
			tx.Rollback()
			fail(err)
			return
		}
		ids[i], _ = result.LastInsertId()
	}
	if err := tx.Commit(); err != nil {
		fail(err)
		return
	}
	for i, b := range batch {
		b.complete(ids[i], nil)
	}
}

// Events returns the events matching filter in the order they were written.
func (j *Journal) Events(ctx context.Context, filter Filter) ([]Event, error) {
	var where []string
	var args []any
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Reference != 0 {
		where = append(where, "reference = ?")
		args = append(args, int64(filter.Reference))
	}
	if filter.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, filter.AfterID)
	}

	query := "SELECT id, kind, incarnation, reference, pid, monotonic, payload, recorded_at FROM ember_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var kind string
		var ref, recorded int64
		if err := rows.Scan(&ev.ID, &kind, &ev.Incarnation, &ref, &ev.Pid, &ev.Monotonic, &ev.Payload, &recorded); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		ev.Kind = Kind(kind)
		ev.Reference = uint64(ref)
		ev.RecordedAt = time.Unix(0, recorded)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close waits for queued events to be written and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	return j.db.Close()
}
