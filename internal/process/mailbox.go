package process

import (
	"sync"

	"ember/internal/term"
)

// Mailbox is the ordered message queue of a process. Any goroutine may push;
// only the owning process takes messages out.
type Mailbox struct {
	mu       sync.Mutex
	messages []term.Term
	closed   bool
	received uint64
}

// Push appends msg. It reports false when the mailbox has been closed.
func (m *Mailbox) Push(msg term.Term) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.messages = append(m.messages, msg)
	m.received++
	return true
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Received is the number of messages ever pushed.
func (m *Mailbox) Received() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

// Peek returns the oldest message without removing it.
func (m *Mailbox) Peek() (term.Term, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil, false
	}
	return m.messages[0], true
}

// Receive removes and returns the oldest message.
func (m *Mailbox) Receive() (term.Term, bool) {
	return m.Remove(func(term.Term) bool { return true })
}

// Remove removes and returns the oldest message for which match is true.
// Messages before it keep their order.
func (m *Mailbox) Remove(match func(term.Term) bool) (term.Term, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if match(msg) {
			copy(m.messages[i:], m.messages[i+1:])
			m.messages[len(m.messages)-1] = nil
			m.messages = m.messages[:len(m.messages)-1]
			return msg, true
		}
	}
	return nil, false
}

// Contains reports whether a message equal to msg is queued.
func (m *Mailbox) Contains(msg term.Term) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, queued := range m.messages {
		if term.ExactEqual(queued, msg) {
			return true
		}
	}
	return false
}

// Messages returns a snapshot of the queue, oldest first.
func (m *Mailbox) Messages() []term.Term {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]term.Term, len(m.messages))
	copy(out, m.messages)
	return out
}

// Close drops queued messages and rejects further pushes.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.messages = nil
}
