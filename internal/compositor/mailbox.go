package compositor

import (
	"context"
	"sync"
)

// Mailbox is an unbounded FIFO queue with a single consumer.
// Send never blocks; after Close it drops values and returns false.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	ready  chan struct{}
}

// NewMailbox returns an open, empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Send enqueues v. It reports false if the mailbox is closed.
func (m *Mailbox[T]) Send(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.items = append(m.items, v)
	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Close marks the end of the stream. Values already queued stay receivable.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ready)
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Ready is signalled after a Send and is closed by Close. A signal may be
// stale, so callers follow it with Drain.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}

// Drain removes and returns every queued value. done is true once the mailbox
// is closed and nothing is left after this call.
func (m *Mailbox[T]) Drain() (items []T, done bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items = m.items
	m.items = nil
	return items, m.closed
}

// Recv blocks until a value is available, the mailbox is closed and empty, or
// ctx is done. ok is false in the latter two cases.
func (m *Mailbox[T]) Recv(ctx context.Context) (v T, ok bool) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			v = m.items[0]
			var zero T
			m.items[0] = zero
			m.items = m.items[1:]
			m.mu.Unlock()
			return v, true
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return v, false
		}

		select {
		case <-m.ready:
		case <-ctx.Done():
			return v, false
		}
	}
}

// Len returns the number of queued values.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
