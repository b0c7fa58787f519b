// Package uiloop provides the single-threaded callback loop used in place of
// the GTK main loop when the panel runs headless.
package uiloop

import (
	"context"
	"sync"
)

// Scheduler runs callbacks on the UI thread, in the order they were posted.
type Scheduler interface {
	Post(fn func())
}

// Loop is a Scheduler backed by a goroutine that calls Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

// New returns an idle loop. Callbacks run once Run is called.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. Callbacks posted after Run returned are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.queue = append(l.queue, fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes callbacks until ctx is done. It must be called from one
// goroutine only; that goroutine is the UI thread.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
			if ctx.Err() != nil {
				return
			}
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			return
		}
	}
}

// Call runs fn on the scheduler's thread and waits for its result.
// It must not be called from the UI thread itself.
func Call[T any](ctx context.Context, s Scheduler, fn func() T) (T, error) {
	result := make(chan T, 1)
	s.Post(func() { result <- fn() })
	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
