package compositor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/wlpanel/internal/toplevel"
	"github.com/jmylchreest/wlpanel/internal/uiloop"
)

// Bridge connects the UI thread to the compositor worker. The worker is
// started by the first Subscribe call; every later call returns the same
// subscription.
type Bridge struct {
	backend Backend
	policy  toplevel.ViolationPolicy
	logger  *slog.Logger

	mu       sync.Mutex
	sub      *Subscription
	commands *Mailbox[Command]
}

// NewBridge creates a bridge for backend. Nothing runs until Subscribe.
func NewBridge(backend Backend, policy toplevel.ViolationPolicy, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		backend: backend,
		policy:  policy,
		logger:  logger,
	}
}

// Backend returns the backend the bridge was created with.
func (b *Bridge) Backend() Backend {
	return b.backend
}

// Subscribe starts the worker on first use and delivers every message to
// handle on the scheduler's thread, one message per scheduler turn. The
// first message is always Init and the last is Finished.
func (b *Bridge) Subscribe(ctx context.Context, sched uiloop.Scheduler, handle func(Message)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		b.logger.Debug("compositor subscription already running")
		return b.sub
	}

	b.commands = NewMailbox[Command]()
	updates := NewMailbox[Message]()
	worker := NewWorker(b.backend, b.policy, b.commands, updates, b.logger)

	b.sub = &Subscription{
		updates: updates,
		worker:  worker,
		sched:   sched,
		handle:  handle,
		done:    make(chan struct{}),
		logger:  b.logger,
	}

	go worker.Run(ctx)
	go b.sub.run(ctx)

	return b.sub
}

// Shutdown stops accepting commands, which makes the worker exit. The
// subscription then delivers Finished.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.commands != nil {
		b.commands.Close()
	}
}

type subscriptionState int

const (
	stateWaiting subscriptionState = iota
	stateFinished
)

// Subscription forwards worker messages to the UI thread.
type Subscription struct {
	updates *Mailbox[Message]
	worker  *Worker
	sched   uiloop.Scheduler
	handle  func(Message)
	done    chan struct{}
	logger  *slog.Logger

	mu    sync.Mutex
	state subscriptionState
}

// Done is closed when the subscription goroutine returns, which happens only
// after its context is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Finished reports whether Finished has been delivered.
func (s *Subscription) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateFinished
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)

	for {
		msg, ok := s.updates.Recv(ctx)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			s.state = stateFinished
			s.mu.Unlock()
			s.deliver(ctx, Finished{Err: s.worker.Err()})
			<-ctx.Done()
			return
		}
		if !s.deliver(ctx, msg) {
			return
		}
	}
}

// deliver posts msg and waits for the UI thread to handle it.
func (s *Subscription) deliver(ctx context.Context, msg Message) bool {
	handled := make(chan struct{})
	s.sched.Post(func() {
		defer close(handled)
		s.handle(msg)
	})
	select {
	case <-handled:
		return true
	case <-ctx.Done():
		return false
	}
}
