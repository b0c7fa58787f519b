package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// Worker owns the compositor session and the toplevel registry. It runs on
// its own goroutine, locked to an OS thread, until the command mailbox is
// closed or the session ends.
type Worker struct {
	backend  Backend
	policy   toplevel.ViolationPolicy
	logger   *slog.Logger
	commands *Mailbox[Command]
	updates  *Mailbox[Message]

	session  Session
	caps     Capabilities
	registry *toplevel.Registry
	launches map[ulid.ULID]LaunchWithToken

	mu  sync.Mutex
	err error
}

// NewWorker creates a worker. Messages are written to updates; commands are
// read from commands.
func NewWorker(backend Backend, policy toplevel.ViolationPolicy, commands *Mailbox[Command], updates *Mailbox[Message], logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		backend:  backend,
		policy:   policy,
		logger:   logger.With("backend", backend.Name()),
		commands: commands,
		updates:  updates,
		launches: make(map[ulid.ULID]LaunchWithToken),
	}
}

// Err returns the failure that stopped the worker, or nil after a clean stop.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Worker) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

// Run connects and dispatches until shutdown. The updates mailbox is always
// closed on return, after Init has been sent. The commands mailbox is closed
// too, so senders see the worker is gone.
func (w *Worker) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer w.updates.Close()
	defer w.commands.Close()

	w.updates.Send(Init{Commands: NewCommandSender(w.commands)})

	session, err := w.backend.Connect(ctx, w.logger)
	if err != nil {
		w.logger.Error("failed to connect to compositor", "error", err)
		w.setErr(fmt.Errorf("connect %s: %w", w.backend.Name(), err))
		return
	}
	w.session = session
	w.caps = session.Capabilities()
	w.logCapabilities()

	defer func() {
		if err := session.Disconnect(); err != nil {
			w.logger.Debug("disconnect failed", "error", err)
		}
	}()
	defer w.recoverViolation()

	w.registry = toplevel.NewRegistry(w.policy, func(u toplevel.Update) {
		w.updates.Send(Toplevel{Update: u})
	}, w.logger)

	w.loop(ctx)
}

func (w *Worker) loop(ctx context.Context) {
	events := w.session.Events()
	exit := false
	for !exit {
		select {
		case <-events.Ready():
			batch, done := events.Drain()
			for _, ev := range batch {
				w.handleEvent(ev)
			}
			if done {
				w.logger.Info("compositor connection closed")
				return
			}
		case <-w.commands.Ready():
			batch, done := w.commands.Drain()
			for _, cmd := range batch {
				w.handleCommand(cmd)
			}
			exit = done
		case <-ctx.Done():
			exit = true
		}
	}
	w.logger.Debug("worker stopping")
}

func (w *Worker) recoverViolation() {
	r := recover()
	if r == nil {
		return
	}
	var lerr *toplevel.LifecycleError
	err, ok := r.(error)
	if !ok || !errors.As(err, &lerr) {
		panic(r)
	}
	w.logger.Error("protocol violation, toplevel tracking stopped", "error", lerr)
	w.setErr(lerr)
}

func (w *Worker) handleEvent(ev Event) {
	switch e := ev.(type) {
	case ManagerEvent:
		w.registry.HandleManager(e.Event)
	case ToplevelEvent:
		_, closed := e.Event.(toplevel.Closed)
		release := closed && w.registry.Contains(e.Handle)
		w.registry.HandleEvent(e.Handle, e.Event)
		if release {
			w.release(e.Handle)
		}
	case OutputEvent:
		w.updates.Send(Output(e))
	case WorkspaceEvent:
		w.updates.Send(Workspaces{Active: e.Active})
	case TokenEvent:
		launch, ok := w.launches[e.RequestID]
		if !ok {
			w.logger.Debug("activation token for unknown request", "request", e.RequestID)
			return
		}
		delete(w.launches, e.RequestID)
		w.sendToken(launch, e.Token)
	}
}

func (w *Worker) release(h toplevel.Handle) {
	if r, ok := w.session.(Releaser); ok {
		r.Release(h)
	}
}

func (w *Worker) handleCommand(cmd Command) {
	var err error
	switch c := cmd.(type) {
	case Activate:
		if w.live(cmd, c.Handle) {
			err = w.session.Activate(c.Handle)
		}
	case Minimize:
		if w.live(cmd, c.Handle) {
			err = w.session.Minimize(c.Handle)
		}
	case Close:
		if w.live(cmd, c.Handle) {
			err = w.session.Close(c.Handle)
		}
	case LaunchWithToken:
		w.launch(c)
		return
	}
	if err != nil {
		w.logger.Debug("compositor request failed", "command", fmt.Sprintf("%T", cmd), "error", err)
	}
}

// live reports whether h is still tracked. Requests on a closed window may
// target an object the session has already destroyed.
func (w *Worker) live(cmd Command, h toplevel.Handle) bool {
	if w.registry.Contains(h) {
		return true
	}
	w.logger.Debug("dropping command for closed window", "command", fmt.Sprintf("%T", cmd))
	return false
}

func (w *Worker) launch(c LaunchWithToken) {
	if !w.caps.Activation {
		w.sendToken(c, "")
		return
	}
	w.launches[c.RequestID] = c
	if err := w.session.RequestActivationToken(c.RequestID, c.AppID); err != nil {
		w.logger.Debug("activation token request failed", "app_id", c.AppID, "error", err)
		delete(w.launches, c.RequestID)
		w.sendToken(c, "")
	}
}

func (w *Worker) sendToken(c LaunchWithToken, token string) {
	w.updates.Send(ActivationToken{
		RequestID: c.RequestID,
		Token:     token,
		AppID:     c.AppID,
		Exec:      c.Exec,
		GPU:       c.GPU,
	})
}

func (w *Worker) logCapabilities() {
	w.logger.Info("connected to compositor",
		"toplevel_info", w.caps.ToplevelInfo,
		"toplevel_management", w.caps.ToplevelManagement,
		"activation", w.caps.Activation,
		"outputs", w.caps.Outputs,
		"workspaces", w.caps.Workspaces,
	)
	if !w.caps.ToplevelInfo {
		w.logger.Info("compositor offers no toplevel info protocol, the tray will stay empty")
	}
	if !w.caps.ToplevelManagement {
		w.logger.Info("compositor offers no toplevel management protocol, window commands are ignored")
	}
}
