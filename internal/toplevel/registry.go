package toplevel

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnknownHandle is wrapped by LifecycleError when an event references a
// handle that was never announced or has already closed.
var ErrUnknownHandle = errors.New("unknown toplevel handle")

// ErrDuplicateHandle is wrapped by LifecycleError when a live handle is announced again.
var ErrDuplicateHandle = errors.New("toplevel handle announced twice")

// LifecycleError describes an event that arrived outside a handle's lifetime.
type LifecycleError struct {
	Handle Handle
	Event  string
	Err    error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("toplevel %d: %s: %v", e.Handle.ProtocolID(), e.Event, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// ViolationPolicy decides what the registry does with out-of-lifecycle events.
type ViolationPolicy int

const (
	// ViolationPanic panics with a *LifecycleError.
	ViolationPanic ViolationPolicy = iota
	// ViolationWarn logs a warning and drops the event.
	ViolationWarn
)

func (p ViolationPolicy) String() string {
	if p == ViolationWarn {
		return "warn"
	}
	return "panic"
}

// ParseViolationPolicy parses "panic" or "warn".
func ParseViolationPolicy(s string) (ViolationPolicy, error) {
	switch strings.ToLower(s) {
	case "", "panic":
		return ViolationPanic, nil
	case "warn":
		return ViolationWarn, nil
	}
	return ViolationPanic, fmt.Errorf("invalid protocol violation policy %q, must be panic or warn", s)
}

// Sink receives registry updates in the order they happen.
type Sink func(Update)

// Registry tracks every live window and its double-buffered info.
// It is not safe for concurrent use; the compositor worker owns it.
type Registry struct {
	entries map[Handle]*Cell[Info]
	policy  ViolationPolicy
	sink    Sink
	logger  *slog.Logger
}

// NewRegistry creates an empty registry that emits updates to sink.
func NewRegistry(policy ViolationPolicy, sink Sink, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[Handle]*Cell[Info]),
		policy:  policy,
		sink:    sink,
		logger:  logger,
	}
}

// HandleManager processes a manager-level event.
func (r *Registry) HandleManager(ev ManagerEvent) {
	switch e := ev.(type) {
	case NewToplevel:
		if _, ok := r.entries[e.Handle]; ok {
			r.violation(e.Handle, "new_toplevel", ErrDuplicateHandle)
			return
		}
		r.entries[e.Handle] = NewCell(NewInfo())
		r.logger.Debug("toplevel announced", "id", e.Handle.ProtocolID())
	case ManagerFinished:
		r.logger.Debug("toplevel manager finished", "live", len(r.entries))
	}
}

// HandleEvent applies a per-window event. Attribute events touch only the
// pending info; Committed publishes it; Closed removes the window.
func (r *Registry) HandleEvent(h Handle, ev HandleEvent) {
	cell, ok := r.entries[h]
	if !ok {
		r.violation(h, eventName(ev), ErrUnknownHandle)
		return
	}

	pending := cell.Pending()
	switch e := ev.(type) {
	case TitleChanged:
		pending.Title = e.Title
	case AppIDChanged:
		pending.AppID = e.AppID
	case OutputEntered:
		pending.Outputs[e.Output] = struct{}{}
	case OutputLeft:
		delete(pending.Outputs, e.Output)
	case WorkspaceEntered:
		pending.Workspaces[e.Workspace] = struct{}{}
	case WorkspaceLeft:
		delete(pending.Workspaces, e.Workspace)
	case StateChanged:
		pending.State = e.State
	case Committed:
		info, first := cell.Commit()
		kind := UpdateUpdate
		if first {
			kind = UpdateAdd
		}
		r.emit(Update{Kind: kind, Handle: h, Info: info})
	case Closed:
		delete(r.entries, h)
		r.emit(Update{Kind: UpdateRemove, Handle: h})
	}
}

// Current returns the committed info for h.
func (r *Registry) Current(h Handle) (Info, bool) {
	cell, ok := r.entries[h]
	if !ok {
		return Info{}, false
	}
	info, ok := cell.Current()
	if !ok {
		return Info{}, false
	}
	return info.Clone(), true
}

// Contains reports whether h is live.
func (r *Registry) Contains(h Handle) bool {
	_, ok := r.entries[h]
	return ok
}

// Len returns the number of live windows, committed or not.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Handles returns every live handle in no particular order.
func (r *Registry) Handles() []Handle {
	out := make([]Handle, 0, len(r.entries))
	for h := range r.entries {
		out = append(out, h)
	}
	return out
}

func (r *Registry) emit(u Update) {
	if r.sink != nil {
		r.sink(u)
	}
}

func (r *Registry) violation(h Handle, event string, err error) {
	lerr := &LifecycleError{Handle: h, Event: event, Err: err}
	if r.policy == ViolationPanic {
		panic(lerr)
	}
	r.logger.Warn("dropping out-of-lifecycle toplevel event", "error", lerr)
}

func eventName(ev HandleEvent) string {
	switch ev.(type) {
	case TitleChanged:
		return "title"
	case AppIDChanged:
		return "app_id"
	case OutputEntered:
		return "output_enter"
	case OutputLeft:
		return "output_leave"
	case WorkspaceEntered:
		return "workspace_enter"
	case WorkspaceLeft:
		return "workspace_leave"
	case StateChanged:
		return "state"
	case Committed:
		return "done"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("%T", ev)
}
