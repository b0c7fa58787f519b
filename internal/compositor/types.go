package compositor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// ErrNotBound is returned by Session requests whose protocol the compositor
// does not offer.
var ErrNotBound = errors.New("protocol not bound")

// Backend connects to one family of window-management protocols.
type Backend interface {
	// Name is the selector name, e.g. "wlr".
	Name() string
	// Connect opens a session. It must not block once the connection is up.
	Connect(ctx context.Context, logger *slog.Logger) (Session, error)
}

// Capabilities lists the optional managers a session managed to bind.
type Capabilities struct {
	ToplevelInfo       bool
	ToplevelManagement bool
	Activation         bool
	Outputs            bool
	Workspaces         bool
}

// Session is a live compositor connection. Requests are one-way and may be
// called from the worker goroutine only.
type Session interface {
	// Events carries normalized events; it is closed when the connection ends.
	Events() *Mailbox[Event]
	Capabilities() Capabilities
	Activate(h toplevel.Handle) error
	Minimize(h toplevel.Handle) error
	Close(h toplevel.Handle) error
	// RequestActivationToken asks for a token for launching appID. The reply
	// arrives later as a TokenEvent carrying id.
	RequestActivationToken(id ulid.ULID, appID string) error
	Disconnect() error
}

// Releaser is implemented by sessions whose handles own protocol objects.
// The worker calls Release once the registry has removed h; no request for h
// is made afterwards.
type Releaser interface {
	Release(h toplevel.Handle)
}

// Event is a normalized event produced by a Session.
type Event interface {
	sessionEvent()
}

type (
	// ToplevelEvent is a per-window event.
	ToplevelEvent struct {
		Handle toplevel.Handle
		Event  toplevel.HandleEvent
	}
	// ManagerEvent is a toplevel-manager event.
	ManagerEvent struct {
		Event toplevel.ManagerEvent
	}
	// OutputEvent reports an output being added, changed or removed.
	OutputEvent struct {
		Kind   toplevel.UpdateKind
		Output toplevel.Output
		Info   toplevel.OutputInfo
	}
	// WorkspaceEvent reports the full set of active workspaces and the outputs they are on.
	WorkspaceEvent struct {
		Active []ActiveWorkspace
	}
	// TokenEvent answers RequestActivationToken. Token is empty when the
	// compositor refused.
	TokenEvent struct {
		RequestID ulid.ULID
		Token     string
	}
)

func (ToplevelEvent) sessionEvent() {}
func (ManagerEvent) sessionEvent() {}
func (OutputEvent) sessionEvent() {}
func (WorkspaceEvent) sessionEvent() {}
func (TokenEvent) sessionEvent() {}

// ActiveWorkspace is a workspace that is currently shown, with its outputs.
type ActiveWorkspace struct {
	Workspace toplevel.Workspace
	Outputs   []toplevel.Output
}

// Command is a request from the UI to the worker.
type Command interface {
	command()
}

type (
	// Activate focuses a window.
	Activate struct{ Handle toplevel.Handle }
	// Minimize minimizes a window.
	Minimize struct{ Handle toplevel.Handle }
	// Close asks a window to close.
	Close struct{ Handle toplevel.Handle }
	// LaunchWithToken requests an activation token for launching Exec.
	LaunchWithToken struct {
		RequestID ulid.ULID
		AppID     string
		Exec      string
		// GPU is the DRI_PRIME index to launch on, nil for the default.
		GPU *int
	}
)

func (Activate) command() {}
func (Minimize) command() {}
func (Close) command() {}
func (LaunchWithToken) command() {}

// CommandSender is the UI side of the command channel.
type CommandSender struct {
	box *Mailbox[Command]
}

// NewCommandSender returns a sender that writes to box.
func NewCommandSender(box *Mailbox[Command]) CommandSender {
	return CommandSender{box: box}
}

// Send queues cmd for the worker. It never blocks and reports false once
// the worker has stopped accepting commands.
func (s CommandSender) Send(cmd Command) bool {
	if s.box == nil {
		return false
	}
	return s.box.Send(cmd)
}

// Message is delivered to the UI, one per scheduler turn.
type Message interface {
	message()
}

type (
	// Init is always the first message and carries the command sender.
	Init struct{ Commands CommandSender }
	// Toplevel carries a registry update.
	Toplevel struct{ toplevel.Update }
	// Output carries an output update.
	Output struct {
		Kind   toplevel.UpdateKind
		Output toplevel.Output
		Info   toplevel.OutputInfo
	}
	// Workspaces replaces the set of active workspaces.
	Workspaces struct{ Active []ActiveWorkspace }
	// ActivationToken answers a LaunchWithToken command.
	ActivationToken struct {
		RequestID ulid.ULID
		Token     string
		AppID     string
		Exec      string
		GPU       *int
	}
	// Finished is the last message. Err is set when tracking stopped
	// because of a failure.
	Finished struct{ Err error }
)

func (Init) message() {}
func (Toplevel) message() {}
func (Output) message() {}
func (Workspaces) message() {}
func (ActivationToken) message() {}
func (Finished) message() {}
