package wayland

import (
	"context"
	"log/slog"

	"github.com/neurlang/wayland/wl"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

const kdeManagerInterface = "org_kde_plasma_window_management"

// org_kde_plasma_window_management events and requests.
const (
	kdeManagerWindow    = 1
	kdeManagerGetWindow = 1
)

// org_kde_plasma_window requests.
const (
	kdeWindowSetState = 0
	kdeWindowClose    = 4
	kdeWindowDestroy  = 7
)

// KDEBackend tracks windows with the Plasma window-management protocol.
type KDEBackend struct{}

// Name implements compositor.Backend.
func (KDEBackend) Name() string { return "kde" }

// Connect implements compositor.Backend.
func (KDEBackend) Connect(_ context.Context, logger *slog.Logger) (compositor.Session, error) {
	c, err := dial(logger)
	if err != nil {
		return nil, err
	}

	s := &kdeSession{conn: c}
	s.manager = &kdeManager{conn: c}
	c.ctx.Register(s.manager)
	bound, err := c.bind(kdeManagerInterface, 16, s.manager)
	if err != nil {
		_ = c.close()
		return nil, err
	}
	if !bound {
		logger.Info("compositor does not offer " + kdeManagerInterface)
		s.manager.Unregister()
		s.manager = nil
	}

	s.caps = c.capabilities()
	s.caps.ToplevelInfo = bound
	s.caps.ToplevelManagement = bound
	c.start()
	return s, nil
}

type kdeSession struct {
	*conn
	manager *kdeManager
	caps    compositor.Capabilities
}

func (s *kdeSession) Events() *compositor.Mailbox[compositor.Event] { return s.events }
func (s *kdeSession) Capabilities() compositor.Capabilities { return s.caps }

func (s *kdeSession) request(h toplevel.Handle, opcode uint32, args ...any) error {
	w, ok := h.(*kdeWindow)
	if !ok {
		return errWrongHandle
	}
	return w.Context().SendRequest(w, opcode, args...)
}

func (s *kdeSession) Activate(h toplevel.Handle) error {
	return s.request(h, kdeWindowSetState, uint32(kdeStateActive), uint32(kdeStateActive))
}

func (s *kdeSession) Minimize(h toplevel.Handle) error {
	return s.request(h, kdeWindowSetState, uint32(kdeStateMinimized), uint32(kdeStateMinimized))
}

func (s *kdeSession) Close(h toplevel.Handle) error {
	return s.request(h, kdeWindowClose)
}

// Release implements compositor.Releaser.
func (s *kdeSession) Release(h toplevel.Handle) {
	w, ok := h.(*kdeWindow)
	if !ok {
		return
	}
	if err := w.Context().SendRequest(w, kdeWindowDestroy); err != nil {
		s.logger.Debug("failed to destroy toplevel handle", "protocol", "kde", "error", err)
	}
	w.Unregister()
}

func (s *kdeSession) RequestActivationToken(id ulid.ULID, appID string) error {
	return s.requestActivationToken(id, appID)
}

// Disconnect implements compositor.Session. Plasma window management has no
// stop request; closing the connection is enough.
func (s *kdeSession) Disconnect() error {
	return s.close()
}

type kdeManager struct {
	wl.BaseProxy
	conn *conn
}

// Dispatch implements wl.Dispatcher. Windows are announced by internal id and
// the client creates the window object itself.
func (m *kdeManager) Dispatch(event *wl.Event) {
	if uint32(event.Opcode) != kdeManagerWindow {
		return
	}
	internalID := event.Uint32()

	w := &kdeWindow{conn: m.conn}
	m.conn.ctx.Register(w)
	if err := m.Context().SendRequest(m, kdeManagerGetWindow, w, internalID); err != nil {
		m.conn.logger.Warn("failed to get plasma window", "internal_id", internalID, "error", err)
		w.Unregister()
		return
	}
	m.conn.events.Send(compositor.ManagerEvent{Event: toplevel.NewToplevel{Handle: w}})
}

// kdeCommitState synthesizes commits for a protocol that has none. Attribute
// events before initial_state only fill the pending state; initial_state
// commits once, and after that every attribute change commits immediately.
type kdeCommitState struct {
	initialized bool
}

// after returns the events to forward for ev.
func (k *kdeCommitState) after(ev toplevel.HandleEvent) []toplevel.HandleEvent {
	switch ev.(type) {
	case toplevel.Committed:
		if k.initialized {
			return nil
		}
		k.initialized = true
		return []toplevel.HandleEvent{ev}
	case toplevel.Closed:
		return []toplevel.HandleEvent{ev}
	}
	if !k.initialized {
		return []toplevel.HandleEvent{ev}
	}
	return []toplevel.HandleEvent{ev, toplevel.Committed{}}
}

// kdeWindow is an org_kde_plasma_window and implements toplevel.Handle.
type kdeWindow struct {
	wl.BaseProxy
	conn   *conn
	commit kdeCommitState
}

// ProtocolID implements toplevel.Handle.
func (w *kdeWindow) ProtocolID() uint32 {
	return uint32(w.Id())
}

// Dispatch implements wl.Dispatcher.
func (w *kdeWindow) Dispatch(event *wl.Event) {
	opcode := uint32(event.Opcode)
	ev := normalizeKDEWindow(opcode, event)
	if ev == nil {
		w.conn.logger.Debug("ignoring toplevel event", "protocol", "kde", "opcode", opcode)
		return
	}
	for _, out := range w.commit.after(ev) {
		w.conn.events.Send(compositor.ToplevelEvent{Handle: w, Event: out})
	}
}
