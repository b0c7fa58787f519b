package wayland

import (
	"context"
	"log/slog"

	"github.com/neurlang/wayland/wl"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

const wlrManagerInterface = "zwlr_foreign_toplevel_manager_v1"

// zwlr_foreign_toplevel_manager_v1 events and requests.
const (
	wlrManagerToplevel = 0
	wlrManagerFinished = 1
	wlrManagerStop     = 0
)

// zwlr_foreign_toplevel_handle_v1 requests.
const (
	wlrHandleSetMaximized = iota
	wlrHandleUnsetMaximized
	wlrHandleSetMinimized
	wlrHandleUnsetMinimized
	wlrHandleActivate
	wlrHandleClose
	wlrHandleSetRectangle
	wlrHandleDestroy
)

// WlrBackend tracks windows with wlr-foreign-toplevel-management, offered by
// sway, Hyprland, river, labwc, niri and other wlroots-style compositors.
type WlrBackend struct{}

// Name implements compositor.Backend.
func (WlrBackend) Name() string { return "wlr" }

// Connect implements compositor.Backend.
func (WlrBackend) Connect(_ context.Context, logger *slog.Logger) (compositor.Session, error) {
	c, err := dial(logger)
	if err != nil {
		return nil, err
	}

	s := &wlrSession{conn: c}
	s.manager = &wlrManager{conn: c}
	c.ctx.Register(s.manager)
	bound, err := c.bind(wlrManagerInterface, 3, s.manager)
	if err != nil {
		_ = c.close()
		return nil, err
	}
	if !bound {
		logger.Info("compositor does not offer " + wlrManagerInterface)
		s.manager.Unregister()
		s.manager = nil
	}

	s.caps = c.capabilities()
	s.caps.ToplevelInfo = bound
	s.caps.ToplevelManagement = bound
	c.start()
	return s, nil
}

type wlrSession struct {
	*conn
	manager *wlrManager
	caps    compositor.Capabilities
}

func (s *wlrSession) Events() *compositor.Mailbox[compositor.Event] { return s.events }
func (s *wlrSession) Capabilities() compositor.Capabilities { return s.caps }

func (s *wlrSession) handle(h toplevel.Handle) (*wlrHandle, error) {
	wh, ok := h.(*wlrHandle)
	if !ok {
		return nil, errWrongHandle
	}
	return wh, nil
}

func (s *wlrSession) Activate(h toplevel.Handle) error {
	wh, err := s.handle(h)
	if err != nil {
		return err
	}
	seat := s.currentSeat()
	if seat == nil {
		return ErrNoSeat
	}
	return wh.Context().SendRequest(wh, wlrHandleActivate, seat)
}

func (s *wlrSession) Minimize(h toplevel.Handle) error {
	wh, err := s.handle(h)
	if err != nil {
		return err
	}
	return wh.Context().SendRequest(wh, wlrHandleSetMinimized)
}

func (s *wlrSession) Close(h toplevel.Handle) error {
	wh, err := s.handle(h)
	if err != nil {
		return err
	}
	return wh.Context().SendRequest(wh, wlrHandleClose)
}

// Release implements compositor.Releaser.
func (s *wlrSession) Release(h toplevel.Handle) {
	wh, err := s.handle(h)
	if err != nil {
		return
	}
	if err := wh.Context().SendRequest(wh, wlrHandleDestroy); err != nil {
		s.logger.Debug("failed to destroy toplevel handle", "protocol", "wlr", "error", err)
	}
	wh.Unregister()
}

func (s *wlrSession) RequestActivationToken(id ulid.ULID, appID string) error {
	return s.requestActivationToken(id, appID)
}

func (s *wlrSession) Disconnect() error {
	if s.manager != nil {
		if err := s.manager.Context().SendRequest(s.manager, wlrManagerStop); err != nil {
			s.logger.Debug("failed to stop toplevel manager", "error", err)
		}
	}
	return s.close()
}

type wlrManager struct {
	wl.BaseProxy
	conn *conn
}

// Dispatch implements wl.Dispatcher.
func (m *wlrManager) Dispatch(event *wl.Event) {
	switch uint32(event.Opcode) {
	case wlrManagerToplevel:
		h := &wlrHandle{conn: m.conn}
		m.conn.adopt(event.Uint32(), h)
		m.conn.events.Send(compositor.ManagerEvent{Event: toplevel.NewToplevel{Handle: h}})
	case wlrManagerFinished:
		m.conn.events.Send(compositor.ManagerEvent{Event: toplevel.ManagerFinished{}})
	}
}

// wlrHandle is a zwlr_foreign_toplevel_handle_v1 and implements toplevel.Handle.
type wlrHandle struct {
	wl.BaseProxy
	conn *conn
}

// ProtocolID implements toplevel.Handle.
func (h *wlrHandle) ProtocolID() uint32 {
	return uint32(h.Id())
}

// Dispatch implements wl.Dispatcher.
func (h *wlrHandle) Dispatch(event *wl.Event) {
	opcode := uint32(event.Opcode)
	ev := normalizeWlrHandle(opcode, event, h.conn.output)
	if ev == nil {
		h.conn.logger.Debug("ignoring toplevel event", "protocol", "wlr", "opcode", opcode)
		return
	}
	h.conn.events.Send(compositor.ToplevelEvent{Handle: h, Event: ev})
}
