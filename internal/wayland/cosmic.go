package wayland

import (
	"context"
	"log/slog"

	"github.com/neurlang/wayland/wl"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

const (
	cosmicInfoInterface      = "zcosmic_toplevel_info_v1"
	cosmicManagerInterface   = "zcosmic_toplevel_manager_v1"
	cosmicWorkspaceInterface = "zcosmic_workspace_manager_v1"
)

// zcosmic_toplevel_info_v1 events and requests.
const (
	cosmicInfoToplevel = 0
	cosmicInfoFinished = 1
	cosmicInfoStop     = 0
)

// zcosmic_toplevel_manager_v1 requests.
const (
	cosmicManagerDestroy = iota
	cosmicManagerClose
	cosmicManagerActivate
	cosmicManagerSetMaximized
	cosmicManagerUnsetMaximized
	cosmicManagerSetMinimized
)

// zcosmic_toplevel_handle_v1 requests.
const cosmicHandleDestroy = 0

// CosmicBackend tracks windows with the COSMIC toplevel-info and
// toplevel-management protocols, plus COSMIC workspaces when asked to.
type CosmicBackend struct {
	TrackWorkspaces bool
}

// Name implements compositor.Backend.
func (CosmicBackend) Name() string { return "cosmic" }

// Connect implements compositor.Backend.
func (b CosmicBackend) Connect(_ context.Context, logger *slog.Logger) (compositor.Session, error) {
	c, err := dial(logger)
	if err != nil {
		return nil, err
	}
	s := &cosmicSession{conn: c}

	s.info = &cosmicInfo{session: s}
	c.ctx.Register(s.info)
	infoBound, err := c.bind(cosmicInfoInterface, 1, s.info)
	if err != nil {
		_ = c.close()
		return nil, err
	}
	if !infoBound {
		logger.Info("compositor does not offer " + cosmicInfoInterface)
		s.info.Unregister()
		s.info = nil
	}

	s.manager = &cosmicManager{}
	c.ctx.Register(s.manager)
	managerBound, err := c.bind(cosmicManagerInterface, 1, s.manager)
	if err != nil {
		logger.Warn("failed to bind toplevel manager", "error", err)
	}
	if !managerBound {
		s.manager.Unregister()
		s.manager = nil
	}

	if b.TrackWorkspaces {
		s.workspaces = newCosmicWorkspaces(c)
		bound, err := c.bind(cosmicWorkspaceInterface, 1, s.workspaces)
		if err != nil || !bound {
			if err != nil {
				logger.Warn("failed to bind workspace manager", "error", err)
			}
			s.workspaces.Unregister()
			s.workspaces = nil
		}
	}

	s.caps = c.capabilities()
	s.caps.ToplevelInfo = s.info != nil
	s.caps.ToplevelManagement = s.manager != nil
	s.caps.Workspaces = s.workspaces != nil
	c.start()
	return s, nil
}

type cosmicSession struct {
	*conn
	info       *cosmicInfo
	manager    *cosmicManager
	workspaces *cosmicWorkspaces
	caps       compositor.Capabilities
}

func (s *cosmicSession) Events() *compositor.Mailbox[compositor.Event] { return s.events }
func (s *cosmicSession) Capabilities() compositor.Capabilities { return s.caps }

func (s *cosmicSession) request(h toplevel.Handle, opcode uint32, args ...any) error {
	ch, ok := h.(*cosmicHandle)
	if !ok {
		return errWrongHandle
	}
	if s.manager == nil {
		return compositor.ErrNotBound
	}
	return s.manager.Context().SendRequest(s.manager, opcode, append([]any{ch}, args...)...)
}

func (s *cosmicSession) Activate(h toplevel.Handle) error {
	seat := s.currentSeat()
	if seat == nil {
		return ErrNoSeat
	}
	return s.request(h, cosmicManagerActivate, seat)
}

func (s *cosmicSession) Minimize(h toplevel.Handle) error {
	return s.request(h, cosmicManagerSetMinimized)
}

func (s *cosmicSession) Close(h toplevel.Handle) error {
	return s.request(h, cosmicManagerClose)
}

// Release implements compositor.Releaser.
func (s *cosmicSession) Release(h toplevel.Handle) {
	ch, ok := h.(*cosmicHandle)
	if !ok {
		return
	}
	if err := ch.Context().SendRequest(ch, cosmicHandleDestroy); err != nil {
		s.logger.Debug("failed to destroy toplevel handle", "protocol", "cosmic", "error", err)
	}
	ch.Unregister()
}

func (s *cosmicSession) RequestActivationToken(id ulid.ULID, appID string) error {
	return s.requestActivationToken(id, appID)
}

func (s *cosmicSession) Disconnect() error {
	if s.workspaces != nil {
		if err := s.workspaces.Context().SendRequest(s.workspaces, workspaceManagerStop); err != nil {
			s.logger.Debug("failed to stop workspace manager", "error", err)
		}
	}
	if s.info != nil {
		if err := s.info.Context().SendRequest(s.info, cosmicInfoStop); err != nil {
			s.logger.Debug("failed to stop toplevel info", "error", err)
		}
	}
	return s.close()
}

// workspace resolves a workspace object id, or nil without workspace tracking.
func (s *cosmicSession) workspace(id uint32) toplevel.Workspace {
	if s.workspaces == nil {
		return nil
	}
	if w, ok := s.ctx.LookupProxy(wl.ProxyId(id)).(*cosmicWorkspace); ok {
		return w
	}
	return nil
}

type cosmicInfo struct {
	wl.BaseProxy
	session *cosmicSession
}

// Dispatch implements wl.Dispatcher.
func (i *cosmicInfo) Dispatch(event *wl.Event) {
	switch uint32(event.Opcode) {
	case cosmicInfoToplevel:
		h := &cosmicHandle{session: i.session}
		i.session.adopt(event.Uint32(), h)
		i.session.events.Send(compositor.ManagerEvent{Event: toplevel.NewToplevel{Handle: h}})
	case cosmicInfoFinished:
		i.session.events.Send(compositor.ManagerEvent{Event: toplevel.ManagerFinished{}})
	}
}

type cosmicManager struct {
	wl.BaseProxy
}

// Dispatch implements wl.Dispatcher. Manager capabilities are not used.
func (m *cosmicManager) Dispatch(*wl.Event) {}

// cosmicHandle is a zcosmic_toplevel_handle_v1 and implements toplevel.Handle.
type cosmicHandle struct {
	wl.BaseProxy
	session *cosmicSession
}

// ProtocolID implements toplevel.Handle.
func (h *cosmicHandle) ProtocolID() uint32 {
	return uint32(h.Id())
}

// Dispatch implements wl.Dispatcher.
func (h *cosmicHandle) Dispatch(event *wl.Event) {
	opcode := uint32(event.Opcode)
	ev := normalizeCosmicHandle(opcode, event, h.session.output, h.session.workspace)
	if ev == nil {
		h.session.logger.Debug("ignoring toplevel event", "protocol", "cosmic", "opcode", opcode)
		return
	}
	h.session.events.Send(compositor.ToplevelEvent{Handle: h, Event: ev})
}
