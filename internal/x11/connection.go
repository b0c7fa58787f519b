package x11

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// Backend tracks client windows of an EWMH window manager.
type Backend struct{}

// Name implements compositor.Backend.
func (Backend) Name() string { return "x11" }

// Connect implements compositor.Backend.
func (Backend) Connect(_ context.Context, logger *slog.Logger) (compositor.Session, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	s := &session{
		logger:  logger,
		xu:      xu,
		root:    xu.RootWin(),
		events:  compositor.NewMailbox[compositor.Event](),
		windows: make(map[xproto.Window]*window),
	}

	if err := xwindow.New(xu, s.root).Listen(xproto.EventMaskPropertyChange); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("listen on root window: %w", err)
	}
	xevent.PropertyNotifyFun(s.rootPropertyChanged).Connect(xu, s.root)

	s.start()
	return s, nil
}

// session owns one X connection. Window bookkeeping happens on the event
// loop goroutine; requests from the worker only touch the connection.
type session struct {
	logger *slog.Logger
	xu     *xgbutil.XUtil
	root   xproto.Window
	events *compositor.Mailbox[compositor.Event]

	windows map[xproto.Window]*window
	active  xproto.Window

	closeOnce sync.Once
}

func (s *session) Events() *compositor.Mailbox[compositor.Event] { return s.events }

// Capabilities implements compositor.Session. X11 has no activation tokens
// and no Wayland outputs.
func (s *session) Capabilities() compositor.Capabilities {
	return compositor.Capabilities{ToplevelInfo: true, ToplevelManagement: true}
}

func (s *session) target(h toplevel.Handle) (*window, error) {
	w, ok := h.(*window)
	if !ok {
		return nil, fmt.Errorf("handle %d does not belong to this session", h.ProtocolID())
	}
	return w, nil
}

func (s *session) Activate(h toplevel.Handle) error {
	w, err := s.target(h)
	if err != nil {
		return err
	}
	const sourcePager = 2
	return s.clientMessage(w.id, "_NET_ACTIVE_WINDOW", sourcePager, xproto.TimeCurrentTime)
}

func (s *session) Minimize(h toplevel.Handle) error {
	w, err := s.target(h)
	if err != nil {
		return err
	}
	const iconicState = 3
	return s.clientMessage(w.id, "WM_CHANGE_STATE", iconicState)
}

func (s *session) Close(h toplevel.Handle) error {
	w, err := s.target(h)
	if err != nil {
		return err
	}
	const sourcePager = 2
	return s.clientMessage(w.id, "_NET_CLOSE_WINDOW", xproto.TimeCurrentTime, sourcePager)
}

func (s *session) RequestActivationToken(ulid.ULID, string) error {
	return compositor.ErrNotBound
}

func (s *session) Disconnect() error {
	s.closeOnce.Do(func() {
		xevent.Quit(s.xu)
		s.xu.Conn().Close()
	})
	return nil
}

// start runs the xevent loop. The initial client list is read on the loop
// goroutine so every window callback runs there.
func (s *session) start() {
	go func() {
		defer s.events.Close()
		s.refreshActive()
		s.refreshClients()
		xevent.Main(s.xu)
		s.logger.Debug("x11 event loop stopped")
	}()
}

// clientMessage sends an EWMH/ICCCM client message to the root window on
// behalf of win.
func (s *session) clientMessage(win xproto.Window, atomName string, data ...uint32) error {
	atom, err := xproto.InternAtom(s.xu.Conn(), false, uint16(len(atomName)), atomName).Reply()
	if err != nil {
		return fmt.Errorf("intern %s: %w", atomName, err)
	}

	payload := make([]uint32, 5)
	copy(payload, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom.Atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}
	return xproto.SendEventChecked(
		s.xu.Conn(),
		false,
		s.root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
