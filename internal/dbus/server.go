package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// DBusInterface is the panel interface name.
	DBusInterface = "io.github.jmylchreest.wlpanel"
	// DBusPath is the panel object path.
	DBusPath = "/io/github/jmylchreest/wlpanel"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.wlpanel"
)

// Controller performs the work behind each D-Bus method. Implementations hop
// to the UI thread; ctx bounds how long a caller waits for it.
type Controller interface {
	Windows(ctx context.Context) ([]WindowInfo, error)
	ActiveWindow(ctx context.Context) (string, error)
	Activate(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) error
	Minimize(ctx context.Context, id string) error
	Close(ctx context.Context, id string) error
	Launch(ctx context.Context, appID string) error
}

// PanelServer implements the io.github.jmylchreest.wlpanel D-Bus interface.
type PanelServer struct {
	conn       *dbus.Conn
	logger     *slog.Logger
	controller Controller

	callTimeout time.Duration

	mu      sync.RWMutex
	running bool
}

// NewPanelServer creates a new PanelServer backed by controller.
func NewPanelServer(controller Controller, logger *slog.Logger) *PanelServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PanelServer{
		logger:      logger,
		controller:  controller,
		callTimeout: 2 * time.Second,
	}
}

// SetCallTimeout sets how long a method call waits for the UI thread.
func (s *PanelServer) SetCallTimeout(d time.Duration) {
	s.callTimeout = d
}

// Start connects to the session bus and exports the panel service.
func (s *PanelServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the panel service on an existing connection.
func (s *PanelServer) StartOn(conn *dbus.Conn) error {
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: panelMethods(),
				Signals: panelSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken, is another panel running?", DBusBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus panel server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *PanelServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, DBusPath, DBusInterface)
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus panel server stopped")
	return nil
}

func (s *PanelServer) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.callTimeout)
}

// ListWindows returns every tracked window.
// D-Bus method: ListWindows() -> a(sssasu)
func (s *PanelServer) ListWindows() ([]WindowInfo, *dbus.Error) {
	ctx, cancel := s.callContext()
	defer cancel()

	windows, err := s.controller.Windows(ctx)
	if err != nil {
		s.logger.Debug("ListWindows failed", "error", err)
		return nil, toDBusError(err)
	}
	if windows == nil {
		windows = []WindowInfo{}
	}
	return windows, nil
}

// ActiveWindow returns the id of the focused window, or "" when none is.
// D-Bus method: ActiveWindow() -> s
func (s *PanelServer) ActiveWindow() (string, *dbus.Error) {
	ctx, cancel := s.callContext()
	defer cancel()

	id, err := s.controller.ActiveWindow(ctx)
	return id, toDBusError(err)
}

// Activate focuses a window.
// D-Bus method: Activate(s) -> nothing
func (s *PanelServer) Activate(id string) *dbus.Error {
	return s.act("Activate", id, s.controller.Activate)
}

// Toggle minimizes the window if focused, and focuses it otherwise.
// D-Bus method: Toggle(s) -> nothing
func (s *PanelServer) Toggle(id string) *dbus.Error {
	return s.act("Toggle", id, s.controller.Toggle)
}

// Minimize minimizes a window.
// D-Bus method: Minimize(s) -> nothing
func (s *PanelServer) Minimize(id string) *dbus.Error {
	return s.act("Minimize", id, s.controller.Minimize)
}

// Close asks a window to close.
// D-Bus method: Close(s) -> nothing
func (s *PanelServer) Close(id string) *dbus.Error {
	return s.act("Close", id, s.controller.Close)
}

// Launch starts an application by desktop entry id.
// D-Bus method: Launch(s) -> nothing
func (s *PanelServer) Launch(appID string) *dbus.Error {
	return s.act("Launch", appID, s.controller.Launch)
}

func (s *PanelServer) act(method, arg string, fn func(context.Context, string) error) *dbus.Error {
	ctx, cancel := s.callContext()
	defer cancel()

	s.logger.Debug(method+" called", "arg", arg)
	if err := fn(ctx, arg); err != nil {
		s.logger.Debug(method+" failed", "arg", arg, "error", err)
		return toDBusError(err)
	}
	return nil
}

// panelMethods returns the D-Bus method introspection data.
func panelMethods() []introspect.Method {
	idArg := func(name string) []introspect.Arg {
		return []introspect.Arg{{Name: name, Type: "s", Direction: "in"}}
	}
	return []introspect.Method{
		{
			Name: "ListWindows",
			Args: []introspect.Arg{
				{Name: "windows", Type: "a(sssasu)", Direction: "out"},
			},
		},
		{
			Name: "ActiveWindow",
			Args: []introspect.Arg{
				{Name: "id", Type: "s", Direction: "out"},
			},
		},
		{Name: "Activate", Args: idArg("id")},
		{Name: "Toggle", Args: idArg("id")},
		{Name: "Minimize", Args: idArg("id")},
		{Name: "Close", Args: idArg("id")},
		{Name: "Launch", Args: idArg("app_id")},
	}
}

// panelSignals returns the D-Bus signal introspection data.
func panelSignals() []introspect.Signal {
	return []introspect.Signal{
		{Name: "WindowsChanged"},
		{
			Name: "TrackingFinished",
			Args: []introspect.Arg{
				{Name: "error", Type: "s"},
			},
		},
	}
}
