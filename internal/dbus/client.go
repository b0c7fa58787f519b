package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Client calls a running panel over the session bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient opens a private session bus connection.
func NewClient() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClientOn(conn), nil
}

// NewClientOn wraps an existing connection.
func NewClientOn(conn *dbus.Conn) *Client {
	return &Client{
		conn: conn,
		obj:  conn.Object(DBusBusName, DBusPath),
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Running reports whether a panel owns the bus name.
func (c *Client) Running(ctx context.Context) (bool, error) {
	var has bool
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, DBusBusName).Store(&has)
	return has, err
}

// ListWindows returns every tracked window.
func (c *Client) ListWindows(ctx context.Context) ([]WindowInfo, error) {
	var windows []WindowInfo
	if err := c.obj.CallWithContext(ctx, DBusInterface+".ListWindows", 0).Store(&windows); err != nil {
		return nil, fromDBusError(err)
	}
	return windows, nil
}

// ActiveWindow returns the focused window id, or "".
func (c *Client) ActiveWindow(ctx context.Context) (string, error) {
	var id string
	if err := c.obj.CallWithContext(ctx, DBusInterface+".ActiveWindow", 0).Store(&id); err != nil {
		return "", fromDBusError(err)
	}
	return id, nil
}

// Activate focuses a window.
func (c *Client) Activate(ctx context.Context, id string) error {
	return c.call(ctx, "Activate", id)
}

// Toggle minimizes a focused window or focuses it.
func (c *Client) Toggle(ctx context.Context, id string) error {
	return c.call(ctx, "Toggle", id)
}

// Minimize minimizes a window.
func (c *Client) Minimize(ctx context.Context, id string) error {
	return c.call(ctx, "Minimize", id)
}

// CloseWindow asks a window to close.
func (c *Client) CloseWindow(ctx context.Context, id string) error {
	return c.call(ctx, "Close", id)
}

// Launch starts an application by desktop entry id.
func (c *Client) Launch(ctx context.Context, appID string) error {
	return c.call(ctx, "Launch", appID)
}

func (c *Client) call(ctx context.Context, method, arg string) error {
	return fromDBusError(c.obj.CallWithContext(ctx, DBusInterface+"."+method, 0, arg).Err)
}

// Watch delivers a value whenever the window list may have changed: on
// WindowsChanged and whenever the panel appears on or leaves the bus. The
// channel is closed when ctx is done.
func (c *Client) Watch(ctx context.Context) (<-chan struct{}, error) {
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
		dbus.WithMatchMember("WindowsChanged"),
	); err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, DBusBusName),
	); err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer c.conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if !relevantSignal(sig) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func relevantSignal(sig *dbus.Signal) bool {
	switch sig.Name {
	case DBusInterface + ".WindowsChanged":
		return true
	case "org.freedesktop.DBus.NameOwnerChanged":
		if len(sig.Body) == 0 {
			return false
		}
		name, _ := sig.Body[0].(string)
		return name == DBusBusName
	}
	return false
}
