package wayland

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neurlang/wayland/wl"
	"github.com/neurlang/wayland/wlclient"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// ErrNoSeat is returned by requests that need a seat when none was advertised.
var ErrNoSeat = errors.New("no wl_seat available")

// errWrongHandle is returned when a handle from another backend is passed in.
var errWrongHandle = errors.New("handle does not belong to this session")

type global struct {
	name    uint32
	iface   string
	version uint32
}

// conn is a client connection shared by every protocol backend. Proxies
// dispatch on the reader goroutine and publish normalized events on events.
type conn struct {
	logger   *slog.Logger
	display  *wl.Display
	ctx      *wl.Context
	registry *wl.Registry
	events   *compositor.Mailbox[compositor.Event]

	activation *activationManager

	closeOnce sync.Once

	// mu guards the fields below. Globals arrive on the reader goroutine
	// while the worker issues requests that need the seat.
	mu      sync.Mutex
	closing bool
	globals []global
	seat    *wl.Seat
	// outputs is keyed by registry global name.
	outputs map[uint32]*outputProxy
}

// dial connects to the compositor named by WAYLAND_DISPLAY and collects the
// registry globals. Outputs and the first seat are bound immediately.
func dial(logger *slog.Logger) (*conn, error) {
	display, err := wl.Connect("")
	if err != nil {
		return nil, fmt.Errorf("connect to wayland display: %w", err)
	}

	c := &conn{
		logger:  logger,
		display: display,
		ctx:     display.Context(),
		events:  compositor.NewMailbox[compositor.Event](),
		outputs: make(map[uint32]*outputProxy),
	}
	display.AddErrorHandler(c)

	c.registry, err = display.GetRegistry()
	if err != nil {
		_ = c.ctx.Close()
		return nil, fmt.Errorf("get registry: %w", err)
	}
	c.registry.AddGlobalHandler(c)
	c.registry.AddGlobalRemoveHandler(c)

	if err := wlclient.DisplayRoundtrip(display); err != nil {
		_ = c.ctx.Close()
		return nil, fmt.Errorf("registry roundtrip: %w", err)
	}

	if g, ok := c.find("xdg_activation_v1"); ok {
		m := newActivationManager(c)
		if err := c.registry.Bind(g.name, g.iface, min(g.version, 1), m); err != nil {
			c.logger.Warn("failed to bind xdg_activation_v1", "error", err)
		} else {
			c.activation = m
		}
	}

	return c, nil
}

// HandleDisplayError implements wl.DisplayErrorHandler.
func (c *conn) HandleDisplayError(e wl.DisplayErrorEvent) {
	c.logger.Error("wayland protocol error", "code", e.Code, "message", e.Message)
}

// HandleRegistryGlobal implements wl.RegistryGlobalHandler. Only the reader
// goroutine calls it, so the seat check and the bind cannot interleave.
func (c *conn) HandleRegistryGlobal(e wl.RegistryGlobalEvent) {
	c.mu.Lock()
	c.globals = append(c.globals, global{name: e.Name, iface: e.Interface, version: e.Version})
	haveSeat := c.seat != nil
	c.mu.Unlock()

	switch e.Interface {
	case "wl_seat":
		if haveSeat {
			return
		}
		seat := wl.NewSeat(c.ctx)
		if err := c.registry.Bind(e.Name, e.Interface, min(e.Version, 1), seat); err != nil {
			c.logger.Warn("failed to bind wl_seat", "error", err)
			seat.Unregister()
			return
		}
		c.mu.Lock()
		c.seat = seat
		c.mu.Unlock()
	case "wl_output":
		o := newOutputProxy(c, e.Name)
		if err := c.registry.Bind(e.Name, e.Interface, min(e.Version, 4), o); err != nil {
			c.logger.Warn("failed to bind wl_output", "error", err)
			o.Unregister()
			return
		}
		c.mu.Lock()
		c.outputs[e.Name] = o
		c.mu.Unlock()
	}
}

// HandleRegistryGlobalRemove implements wl.RegistryGlobalRemoveHandler.
func (c *conn) HandleRegistryGlobalRemove(e wl.RegistryGlobalRemoveEvent) {
	c.mu.Lock()
	o, ok := c.outputs[e.Name]
	delete(c.outputs, e.Name)
	c.mu.Unlock()
	if !ok {
		return
	}
	if o.announced {
		c.events.Send(compositor.OutputEvent{Kind: toplevel.UpdateRemove, Output: o})
	}
}

// find returns the first advertised global for iface.
func (c *conn) find(iface string) (global, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.globals {
		if g.iface == iface {
			return g, true
		}
	}
	return global{}, false
}

// currentSeat returns the bound seat, or nil before one was advertised.
func (c *conn) currentSeat() *wl.Seat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seat
}

// bind binds iface into p at no more than maxVersion. It reports false when
// the compositor does not advertise iface.
func (c *conn) bind(iface string, maxVersion uint32, p wl.Proxy) (bool, error) {
	g, ok := c.find(iface)
	if !ok {
		return false, nil
	}
	if err := c.registry.Bind(g.name, g.iface, min(g.version, maxVersion), p); err != nil {
		return false, fmt.Errorf("bind %s: %w", iface, err)
	}
	return true, nil
}

// output resolves a wl_output object id to its tracked proxy.
func (c *conn) output(id uint32) toplevel.Output {
	if o, ok := c.ctx.LookupProxy(wl.ProxyId(id)).(*outputProxy); ok {
		return o
	}
	return nil
}

// adopt registers a proxy for an object the server created with new_id.
func (c *conn) adopt(id uint32, p wl.Proxy) {
	c.ctx.RegisterMapped(p, id)
}

// start runs the dispatch loop on its own goroutine. events is closed when
// the connection ends.
func (c *conn) start() {
	go func() {
		defer c.events.Close()
		for {
			err := c.ctx.Run()
			if err == nil {
				continue
			}
			// The server may still send events for an object whose destroy
			// request it has not processed yet.
			if errors.Is(err, wl.ErrContextRunProxyNil) {
				c.logger.Debug("event for released object")
				continue
			}
			c.mu.Lock()
			closing := c.closing
			c.mu.Unlock()
			if !closing {
				c.logger.Error("wayland connection lost", "error", err)
			}
			return
		}
	}()
}

func (c *conn) close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		c.mu.Unlock()
		err = c.ctx.Close()
	})
	return err
}

func (c *conn) capabilities() compositor.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return compositor.Capabilities{
		Activation: c.activation != nil,
		Outputs:    len(c.outputs) > 0,
	}
}

func (c *conn) requestActivationToken(id ulid.ULID, appID string) error {
	if c.activation == nil {
		return compositor.ErrNotBound
	}
	return c.activation.request(id, appID)
}
