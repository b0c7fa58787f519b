package wayland

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/neurlang/wayland/wl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// testConn connects a conn to a socket the test plays the compositor on.
func testConn(t *testing.T) (*conn, *net.UnixConn) {
	t.Helper()
	dir := t.TempDir()
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: filepath.Join(dir, "wayland-test"), Net: "unix"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("WAYLAND_DISPLAY", "wayland-test")

	display, err := wl.Connect("")
	require.NoError(t, err)
	server, err := ln.AcceptUnix()
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	c := &conn{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		display: display,
		ctx:     display.Context(),
		events:  compositor.NewMailbox[compositor.Event](),
		outputs: make(map[uint32]*outputProxy),
	}
	return c, server
}

type wireMessage struct {
	id     uint32
	opcode uint32
	args   []byte
}

func readRequest(t *testing.T, server *net.UnixConn) wireMessage {
	t.Helper()
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	header := make([]byte, 8)
	_, err := io.ReadFull(server, header)
	require.NoError(t, err)
	word := binary.NativeEndian.Uint32(header[4:])
	args := make([]byte, int(word>>16)-8)
	_, err = io.ReadFull(server, args)
	require.NoError(t, err)
	return wireMessage{id: binary.NativeEndian.Uint32(header), opcode: word & 0xffff, args: args}
}

func writeStringEvent(t *testing.T, server *net.UnixConn, id, opcode uint32, s string) {
	t.Helper()
	n := len(s) + 1
	padded := (n + 3) &^ 3
	msg := make([]byte, 12+padded)
	binary.NativeEndian.PutUint32(msg, id)
	binary.NativeEndian.PutUint32(msg[4:], uint32(len(msg))<<16|opcode)
	binary.NativeEndian.PutUint32(msg[8:], uint32(n))
	copy(msg[12:], s)
	_, err := server.Write(msg)
	require.NoError(t, err)
}

func TestConn_AdoptUsesServerID(t *testing.T) {
	c, _ := testConn(t)
	h := &wlrHandle{conn: c}

	c.adopt(0xff000010, h)

	assert.Same(t, h, c.ctx.LookupProxy(wl.ProxyId(0xff000010)))
	assert.Equal(t, uint32(0xff000010), h.ProtocolID())
	assert.Same(t, c.ctx, h.Context())
}

// ownedHandle is a toplevel handle backed by a protocol object.
type ownedHandle interface {
	wl.Proxy
	toplevel.Handle
}

func TestSession_ReleaseDestroysHandle(t *testing.T) {
	tests := []struct {
		name    string
		build   func(c *conn) (compositor.Releaser, ownedHandle)
		destroy uint32
	}{
		{
			name: "wlr",
			build: func(c *conn) (compositor.Releaser, ownedHandle) {
				return &wlrSession{conn: c}, &wlrHandle{conn: c}
			},
			destroy: wlrHandleDestroy,
		},
		{
			name: "cosmic",
			build: func(c *conn) (compositor.Releaser, ownedHandle) {
				s := &cosmicSession{conn: c}
				return s, &cosmicHandle{session: s}
			},
			destroy: cosmicHandleDestroy,
		},
		{
			name: "kde",
			build: func(c *conn) (compositor.Releaser, ownedHandle) {
				return &kdeSession{conn: c}, &kdeWindow{conn: c}
			},
			destroy: kdeWindowDestroy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, server := testConn(t)
			session, h := tt.build(c)
			c.adopt(0xff000001, h)

			session.Release(h)

			req := readRequest(t, server)
			assert.Equal(t, uint32(0xff000001), req.id)
			assert.Equal(t, tt.destroy, req.opcode)
			assert.Empty(t, req.args)
			assert.Nil(t, c.ctx.LookupProxy(wl.ProxyId(0xff000001)))
		})
	}
}

func TestWlrSession_ActivateUsesSeat(t *testing.T) {
	c, server := testConn(t)
	s := &wlrSession{conn: c}
	h := &wlrHandle{conn: c}
	c.adopt(0xff000002, h)

	assert.ErrorIs(t, s.Activate(h), ErrNoSeat)

	seat := wl.NewSeat(c.ctx)
	c.mu.Lock()
	c.seat = seat
	c.mu.Unlock()

	require.NoError(t, s.Activate(h))
	req := readRequest(t, server)
	assert.Equal(t, uint32(0xff000002), req.id)
	assert.Equal(t, uint32(wlrHandleActivate), req.opcode)
	require.Len(t, req.args, 4)
	assert.Equal(t, uint32(seat.Id()), binary.NativeEndian.Uint32(req.args))

	assert.ErrorIs(t, s.Activate(&kdeWindow{conn: c}), errWrongHandle)
}

func TestConn_HotplugGlobalsWhileWorkerReads(t *testing.T) {
	c, _ := testConn(t)
	registry, err := c.display.GetRegistry()
	require.NoError(t, err)
	c.registry = registry

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.HandleRegistryGlobal(wl.RegistryGlobalEvent{Name: 1, Interface: "wl_output", Version: 4})
		c.HandleRegistryGlobal(wl.RegistryGlobalEvent{Name: 2, Interface: "wl_seat", Version: 7})
		c.HandleRegistryGlobal(wl.RegistryGlobalEvent{Name: 3, Interface: "wl_seat", Version: 7})
		c.HandleRegistryGlobalRemove(wl.RegistryGlobalRemoveEvent{Name: 1})
		c.HandleRegistryGlobal(wl.RegistryGlobalEvent{Name: 4, Interface: "wl_output", Version: 4})
	}()
	for range 100 {
		_ = c.currentSeat()
		_, _ = c.find("wl_seat")
		_ = c.capabilities()
	}
	wg.Wait()

	seat := c.currentSeat()
	require.NotNil(t, seat)
	g, ok := c.find("wl_seat")
	require.True(t, ok)
	assert.Equal(t, uint32(2), g.name)
	assert.True(t, c.capabilities().Outputs)
	c.mu.Lock()
	assert.Len(t, c.outputs, 1)
	assert.Contains(t, c.outputs, uint32(4))
	c.mu.Unlock()
}

func TestConn_EventsForReleasedObjectsAreSkipped(t *testing.T) {
	c, server := testConn(t)
	h := &wlrHandle{conn: c}
	c.adopt(0xff000003, h)
	c.start()

	// 0xff000099 was never registered, or was already released.
	writeStringEvent(t, server, 0xff000099, wlrHandleTitle, "stale")
	writeStringEvent(t, server, 0xff000003, wlrHandleTitle, "foot")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, ok := c.events.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, compositor.ToplevelEvent{Handle: h, Event: toplevel.TitleChanged{Title: "foot"}}, ev)

	// Losing the compositor still ends the session.
	require.NoError(t, server.Close())
	_, ok = c.events.Recv(ctx)
	assert.False(t, ok)
	require.NoError(t, c.close())
}
