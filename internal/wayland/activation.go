package wayland

import (
	"github.com/neurlang/wayland/wl"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/compositor"
)

// xdg_activation_v1 requests.
const (
	activationDestroy = iota
	activationGetToken
)

// xdg_activation_token_v1 requests.
const (
	tokenSetSerial = iota
	tokenSetAppID
	tokenSetSurface
	tokenCommit
	tokenDestroy
)

// xdg_activation_token_v1 events.
const tokenDone = 0

type activationManager struct {
	wl.BaseProxy
	conn *conn
}

func newActivationManager(c *conn) *activationManager {
	m := &activationManager{conn: c}
	c.ctx.Register(m)
	return m
}

// Dispatch implements wl.Dispatcher. xdg_activation_v1 has no events.
func (m *activationManager) Dispatch(*wl.Event) {}

// request asks for a token. The panel has no input serial to offer, so the
// compositor may hand out a token that does not grant focus.
func (m *activationManager) request(id ulid.ULID, appID string) error {
	t := &activationToken{conn: m.conn, requestID: id}
	m.conn.ctx.Register(t)

	if err := m.Context().SendRequest(m, activationGetToken, t); err != nil {
		return err
	}
	if appID != "" {
		if err := t.Context().SendRequest(t, tokenSetAppID, appID); err != nil {
			return err
		}
	}
	return t.Context().SendRequest(t, tokenCommit)
}

type activationToken struct {
	wl.BaseProxy
	conn      *conn
	requestID ulid.ULID
}

// Dispatch implements wl.Dispatcher.
func (t *activationToken) Dispatch(event *wl.Event) {
	if uint32(event.Opcode) != tokenDone {
		return
	}
	token := event.String()
	t.conn.events.Send(compositor.TokenEvent{RequestID: t.requestID, Token: token})

	if err := t.Context().SendRequest(t, tokenDestroy); err != nil {
		t.conn.logger.Debug("failed to destroy activation token", "error", err)
	}
	t.Unregister()
}
