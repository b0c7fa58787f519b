package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
)

// NotificationsClient sends desktop notifications to whichever notification
// daemon owns org.freedesktop.Notifications.
type NotificationsClient struct {
	conn *dbus.Conn
}

// NewNotificationsClient uses the shared session bus connection.
func NewNotificationsClient() (*NotificationsClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &NotificationsClient{conn: conn}, nil
}

// Notify sends n and returns the id assigned by the notification daemon.
func (c *NotificationsClient) Notify(n *Notification) (uint32, error) {
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	var id uint32
	err := c.conn.Object(notificationsName, notificationsPath).Call(
		notificationsName+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body,
		actions, hints, n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	return id, nil
}
