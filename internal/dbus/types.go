package dbus

import (
	"errors"
	"slices"

	"github.com/godbus/dbus/v5"
)

// ErrUnknownWindow is returned by controllers when a window id is not tracked.
var ErrUnknownWindow = errors.New("unknown window")

// ErrNotReady is returned by controllers before the tracker sent Init or
// after it finished.
var ErrNotReady = errors.New("window tracking not running")

// ErrUnknownApplication is returned by Launch when no desktop entry matches.
var ErrUnknownApplication = errors.New("unknown application")

// D-Bus error names returned to callers.
const (
	ErrorUnknownWindow      = DBusInterface + ".Error.UnknownWindow"
	ErrorNotReady           = DBusInterface + ".Error.NotReady"
	ErrorUnknownApplication = DBusInterface + ".Error.UnknownApplication"
)

// WindowInfo is one tracked window as exposed on the bus.
// D-Bus signature: (sssasu)
type WindowInfo struct {
	ID        string   `json:"id" yaml:"id"`
	AppID     string   `json:"app_id" yaml:"app_id"`
	Title     string   `json:"title" yaml:"title"`
	States    []string `json:"states" yaml:"states"`
	FirstSeen uint32   `json:"first_seen" yaml:"first_seen"` // Unix seconds
}

// HasState reports whether the window carries the named state, e.g. "activated".
func (w WindowInfo) HasState(state string) bool {
	return slices.Contains(w.States, state)
}

// Urgency levels of the freedesktop notification specification.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Notification is an outgoing org.freedesktop.Notifications.Notify call.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *Notification) Urgency() byte {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return b
		}
	}
	return UrgencyNormal
}

// Transient returns true if the transient hint is set.
func (n *Notification) Transient() bool {
	if v, ok := n.Hints["transient"]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// toDBusError maps controller errors onto named D-Bus errors.
func toDBusError(err error) *dbus.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnknownWindow):
		return dbus.NewError(ErrorUnknownWindow, []interface{}{err.Error()})
	case errors.Is(err, ErrNotReady):
		return dbus.NewError(ErrorNotReady, []interface{}{err.Error()})
	case errors.Is(err, ErrUnknownApplication):
		return dbus.NewError(ErrorUnknownApplication, []interface{}{err.Error()})
	default:
		return dbus.MakeFailedError(err)
	}
}

// fromDBusError maps named D-Bus errors back onto the package errors so
// clients can branch with errors.Is.
func fromDBusError(err error) error {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		switch dbusErr.Name {
		case ErrorUnknownWindow:
			return ErrUnknownWindow
		case ErrorNotReady:
			return ErrNotReady
		case ErrorUnknownApplication:
			return ErrUnknownApplication
		}
	}
	return err
}
