package daemon

import (
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

// NotificationLevel indicates the urgency/severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// NotifyFunc delivers a notification, usually dbus.NotificationsClient.Notify.
type NotifyFunc func(n *dbus.Notification) (uint32, error)

// InternalNotifier tells the user about panel events through the desktop's
// notification daemon. Repeats of the same key are rate limited.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	notifyHandler NotifyFunc

	// Rate limiting
	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	now            func() time.Time

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		now:            time.Now,
		enabled:        true,
	}
}

// SetNotifyHandler sets the function used to send notifications.
func (n *InternalNotifier) SetNotifyHandler(handler NotifyFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifyHandler = handler
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless the same key was sent within the
// minimum interval. It reports whether the notification was handed to the
// handler.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) bool {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return false
	}
	handler := n.notifyHandler
	if handler == nil {
		n.mu.Unlock()
		n.logger.Debug("internal notification skipped: no handler", "summary", summary)
		return false
	}

	now := n.now()
	if lastTime, ok := n.lastNotifyTime[key]; ok && now.Sub(lastTime) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return false
	}
	n.lastNotifyTime[key] = now
	n.mu.Unlock()

	notification := &dbus.Notification{
		AppName: appName,
		Summary: summary,
		Body:    body,
		Hints: map[string]godbus.Variant{
			"urgency":       godbus.MakeVariant(levelUrgency(level)),
			"transient":     godbus.MakeVariant(true),
			"desktop-entry": godbus.MakeVariant(appName),
		},
		ExpireTimeout: 5000,
	}

	switch level {
	case NotificationLevelInfo:
		notification.AppIcon = "dialog-information"
	case NotificationLevelWarning:
		notification.AppIcon = "dialog-warning"
	case NotificationLevelError:
		notification.AppIcon = "dialog-error"
	}

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)

	// The handler makes a blocking bus call, so it runs outside the lock.
	if _, err := handler(notification); err != nil {
		n.logger.Debug("internal notification failed", "key", key, "error", err)
		return false
	}
	return true
}

func levelUrgency(level NotificationLevel) byte {
	switch level {
	case NotificationLevelInfo:
		return dbus.UrgencyLow
	case NotificationLevelError:
		return dbus.UrgencyCritical
	default:
		return dbus.UrgencyNormal
	}
}

// NotifyConfigReloaded sends a notification about config being reloaded.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"Panel configuration has been successfully reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError sends a notification about config validation error.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyThemeError sends a notification about theme loading error.
func (n *InternalNotifier) NotifyThemeError(err error) {
	n.Notify(
		"theme-error",
		"Theme Error",
		"Failed to load theme: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyTrackingStopped tells the user the window list is no longer live.
// err is nil when the compositor ended tracking cleanly.
func (n *InternalNotifier) NotifyTrackingStopped(err error) {
	body := "The compositor stopped reporting windows."
	level := NotificationLevelWarning
	if err != nil {
		body = "Window tracking failed: " + err.Error()
		level = NotificationLevelError
	}
	n.Notify("tracking-stopped", "Window Tracking Stopped", body, level)
}

// NotifyLaunchFailed reports an application that could not be started.
func (n *InternalNotifier) NotifyLaunchFailed(appID string, err error) {
	n.Notify(
		"launch-"+appID,
		"Launch Failed",
		"Could not start "+appID+": "+err.Error(),
		NotificationLevelWarning,
	)
}
