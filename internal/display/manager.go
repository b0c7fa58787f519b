package display

import (
	"context"
	"log/slog"
	"time"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/wlpanel/internal/config"
	"github.com/jmylchreest/wlpanel/internal/daemon"
	"github.com/jmylchreest/wlpanel/internal/theme"
)

// Manager owns the bar window and keeps it in sync with the panel: tray
// changes, desktop entry rescans, config reloads and the clock.
type Manager struct {
	app    *gtk.Application
	panel  *daemon.Panel
	themes *theme.Loader
	logger *slog.Logger

	bar         *Bar
	clockSource glib.SourceHandle
	clockEvery  time.Duration
	running     bool
}

// NewManager creates a new display manager.
func NewManager(app *gtk.Application, panel *daemon.Panel, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		app:    app,
		panel:  panel,
		themes: theme.NewLoader(GLibScheduler{}, logger.With("component", "theme")),
		logger: logger,
	}
}

// Start loads the theme and shows the bar. Call from the application's
// activate handler.
func (m *Manager) Start(ctx context.Context) error {
	if gdk.DisplayGetDefault() == nil {
		return &DisplayError{Message: "no display available"}
	}

	cfg := m.panel.Config()
	m.themes.LoadTheme(cfg.Theme.Name)
	m.themes.Apply(nil)
	m.themes.StartHotReload(ctx)

	m.bar = NewBar(m.app, m.panel.Tray(), m.panel.Entries(), cfg, m.logger)
	m.bar.layout.OnMonitorsChanged(func() {
		if m.running {
			m.bar.Relayout()
		}
	})

	m.panel.Tray().OnChange(m.refresh)
	m.panel.Tray().OnFinished(func(error) { m.refresh() })
	m.panel.OnEntriesChange(m.refresh)
	m.panel.OnConfigChange(func(cfg *config.PanelConfig) { m.UpdateConfig(ctx, cfg) })

	m.running = true
	m.startClock(cfg.Clock.Interval.Duration())
	m.bar.Present()

	m.logger.Info("display manager started")
	return nil
}

// Stop closes the bar.
func (m *Manager) Stop() {
	if !m.running {
		return
	}
	m.running = false
	m.stopClock()
	m.themes.StopHotReload()
	m.bar.Close()
	m.logger.Info("display manager stopped")
}

// UpdateConfig applies a reloaded config.
func (m *Manager) UpdateConfig(ctx context.Context, cfg *config.PanelConfig) {
	if !m.running {
		return
	}
	if cfg.Theme.Name != m.themes.Theme().Name {
		m.themes.LoadTheme(cfg.Theme.Name)
		if m.themes.Theme().Name != cfg.Theme.Name {
			go m.panel.Notifier().NotifyThemeError(&DisplayError{Message: "theme " + cfg.Theme.Name + " not found"})
		}
		m.themes.StartHotReload(ctx)
	}
	m.bar.UpdateConfig(cfg)
	if interval := cfg.Clock.Interval.Duration(); interval != m.clockEvery {
		m.stopClock()
		m.startClock(interval)
	}
}

func (m *Manager) refresh() {
	if m.running {
		m.bar.Refresh()
	}
}

func (m *Manager) startClock(interval time.Duration) {
	m.clockEvery = interval
	if interval <= 0 {
		return
	}
	m.clockSource = glib.TimeoutAdd(uint(interval.Milliseconds()), func() bool {
		if !m.running {
			return false
		}
		m.bar.Tick(time.Now())
		return true
	})
}

func (m *Manager) stopClock() {
	if m.clockSource != 0 {
		glib.SourceRemove(m.clockSource)
		m.clockSource = 0
	}
}

// DisplayError represents an error in the display system.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
