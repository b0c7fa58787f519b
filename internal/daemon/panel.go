package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/wlpanel/internal/apptray"
	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/config"
	"github.com/jmylchreest/wlpanel/internal/dbus"
	"github.com/jmylchreest/wlpanel/internal/desktopentry"
	"github.com/jmylchreest/wlpanel/internal/uiloop"
)

const appName = "wlpaneld"

// ErrTrackingFinished is passed to Options.OnFatal when the compositor
// connection ends and the config requires one.
var ErrTrackingFinished = errors.New("window tracking finished")

// Options configures a Panel.
type Options struct {
	Config *config.PanelConfig
	// ConfigPath is watched for changes. Empty disables hot reload.
	ConfigPath string
	Backend    compositor.Backend
	// Scheduler runs tray callbacks: the GTK main loop or a uiloop.Loop.
	Scheduler uiloop.Scheduler
	Logger    *slog.Logger
	Launcher  apptray.Launcher
	// DataDirs are searched for desktop entries. Defaults to desktopentry.DataDirs.
	DataDirs []string
	// OnFatal is called on the UI thread when the panel cannot keep running.
	OnFatal func(error)
}

// Panel wires the compositor bridge, the tray and the session bus together.
// All listener callbacks run on the scheduler's thread.
type Panel struct {
	logger *slog.Logger
	sched  uiloop.Scheduler

	cfg        *config.PanelConfig
	configPath string

	bridge     *compositor.Bridge
	tray       *apptray.Tray
	entries    *desktopentry.Cache
	controller *TrayController
	notifier   *InternalNotifier

	server        *dbus.PanelServer
	configWatcher *ConfigWatcher
	entryWatcher  *desktopentry.Watcher

	onFatal         func(error)
	configListeners []func(*config.PanelConfig)
	entryListeners  []func()

	mu      sync.Mutex
	running bool
}

// NewPanel creates a panel. Nothing connects until Start.
func NewPanel(opts Options) *Panel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultPanelConfig()
	}
	backend := opts.Backend
	if backend == nil {
		backend = compositor.NoneBackend{}
	}
	dirs := opts.DataDirs
	if dirs == nil {
		dirs = desktopentry.DataDirs()
	}

	tray := apptray.New(apptray.Options{
		TrackWorkspaces: cfg.Compositor.TrackWorkspaces,
		Launcher:        opts.Launcher,
		Logger:          logger.With("component", "tray"),
	})
	entries := desktopentry.NewCache(dirs, logger.With("component", "desktopentry"))
	controller := NewTrayController(opts.Scheduler, tray, entries)
	controller.SetLaunchGPU(cfg.LaunchGPU())

	notifier := NewInternalNotifier(logger.With("component", "notifier"))
	notifier.SetEnabled(cfg.DBus.Notify)

	p := &Panel{
		logger:     logger,
		sched:      opts.Scheduler,
		cfg:        cfg,
		configPath: opts.ConfigPath,
		bridge:     compositor.NewBridge(backend, cfg.ViolationPolicy(), logger.With("component", "compositor")),
		tray:       tray,
		entries:    entries,
		controller: controller,
		notifier:   notifier,
		onFatal:    opts.OnFatal,
	}

	tray.OnFinished(p.trackingFinished)
	tray.OnLaunchFailed(func(appID string, err error) {
		go notifier.NotifyLaunchFailed(appID, err)
	})
	return p
}

// Tray returns the tray. It must only be used on the UI thread.
func (p *Panel) Tray() *apptray.Tray {
	return p.tray
}

// Entries returns the desktop entry cache.
func (p *Panel) Entries() *desktopentry.Cache {
	return p.entries
}

// Controller returns the controller behind the D-Bus interface.
func (p *Panel) Controller() *TrayController {
	return p.controller
}

// Config returns the active configuration. Call on the UI thread.
func (p *Panel) Config() *config.PanelConfig {
	return p.cfg
}

// Notifier returns the internal notifier.
func (p *Panel) Notifier() *InternalNotifier {
	return p.notifier
}

// OnConfigChange registers fn to run after a valid config was reloaded.
func (p *Panel) OnConfigChange(fn func(*config.PanelConfig)) {
	p.configListeners = append(p.configListeners, fn)
}

// OnEntriesChange registers fn to run after desktop entries were rescanned.
func (p *Panel) OnEntriesChange(fn func()) {
	p.entryListeners = append(p.entryListeners, fn)
}

// Start loads desktop entries, exports the bus interface and subscribes to
// the compositor. Optional services that fail to start are logged and
// skipped.
func (p *Panel) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("panel already running")
	}
	p.running = true
	p.mu.Unlock()

	if err := p.entries.Load(); err != nil {
		p.logger.Warn("failed to load desktop entries", "error", err)
	}
	p.logger.Info("desktop entries loaded", "count", p.entries.Len())
	p.startEntryWatcher(ctx)

	if p.cfg.DBus.Notify {
		client, err := dbus.NewNotificationsClient()
		if err != nil {
			p.logger.Warn("desktop notifications unavailable", "error", err)
		} else {
			p.notifier.SetNotifyHandler(client.Notify)
		}
	}

	if p.cfg.DBus.Enabled {
		p.server = dbus.NewPanelServer(p.controller, p.logger.With("component", "dbus"))
		if err := p.server.Start(); err != nil {
			p.logger.Warn("failed to start D-Bus server", "error", err)
			p.server = nil
		} else {
			p.tray.OnChange(p.emitWindowsChanged)
		}
	}

	p.startConfigWatcher(ctx)

	p.bridge.Subscribe(ctx, p.sched, p.tray.Apply)
	p.logger.Info("panel started", "backend", p.bridge.Backend().Name())
	return nil
}

// Stop shuts everything down. The compositor worker exits and the tray
// receives Finished if the scheduler is still running.
func (p *Panel) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false

	p.bridge.Shutdown()
	if p.configWatcher != nil {
		p.configWatcher.Stop()
	}
	if p.entryWatcher != nil {
		p.entryWatcher.Stop()
	}
	if p.server != nil {
		_ = p.server.Stop()
	}
	p.logger.Info("panel stopped")
}

func (p *Panel) emitWindowsChanged() {
	if err := p.server.EmitWindowsChanged(); err != nil {
		p.logger.Debug("failed to emit WindowsChanged", "error", err)
	}
}

func (p *Panel) trackingFinished(err error) {
	if err != nil {
		p.logger.Error("window tracking stopped", "error", err)
	} else {
		p.logger.Info("window tracking stopped")
	}

	if p.server != nil {
		reason := ""
		if err != nil {
			reason = err.Error()
		}
		if emitErr := p.server.EmitTrackingFinished(reason); emitErr != nil {
			p.logger.Debug("failed to emit TrackingFinished", "error", emitErr)
		}
	}

	p.mu.Lock()
	stopping := !p.running
	p.mu.Unlock()
	if stopping {
		return
	}

	go p.notifier.NotifyTrackingStopped(err)

	if p.cfg.Compositor.RequireConnection && p.onFatal != nil {
		if err == nil {
			err = ErrTrackingFinished
		}
		p.onFatal(err)
	}
}

func (p *Panel) startEntryWatcher(ctx context.Context) {
	w, err := desktopentry.NewWatcher(p.entries, p.logger.With("component", "desktopentry"))
	if err != nil {
		p.logger.Warn("failed to create desktop entry watcher", "error", err)
		return
	}
	w.SetReloadCallback(func() {
		p.sched.Post(func() {
			for _, fn := range p.entryListeners {
				fn()
			}
		})
	})
	if err := w.Start(ctx); err != nil {
		p.logger.Warn("failed to start desktop entry watcher", "error", err)
		return
	}
	p.entryWatcher = w
}

func (p *Panel) startConfigWatcher(ctx context.Context) {
	if p.configPath == "" {
		return
	}
	w, err := NewConfigWatcher(p.configPath, p.logger.With("component", "config"))
	if err != nil {
		p.logger.Warn("failed to create config watcher", "error", err)
		return
	}
	w.SetReloadCallback(func(cfg *config.PanelConfig) {
		p.sched.Post(func() { p.applyConfig(cfg) })
	})
	w.SetErrorCallback(p.notifier.NotifyConfigError)
	if err := w.Start(ctx, p.cfg); err != nil {
		p.logger.Warn("failed to start config watcher", "error", err)
		return
	}
	p.configWatcher = w
}

// applyConfig takes over the settings that can change at runtime. Compositor
// settings only apply after a restart.
func (p *Panel) applyConfig(cfg *config.PanelConfig) {
	if cfg.Compositor != p.cfg.Compositor {
		p.logger.Info("compositor settings changed, restart wlpaneld to apply them")
	}
	p.cfg = cfg
	p.controller.SetLaunchGPU(cfg.LaunchGPU())
	p.notifier.SetEnabled(cfg.DBus.Notify)

	for _, fn := range p.configListeners {
		fn(cfg)
	}
	go p.notifier.NotifyConfigReloaded()
}
