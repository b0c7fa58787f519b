// Package main is the entry point for the wlpaneld panel daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/wlpanel/internal/backend"
	"github.com/jmylchreest/wlpanel/internal/config"
	"github.com/jmylchreest/wlpanel/internal/daemon"
	"github.com/jmylchreest/wlpanel/internal/dbus"
	"github.com/jmylchreest/wlpanel/internal/display"
	"github.com/jmylchreest/wlpanel/internal/uiloop"
)

const appID = "io.github.jmylchreest.wlpaneld"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	headless := flag.Bool("headless", false, "Track windows and serve D-Bus without showing a panel")
	backendName := flag.String("backend", "", "Compositor backend: auto, cosmic, wlr, kde, x11, none (overrides config)")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/wlpanel/wlpanel.toml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		println("wlpaneld version", version)
		os.Exit(0)
	}

	// Set up structured logging
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		var err error
		path, err = config.PanelConfigPath()
		if err != nil {
			logger.Error("failed to get config path", "error", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadPanelConfig(path)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *backendName != "" {
		cfg.Compositor.Backend = *backendName
	}

	opts := daemon.Options{
		Config:     cfg,
		ConfigPath: path,
		Backend: backend.Select(cfg.Compositor.Backend, backend.Options{
			TrackWorkspaces: cfg.Compositor.TrackWorkspaces,
		}, logger.With("component", "backend")),
		Logger: logger,
	}

	if *headless {
		os.Exit(runHeadless(opts))
	}
	os.Exit(runPanel(opts))
}

// runHeadless runs the tracker on a plain callback loop. Windows are only
// reachable through the D-Bus interface.
func runHeadless(opts daemon.Options) int {
	logger := opts.Logger
	logger.Info("starting wlpaneld in headless mode", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var exitCode atomic.Int32
	loop := uiloop.New()
	opts.Scheduler = loop
	opts.OnFatal = func(err error) {
		logger.Error("window tracking required but stopped", "error", err)
		exitCode.Store(1)
		cancel()
	}

	panel := daemon.NewPanel(opts)
	if err := panel.Start(ctx); err != nil {
		logger.Error("failed to start panel", "error", err)
		return 1
	}

	logger.Info("wlpaneld ready", "dbus_interface", dbus.DBusInterface)
	loop.Run(ctx)

	panel.Stop()
	logger.Info("wlpaneld stopped")
	return int(exitCode.Load())
}

// runPanel runs the GTK panel.
func runPanel(opts daemon.Options) int {
	logger := opts.Logger
	logger.Info("starting wlpaneld", "version", version)

	// Create the libadwaita application
	app := adw.NewApplication(appID, 0)

	var (
		panel          *daemon.Panel
		displayManager *display.Manager
		running        atomic.Bool
		exitCode       atomic.Int32
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := func() {
		if !running.Load() {
			return
		}
		if displayManager != nil {
			displayManager.Stop()
		}
		if panel != nil {
			panel.Stop()
		}
		app.Quit()
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()

		// Stop components in GTK main loop context
		glib.IdleAdd(shutdown)
	}()

	opts.Scheduler = display.GLibScheduler{}
	opts.OnFatal = func(err error) {
		logger.Error("window tracking required but stopped", "error", err)
		exitCode.Store(1)
		cancel()
		shutdown()
	}

	// Handle application activation
	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		panel = daemon.NewPanel(opts)

		displayManager = display.NewManager(&app.Application, panel, logger.With("component", "display"))
		if err := displayManager.Start(ctx); err != nil {
			logger.Error("failed to start display manager", "error", err)
			exitCode.Store(1)
			app.Quit()
			return
		}

		if err := panel.Start(ctx); err != nil {
			logger.Error("failed to start panel", "error", err)
			displayManager.Stop()
			exitCode.Store(1)
			app.Quit()
			return
		}

		logger.Info("wlpaneld ready", "dbus_interface", dbus.DBusInterface)

		// Create a hidden window to keep the application running
		// (GTK apps quit when all windows are closed)
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	// Handle shutdown
	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if displayManager != nil {
			displayManager.Stop()
		}
		if panel != nil {
			panel.Stop()
		}
		running.Store(false)
	})

	// Run the application
	status := app.Run(os.Args[:1])
	cancel()

	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}

	logger.Info("wlpaneld stopped")
	return int(exitCode.Load())
}
