// Package backend chooses the compositor backend for the running session.
package backend

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/wayland"
	"github.com/jmylchreest/wlpanel/internal/x11"
)

// Names lists the accepted backend names.
var Names = []string{"auto", "cosmic", "wlr", "kde", "x11", "none"}

// EnvOverride names the environment variable that overrides desktop detection.
const EnvOverride = "WLPANEL_DESKTOP"

// Options configures backend construction.
type Options struct {
	// TrackWorkspaces enables workspace tracking where the backend supports it.
	TrackWorkspaces bool
	// Getenv reads the environment. Defaults to os.Getenv.
	Getenv func(string) string
}

// Resolve turns a configured name into a concrete backend name. "auto" and
// "" detect from the environment. Detection that finds nothing returns "",
// which callers treat as none with a warning.
func Resolve(name string, getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "cosmic", "wlr", "kde", "x11", "none":
		return name, nil
	case "", "auto":
	default:
		return "", fmt.Errorf("unknown backend %q", name)
	}

	desktop := getenv(EnvOverride)
	if desktop == "" {
		desktop = getenv("XDG_CURRENT_DESKTOP")
	}
	for _, d := range strings.Split(desktop, ":") {
		switch strings.ToLower(strings.TrimSpace(d)) {
		case "cosmic":
			return "cosmic", nil
		case "kde", "plasma":
			return "kde", nil
		case "sway", "hyprland", "river", "wlroots", "labwc", "niri", "wayfire":
			return "wlr", nil
		case "x11":
			return "x11", nil
		case "none":
			return "none", nil
		}
	}

	if getenv("WAYLAND_DISPLAY") == "" && getenv("DISPLAY") != "" {
		return "x11", nil
	}
	return "", nil
}

// Select returns the backend for name. Unknown names and undetectable
// desktops fall back to compositor.NoneBackend with a warning.
func Select(name string, opts Options, logger *slog.Logger) compositor.Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	resolved, err := Resolve(name, opts.Getenv)
	if err != nil {
		logger.Warn("invalid backend, toplevel tracking disabled", "backend", name, "error", err)
		return compositor.NoneBackend{}
	}

	switch resolved {
	case "cosmic":
		return wayland.CosmicBackend{TrackWorkspaces: opts.TrackWorkspaces}
	case "wlr":
		return wayland.WlrBackend{}
	case "kde":
		return wayland.KDEBackend{}
	case "x11":
		return x11.Backend{}
	case "none":
		return compositor.NoneBackend{}
	}

	logger.Warn("unsupported desktop, toplevel tracking disabled",
		"XDG_CURRENT_DESKTOP", opts.Getenv("XDG_CURRENT_DESKTOP"))
	return compositor.NoneBackend{}
}
