package backend

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/wayland"
	"github.com/jmylchreest/wlpanel/internal/x11"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestResolve_Detection(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"cosmic", map[string]string{"XDG_CURRENT_DESKTOP": "COSMIC", "WAYLAND_DISPLAY": "wayland-1"}, "cosmic"},
		{"kde", map[string]string{"XDG_CURRENT_DESKTOP": "KDE", "WAYLAND_DISPLAY": "wayland-0"}, "kde"},
		{"sway", map[string]string{"XDG_CURRENT_DESKTOP": "sway"}, "wlr"},
		{"hyprland", map[string]string{"XDG_CURRENT_DESKTOP": "Hyprland"}, "wlr"},
		{"river", map[string]string{"XDG_CURRENT_DESKTOP": "river"}, "wlr"},
		{"colon list", map[string]string{"XDG_CURRENT_DESKTOP": "ubuntu:wlroots"}, "wlr"},
		{"override wins", map[string]string{"WLPANEL_DESKTOP": "KDE", "XDG_CURRENT_DESKTOP": "sway"}, "kde"},
		{"x11 session", map[string]string{"XDG_CURRENT_DESKTOP": "XFCE", "DISPLAY": ":0"}, "x11"},
		{"unknown wayland", map[string]string{"XDG_CURRENT_DESKTOP": "GNOME", "WAYLAND_DISPLAY": "wayland-0", "DISPLAY": ":0"}, ""},
		{"nothing", map[string]string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve("auto", env(tt.vars))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Explicit(t *testing.T) {
	got, err := Resolve(" WLR ", env(map[string]string{"XDG_CURRENT_DESKTOP": "COSMIC"}))
	require.NoError(t, err)
	assert.Equal(t, "wlr", got)

	_, err = Resolve("gnome", env(nil))
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b := Select("auto", Options{TrackWorkspaces: true, Getenv: env(map[string]string{"XDG_CURRENT_DESKTOP": "COSMIC"})}, logger)
	assert.Equal(t, wayland.CosmicBackend{TrackWorkspaces: true}, b)

	assert.Equal(t, wayland.KDEBackend{}, Select("kde", Options{}, logger))
	assert.Equal(t, x11.Backend{}, Select("x11", Options{}, logger))
	assert.Equal(t, compositor.NoneBackend{}, Select("bogus", Options{}, logger))
	assert.Equal(t, compositor.NoneBackend{}, Select("auto", Options{Getenv: env(nil)}, logger))
}
