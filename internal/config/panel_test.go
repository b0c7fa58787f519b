package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

func TestDefaultPanelConfig(t *testing.T) {
	cfg := DefaultPanelConfig()

	assert.Equal(t, "auto", cfg.Compositor.Backend)
	assert.Equal(t, toplevel.ViolationPanic, cfg.ViolationPolicy())
	assert.Equal(t, "bottom", cfg.Panel.Position)
	assert.Equal(t, 40, cfg.Panel.Height)
	assert.Nil(t, cfg.LaunchGPU())
	assert.Equal(t, time.Second, cfg.Clock.Interval.Duration())
	assert.True(t, cfg.DBus.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPanelConfig_Missing(t *testing.T) {
	cfg, err := LoadPanelConfig(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPanelConfig(), cfg)
}

func TestLoadPanelConfig_ParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wlpanel.toml")
	content := `
[compositor]
backend = "wlr"
on_protocol_violation = "warn"
track_workspaces = false

[panel]
position = "top"
height = 32
layer = "overlay"

[app_tray]
favorites = ["firefox", "org.gnome.Nautilus"]
launch_gpu = 1

[clock]
format = "Mon 15:04"
interval = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadPanelConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "wlr", cfg.Compositor.Backend)
	assert.Equal(t, toplevel.ViolationWarn, cfg.ViolationPolicy())
	assert.False(t, cfg.Compositor.TrackWorkspaces)
	assert.Equal(t, "top", cfg.Panel.Position)
	assert.Equal(t, 32, cfg.Panel.Height)
	assert.Equal(t, "overlay", cfg.Panel.Layer)
	assert.Equal(t, []string{"firefox", "org.gnome.Nautilus"}, cfg.AppTray.Favorites)
	require.NotNil(t, cfg.LaunchGPU())
	assert.Equal(t, 1, *cfg.LaunchGPU())
	assert.Equal(t, 30*time.Second, cfg.Clock.Interval.Duration())

	// Untouched sections keep defaults.
	assert.Equal(t, "default", cfg.Theme.Name)
	assert.True(t, cfg.DBus.Enabled)
}

func TestPanelConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *PanelConfig)
		wantErr string
	}{
		{"bad backend", func(c *PanelConfig) { c.Compositor.Backend = "gnome" }, "invalid backend"},
		{"bad policy", func(c *PanelConfig) { c.Compositor.OnProtocolViolation = "ignore" }, "ignore"},
		{"bad position", func(c *PanelConfig) { c.Panel.Position = "left" }, "invalid position"},
		{"bad layer", func(c *PanelConfig) { c.Panel.Layer = "middle" }, "invalid layer"},
		{"too short", func(c *PanelConfig) { c.Panel.Height = 4 }, "height"},
		{"negative monitor", func(c *PanelConfig) { c.Panel.Monitor = -1 }, "monitor"},
		{"bad gpu", func(c *PanelConfig) { c.AppTray.LaunchGPU = -2 }, "launch_gpu"},
		{"empty favorite", func(c *PanelConfig) { c.AppTray.Favorites = []string{" "} }, "favorites"},
		{"fast clock", func(c *PanelConfig) { c.Clock.Interval = Duration(time.Millisecond) }, "clock interval"},
		{"bad scheme", func(c *PanelConfig) { c.Theme.ColorScheme = "sepia" }, "color_scheme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPanelConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestPanelConfig_ClockDisabledSkipsInterval(t *testing.T) {
	cfg := DefaultPanelConfig()
	cfg.Clock.Format = ""
	cfg.Clock.Interval = 0
	assert.NoError(t, cfg.Validate())
}

func TestSavePanelConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wlpanel", "wlpanel.toml")

	cfg := DefaultPanelConfig()
	cfg.AppTray.Favorites = []string{"kitty"}
	require.NoError(t, SavePanelConfig(cfg, path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadPanelConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"kitty"}, loaded.AppTray.Favorites)
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())

	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestPanelConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	path, err := PanelConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/custom/config/wlpanel/wlpanel.toml", path)
}
