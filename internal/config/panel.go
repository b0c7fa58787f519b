package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "1s", "30s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '1s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// PanelConfig is the configuration for wlpaneld.
// Loaded from ~/.config/wlpanel/wlpanel.toml
type PanelConfig struct {
	Compositor CompositorConfig `toml:"compositor"`
	Panel      BarConfig        `toml:"panel"`
	AppTray    AppTrayConfig    `toml:"app_tray"`
	Clock      ClockConfig      `toml:"clock"`
	Theme      ThemeConfig      `toml:"theme"`
	DBus       DBusConfig       `toml:"dbus"`
}

// CompositorConfig selects and tunes the window-tracking backend.
type CompositorConfig struct {
	Backend             string `toml:"backend"`               // auto, cosmic, wlr, kde, x11, none
	OnProtocolViolation string `toml:"on_protocol_violation"` // panic, warn
	RequireConnection   bool   `toml:"require_connection"`    // Exit when the backend cannot connect
	TrackWorkspaces     bool   `toml:"track_workspaces"`      // Scope focus to active workspaces
}

// BarConfig contains panel window settings.
type BarConfig struct {
	Position  string `toml:"position"`  // top, bottom
	Height    int    `toml:"height"`    // Pixels
	Layer     string `toml:"layer"`     // background, bottom, top, overlay
	Exclusive bool   `toml:"exclusive"` // Reserve screen space
	Monitor   int    `toml:"monitor"`   // 0 = primary, 1+ = specific monitor
}

// AppTrayConfig contains app tray settings.
type AppTrayConfig struct {
	Favorites  []string `toml:"favorites"`   // Desktop entry ids, pinned in order
	ShowTitles bool     `toml:"show_titles"` // Show the focused window title next to icons
	LaunchGPU  int      `toml:"launch_gpu"`  // DRI_PRIME index for launches, -1 = default GPU
}

// ClockConfig contains clock label settings.
type ClockConfig struct {
	Format   string   `toml:"format"`   // Go time layout, empty disables the clock
	Interval Duration `toml:"interval"` // Refresh interval
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // Theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
}

// DBusConfig contains session bus settings.
type DBusConfig struct {
	Enabled bool `toml:"enabled"` // Export the control interface
	Notify  bool `toml:"notify"`  // Send desktop notifications about panel problems
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// Position represents the screen edge the panel is anchored to.
type Position string

const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{PositionTop, PositionBottom}
}

// ValidLayers returns the layer-shell layers the panel may be placed on.
func ValidLayers() []string {
	return []string{"background", "bottom", "top", "overlay"}
}

// ValidBackends returns the accepted compositor backend names.
func ValidBackends() []string {
	return []string{"auto", "cosmic", "wlr", "kde", "x11", "none"}
}

// DefaultPanelConfig returns a new PanelConfig with default values.
func DefaultPanelConfig() *PanelConfig {
	return &PanelConfig{
		Compositor: CompositorConfig{
			Backend:             "auto",
			OnProtocolViolation: "panic",
			RequireConnection:   false,
			TrackWorkspaces:     true,
		},
		Panel: BarConfig{
			Position:  string(PositionBottom),
			Height:    40,
			Layer:     "top",
			Exclusive: true,
			Monitor:   0,
		},
		AppTray: AppTrayConfig{
			Favorites:  []string{},
			ShowTitles: false,
			LaunchGPU:  -1,
		},
		Clock: ClockConfig{
			Format:   "15:04",
			Interval: Duration(time.Second),
		},
		Theme: ThemeConfig{
			Name:        "default",
			ColorScheme: string(ColorSchemeSystem),
		},
		DBus: DBusConfig{
			Enabled: true,
			Notify:  true,
		},
	}
}

// PanelConfigPath returns the path to the panel config file.
func PanelConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "wlpanel", "wlpanel.toml"), nil
}

// LoadPanelConfig loads the panel configuration from path, or from
// PanelConfigPath when path is empty. If the file doesn't exist, returns the
// default configuration.
func LoadPanelConfig(path string) (*PanelConfig, error) {
	if path == "" {
		var err error
		path, err = PanelConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPanelConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultPanelConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SavePanelConfig saves the panel configuration to path, or to
// PanelConfigPath when path is empty.
func SavePanelConfig(config *PanelConfig, path string) error {
	if path == "" {
		var err error
		path, err = PanelConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *PanelConfig) Validate() error {
	if !slices.Contains(ValidBackends(), strings.ToLower(c.Compositor.Backend)) {
		return fmt.Errorf("invalid backend %q, must be one of: %v", c.Compositor.Backend, ValidBackends())
	}
	if _, err := toplevel.ParseViolationPolicy(c.Compositor.OnProtocolViolation); err != nil {
		return err
	}

	validPos := false
	for _, p := range ValidPositions() {
		if c.Panel.Position == string(p) {
			validPos = true
			break
		}
	}
	if !validPos {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Panel.Position, ValidPositions())
	}
	if !slices.Contains(ValidLayers(), c.Panel.Layer) {
		return fmt.Errorf("invalid layer %q, must be one of: %v", c.Panel.Layer, ValidLayers())
	}
	if c.Panel.Height < 16 || c.Panel.Height > 256 {
		return fmt.Errorf("height must be between 16 and 256, got %d", c.Panel.Height)
	}
	if c.Panel.Monitor < 0 {
		return fmt.Errorf("monitor must not be negative, got %d", c.Panel.Monitor)
	}

	if c.AppTray.LaunchGPU < -1 {
		return fmt.Errorf("launch_gpu must be -1 or a GPU index, got %d", c.AppTray.LaunchGPU)
	}
	for _, fav := range c.AppTray.Favorites {
		if strings.TrimSpace(fav) == "" {
			return fmt.Errorf("favorites must not contain empty entries")
		}
	}

	if c.Clock.Format != "" && c.Clock.Interval.Duration() < 100*time.Millisecond {
		return fmt.Errorf("clock interval must be at least 100ms, got %s", c.Clock.Interval.Duration())
	}

	validScheme := false
	for _, s := range ValidColorSchemes() {
		if c.Theme.ColorScheme == string(s) {
			validScheme = true
			break
		}
	}
	if !validScheme {
		return fmt.Errorf("invalid color_scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}

	return nil
}

// ViolationPolicy returns the parsed protocol violation policy.
func (c *PanelConfig) ViolationPolicy() toplevel.ViolationPolicy {
	p, err := toplevel.ParseViolationPolicy(c.Compositor.OnProtocolViolation)
	if err != nil {
		return toplevel.ViolationPanic
	}
	return p
}

// LaunchGPU returns the GPU index for launches, or nil for the default GPU.
func (c *PanelConfig) LaunchGPU() *int {
	if c.AppTray.LaunchGPU < 0 {
		return nil
	}
	gpu := c.AppTray.LaunchGPU
	return &gpu
}
