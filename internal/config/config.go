// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultOutputFormat = "table"
	DefaultListTemplate = "{{.AppID}}\t{{.Title}}\t{{.States}}"
)

// OutputFormats lists the formats the CLI can print.
var OutputFormats = []string{"table", "json", "yaml", "template", "dmenu", "ids"}

// Config represents the wlpanel CLI configuration.
type Config struct {
	Output OutputConfig `toml:"output"`
	TUI    TUIConfig    `toml:"tui"`
}

// OutputConfig holds default output options for list commands.
type OutputConfig struct {
	Format   string `toml:"format"`   // table, json, yaml, template, dmenu, ids
	Template string `toml:"template"` // Used with format = "template"
	Humanize bool   `toml:"humanize"` // Relative "first seen" times
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	ShowHelp         bool     `toml:"show_help"`
	RefreshEvery     Duration `toml:"refresh_every"`     // 0 = only on WindowsChanged
	ClipboardCommand string   `toml:"clipboard_command"` // Empty = auto-detect wl-copy, xclip, xsel
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format:   DefaultOutputFormat,
			Template: DefaultListTemplate,
			Humanize: true,
		},
		TUI: TUIConfig{
			ShowHelp: true,
		},
	}
}

// configHome returns XDG_CONFIG_HOME, or ~/.config when unset.
func configHome() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return configHome
}

// ConfigPath returns the path to the CLI config file.
func ConfigPath() string {
	home := configHome()
	if home == "" {
		return ""
	}
	return filepath.Join(home, "wlpanel", "cli.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the CLI configuration.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format %q, must be one of: %v", c.Output.Format, OutputFormats)
	}
	if c.Output.Format == "template" && c.Output.Template == "" {
		return errors.New("output format \"template\" needs output.template")
	}
	if c.TUI.RefreshEvery < 0 {
		return errors.New("tui.refresh_every must not be negative")
	}
	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
