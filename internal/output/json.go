package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

// JSONFormatter formats windows as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes windows as a JSON array.
func (f *JSONFormatter) Format(w io.Writer, windows []dbus.WindowInfo) error {
	if windows == nil {
		windows = []dbus.WindowInfo{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(windows)
}

// FormatSingle writes a single window as JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, win dbus.WindowInfo) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(win)
}

// YAMLFormatter formats windows as YAML.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes windows as a YAML sequence.
func (f *YAMLFormatter) Format(w io.Writer, windows []dbus.WindowInfo) error {
	if windows == nil {
		windows = []dbus.WindowInfo{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(windows); err != nil {
		return err
	}
	return encoder.Close()
}
