// Package output provides output formatters for window lists.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

// Formatter formats windows for output.
type Formatter interface {
	// Format writes formatted windows to the writer.
	Format(w io.Writer, windows []dbus.WindowInfo) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatTable    FormatType = "table"
	FormatJSON     FormatType = "json"
	FormatYAML     FormatType = "yaml"
	FormatTemplate FormatType = "template"
	FormatDmenu    FormatType = "dmenu"
	FormatIDs      FormatType = "ids"
)

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts), nil
	case FormatYAML:
		return NewYAMLFormatter(opts), nil
	case FormatIDs:
		return NewIDsFormatter(), nil
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatTemplate:
		if opts.Template == "" {
			return nil, fmt.Errorf("format %q needs a template", format)
		}
		return NewDmenuFormatter(opts)
	case FormatTable, "":
		return NewTableFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Go template for dmenu/template format
	Humanize  bool   // Relative "first seen" times instead of timestamps
	Width     int    // Maximum line width for tables (0 = unlimited)
	Separator string // Field separator for dmenu format
	// Now is used for relative times. Defaults to time.Now.
	Now func() time.Time
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		Humanize:  true,
		Separator: " | ",
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// seenText renders a first-seen timestamp.
func (o FormatterOptions) seenText(firstSeen uint32) string {
	if firstSeen == 0 {
		return "unknown"
	}
	t := time.Unix(int64(firstSeen), 0)
	if o.Humanize {
		return humanize.RelTime(t, o.now(), "ago", "from now")
	}
	return t.Format(time.DateTime)
}

// templateData provides data for custom templates. WindowInfo fields are
// promoted, so "{{.AppID}}" works.
type templateData struct {
	dbus.WindowInfo
	Index  int
	Seen   string
	Active bool
}

func newTemplateData(index int, w dbus.WindowInfo, opts FormatterOptions) templateData {
	return templateData{
		WindowInfo: w,
		Index:      index,
		Seen:       opts.seenText(w.FirstSeen),
		Active:     w.HasState("activated"),
	}
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"join":     strings.Join,
		"has": func(states []string, state string) bool {
			for _, s := range states {
				if s == state {
					return true
				}
			}
			return false
		},
	}
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// FormatField outputs a specific field of a window.
func FormatField(w dbus.WindowInfo, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return w.ID
	case "app", "app_id", "appid":
		return w.AppID
	case "title":
		return w.Title
	case "states", "state":
		return strings.Join(w.States, ",")
	case "first_seen":
		return fmt.Sprintf("%d", w.FirstSeen)
	default:
		return w.Title
	}
}
