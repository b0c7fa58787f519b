package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

// DmenuFormatter formats windows one per line for dmenu/rofi/fuzzel, or
// through a custom template.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter. A template that does not
// parse is an error.
func NewDmenuFormatter(opts FormatterOptions) (*DmenuFormatter, error) {
	f := &DmenuFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs()).Parse(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		f.template = tmpl
	}

	return f, nil
}

// Format writes windows in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, windows []dbus.WindowInfo) error {
	for i, win := range windows {
		line, err := f.formatLine(i+1, win)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatLine formats a single window line.
func (f *DmenuFormatter) formatLine(index int, w dbus.WindowInfo) (string, error) {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(index, w, f.opts)); err != nil {
			return "", fmt.Errorf("template failed for window %s: %w", w.ID, err)
		}
		return buf.String(), nil
	}

	// Default format: id | app | title
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}
	title := strings.Join(strings.Fields(w.Title), " ")
	return strings.Join([]string{w.ID, w.AppID, title}, sep), nil
}

// ParseDmenuSelection extracts the window id from a line printed by the
// default dmenu format, so selections can be piped back.
func ParseDmenuSelection(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.Index(line, " | "); i >= 0 {
		return line[:i]
	}
	return line
}
