package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

// TableFormatter formats windows as an aligned table with a header row.
type TableFormatter struct {
	opts FormatterOptions
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(opts FormatterOptions) *TableFormatter {
	return &TableFormatter{opts: opts}
}

// Format writes windows as a table. The focused window is marked with "*".
func (f *TableFormatter) Format(w io.Writer, windows []dbus.WindowInfo) error {
	if len(windows) == 0 {
		_, err := fmt.Fprintln(w, "No windows")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderRow(false).
		BorderHeader(true).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().PaddingRight(2)
		}).
		Headers("", "ID", "APP", "TITLE", "STATES", "FIRST SEEN")

	for _, win := range windows {
		mark := ""
		if win.HasState("activated") {
			mark = "*"
		}
		t.Row(
			mark,
			win.ID,
			win.AppID,
			strings.Join(strings.Fields(win.Title), " "),
			strings.Join(win.States, ","),
			f.opts.seenText(win.FirstSeen),
		)
	}

	if f.opts.Width > 0 {
		t.Width(f.opts.Width)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
