package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

// IDsFormatter outputs just the window ids, one per line.
// Useful for piping to other commands (e.g., wlpanel close --stdin).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes window ids to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, windows []dbus.WindowInfo) error {
	for _, win := range windows {
		if _, err := fmt.Fprintln(w, win.ID); err != nil {
			return err
		}
	}
	return nil
}
