package display

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/wlpanel/internal/apptray"
	"github.com/jmylchreest/wlpanel/internal/desktopentry"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// sanitizeClassName converts a string to a valid CSS class name.
// Replaces spaces and special characters with hyphens, lowercases.
func sanitizeClassName(name string) string {
	var result strings.Builder
	prevHyphen := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			result.WriteRune(r)
			prevHyphen = false
		case r == '-' || r == '_' || r == ' ' || r == '.' || r == '/':
			if !prevHyphen && result.Len() > 0 {
				result.WriteRune('-')
				prevHyphen = true
			}
		}
	}

	return strings.TrimSuffix(result.String(), "-")
}

// buttonClasses returns the CSS classes of an app tray button.
func buttonClasses(b apptray.Button) []string {
	classes := []string{"app-button"}
	if b.Running() {
		classes = append(classes, "running")
	}
	if b.Focused {
		classes = append(classes, "focused")
	}
	if b.Pinned {
		classes = append(classes, "pinned")
	}
	if len(b.Windows) > 1 {
		classes = append(classes, "multiple")
	}
	if app := sanitizeClassName(b.AppID); app != "" {
		classes = append(classes, "app-"+app)
	}
	return classes
}

// windowRowClasses returns the CSS classes of a row in the window list.
func windowRowClasses(w apptray.Window) []string {
	classes := []string{"window-row"}
	if w.Info.State.Has(toplevel.Activated) {
		classes = append(classes, "focused")
	}
	if w.Info.State.Has(toplevel.Minimized) {
		classes = append(classes, "minimized")
	}
	return classes
}

// iconSource tells how to load the icon for an app: a themed icon name or
// an absolute file path.
type iconSource struct {
	Name string
	File string
}

// iconFor picks the icon for appID. Entries without an icon fall back to the
// app id itself, which many applications use as their icon name.
func iconFor(appID string, entry *desktopentry.Entry) iconSource {
	if entry != nil && entry.Icon != "" {
		if filepath.IsAbs(entry.Icon) {
			return iconSource{File: entry.Icon}
		}
		return iconSource{Name: entry.Icon}
	}
	if appID == "" {
		return iconSource{Name: "application-x-executable"}
	}
	return iconSource{Name: appID}
}

// displayName is the human-readable name of an app.
func displayName(appID string, entry *desktopentry.Entry) string {
	if entry != nil && entry.Name != "" {
		return entry.Name
	}
	if appID == "" {
		return "Unknown application"
	}
	return appID
}

// buttonTooltip describes a tray button: the app name, then one line per
// window with its title and age.
func buttonTooltip(b apptray.Button, entry *desktopentry.Entry, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(displayName(b.AppID, entry))
	for _, w := range b.Windows {
		title := w.Info.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&sb, "\n%s · opened %s", title, humanize.RelTime(w.FirstSeen, now, "ago", "from now"))
	}
	return sb.String()
}

// clockText formats now with a Go time layout. An empty layout hides the clock.
func clockText(layout string, now time.Time) string {
	if layout == "" {
		return ""
	}
	return now.Format(layout)
}
