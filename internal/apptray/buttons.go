package apptray

import (
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// Button is one entry of the rendered tray: a pinned favorite, a running
// application, or both.
type Button struct {
	AppID   string
	Pinned  bool
	Windows []Window
	// Focused is true when one of Windows is the active window.
	Focused bool
}

// Running reports whether the application has windows.
func (b Button) Running() bool {
	return len(b.Windows) > 0
}

// Buttons lists favorites first, in the given order, followed by the other
// running applications sorted by app id.
func (t *Tray) Buttons(favorites []string) []Button {
	active, hasActive := t.ActiveWindow()
	isFocused := func(ws []Window) bool {
		if !hasActive {
			return false
		}
		for _, w := range ws {
			if w.Handle == active.Handle {
				return true
			}
		}
		return false
	}

	pinned := make(map[string]struct{}, len(favorites))
	out := make([]Button, 0, len(favorites)+len(t.groups))
	for _, appID := range favorites {
		if _, dup := pinned[appID]; dup {
			continue
		}
		pinned[appID] = struct{}{}
		ws := t.GroupWindows(appID)
		out = append(out, Button{AppID: appID, Pinned: true, Windows: ws, Focused: isFocused(ws)})
	}
	for _, appID := range t.AppIDs() {
		if _, ok := pinned[appID]; ok {
			continue
		}
		ws := t.GroupWindows(appID)
		out = append(out, Button{AppID: appID, Windows: ws, Focused: isFocused(ws)})
	}
	return out
}

// Click performs the default action for b: launch a favorite with no windows,
// toggle a single window, or cycle focus through several windows.
func (t *Tray) Click(b Button, execLine string, gpu *int) bool {
	switch len(b.Windows) {
	case 0:
		if execLine == "" {
			return false
		}
		_, ok := t.Exec(b.AppID, execLine, gpu)
		return ok
	case 1:
		return t.Toggle(b.Windows[0].Handle)
	}

	for i, w := range b.Windows {
		if w.Info.State.Has(toplevel.Activated) {
			next := b.Windows[(i+1)%len(b.Windows)]
			return t.Activate(next.Handle)
		}
	}
	return t.Activate(b.Windows[0].Handle)
}
