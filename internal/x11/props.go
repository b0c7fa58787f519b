package x11

import (
	"slices"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// statesFromEWMH maps _NET_WM_STATE atom names onto the toplevel model.
// X11 keeps focus on the root window, so active is passed separately.
func statesFromEWMH(names []string, active bool) toplevel.StateSet {
	var set toplevel.StateSet
	for _, n := range names {
		switch n {
		case "_NET_WM_STATE_HIDDEN":
			set = set.With(toplevel.Minimized)
		case "_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ":
			set = set.With(toplevel.Maximized)
		case "_NET_WM_STATE_FULLSCREEN":
			set = set.With(toplevel.Fullscreen)
		}
	}
	if active {
		set = set.With(toplevel.Activated)
	}
	return set
}

// isTaskbarWindow reports whether a client belongs on a panel. Windows with
// no type are treated as normal.
func isTaskbarWindow(types, states []string) bool {
	if slices.Contains(states, "_NET_WM_STATE_SKIP_TASKBAR") {
		return false
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP", "_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH", "_NET_WM_WINDOW_TYPE_NOTIFICATION",
			"_NET_WM_WINDOW_TYPE_TOOLBAR", "_NET_WM_WINDOW_TYPE_MENU",
			"_NET_WM_WINDOW_TYPE_UTILITY":
			return false
		}
	}
	return len(types) == 0
}

// diffClients compares the tracked set with a fresh _NET_CLIENT_LIST.
// added keeps the client list order.
func diffClients[V any](tracked map[xproto.Window]V, list []xproto.Window) (added, removed []xproto.Window) {
	seen := make(map[xproto.Window]struct{}, len(list))
	for _, w := range list {
		seen[w] = struct{}{}
		if _, ok := tracked[w]; !ok {
			added = append(added, w)
		}
	}
	for w := range tracked {
		if _, ok := seen[w]; !ok {
			removed = append(removed, w)
		}
	}
	slices.Sort(removed)
	return added, removed
}

// appIDFromClass picks the WM_CLASS part desktop files are matched against.
func appIDFromClass(instance, class string) string {
	if class != "" {
		return class
	}
	return instance
}
