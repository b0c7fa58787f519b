// Package apptray keeps the UI-side index of running applications and their
// windows, and turns user actions into compositor commands.
//
// A Tray is owned by the UI thread. It is fed compositor.Messages one at a
// time and never blocks.
package apptray

import (
	"log/slog"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// Window is a tracked window inside an application group.
type Window struct {
	Handle    toplevel.Handle
	Info      toplevel.Info
	ID        string
	FirstSeen time.Time
}

// Options configures a Tray.
type Options struct {
	// TrackWorkspaces limits focus to outputs showing an active workspace.
	TrackWorkspaces bool
	Launcher        Launcher
	Logger          *slog.Logger
	// Now is used for first-seen timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Tray groups windows by app id. A group exists only while it has windows.
type Tray struct {
	groups     map[string]map[toplevel.Handle]*Window
	byID       map[string]toplevel.Handle
	outputs    map[toplevel.Output]toplevel.OutputInfo
	workspaces []compositor.ActiveWorkspace

	commands compositor.CommandSender
	ready    bool
	finished bool
	err      error

	trackWorkspaces bool
	launcher        Launcher
	logger          *slog.Logger
	now             func() time.Time

	changeListeners       []func()
	finishedListeners     []func(error)
	launchFailedListeners []func(appID string, err error)
}

// New creates an empty tray.
func New(opts Options) *Tray {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = ProcessLauncher{Logger: logger}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Tray{
		groups:          make(map[string]map[toplevel.Handle]*Window),
		byID:            make(map[string]toplevel.Handle),
		outputs:         make(map[toplevel.Output]toplevel.OutputInfo),
		trackWorkspaces: opts.TrackWorkspaces,
		launcher:        launcher,
		logger:          logger,
		now:             now,
	}
}

// OnChange registers fn to run after any message that changed the index.
func (t *Tray) OnChange(fn func()) {
	t.changeListeners = append(t.changeListeners, fn)
}

// OnFinished registers fn to run when tracking stops.
func (t *Tray) OnFinished(fn func(error)) {
	t.finishedListeners = append(t.finishedListeners, fn)
}

// OnLaunchFailed registers fn to run when an application could not be started.
func (t *Tray) OnLaunchFailed(fn func(appID string, err error)) {
	t.launchFailedListeners = append(t.launchFailedListeners, fn)
}

// Apply folds one compositor message into the index.
func (t *Tray) Apply(msg compositor.Message) {
	changed := false

	switch m := msg.(type) {
	case compositor.Init:
		t.commands = m.Commands
		t.ready = true
	case compositor.Toplevel:
		changed = t.applyToplevel(m.Update)
	case compositor.Output:
		changed = t.applyOutput(m)
	case compositor.Workspaces:
		t.workspaces = m.Active
		changed = true
	case compositor.ActivationToken:
		if m.Exec != "" {
			t.launch(m.AppID, m.Exec, m.Token, m.GPU)
		}
	case compositor.Finished:
		t.finished = true
		t.err = m.Err
		t.ready = false
		for _, fn := range t.finishedListeners {
			fn(m.Err)
		}
	}

	if changed {
		for _, fn := range t.changeListeners {
			fn()
		}
	}
}

func (t *Tray) applyToplevel(u toplevel.Update) bool {
	switch u.Kind {
	case toplevel.UpdateAdd:
		group, ok := t.groups[u.Info.AppID]
		if !ok {
			group = make(map[toplevel.Handle]*Window)
			t.groups[u.Info.AppID] = group
		}
		w := &Window{
			Handle:    u.Handle,
			Info:      u.Info,
			ID:        ulid.Make().String(),
			FirstSeen: t.now(),
		}
		group[u.Handle] = w
		t.byID[w.ID] = u.Handle
		return true

	case toplevel.UpdateUpdate:
		// Windows are looked up in the group of their new app id only, so a
		// window whose app id changed after its first commit keeps its old group.
		if u.Info.AppID == "" {
			return false
		}
		group, ok := t.groups[u.Info.AppID]
		if !ok {
			return false
		}
		w, ok := group[u.Handle]
		if !ok {
			return false
		}
		w.Info = u.Info
		return true

	case toplevel.UpdateRemove:
		for appID, group := range t.groups {
			w, ok := group[u.Handle]
			if !ok {
				continue
			}
			delete(group, u.Handle)
			delete(t.byID, w.ID)
			if len(group) == 0 {
				delete(t.groups, appID)
			}
			return true
		}
	}
	return false
}

func (t *Tray) applyOutput(m compositor.Output) bool {
	switch m.Kind {
	case toplevel.UpdateAdd, toplevel.UpdateUpdate:
		t.outputs[m.Output] = m.Info
	case toplevel.UpdateRemove:
		delete(t.outputs, m.Output)
	}
	return true
}

// Ready reports whether commands can be sent.
func (t *Tray) Ready() bool {
	return t.ready
}

// Finished reports whether tracking has stopped and why.
func (t *Tray) Finished() (bool, error) {
	return t.finished, t.err
}

// ActiveToplevels returns a deep copy of every group.
func (t *Tray) ActiveToplevels() map[string]map[toplevel.Handle]toplevel.Info {
	out := make(map[string]map[toplevel.Handle]toplevel.Info, len(t.groups))
	for appID, group := range t.groups {
		g := make(map[toplevel.Handle]toplevel.Info, len(group))
		for h, w := range group {
			g[h] = w.Info.Clone()
		}
		out[appID] = g
	}
	return out
}

// AppIDs returns the app id of every group, sorted.
func (t *Tray) AppIDs() []string {
	ids := make([]string, 0, len(t.groups))
	for id := range t.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Windows returns copies of all windows, ordered by app id then first-seen.
func (t *Tray) Windows() []Window {
	var out []Window
	for _, appID := range t.AppIDs() {
		out = append(out, t.GroupWindows(appID)...)
	}
	return out
}

// GroupWindows returns copies of the windows of appID, oldest first.
func (t *Tray) GroupWindows(appID string) []Window {
	group := t.groups[appID]
	out := make([]Window, 0, len(group))
	for _, w := range group {
		c := *w
		c.Info = w.Info.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Lookup returns the window with the given external id.
func (t *Tray) Lookup(id string) (Window, bool) {
	h, ok := t.byID[id]
	if !ok {
		return Window{}, false
	}
	return t.window(h)
}

func (t *Tray) window(h toplevel.Handle) (Window, bool) {
	for _, group := range t.groups {
		if w, ok := group[h]; ok {
			c := *w
			c.Info = w.Info.Clone()
			return c, true
		}
	}
	return Window{}, false
}

// Outputs returns a copy of the known outputs.
func (t *Tray) Outputs() map[toplevel.Output]toplevel.OutputInfo {
	out := make(map[toplevel.Output]toplevel.OutputInfo, len(t.outputs))
	for o, info := range t.outputs {
		out[o] = info
	}
	return out
}

// focusScope is the set of outputs on which an activated window counts as
// focused. An empty scope matches every window.
func (t *Tray) focusScope() map[toplevel.Output]struct{} {
	scope := make(map[toplevel.Output]struct{})
	if t.trackWorkspaces && len(t.workspaces) > 0 {
		for _, ws := range t.workspaces {
			for _, o := range ws.Outputs {
				scope[o] = struct{}{}
			}
		}
		return scope
	}
	for o := range t.outputs {
		scope[o] = struct{}{}
	}
	return scope
}

// ActiveWindow returns the focused window: the first activated window, in
// Windows order, that is on an output in the focus scope.
func (t *Tray) ActiveWindow() (Window, bool) {
	scope := t.focusScope()
	for _, w := range t.Windows() {
		if !w.Info.State.Has(toplevel.Activated) {
			continue
		}
		if len(scope) == 0 || len(w.Info.Outputs) == 0 || w.Info.OnAnyOutput(scope) {
			return w, true
		}
	}
	return Window{}, false
}
