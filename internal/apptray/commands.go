package apptray

import (
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// Exec asks the compositor for an activation token and launches execLine once
// the reply arrives. gpu selects DRI_PRIME, nil for the default GPU. When no
// worker accepts commands the application is started at once without a token.
// It returns the request id, and false only if a direct launch failed.
func (t *Tray) Exec(appID, execLine string, gpu *int) (ulid.ULID, bool) {
	id := ulid.Make()
	if t.commands.Send(compositor.LaunchWithToken{
		RequestID: id,
		AppID:     appID,
		Exec:      execLine,
		GPU:       gpu,
	}) {
		return id, true
	}
	t.logger.Debug("compositor tracker not running, launching without activation token", "app_id", appID)
	return id, t.launch(appID, execLine, "", gpu)
}

// Activate focuses h.
func (t *Tray) Activate(h toplevel.Handle) bool {
	return t.send(compositor.Activate{Handle: h})
}

// Minimize minimizes h.
func (t *Tray) Minimize(h toplevel.Handle) bool {
	return t.send(compositor.Minimize{Handle: h})
}

// Close asks h to close.
func (t *Tray) Close(h toplevel.Handle) bool {
	return t.send(compositor.Close{Handle: h})
}

// Toggle minimizes h if the tray last saw it activated, and activates it
// otherwise. The decision uses the tray's view, which can be one update
// behind the compositor; a toggle racing a focus change may therefore act on
// stale state.
func (t *Tray) Toggle(h toplevel.Handle) bool {
	w, ok := t.window(h)
	if ok && w.Info.State.Has(toplevel.Activated) {
		return t.Minimize(h)
	}
	return t.Activate(h)
}

func (t *Tray) send(cmd compositor.Command) bool {
	if !t.commands.Send(cmd) {
		t.logger.Debug("compositor command dropped, tracker not running")
		return false
	}
	return true
}
