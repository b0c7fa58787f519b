package daemon

import (
	"context"
	"fmt"

	"github.com/jmylchreest/wlpanel/internal/apptray"
	"github.com/jmylchreest/wlpanel/internal/dbus"
	"github.com/jmylchreest/wlpanel/internal/desktopentry"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
	"github.com/jmylchreest/wlpanel/internal/uiloop"
)

// TrayController serves D-Bus calls from the tray. Every tray access is
// posted to the UI thread; the bus goroutine only waits for the answer.
type TrayController struct {
	sched   uiloop.Scheduler
	tray    *apptray.Tray
	entries *desktopentry.Cache

	// launchGPU is read and written on the UI thread only.
	launchGPU *int
}

// NewTrayController creates a controller. entries may be nil, in which case
// Launch always fails with dbus.ErrUnknownApplication.
func NewTrayController(sched uiloop.Scheduler, tray *apptray.Tray, entries *desktopentry.Cache) *TrayController {
	return &TrayController{sched: sched, tray: tray, entries: entries}
}

// SetLaunchGPU sets the DRI_PRIME index used by Launch. Call on the UI thread.
func (c *TrayController) SetLaunchGPU(gpu *int) {
	c.launchGPU = gpu
}

// WindowInfo converts a tray window to its bus representation.
func WindowInfo(w apptray.Window) dbus.WindowInfo {
	states := w.Info.State.Strings()
	if states == nil {
		states = []string{}
	}
	return dbus.WindowInfo{
		ID:        w.ID,
		AppID:     w.Info.AppID,
		Title:     w.Info.Title,
		States:    states,
		FirstSeen: uint32(w.FirstSeen.Unix()),
	}
}

// Windows implements dbus.Controller.
func (c *TrayController) Windows(ctx context.Context) ([]dbus.WindowInfo, error) {
	return uiloop.Call(ctx, c.sched, func() []dbus.WindowInfo {
		windows := c.tray.Windows()
		out := make([]dbus.WindowInfo, 0, len(windows))
		for _, w := range windows {
			out = append(out, WindowInfo(w))
		}
		return out
	})
}

// ActiveWindow implements dbus.Controller.
func (c *TrayController) ActiveWindow(ctx context.Context) (string, error) {
	return uiloop.Call(ctx, c.sched, func() string {
		if w, ok := c.tray.ActiveWindow(); ok {
			return w.ID
		}
		return ""
	})
}

// Activate implements dbus.Controller.
func (c *TrayController) Activate(ctx context.Context, id string) error {
	return c.act(ctx, id, c.tray.Activate)
}

// Toggle implements dbus.Controller.
func (c *TrayController) Toggle(ctx context.Context, id string) error {
	return c.act(ctx, id, c.tray.Toggle)
}

// Minimize implements dbus.Controller.
func (c *TrayController) Minimize(ctx context.Context, id string) error {
	return c.act(ctx, id, c.tray.Minimize)
}

// Close implements dbus.Controller.
func (c *TrayController) Close(ctx context.Context, id string) error {
	return c.act(ctx, id, c.tray.Close)
}

func (c *TrayController) act(ctx context.Context, id string, fn func(toplevel.Handle) bool) error {
	actErr, err := uiloop.Call(ctx, c.sched, func() error {
		w, ok := c.tray.Lookup(id)
		if !ok {
			return fmt.Errorf("%w: %s", dbus.ErrUnknownWindow, id)
		}
		if !c.tray.Ready() || !fn(w.Handle) {
			return dbus.ErrNotReady
		}
		return nil
	})
	if err != nil {
		return err
	}
	return actErr
}

// Launch implements dbus.Controller. appID is resolved through the desktop
// entry cache the same way window app ids are.
func (c *TrayController) Launch(ctx context.Context, appID string) error {
	if c.entries == nil {
		return fmt.Errorf("%w: %s", dbus.ErrUnknownApplication, appID)
	}
	entry, ok := c.entries.Lookup(appID)
	if !ok || entry.Exec == "" {
		return fmt.Errorf("%w: %s", dbus.ErrUnknownApplication, appID)
	}

	// Launching does not depend on the tracker: without a worker the tray
	// starts the application directly.
	actErr, err := uiloop.Call(ctx, c.sched, func() error {
		gpu := apptray.PreferredGPU(c.launchGPU, entry.PrefersNonDefaultGPU)
		if _, ok := c.tray.Exec(entry.ID, entry.Exec, gpu); !ok {
			return fmt.Errorf("launch %s failed", entry.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return actErr
}
