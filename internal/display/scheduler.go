package display

import (
	"github.com/diamondburned/gotk4/pkg/core/glib"
)

// GLibScheduler posts callbacks to the GTK main loop. Idle sources of equal
// priority run in the order they were added.
type GLibScheduler struct{}

// Post implements uiloop.Scheduler.
func (GLibScheduler) Post(fn func()) {
	glib.IdleAdd(fn)
}
