package display

import (
	"log/slog"
	"unsafe"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/wlpanel/internal/config"
)

// LayoutManager places the bar on a monitor and screen edge.
type LayoutManager struct {
	display *gdk.Display
	logger  *slog.Logger
}

// NewLayoutManager creates a new layout manager.
func NewLayoutManager(logger *slog.Logger) *LayoutManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LayoutManager{
		display: gdk.DisplayGetDefault(),
		logger:  logger,
	}
}

// Apply configures window as a layer surface according to cfg. It may be
// called again after a config reload.
func (l *LayoutManager) Apply(window *gtk.Window, cfg config.BarConfig) {
	if !layershell.IsLayerWindow(window) {
		layershell.InitForWindow(window)
		layershell.SetNamespace(window, "wlpanel")
		layershell.SetKeyboardMode(window, layershell.LayerShellKeyboardModeNone)
	}

	layershell.SetLayer(window, layerFor(cfg.Layer))

	top := config.Position(cfg.Position) == config.PositionTop
	layershell.SetAnchor(window, layershell.LayerShellEdgeLeft, true)
	layershell.SetAnchor(window, layershell.LayerShellEdgeRight, true)
	layershell.SetAnchor(window, layershell.LayerShellEdgeTop, top)
	layershell.SetAnchor(window, layershell.LayerShellEdgeBottom, !top)

	window.SetDefaultSize(-1, cfg.Height)
	window.SetSizeRequest(-1, cfg.Height)

	if cfg.Exclusive {
		layershell.AutoExclusiveZoneEnable(window)
	} else {
		layershell.SetExclusiveZone(window, 0)
	}

	if monitor := l.Monitor(cfg.Monitor); monitor != nil {
		layershell.SetMonitor(window, monitor)
	}
}

func layerFor(name string) layershell.LayerShellLayer {
	switch name {
	case "background":
		return layershell.LayerShellLayerBackground
	case "bottom":
		return layershell.LayerShellLayerBottom
	case "overlay":
		return layershell.LayerShellLayerOverlay
	default:
		return layershell.LayerShellLayerTop
	}
}

// Monitor returns the configured monitor: 0 lets the compositor choose,
// 1+ selects a monitor by position. A monitor that is not connected falls
// back to the first one.
func (l *LayoutManager) Monitor(n int) *gdk.Monitor {
	if l.display == nil || n == 0 {
		return nil
	}

	monitors := l.display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		return nil
	}

	index := uint(n - 1)
	if index >= monitors.NItems() {
		l.logger.Warn("configured monitor not available, using first",
			"configured", n,
			"available", monitors.NItems(),
		)
		index = 0
	}
	return wrapMonitor(monitors.Item(index))
}

// OnMonitorsChanged calls fn whenever a monitor is connected or removed.
func (l *LayoutManager) OnMonitorsChanged(fn func()) {
	if l.display == nil {
		return
	}
	monitors := l.display.Monitors()
	if monitors == nil {
		return
	}
	monitors.ConnectItemsChanged(func(position, removed, added uint) {
		l.logger.Info("monitor configuration changed", "count", monitors.NItems())
		fn()
	})
}

// wrapMonitor wraps a coreglib.Object as a gdk.Monitor.
// This is necessary because gotk4 doesn't expose the wrapMonitor function.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	// gdk.Monitor embeds a *coreglib.Object, so a struct of the same shape
	// can be converted.
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}
