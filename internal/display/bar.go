package display

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/wlpanel/internal/apptray"
	"github.com/jmylchreest/wlpanel/internal/config"
	"github.com/jmylchreest/wlpanel/internal/desktopentry"
)

// Bar is the panel window.
type Bar struct {
	window  *gtk.Window
	layout  *LayoutManager
	tray    *apptray.Tray
	entries *desktopentry.Cache
	config  *config.PanelConfig
	logger  *slog.Logger

	// Widgets
	box      *gtk.Box
	trayBox  *gtk.Box
	titleLbl *gtk.Label
	clockLbl *gtk.Label
	popover  *gtk.Popover
}

// NewBar creates the panel window. It is shown by Present.
func NewBar(app *gtk.Application, tray *apptray.Tray, entries *desktopentry.Cache, cfg *config.PanelConfig, logger *slog.Logger) *Bar {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bar{
		layout:  NewLayoutManager(logger),
		tray:    tray,
		entries: entries,
		config:  cfg,
		logger:  logger,
	}

	b.window = gtk.NewWindow()
	b.window.SetApplication(app)
	b.window.SetDecorated(false)
	b.window.SetResizable(false)
	b.window.SetTitle("wlpanel")

	b.buildUI()
	b.layout.Apply(b.window, cfg.Panel)
	b.applyColorScheme()
	b.Refresh()
	b.Tick(time.Now())

	return b
}

// buildUI constructs the widget hierarchy: tray on the left, the focused
// window title in the middle, the clock on the right.
func (b *Bar) buildUI() {
	b.box = gtk.NewBox(gtk.OrientationHorizontal, 6)
	b.box.AddCSSClass("wlpanel")

	b.trayBox = gtk.NewBox(gtk.OrientationHorizontal, 2)
	b.trayBox.AddCSSClass("app-tray")
	b.box.Append(b.trayBox)

	b.titleLbl = gtk.NewLabel("")
	b.titleLbl.AddCSSClass("window-title")
	b.titleLbl.SetHExpand(true)
	b.titleLbl.SetXAlign(0)
	b.titleLbl.SetEllipsize(3) // PANGO_ELLIPSIZE_END
	b.box.Append(b.titleLbl)

	b.clockLbl = gtk.NewLabel("")
	b.clockLbl.AddCSSClass("clock")
	b.box.Append(b.clockLbl)

	b.window.SetChild(b.box)
}

// Present shows the bar.
func (b *Bar) Present() {
	b.window.Present()
}

// Close destroys the bar window.
func (b *Bar) Close() {
	b.closePopover()
	b.window.Destroy()
}

// UpdateConfig re-applies placement and refreshes every widget.
func (b *Bar) UpdateConfig(cfg *config.PanelConfig) {
	b.config = cfg
	b.layout.Apply(b.window, cfg.Panel)
	b.applyColorScheme()
	b.Refresh()
	b.Tick(time.Now())
}

// Relayout re-applies placement, e.g. after monitors changed.
func (b *Bar) Relayout() {
	b.layout = NewLayoutManager(b.logger)
	b.layout.Apply(b.window, b.config.Panel)
}

// Tick updates the clock.
func (b *Bar) Tick(now time.Time) {
	text := clockText(b.config.Clock.Format, now)
	b.clockLbl.SetText(text)
	b.clockLbl.SetVisible(text != "")
}

// Refresh rebuilds the tray buttons from the current tray state.
func (b *Bar) Refresh() {
	b.closePopover()
	for child := b.trayBox.FirstChild(); child != nil; child = b.trayBox.FirstChild() {
		b.trayBox.Remove(child)
	}

	now := time.Now()
	for _, button := range b.tray.Buttons(b.config.AppTray.Favorites) {
		b.trayBox.Append(b.buildButton(button, now))
	}

	title := ""
	if b.config.AppTray.ShowTitles {
		if w, ok := b.tray.ActiveWindow(); ok {
			title = w.Info.Title
		}
	}
	b.titleLbl.SetText(title)
	b.titleLbl.SetVisible(title != "")
}

func (b *Bar) entry(appID string) *desktopentry.Entry {
	if b.entries == nil {
		return nil
	}
	e, ok := b.entries.Lookup(appID)
	if !ok {
		return nil
	}
	return e
}

// buildButton creates one tray button. Left click runs the default action,
// middle click starts a new instance and right click lists the windows.
func (b *Bar) buildButton(button apptray.Button, now time.Time) gtk.Widgetter {
	entry := b.entry(button.AppID)

	content := gtk.NewBox(gtk.OrientationHorizontal, 0)
	content.Append(newIcon(iconFor(button.AppID, entry), 24))
	if n := len(button.Windows); n > 1 {
		count := gtk.NewLabel(strconv.Itoa(n))
		count.AddCSSClass("window-count")
		content.Append(count)
	}

	btn := gtk.NewButton()
	btn.SetChild(content)
	btn.SetHasFrame(false)
	for _, class := range buttonClasses(button) {
		btn.AddCSSClass(class)
	}
	btn.SetTooltipText(buttonTooltip(button, entry, now))

	btn.ConnectClicked(func() {
		b.tray.Click(button, execLine(entry), b.gpu(entry))
	})

	click := gtk.NewGestureClick()
	click.SetButton(0) // All buttons
	click.ConnectReleased(func(nPress int, x, y float64) {
		switch click.CurrentButton() {
		case 2: // Middle
			if exec := execLine(entry); exec != "" {
				b.tray.Exec(button.AppID, exec, b.gpu(entry))
			}
		case 3: // Right
			if button.Running() {
				b.showWindowList(btn, button)
			}
		}
	})
	btn.AddController(click)

	return btn
}

// showWindowList opens a popover with one row per window.
func (b *Bar) showWindowList(parent *gtk.Button, button apptray.Button) {
	b.closePopover()

	list := gtk.NewBox(gtk.OrientationVertical, 2)
	list.AddCSSClass("window-list")

	for _, w := range button.Windows {
		handle := w.Handle

		row := gtk.NewBox(gtk.OrientationHorizontal, 6)
		for _, class := range windowRowClasses(w) {
			row.AddCSSClass(class)
		}

		title := w.Info.Title
		if title == "" {
			title = button.AppID
		}
		activate := gtk.NewButtonWithLabel(title)
		activate.SetHasFrame(false)
		activate.SetHExpand(true)
		activate.ConnectClicked(func() {
			b.tray.Activate(handle)
			b.closePopover()
		})
		row.Append(activate)

		minimize := gtk.NewButtonFromIconName("window-minimize-symbolic")
		minimize.SetHasFrame(false)
		minimize.SetTooltipText("Minimize")
		minimize.ConnectClicked(func() {
			b.tray.Minimize(handle)
			b.closePopover()
		})
		row.Append(minimize)

		closeBtn := gtk.NewButtonFromIconName("window-close-symbolic")
		closeBtn.SetHasFrame(false)
		closeBtn.SetTooltipText("Close")
		closeBtn.ConnectClicked(func() {
			b.tray.Close(handle)
			b.closePopover()
		})
		row.Append(closeBtn)

		list.Append(row)
	}

	b.popover = gtk.NewPopover()
	b.popover.SetChild(list)
	b.popover.SetParent(parent)
	b.popover.Popup()
}

func (b *Bar) closePopover() {
	if b.popover == nil {
		return
	}
	b.popover.Popdown()
	b.popover.Unparent()
	b.popover = nil
}

// gpu returns the GPU to launch entry on: the configured one, or the
// discrete GPU for entries that prefer it.
func (b *Bar) gpu(entry *desktopentry.Entry) *int {
	return apptray.PreferredGPU(b.config.LaunchGPU(), entry != nil && entry.PrefersNonDefaultGPU)
}

func execLine(entry *desktopentry.Entry) string {
	if entry == nil {
		return ""
	}
	return entry.Exec
}

func newIcon(src iconSource, size int) *gtk.Image {
	var img *gtk.Image
	if src.File != "" {
		img = gtk.NewImageFromFile(src.File)
	} else {
		img = gtk.NewImageFromIconName(src.Name)
	}
	img.SetPixelSize(size)
	return img
}

// applyColorScheme forces libadwaita's light or dark style, or follows the
// system, and tags the bar so themes can branch on it.
func (b *Bar) applyColorScheme() {
	styleManager := adw.StyleManagerGetDefault()
	switch config.ColorScheme(b.config.Theme.ColorScheme) {
	case config.ColorSchemeLight:
		styleManager.SetColorScheme(adw.ColorSchemeForceLight)
	case config.ColorSchemeDark:
		styleManager.SetColorScheme(adw.ColorSchemeForceDark)
	default:
		styleManager.SetColorScheme(adw.ColorSchemeDefault)
	}

	b.box.RemoveCSSClass("light")
	b.box.RemoveCSSClass("dark")
	if styleManager.Dark() {
		b.box.AddCSSClass("dark")
	} else {
		b.box.AddCSSClass("light")
	}
}
