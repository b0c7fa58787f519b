package theme

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/wlpanel/internal/uiloop"
)

// Loader owns the panel's CSS provider. All methods must be called on the
// GTK thread; hot-reloaded CSS is posted back to it through the scheduler.
type Loader struct {
	logger    *slog.Logger
	sched     uiloop.Scheduler
	provider  *gtk.CSSProvider
	themesDir string
	theme     *Theme
	watcher   *Watcher
	applied   bool
}

// NewLoader creates a loader. sched must run callbacks on the GTK thread.
func NewLoader(sched uiloop.Scheduler, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	themesDir, err := ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
		themesDir = ""
	}

	return &Loader{
		logger:    logger,
		sched:     sched,
		provider:  gtk.NewCSSProvider(),
		themesDir: themesDir,
	}
}

// Resolve finds a theme by name without touching GTK. User themes in dir
// take precedence over bundled ones. Unknown names resolve to the default
// theme and ok is false.
func Resolve(name, dir string, logger *slog.Logger) (theme *Theme, ok bool) {
	if name == "" {
		name = DefaultThemeName
	}

	if dir != "" {
		path := filepath.Join(dir, name+".css")
		if _, err := os.Stat(path); err == nil {
			t, err := ReadTheme(name, path)
			if err == nil {
				return t, true
			}
			logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
		}
	}

	if t, found := BundledTheme(name); found {
		return t, true
	}
	t, _ := BundledTheme(DefaultThemeName)
	return t, false
}

// LoadTheme loads a theme by name into the provider. An unknown theme falls
// back to the default one.
func (l *Loader) LoadTheme(name string) {
	t, ok := Resolve(name, l.themesDir, l.logger)
	if !ok {
		l.logger.Warn("theme not found, using default", "theme", name)
	}
	l.theme = t
	l.provider.LoadFromString(t.CSS)
	l.logger.Info("loaded theme", "name", t.Name, "path", t.Path)
}

// Theme returns the currently loaded theme.
func (l *Loader) Theme() *Theme {
	return l.theme
}

// Apply attaches the provider to display, or to the default display when nil.
func (l *Loader) Apply(display *gdk.Display) {
	if l.applied {
		return
	}
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.applied = true
}

// StartHotReload watches the current user theme and reloads it on change.
func (l *Loader) StartHotReload(ctx context.Context) {
	l.StopHotReload()
	if l.theme == nil || l.theme.Bundled() {
		return
	}

	w := NewWatcher(l.theme, l.logger)
	w.SetChangeCallback(func(t *Theme) {
		l.sched.Post(func() {
			if l.watcher != w {
				return
			}
			l.theme = t
			l.provider.LoadFromString(t.CSS)
			l.logger.Info("hot-reloaded theme", "name", t.Name)
		})
	})
	if err := w.Start(ctx); err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
		return
	}
	l.watcher = w
}

// StopHotReload stops watching the theme for changes.
func (l *Loader) StopHotReload() {
	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}
