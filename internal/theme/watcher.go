package theme

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a user theme when its file, or any CSS file next to it,
// changes. Imported partials usually live in the same directory.
type Watcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	theme    *Theme
	debounce time.Duration

	onChangeCallback func(theme *Theme)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}

	running bool
}

// NewWatcher creates a watcher for theme. Bundled themes are never watched.
func NewWatcher(theme *Theme, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:   logger,
		theme:    theme,
		debounce: 200 * time.Millisecond,
	}
}

// SetDebounce sets how long to wait for writes to settle.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// SetChangeCallback sets the callback to invoke with the reloaded theme. It
// runs on the watcher goroutine.
func (w *Watcher) SetChangeCallback(callback func(theme *Theme)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChangeCallback = callback
}

// Start begins watching the theme directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if w.theme == nil || w.theme.Bundled() {
		w.logger.Debug("not watching bundled theme")
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.theme.Path)); err != nil {
		_ = fw.Close()
		return err
	}

	w.watcher = fw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.watchLoop(ctx, w.debounce)

	w.logger.Debug("theme watcher started", "path", w.theme.Path)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	_ = w.watcher.Close()
	w.logger.Debug("theme watcher stopped")
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) watchLoop(ctx context.Context, debounce time.Duration) {
	defer close(w.doneCh)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".css" {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case <-timer.C:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("theme watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	w.mu.RLock()
	current := w.theme
	callback := w.onChangeCallback
	w.mu.RUnlock()

	next, err := ReadTheme(current.Name, current.Path)
	if err != nil {
		w.logger.Warn("failed to reload theme", "path", current.Path, "error", err)
		return
	}
	if next.CSS == current.CSS {
		return
	}

	w.mu.Lock()
	w.theme = next
	w.mu.Unlock()

	w.logger.Info("theme file changed, reloading", "path", current.Path)
	if callback != nil {
		callback(next)
	}
}
