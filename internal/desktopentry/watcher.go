package desktopentry

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Cache when its applications directories change.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger
	cache  *Cache

	watcher  *fsnotify.Watcher
	debounce time.Duration

	onReloadCallback func()

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for cache's directories.
func NewWatcher(cache *Cache, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		logger:   logger,
		cache:    cache,
		watcher:  fw,
		debounce: 500 * time.Millisecond,
	}, nil
}

// SetReloadCallback sets the callback invoked after each reload.
func (w *Watcher) SetReloadCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// Start watches every existing directory of the cache.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	watched := 0
	for _, dir := range w.cache.Dirs() {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Debug("cannot watch applications directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}

	go w.watchLoop(ctx)

	w.logger.Debug("desktop entry watcher started", "dirs", watched)
	return nil
}

// Stop stops watching and releases the inotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var timerC <-chan time.Time

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
			if !strings.HasSuffix(event.Name, ".desktop") {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("desktop entry watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	if err := w.cache.Load(); err != nil {
		w.logger.Warn("failed to reload desktop entries", "error", err)
		return
	}
	w.logger.Debug("desktop entries reloaded", "count", w.cache.Len())

	w.mu.Lock()
	callback := w.onReloadCallback
	w.mu.Unlock()
	if callback != nil {
		callback()
	}
}
