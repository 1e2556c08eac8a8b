package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors produce for one save.
const reloadDelay = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	path    string
	watcher *fsnotify.Watcher

	onChange func(*Config)
	pending  *time.Timer

	done    chan struct{}
	running bool
	closed  bool
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		logger:  logger,
		path:    path,
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// SetChangeCallback sets the callback invoked with each successfully
// reloaded configuration. Invalid files are logged and skipped.
func (w *Watcher) SetChangeCallback(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start begins watching. The parent directory is watched so that atomic
// rename-on-save is seen.
// A watcher that failed to start or was stopped cannot be started again.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if w.closed {
		return fmt.Errorf("config watcher for %s is closed", w.path)
	}

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.closed = true
		if cerr := w.watcher.Close(); cerr != nil {
			w.logger.Debug("failed to close file watcher", "error", cerr)
		}
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.running = true

	go w.watch()
	w.logger.Debug("config watcher started", "path", w.path)
	return nil
}

func (w *Watcher) watch() {
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(reloadDelay, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping current settings", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	callback := w.onChange
	running := w.running
	w.mu.Unlock()

	if !running || callback == nil {
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	callback(cfg)
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	close(w.done)
	return w.watcher.Close()
}
