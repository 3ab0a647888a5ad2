package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is how long to wait for more changes before reloading.
// Editors typically write a config file in several quick operations.
const defaultDebounce = 500 * time.Millisecond

// ApplyFunc receives each successfully reloaded and validated config.
type ApplyFunc func(*Config)

// Watcher follows one config file and re-applies it on change. Live
// updates let an operator adjust the render ceiling without restarting
// the service.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	apply    ApplyFunc
	debounce time.Duration

	pendingMu sync.Mutex
	pending   bool
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(path string, apply ApplyFunc, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		watcher:  fsw,
		logger:   logger,
		apply:    apply,
		debounce: defaultDebounce,
	}, nil
}

// Start begins watching. The parent directory is watched rather than the
// file itself: editors replace files on save, which would orphan a watch
// on the file's inode.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Config watcher started", slog.String("path", w.path))
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.pendingMu.Lock()
				w.pending = true
				w.pendingMu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// flushPending reloads the file once per debounce window. A file that
// fails to load or validate is logged and skipped; the previous config
// stays in effect.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	dirty := w.pending
	w.pending = false
	w.pendingMu.Unlock()
	if !dirty {
		return
	}

	cfg, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Warn("Config reload failed", slog.String("path", w.path), slog.String("error", err.Error()))
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("Rejected invalid config update", slog.String("path", w.path), slog.String("error", err.Error()))
		return
	}

	w.logger.Info("Config reloaded", slog.String("path", w.path))
	w.apply(cfg)
}
