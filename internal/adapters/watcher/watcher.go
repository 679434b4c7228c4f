// Package watcher reacts to source files dropped into the ingestion spool.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called when a spool file has settled.
type Handler func(ctx context.Context, path string) error

// Watcher watches the spool directory and notifies the handler once a
// dropped file has stopped changing. Large source files arrive through
// several write events; the debounce window collapses them into one
// notification after the last write.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	dir       string
	debounce  time.Duration
	mu        sync.Mutex
	pending   map[string]time.Time
}

// Config holds watcher configuration.
type Config struct {
	Dir      string
	Debounce time.Duration
}

// New creates a new spool watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger,
		dir:       cfg.Dir,
		debounce:  cfg.Debounce,
		pending:   make(map[string]time.Time),
	}, nil
}

// Start starts watching the spool directory.
func (w *Watcher) Start(ctx context.Context) error {
	absDir, err := filepath.Abs(w.dir)
	if err != nil {
		return err
	}
	if err := w.fsWatcher.Add(absDir); err != nil {
		return err
	}
	w.logger.Info("watching spool directory", "dir", absDir)

	go w.eventLoop(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// eventLoop processes fsnotify events.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// handleFsEvent records a write to a candidate spool file. Removes and
// renames are ignored: processed files are moved aside by the spool
// service itself.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !isSpoolCandidate(event.Name) {
		return
	}

	w.logger.Debug("spool file event", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// debounceLoop fires the handler for files that have settled.
func (w *Watcher) debounceLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending notifies the handler for every file whose last event is
// older than the debounce window.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for path, last := range w.pending {
		if now.Sub(last) < w.debounce {
			continue
		}
		delete(w.pending, path)

		w.logger.Info("spool file settled", "path", path)

		// Call handler in goroutine to not block
		go func(p string) {
			if err := w.handler(ctx, p); err != nil {
				w.logger.Error("handler error", "path", p, "error", err)
			}
		}(path)
	}
}

// isSpoolCandidate reports whether the file could name an ingestable
// dataset. Shapefile sidecars never trigger ingestion on their own; the
// .shp member does.
func isSpoolCandidate(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".shp":
		return true
	}
	return false
}
