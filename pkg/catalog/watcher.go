package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/prodhub/pkg/observability"
)

// Watcher reseeds the catalog when the seed file changes
type Watcher struct {
	path    string
	store   *Store
	logger  *observability.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher watches the directory holding path, so rename-style saves are seen too
func NewWatcher(path string, store *Store, logger *observability.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{path: abs, store: store, logger: logger, watcher: fw}, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Module catalog watcher error")
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if err := SeedFromFile(ctx, w.store, w.path); err != nil {
		w.logger.WithError(err).WithField("path", w.path).Warn("Failed to reload module catalog")
		return
	}
	w.logger.WithField("path", w.path).Info("Module catalog reloaded")
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
