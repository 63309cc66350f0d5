package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the store when the session file changes on disk, so a
// login or logout performed by another process is picked up without a
// restart. The parent directory is watched rather than the file itself:
// atomic writes replace the file by rename, which would drop a watch on
// the file's inode.
type Watcher struct {
	store  *Store
	logger *slog.Logger

	// OnChange, when set, is called with the reloaded session (nil after an
	// external logout) each time a change is applied. Set before Watch; it
	// runs on the watcher goroutine.
	OnChange func(*Session)
}

// NewWatcher creates a Watcher for the given store.
func NewWatcher(store *Store, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{store: store, logger: logger}
}

// Watch blocks processing filesystem events until ctx is canceled.
// Reload failures are logged and watching continues; a transiently
// unreadable file must not kill the watcher.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("session: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.store.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("session: watching %s: %w", dir, err)
	}

	w.logger.Debug("session watcher started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case fsEvent, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			w.handleFsEvent(fsEvent)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("session watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// handleFsEvent reloads the store for events touching the session file.
func (w *Watcher) handleFsEvent(fsEvent fsnotify.Event) {
	if fsEvent.Name != w.store.Path() {
		return
	}

	// Chmod-only events carry no content change.
	if fsEvent.Has(fsnotify.Chmod) && !fsEvent.Has(fsnotify.Create) && !fsEvent.Has(fsnotify.Write) {
		return
	}

	relevant := fsEvent.Has(fsnotify.Create) || fsEvent.Has(fsnotify.Write) ||
		fsEvent.Has(fsnotify.Remove) || fsEvent.Has(fsnotify.Rename)
	if !relevant {
		return
	}

	if err := w.store.reload(); err != nil {
		w.logger.Warn("session reload after external change failed",
			slog.String("error", err.Error()))

		return
	}

	w.logger.Info("session reloaded after external change",
		slog.String("op", fsEvent.Op.String()))

	if w.OnChange != nil {
		w.OnChange(w.store.Current())
	}
}
