package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tagfs/internal/apperr"
	"tagfs/internal/logging"
)

// DefaultRescanInterval is how often the watcher refreshes its directory set
// and sweeps for files that vanished while unwatched.
const DefaultRescanInterval = 30 * time.Second

// DefaultGrace is how long a removed or renamed location may stay missing
// before its file is dropped. Editors that save by rename-and-recreate put
// the file back well within it.
const DefaultGrace = 2 * time.Second

// Watcher removes files from the index once their physical location
// disappears. It watches the parent directory of every registered location.
type Watcher struct {
	db       *DB
	mu       sync.Locker
	interval time.Duration
	grace    time.Duration
	logger   *logging.Logger

	watched map[string]bool
}

// NewWatcher creates a watcher. mu is taken around every index mutation so
// that removals never interleave with a resolution operation.
func NewWatcher(db *DB, mu sync.Locker, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultRescanInterval
	}
	return &Watcher{
		db:       db,
		mu:       mu,
		interval: interval,
		grace:    DefaultGrace,
		logger:   indexLogger.WithPrefix("watcher"),
		watched:  make(map[string]bool),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Missing locations are collected and settled together once no new
	// one has been seen for w.grace.
	pending := make(map[string]struct{})
	var settle *time.Timer
	var settleC <-chan time.Time
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()
	schedule := func(locations ...string) {
		added := false
		for _, location := range locations {
			if _, ok := pending[location]; !ok {
				pending[location] = struct{}{}
				added = true
			}
		}
		if !added {
			return
		}
		if settle == nil {
			settle = time.NewTimer(w.grace)
		} else {
			settle.Reset(w.grace)
		}
		settleC = settle.C
	}

	schedule(w.rescan(ctx, fw)...)
	w.logger.Info("Watching %d directories", len(w.watched))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return nil

		case <-ticker.C:
			schedule(w.rescan(ctx, fw)...)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			schedule(ev.Name)

		case <-settleC:
			settleC = nil
			for location := range pending {
				w.forget(ctx, location)
			}
			clear(pending)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watch error: %v", watchErr)
		}
	}
}

// forget drops the file registered at location, if any, unless the
// location exists again.
func (w *Watcher) forget(ctx context.Context, location string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(location); !errors.Is(err, os.ErrNotExist) {
		w.logger.Debug("Keeping %s: location still present (%v)", location, err)
		return
	}

	f, err := w.db.FileByLocation(ctx, location)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			w.logger.Warn("Lookup of %s failed: %v", location, err)
		}
		return
	}
	if err := w.db.RemoveFile(ctx, f.ID); err != nil {
		w.logger.Warn("Failed to remove %s: %v", location, err)
		return
	}
	w.logger.Info("Removed vanished file %d (%s)", f.ID, location)
}

// rescan returns the registered locations that no longer exist and starts
// watching the directories of newly registered files.
func (w *Watcher) rescan(ctx context.Context, fw *fsnotify.Watcher) []string {
	w.mu.Lock()
	files, err := w.db.ListFiles(ctx)
	w.mu.Unlock()
	if err != nil {
		w.logger.Warn("Rescan failed: %v", err)
		return nil
	}

	var missing []string
	for _, f := range files {
		if _, statErr := os.Stat(f.Location); errors.Is(statErr, os.ErrNotExist) {
			missing = append(missing, f.Location)
			continue
		}
		dir := filepath.Dir(f.Location)
		if w.watched[dir] {
			continue
		}
		if addErr := fw.Add(dir); addErr != nil {
			w.logger.Warn("Cannot watch %s: %v", dir, addErr)
			continue
		}
		w.watched[dir] = true
		w.logger.Debug("Watching %s", dir)
	}
	return missing
}
