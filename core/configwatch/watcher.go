// Package configwatch polls files and reports when they change.
package configwatch

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls files for changes and invokes callbacks.
type Watcher struct {
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries []watchEntry
}

type watchEntry struct {
	path  string
	stamp stamp
	cb    func(path string)
}

// stamp identifies one version of a file. The zero stamp means the file
// could not be read.
type stamp struct {
	modTime time.Time
	size    int64
}

// New returns a watcher that polls watched files every interval.
func New(interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		interval: interval,
		logger:   logger,
	}
}

// Watch adds a file to be watched. cb runs when the modification time or
// size of the file changes. The file does not need to exist yet.
func (w *Watcher) Watch(path string, cb func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, watchEntry{
		path:  path,
		stamp: fileStamp(path),
		cb:    cb,
	})
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Poll checks every watched file once, runs the callbacks of the changed
// ones and returns how many changed.
func (w *Watcher) Poll() int {
	var changed []watchEntry

	w.mu.Lock()
	for i := range w.entries {
		e := &w.entries[i]
		current := fileStamp(e.path)

		// A missing file may be mid-save.
		if current == (stamp{}) || current == e.stamp {
			continue
		}
		e.stamp = current
		changed = append(changed, *e)
	}
	w.mu.Unlock()

	for _, e := range changed {
		w.logger.Info("config file changed", "path", e.path)
		e.cb(e.path)
	}
	return len(changed)
}

func fileStamp(path string) stamp {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}
	}
	return stamp{modTime: info.ModTime(), size: info.Size()}
}
