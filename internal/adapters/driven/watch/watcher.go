// Package watch provides a debounced corpus-folder watcher. Bursts of
// filesystem events (editor save dances, bulk copies) collapse into a
// single change notification once the folder has been quiet for the
// debounce window.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// Default tuning values.
const (
	DefaultDebounce    = 2 * time.Second
	DefaultMinInterval = 10 * time.Second
)

// Config holds configuration for the corpus watcher.
type Config struct {
	// Debounce is how long the folder must stay quiet before a change
	// notification fires (default: 2s).
	Debounce time.Duration

	// MinInterval is the minimum spacing between notifications, so a
	// steadily-changing folder cannot trigger back-to-back rebuilds
	// (default: 10s).
	MinInterval time.Duration
}

// Watcher emits a notification when files under a corpus folder change.
type Watcher struct {
	debounce time.Duration
	limiter  *rate.Limiter
}

// NewWatcher creates a corpus watcher.
func NewWatcher(cfg Config) *Watcher {
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	return &Watcher{
		debounce: cfg.Debounce,
		limiter:  rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}
}

// Watch observes dir and its subdirectories until ctx is cancelled.
// The returned channel delivers one value per settled burst of changes
// and closes when watching stops.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan struct{}, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addRecursive(fsw, dir); err != nil {
		fsw.Close()
		return nil, err
	}

	changes := make(chan struct{}, 1)
	go w.run(ctx, fsw, changes)
	return changes, nil
}

// run pumps raw events into debounced notifications.
func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- struct{}) {
	defer fsw.Close()
	defer close(changes)

	// The timer starts stopped; the first relevant event arms it.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if hidden(event.Name) {
				continue
			}
			// New subdirectories must be watched as they appear.
			if event.Op.Has(fsnotify.Create) {
				_ = addRecursive(fsw, event.Name)
			}
			timer.Reset(w.debounce)

		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}

		case <-timer.C:
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case changes <- struct{}{}:
			default:
				// A pending notification already covers this burst.
			}
		}
	}
}

// addRecursive registers dir and every non-hidden subdirectory. Paths
// that are not directories are ignored.
func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			// Entries can vanish mid-walk; skip rather than fail.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// hidden reports whether any path element starts with a dot.
func hidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
