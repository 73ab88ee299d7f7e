package media

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"visionvault/internal/hidden"
	"visionvault/internal/logging"
	"visionvault/internal/metrics"
)

// DefaultDebounce is how long the watcher waits for the tree to settle
// before reporting a change.
const DefaultDebounce = 2 * time.Second

// Watcher reports out-of-band changes to the media tree. Events on hidden
// paths, which include the store files themselves, are ignored so that
// writing a store never triggers another sweep.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func()

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
	mu      sync.Mutex
	timer   *time.Timer
}

// NewWatcher creates a Watcher that calls onChange, at most once per
// debounce window, after files appear, disappear or are renamed under root.
func NewWatcher(root string, debounce time.Duration, onChange func()) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, debounce: debounce, onChange: onChange}
}

// Start registers every visible directory and processes events until ctx is
// cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.ScannerWatcherErrors.Inc()
		return err
	}
	w.watcher = watcher

	watchCount := w.addDirectories(w.root)
	logging.Info("File watcher started, watching %d directories", watchCount)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processEvents(ctx)
	}()
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

// addDirectories adds dir and all visible subdirectories to the watcher
func (w *Watcher) addDirectories(dir string) int {
	watchCount := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("failed to walk %s for watcher: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden.IsHiddenName(d.Name()) {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.ScannerWatcherErrors.Inc()
			return nil
		}
		watchCount++
		return nil
	})
	if err != nil {
		logging.Error("failed to walk media directory for watcher: %v", err)
		metrics.ScannerWatcherErrors.Inc()
	}
	metrics.ScannerWatchedDirectories.Add(float64(watchCount))
	return watchCount
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.ScannerWatcherErrors.Inc()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if isHiddenPath(w.root, event.Name) {
		return
	}
	metrics.ScannerWatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	// Content writes and attribute changes do not affect records.
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addDirectories(event.Name)
		}
	}
	w.schedule()
}

// schedule (re)arms the debounce timer
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// isHiddenPath reports whether any component of path below root is hidden.
func isHiddenPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != ".." && hidden.IsHiddenName(part) {
			return true
		}
	}
	return false
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
