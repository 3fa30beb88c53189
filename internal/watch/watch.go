// Package watch rebuilds the library whenever its sources change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/appneta/tbonebuild/internal/logfields"
)

// DefaultDebounce coalesces bursts of editor writes into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc runs one build. Its error is logged; watching continues.
type RebuildFunc func(ctx context.Context) error

// Watcher watches directory trees and files and calls Rebuild after changes
// settle.
type Watcher struct {
	// Dirs are watched recursively; directories created later are added.
	Dirs []string
	// Files are watched individually, e.g. the project file.
	Files    []string
	Debounce time.Duration
	Rebuild  RebuildFunc
}

// Run performs an initial build, then rebuilds on every settled change until
// ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	for _, dir := range w.Dirs {
		if err := addDirsRecursive(fsw, dir); err != nil {
			return err
		}
	}
	for _, f := range w.Files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := fsw.Add(f); err != nil {
			slog.Warn("watch add failed", logfields.Path(f), logfields.Error(err))
		}
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	rebuildReq, trigger, stop := newDebouncer(debounce)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.rebuildWorker(ctx, rebuildReq)
	}()
	defer wg.Wait()

	// initial build
	select {
	case rebuildReq <- struct{}{}:
	default:
	}

	slog.Info("Watching for changes", slog.Any("dirs", w.Dirs))
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watch")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			handleFileEvent(fsw, ev, trigger)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

// rebuildWorker runs rebuilds one at a time. Requests arriving during a
// rebuild collapse into a single follow-up run.
func (w *Watcher) rebuildWorker(ctx context.Context, rebuildReq <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuildReq:
			if ctx.Err() != nil {
				return
			}
			start := time.Now()
			if err := w.Rebuild(ctx); err != nil {
				slog.Warn("Rebuild failed", logfields.Error(err), logfields.Duration(time.Since(start)))
				continue
			}
			slog.Info("Rebuilt", logfields.Duration(time.Since(start)))
		}
	}
}

// newDebouncer returns the request channel, a trigger that fires it once the
// triggers stop for d, and a stop func for the pending timer.
func newDebouncer(d time.Duration) (chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return rebuildReq, trigger, stop
}

// handleFileEvent processes a filesystem event and triggers rebuild if needed.
func handleFileEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(fsw, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for events that must not trigger rebuilds:
// pure permission changes and editor or OS scratch files.
func shouldIgnoreEvent(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return true
	}
	base := filepath.Base(ev.Name)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
