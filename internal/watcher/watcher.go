package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a directory tree recursively and emits FileEvents.
// New subdirectories are added to the watch set as they appear. Chmod
// events are dropped; they never change file content.
type Watcher struct {
	root   string
	logger *slog.Logger

	events chan FileEvent
	errs   chan error

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	running bool
	stopped bool
}

// NewWatcher creates a watcher for the directory tree rooted at root.
func NewWatcher(root string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{root: root, logger: logger}
	w.resetChannels()
	return w
}

func (w *Watcher) resetChannels() {
	w.events = make(chan FileEvent, 1024)
	w.errs = make(chan error, 16)
}

// Events returns the event channel. It is closed when the watcher stops.
func (w *Watcher) Events() <-chan FileEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events
}

// Errors returns the channel of non-fatal watch errors.
func (w *Watcher) Errors() <-chan error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errs
}

// Start begins watching and blocks until the context is cancelled or a
// fatal error occurs. The event channel closes when Start returns. A
// stopped watcher can be started again; Events must be re-read after a
// restart because the channels are recreated.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if w.stopped {
		w.resetChannels()
	}
	w.fsw = fsw
	w.running = true
	w.mu.Unlock()

	defer func() {
		_ = fsw.Close()
		close(w.events)
		close(w.errs)
		w.mu.Lock()
		w.running = false
		w.stopped = true
		w.mu.Unlock()
	}()

	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.logger.Info("watching directory tree", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// addRecursive adds dir and all nested directories to the watch set.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// handle converts one fsnotify event into a FileEvent.
func (w *Watcher) handle(event fsnotify.Event) {
	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Op
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreated
		if isDir {
			if err := w.addRecursive(event.Name); err != nil {
				w.emitError(fmt.Errorf("watch new directory %s: %w", event.Name, err))
			}
			return
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModified
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		op = OpDeleted
	default:
		// Chmod and unknown ops carry no content change.
		return
	}

	if isDir {
		return
	}

	select {
	case w.events <- FileEvent{Path: event.Name, Op: op, Time: time.Now()}:
	default:
		w.logger.Warn("event buffer full, dropping event", "path", event.Name, "op", op)
	}
}

func (w *Watcher) emitError(err error) {
	select {
	case w.errs <- err:
	default:
		w.logger.Warn("error buffer full", "error", err)
	}
}
