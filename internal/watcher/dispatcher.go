package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handler receives settled file changes from the dispatcher.
type Handler interface {
	// HandleChange indexes a created or modified file.
	HandleChange(ctx context.Context, path string) error

	// HandleDelete removes a deleted file from the index.
	HandleDelete(ctx context.Context, path string) error
}

// pathState is the dispatch state of one path.
type pathState int

const (
	// statePending: changes seen, waiting for the quiet window to pass.
	statePending pathState = iota
	// stateProcessing: a worker is indexing the path right now.
	stateProcessing
)

// pathEntry tracks one path through the debounce state machine.
// Absence from the map is the idle state.
type pathEntry struct {
	state    pathState
	deadline time.Time

	// queued records changes that arrived while processing; the path
	// re-enters the pending state when its worker finishes.
	queued bool

	// deleteQueued records a deletion that arrived while processing;
	// the purge runs after the in-flight worker finishes, never
	// concurrently with it.
	deleteQueued bool
}

// Stats is a snapshot of dispatcher activity.
type Stats struct {
	Pending    int
	Processing int
	Dispatched int64
	Deleted    int64
	Failed     int64
	Filtered   int64
}

// Dispatcher coalesces file events per path and hands settled files to
// a bounded worker pool. Repeated writes within the debounce window
// collapse into one dispatch; deletions skip the window entirely since
// there is nothing to coalesce.
type Dispatcher struct {
	handler  Handler
	debounce time.Duration
	allowed  map[string]bool
	logger   *slog.Logger

	mu    sync.Mutex
	paths map[string]*pathEntry
	stats Stats

	group *errgroup.Group
}

// NewDispatcher creates a dispatcher. allowed is the set of lowercase
// file extensions (with dot) that get dispatched; events for anything
// else are dropped before entering the state machine. workers bounds
// concurrent handler invocations.
func NewDispatcher(handler Handler, debounce time.Duration, allowed map[string]bool, workers int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	group := &errgroup.Group{}
	group.SetLimit(workers)

	return &Dispatcher{
		handler:  handler,
		debounce: debounce,
		allowed:  allowed,
		logger:   logger,
		paths:    make(map[string]*pathEntry),
		group:    group,
	}
}

// Run consumes events until the context is cancelled or the channel
// closes, then waits for in-flight workers to finish.
func (d *Dispatcher) Run(ctx context.Context, events <-chan FileEvent) error {
	tick := d.debounce / 4
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return d.group.Wait()
		case <-ticker.C:
			d.promoteExpired(ctx)
		case event, ok := <-events:
			if !ok {
				return d.group.Wait()
			}
			d.Accept(ctx, event)
		}
	}
}

// Accept feeds one event into the state machine.
func (d *Dispatcher) Accept(ctx context.Context, event FileEvent) {
	if !d.extensionAllowed(event.Path) {
		d.mu.Lock()
		d.stats.Filtered++
		d.mu.Unlock()
		return
	}

	if event.Op == OpDeleted {
		d.acceptDelete(ctx, event.Path)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entry, exists := d.paths[event.Path]
	switch {
	case !exists:
		d.paths[event.Path] = &pathEntry{
			state:    statePending,
			deadline: event.Time.Add(d.debounce),
		}
	case entry.state == statePending:
		// Another change resets the quiet window.
		entry.deadline = event.Time.Add(d.debounce)
	case entry.state == stateProcessing:
		// Change during indexing: run again when the worker finishes.
		// A later write supersedes a queued delete (file recreated).
		entry.queued = true
		entry.deleteQueued = false
	}
}

// acceptDelete dispatches a deletion. Pending work for the path is
// dropped. When a worker is indexing the path right now, the deletion
// is queued behind it so the two never run concurrently.
func (d *Dispatcher) acceptDelete(ctx context.Context, path string) {
	d.mu.Lock()
	if entry, ok := d.paths[path]; ok && entry.state == stateProcessing {
		entry.deleteQueued = true
		entry.queued = false
		d.mu.Unlock()
		return
	}
	delete(d.paths, path)
	d.mu.Unlock()

	d.group.Go(func() error {
		d.handleDelete(ctx, path)
		return nil
	})
}

// handleDelete runs the delete handler and records the outcome.
func (d *Dispatcher) handleDelete(ctx context.Context, path string) {
	if err := d.handler.HandleDelete(ctx, path); err != nil {
		d.logger.Error("delete handling failed", "path", path, "error", err)
		d.mu.Lock()
		d.stats.Failed++
		d.mu.Unlock()
		return
	}
	d.mu.Lock()
	d.stats.Deleted++
	d.mu.Unlock()
}

// promoteExpired moves paths whose quiet window has passed into the
// processing state and schedules their workers.
func (d *Dispatcher) promoteExpired(ctx context.Context) {
	now := time.Now()

	d.mu.Lock()
	var ready []string
	for path, entry := range d.paths {
		if entry.state == statePending && !entry.deadline.After(now) {
			entry.state = stateProcessing
			entry.queued = false
			ready = append(ready, path)
		}
	}
	d.mu.Unlock()

	for _, path := range ready {
		d.dispatch(ctx, path)
	}
}

// dispatch runs the change handler for one path on the worker pool and
// settles the path's state afterwards. A deletion queued while the
// worker ran executes on the same worker slot, keeping per-path
// operations strictly ordered.
func (d *Dispatcher) dispatch(ctx context.Context, path string) {
	d.group.Go(func() error {
		err := d.handler.HandleChange(ctx, path)

		d.mu.Lock()
		if err != nil {
			d.logger.Error("change handling failed", "path", path, "error", err)
			d.stats.Failed++
		} else {
			d.stats.Dispatched++
		}

		runDelete := false
		switch entry, exists := d.paths[path]; {
		case !exists:
		case entry.deleteQueued:
			delete(d.paths, path)
			runDelete = true
		case entry.queued:
			entry.state = statePending
			entry.queued = false
			entry.deadline = time.Now().Add(d.debounce)
		default:
			delete(d.paths, path)
		}
		d.mu.Unlock()

		if runDelete {
			d.handleDelete(ctx, path)
		}
		return nil
	})
}

// Stats returns a snapshot of dispatcher activity.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := d.stats
	for _, entry := range d.paths {
		switch entry.state {
		case statePending:
			stats.Pending++
		case stateProcessing:
			stats.Processing++
		}
	}
	return stats
}

func (d *Dispatcher) extensionAllowed(path string) bool {
	return d.allowed[strings.ToLower(filepath.Ext(path))]
}
