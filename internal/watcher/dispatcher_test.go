package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures handler invocations for assertions.
type recordingHandler struct {
	mu      sync.Mutex
	changes []string
	deletes []string
	delay   time.Duration
	err     error
}

func (h *recordingHandler) HandleChange(_ context.Context, path string) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changes = append(h.changes, path)
	return h.err
}

func (h *recordingHandler) HandleDelete(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deletes = append(h.deletes, path)
	return h.err
}

func (h *recordingHandler) changeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.changes)
}

func (h *recordingHandler) deleteCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.deletes)
}

var testExtensions = map[string]bool{".md": true, ".txt": true}

func runDispatcher(t *testing.T, d *Dispatcher) (chan FileEvent, func()) {
	t.Helper()
	events := make(chan FileEvent, 64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx, events)
		close(done)
	}()
	return events, func() {
		cancel()
		<-done
	}
}

func TestDispatcher_DispatchesAfterQuietWindow(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 200*time.Millisecond, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/a.md", Op: OpModified, Time: time.Now()}

	// Not dispatched before the window passes.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, h.changeCount())

	assert.Eventually(t, func() bool { return h.changeCount() == 1 },
		2*time.Second, 20*time.Millisecond)
}

func TestDispatcher_BurstCoalescesToOneDispatch(t *testing.T) {
	// Given: five rapid writes to the same file
	h := &recordingHandler{}
	d := NewDispatcher(h, 200*time.Millisecond, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	for i := 0; i < 5; i++ {
		events <- FileEvent{Path: "/docs/burst.md", Op: OpModified, Time: time.Now()}
		time.Sleep(20 * time.Millisecond)
	}

	// Then: exactly one dispatch happens
	require.Eventually(t, func() bool { return h.changeCount() >= 1 },
		2*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, h.changeCount())
}

func TestDispatcher_DeleteBypassesDebounce(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 2*time.Second, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/gone.md", Op: OpDeleted, Time: time.Now()}

	// Dispatched well before the 2s debounce window.
	assert.Eventually(t, func() bool { return h.deleteCount() == 1 },
		500*time.Millisecond, 10*time.Millisecond)
}

func TestDispatcher_DeleteCancelsPendingChange(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 300*time.Millisecond, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/tmp.md", Op: OpModified, Time: time.Now()}
	events <- FileEvent{Path: "/docs/tmp.md", Op: OpDeleted, Time: time.Now()}

	require.Eventually(t, func() bool { return h.deleteCount() == 1 },
		2*time.Second, 20*time.Millisecond)
	// The pending change never fires.
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, 0, h.changeCount())
}

func TestDispatcher_FiltersUnknownExtensions(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 100*time.Millisecond, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/binary.exe", Op: OpModified, Time: time.Now()}
	events <- FileEvent{Path: "/docs/image.png", Op: OpDeleted, Time: time.Now()}

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 0, h.changeCount())
	assert.Equal(t, 0, h.deleteCount())
	assert.Equal(t, int64(2), d.Stats().Filtered)
}

func TestDispatcher_ChangeDuringProcessingQueuesRerun(t *testing.T) {
	// Given: a slow handler so the processing window is observable
	h := &recordingHandler{delay: 300 * time.Millisecond}
	d := NewDispatcher(h, 200*time.Millisecond, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/busy.md", Op: OpModified, Time: time.Now()}

	// Wait until the worker has started, then send another change.
	require.Eventually(t, func() bool { return d.Stats().Processing >= 1 },
		2*time.Second, 10*time.Millisecond)
	events <- FileEvent{Path: "/docs/busy.md", Op: OpModified, Time: time.Now()}

	// Then: the file is indexed a second time after settling again.
	assert.Eventually(t, func() bool { return h.changeCount() == 2 },
		3*time.Second, 20*time.Millisecond)
}

func TestDispatcher_DeleteDuringProcessingWaitsForWorker(t *testing.T) {
	// Given: a slow handler mid-flight on a path
	h := &recordingHandler{delay: 400 * time.Millisecond}
	d := NewDispatcher(h, 100*time.Millisecond, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/racy.md", Op: OpModified, Time: time.Now()}
	require.Eventually(t, func() bool { return d.Stats().Processing >= 1 },
		2*time.Second, 10*time.Millisecond)

	// When: the file is deleted while its index pass runs
	events <- FileEvent{Path: "/docs/racy.md", Op: OpDeleted, Time: time.Now()}

	// Then: the purge waits for the worker instead of racing it
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, h.deleteCount())

	assert.Eventually(t, func() bool {
		return h.changeCount() == 1 && h.deleteCount() == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDispatcher_ChangeAfterQueuedDeleteWins(t *testing.T) {
	// Given: a delete queued behind an in-flight worker
	h := &recordingHandler{delay: 400 * time.Millisecond}
	d := NewDispatcher(h, 100*time.Millisecond, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/back.md", Op: OpModified, Time: time.Now()}
	require.Eventually(t, func() bool { return d.Stats().Processing >= 1 },
		2*time.Second, 10*time.Millisecond)
	events <- FileEvent{Path: "/docs/back.md", Op: OpDeleted, Time: time.Now()}

	// When: the file reappears before the worker finishes
	events <- FileEvent{Path: "/docs/back.md", Op: OpCreated, Time: time.Now()}

	// Then: the path reindexes instead of being purged
	assert.Eventually(t, func() bool { return h.changeCount() == 2 },
		3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, h.deleteCount())
}

func TestDispatcher_IndependentPathsDispatchSeparately(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 150*time.Millisecond, testExtensions, 4, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/a.md", Op: OpModified, Time: time.Now()}
	events <- FileEvent{Path: "/docs/b.md", Op: OpCreated, Time: time.Now()}
	events <- FileEvent{Path: "/docs/c.txt", Op: OpModified, Time: time.Now()}

	assert.Eventually(t, func() bool { return h.changeCount() == 3 },
		2*time.Second, 20*time.Millisecond)
}

func TestDispatcher_StatsCountDispatches(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 100*time.Millisecond, testExtensions, 2, nil)
	events, stop := runDispatcher(t, d)
	defer stop()

	events <- FileEvent{Path: "/docs/a.md", Op: OpModified, Time: time.Now()}
	events <- FileEvent{Path: "/docs/b.md", Op: OpDeleted, Time: time.Now()}

	assert.Eventually(t, func() bool {
		s := d.Stats()
		return s.Dispatched == 1 && s.Deleted == 1
	}, 2*time.Second, 20*time.Millisecond)
}
