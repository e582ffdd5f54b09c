package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) (*Watcher, func()) {
	t.Helper()
	w := NewWatcher(root, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Start(ctx)
		close(done)
	}()
	// Give fsnotify a moment to register the watches.
	time.Sleep(100 * time.Millisecond)
	return w, func() {
		cancel()
		<-done
	}
}

// collect drains events matching path until timeout.
func collect(w *Watcher, timeout time.Duration) []FileEvent {
	var got []FileEvent
	deadline := time.After(timeout)
	for {
		select {
		case e := <-w.Events():
			got = append(got, e)
		case <-deadline:
			return got
		}
	}
}

func hasEvent(events []FileEvent, path string, op Op) bool {
	for _, e := range events {
		if e.Path == path && e.Op == op {
			return true
		}
	}
	return false
}

func TestWatcher_SeesCreateWriteDelete(t *testing.T) {
	root := t.TempDir()
	w, stop := startWatcher(t, root)
	defer stop()

	path := filepath.Join(root, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("second version"), 0o644))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.Remove(path))

	events := collect(w, time.Second)

	assert.True(t, hasEvent(events, path, OpCreated), "expected create event")
	assert.True(t, hasEvent(events, path, OpDeleted), "expected delete event")
}

func TestWatcher_PicksUpNewSubdirectories(t *testing.T) {
	// Given: a running watcher
	root := t.TempDir()
	w, stop := startWatcher(t, root)
	defer stop()

	// When: a new subdirectory appears and a file is written inside it
	sub := filepath.Join(root, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(200 * time.Millisecond)
	path := filepath.Join(sub, "inner.md")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	// Then: the file event is observed
	events := collect(w, time.Second)
	assert.True(t, hasEvent(events, path, OpCreated) || hasEvent(events, path, OpModified),
		"expected an event for the nested file")
}

func TestWatcher_StartTwiceFails(t *testing.T) {
	root := t.TempDir()
	w, stop := startWatcher(t, root)
	defer stop()

	err := w.Start(context.Background())

	assert.Error(t, err)
}

func TestWatcher_RestartableAfterStop(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Start(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	// A fresh watcher over the same root starts cleanly.
	w2, stop := startWatcher(t, root)
	defer stop()
	assert.NotNil(t, w2)
}
