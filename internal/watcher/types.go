// Package watcher turns raw filesystem notifications into debounced
// per-file index work. The Watcher emits events; the Dispatcher runs a
// per-path state machine that coalesces bursts and hands settled files
// to a bounded worker pool.
package watcher

import "time"

// Op is the kind of change observed on a path.
type Op int

const (
	// OpCreated indicates a new file appeared.
	OpCreated Op = iota
	// OpModified indicates an existing file changed.
	OpModified
	// OpDeleted indicates a file was removed or renamed away.
	OpDeleted
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreated:
		return "CREATED"
	case OpModified:
		return "MODIFIED"
	case OpDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change.
type FileEvent struct {
	// Path is the absolute path of the changed file.
	Path string

	// Op is the change kind.
	Op Op

	// Time is when the event was observed.
	Time time.Time
}
