package watcher

import (
	"context"
	"errors"
	"log/slog"
)

// ErrClosed is returned by Notifier.Next once the notifier has been closed.
var ErrClosed = errors.New("notifier closed")

// Event is one raw notification as delivered by the native facility.
type Event struct {
	// WD is the watch descriptor the event was reported on.
	WD int
	// Mask holds the kind bits plus flags such as IsDir.
	Mask Mask
	// Cookie pairs MoveFrom with MoveTo for one rename; zero otherwise.
	Cookie uint32
	// Name is the entry name inside the watched directory, empty for
	// events about the watched directory itself.
	Name string
}

// IsDir reports whether the event refers to a directory entry.
func (e Event) IsDir() bool {
	return e.Mask.Has(IsDir)
}

// Notifier is the native change-notification facility for a single job.
// Each job owns its own Notifier; implementations are not safe for use from
// more than one goroutine, except that a blocked Next returns when its
// context is cancelled.
type Notifier interface {
	// Add registers a watch on the directory at path and returns its descriptor.
	// Adding an already watched path returns the existing descriptor.
	Add(path string, mask Mask) (int, error)

	// Remove drops a watch descriptor.
	Remove(wd int) error

	// Next blocks until an event is available, the context is done, or the
	// facility fails.
	Next(ctx context.Context) (Event, error)

	// Close releases the native resources.
	Close() error
}

// NewNotifier creates the best notifier for the current platform:
// inotify on Linux, fsnotify elsewhere.
func NewNotifier(logger *slog.Logger) (Notifier, error) {
	return newNotifier(logger)
}
