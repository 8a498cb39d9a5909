//go:build !linux

package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyNotifier implements Notifier on top of fsnotify for platforms
// without inotify. Descriptors are synthesized per watched directory.
// fsnotify reports no rename cookies, so renames surface as MoveFrom only,
// and access/open/close kinds are never produced.
type fsnotifyNotifier struct {
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	wds     map[string]int
	paths   map[int]string
	masks   map[int]Mask
	queue   []Event
	nextWD  int
	closed  bool
}

func newNotifier(logger *slog.Logger) (Notifier, error) {
	return newFsnotifyNotifier(logger)
}

// newFsnotifyNotifier creates a notifier backed by fsnotify.
func newFsnotifyNotifier(logger *slog.Logger) (*fsnotifyNotifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &fsnotifyNotifier{
		logger:  logger,
		watcher: w,
		wds:     make(map[string]int),
		paths:   make(map[int]string),
		masks:   make(map[int]Mask),
		nextWD:  1,
	}, nil
}

// Add watches a directory.
func (n *fsnotifyNotifier) Add(path string, mask Mask) (int, error) {
	if n.closed {
		return -1, ErrClosed
	}
	path = filepath.Clean(path)

	if wd, ok := n.wds[path]; ok {
		n.masks[wd] = mask
		return wd, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return -1, fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return -1, fmt.Errorf("not a directory: %s", path)
	}

	if err := n.watcher.Add(path); err != nil {
		return -1, fmt.Errorf("failed to add watch %s: %w", path, err)
	}

	wd := n.nextWD
	n.nextWD++
	n.wds[path] = wd
	n.paths[wd] = path
	n.masks[wd] = mask
	n.logger.Debug("added watch", "path", path, "wd", wd)

	return wd, nil
}

// Remove drops a watch and queues the matching Ignored event.
func (n *fsnotifyNotifier) Remove(wd int) error {
	if n.closed {
		return ErrClosed
	}
	path, ok := n.paths[wd]
	if !ok {
		return fmt.Errorf("unknown watch descriptor %d", wd)
	}

	err := n.watcher.Remove(path)
	n.forget(wd)
	if err != nil {
		return fmt.Errorf("failed to remove watch %s: %w", path, err)
	}
	return nil
}

// forget drops a descriptor and queues Ignored, as inotify would.
func (n *fsnotifyNotifier) forget(wd int) {
	path := n.paths[wd]
	delete(n.wds, path)
	delete(n.paths, wd)
	delete(n.masks, wd)
	n.queue = append(n.queue, Event{WD: wd, Mask: Ignored})
}

// Next returns the next translated event.
func (n *fsnotifyNotifier) Next(ctx context.Context) (Event, error) {
	for len(n.queue) == 0 {
		if n.closed {
			return Event{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return Event{}, ErrClosed
			}
			n.translate(ev)
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return Event{}, ErrClosed
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				n.queue = append(n.queue, Event{WD: -1, Mask: Overflow})
				continue
			}
			return Event{}, fmt.Errorf("fsnotify error: %w", err)
		}
	}

	ev := n.queue[0]
	n.queue = n.queue[1:]
	return ev, nil
}

// translate converts one fsnotify event into zero or more queued events.
func (n *fsnotifyNotifier) translate(ev fsnotify.Event) {
	name := filepath.Clean(ev.Name)

	// The watched directory itself went away.
	if wd, ok := n.wds[name]; ok && ev.Has(fsnotify.Remove|fsnotify.Rename) {
		kind := SelfDelete
		if ev.Has(fsnotify.Rename) {
			kind = SelfMove
		}
		if n.masks[wd].Has(kind) {
			n.queue = append(n.queue, Event{WD: wd, Mask: kind})
		}
		n.forget(wd)
	}

	parent, ok := n.wds[filepath.Dir(name)]
	if !ok {
		return
	}

	var kinds Mask
	switch {
	case ev.Has(fsnotify.Create):
		kinds = Create
	case ev.Has(fsnotify.Write):
		kinds = Modify
	case ev.Has(fsnotify.Remove):
		kinds = Delete
	case ev.Has(fsnotify.Rename):
		kinds = MoveFrom
	case ev.Has(fsnotify.Chmod):
		kinds = AttributeChange
	}

	kinds &= n.masks[parent]
	if kinds == 0 {
		return
	}

	if kinds.Has(Create) {
		if info, err := os.Lstat(name); err == nil && info.IsDir() {
			kinds |= IsDir
		}
	}

	n.queue = append(n.queue, Event{
		WD:   parent,
		Mask: kinds,
		Name: filepath.Base(name),
	})
}

// Close stops fsnotify.
func (n *fsnotifyNotifier) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	n.queue = nil
	return n.watcher.Close()
}
