// Package watchertest provides an in-memory watcher.Notifier for tests.
package watchertest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/listenupapp/watcherd/internal/watcher"
)

// Notifier is a scripted watcher.Notifier. Watches are recorded, events are
// fed with Push, and Fail makes the next read return an error. Like inotify,
// it identifies a directory by its file identity rather than its path: adding
// a renamed directory returns the descriptor it already had.
type Notifier struct {
	events  chan watcher.Event
	failure chan error
	addErrs map[string]error
	wds     map[string]int
	paths   map[int]string
	files   map[int]os.FileInfo
	masks   map[int]watcher.Mask
	nextWD  int
	closed  bool
	mu      sync.Mutex
}

// New creates an empty fake notifier.
func New() *Notifier {
	return &Notifier{
		events:  make(chan watcher.Event, 256),
		failure: make(chan error, 1),
		addErrs: make(map[string]error),
		wds:     make(map[string]int),
		paths:   make(map[int]string),
		files:   make(map[int]os.FileInfo),
		masks:   make(map[int]watcher.Mask),
		nextWD:  1,
	}
}

// FailAdd makes Add return err for path.
func (n *Notifier) FailAdd(path string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.addErrs[filepath.Clean(path)] = err
}

// Add implements watcher.Notifier.
func (n *Notifier) Add(path string, mask watcher.Mask) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return -1, watcher.ErrClosed
	}
	path = filepath.Clean(path)
	if err := n.addErrs[path]; err != nil {
		return -1, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return -1, err
	}
	if !fi.IsDir() {
		return -1, fmt.Errorf("%s is not a directory", path)
	}

	for wd, known := range n.files {
		if !os.SameFile(fi, known) {
			continue
		}
		if old := n.paths[wd]; old != path {
			delete(n.wds, old)
			n.wds[path] = wd
			n.paths[wd] = path
		}
		n.masks[wd] = mask
		return wd, nil
	}

	wd := n.nextWD
	n.nextWD++
	n.wds[path] = wd
	n.paths[wd] = path
	n.files[wd] = fi
	n.masks[wd] = mask
	return wd, nil
}

// Remove implements watcher.Notifier.
func (n *Notifier) Remove(wd int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	path, ok := n.paths[wd]
	if !ok {
		return fmt.Errorf("unknown watch descriptor %d", wd)
	}
	delete(n.wds, path)
	delete(n.paths, wd)
	delete(n.files, wd)
	delete(n.masks, wd)
	return nil
}

// Next implements watcher.Notifier.
func (n *Notifier) Next(ctx context.Context) (watcher.Event, error) {
	select {
	case <-ctx.Done():
		return watcher.Event{}, ctx.Err()
	case err := <-n.failure:
		return watcher.Event{}, err
	case ev := <-n.events:
		return ev, nil
	}
}

// Close implements watcher.Notifier.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// Closed reports whether Close was called.
func (n *Notifier) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// Push queues an event for Next.
func (n *Notifier) Push(ev watcher.Event) {
	n.events <- ev
}

// PushAt queues an event for the directory at path. It panics if path is
// not watched, which is always a test bug.
func (n *Notifier) PushAt(path string, mask watcher.Mask, name string, cookie uint32) {
	wd, ok := n.WD(path)
	if !ok {
		panic(fmt.Sprintf("watchertest: %s is not watched", path))
	}
	n.Push(watcher.Event{WD: wd, Mask: mask, Name: name, Cookie: cookie})
}

// Fail makes the next Next call return err.
func (n *Notifier) Fail(err error) {
	n.failure <- err
}

// WD returns the descriptor registered for path.
func (n *Notifier) WD(path string) (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	wd, ok := n.wds[filepath.Clean(path)]
	return wd, ok
}

// Mask returns the mask path was registered with.
func (n *Notifier) Mask(path string) watcher.Mask {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.masks[n.wds[filepath.Clean(path)]]
}

// Paths returns the watched paths, sorted.
func (n *Notifier) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	paths := make([]string, 0, len(n.wds))
	for p := range n.wds {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
