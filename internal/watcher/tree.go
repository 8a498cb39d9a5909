package watcher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// Node is one live watch registration.
type Node struct {
	// Path is the absolute directory path being watched.
	Path string
	// Prefix is Path relative to the job root, slash-separated; "" for the root.
	Prefix string
	// WD is the native watch descriptor.
	WD int
}

// Tree owns the watch registrations of one job and extends itself when
// subdirectories appear under a recursive job. A Tree is owned by a single
// goroutine and does no locking.
type Tree struct {
	notifier  Notifier
	filter    *Filter
	logger    *slog.Logger
	nodes     map[int]*Node
	detached  map[int]struct{}
	root      string
	mask      Mask
	recursive bool
}

// NewTree creates an empty tree for root. mask is the native mask every
// registration uses.
func NewTree(n Notifier, root string, mask Mask, recursive bool, filter *Filter, logger *slog.Logger) *Tree {
	return &Tree{
		notifier:  n,
		filter:    filter,
		logger:    logger,
		nodes:     make(map[int]*Node),
		detached:  make(map[int]struct{}),
		root:      filepath.Clean(root),
		mask:      mask,
		recursive: recursive,
	}
}

// Install registers the root and, for recursive trees, every directory
// already below it. Only a failure on the root is returned.
func (t *Tree) Install() error {
	node, err := t.add(t.root, "")
	if err != nil {
		return err
	}
	if t.recursive {
		t.walk(node)
	}
	return nil
}

// OnDirectoryCreated registers a watch for the new directory name inside
// parent, then walks it for subdirectories that appeared before the watch
// took effect. Excluded directories are skipped silently.
func (t *Tree) OnDirectoryCreated(parent *Node, name string) (*Node, error) {
	prefix := JoinRelative(parent.Prefix, name)
	if t.filter.Excluded(prefix) {
		t.logger.Debug("skipping excluded directory", "prefix", prefix)
		return nil, nil
	}

	node, err := t.add(filepath.Join(parent.Path, name), prefix)
	if err != nil {
		return nil, err
	}
	t.walk(node)
	return node, nil
}

// walk registers every non-excluded directory below node.
func (t *Tree) walk(node *Node) {
	err := filepath.WalkDir(node.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			t.logger.Warn("failed to access path", "path", p, "error", err)
			return nil // Continue walking
		}
		if !d.IsDir() || p == node.Path {
			return nil
		}

		rel, err := filepath.Rel(t.root, p)
		if err != nil {
			return nil
		}
		prefix := filepath.ToSlash(rel)

		if t.filter.Excluded(prefix) {
			return filepath.SkipDir
		}

		if _, err := t.add(p, prefix); err != nil {
			t.logger.Warn("failed to add watch", "path", p, "error", err)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		t.logger.Warn("failed to walk directory", "path", node.Path, "error", err)
	}
}

// add registers path with the notifier. The native facility identifies
// directories by inode, so re-adding a watched directory returns its
// existing node; when the directory was renamed meanwhile, that node and
// its descendants move to the new path and prefix.
func (t *Tree) add(path, prefix string) (*Node, error) {
	wd, err := t.notifier.Add(path, t.mask)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	if existing, ok := t.nodes[wd]; ok {
		if existing.Path != path && existing.Prefix != "" {
			t.relocate(existing, path, prefix)
		}
		delete(t.detached, wd)
		return existing, nil
	}

	node := &Node{Path: path, Prefix: prefix, WD: wd}
	t.nodes[wd] = node
	t.logger.Debug("watching directory", "path", path, "prefix", prefix, "wd", wd)
	return node, nil
}

// relocate rewrites node and every node below it after a rename.
func (t *Tree) relocate(node *Node, path, prefix string) {
	oldPrefix := node.Prefix
	t.logger.Debug("directory renamed", "from", node.Path, "to", path, "wd", node.WD)

	for wd, n := range t.nodes {
		if n != node && !strings.HasPrefix(n.Prefix, oldPrefix+"/") {
			continue
		}
		rest := strings.TrimPrefix(n.Prefix, oldPrefix)
		n.Prefix = prefix + rest
		n.Path = filepath.Join(path, filepath.FromSlash(rest))
		delete(t.detached, wd)
	}
}

// Detach marks the directory at prefix and every directory below it as
// moved away. Detached watches stay registered so a rename inside the tree
// can reclaim them through OnDirectoryCreated; PruneDetached drops the rest.
// It returns the number of watches detached.
func (t *Tree) Detach(prefix string) int {
	if prefix == "" {
		return 0
	}

	n := 0
	for wd, node := range t.nodes {
		if node.Prefix == prefix || strings.HasPrefix(node.Prefix, prefix+"/") {
			t.detached[wd] = struct{}{}
			n++
		}
	}
	return n
}

// Detached reports whether wd belongs to a directory that moved away and
// has not been reclaimed.
func (t *Tree) Detached(wd int) bool {
	_, ok := t.detached[wd]
	return ok
}

// PruneDetached removes every detached watch and returns how many were
// removed.
func (t *Tree) PruneDetached() int {
	n := len(t.detached)
	for wd := range t.detached {
		t.remove(wd)
	}
	return n
}

func (t *Tree) remove(wd int) {
	node, ok := t.nodes[wd]
	if !ok {
		return
	}
	if err := t.notifier.Remove(wd); err != nil {
		t.logger.Debug("failed to remove watch", "path", node.Path, "wd", wd, "error", err)
	}
	delete(t.nodes, wd)
	delete(t.detached, wd)
}

// Lookup returns the node for a watch descriptor.
func (t *Tree) Lookup(wd int) (*Node, bool) {
	node, ok := t.nodes[wd]
	return node, ok
}

// Forget drops a node whose descriptor the native facility has retired.
func (t *Tree) Forget(wd int) {
	if node, ok := t.nodes[wd]; ok {
		t.logger.Debug("watch retired", "path", node.Path, "wd", wd)
		delete(t.nodes, wd)
		delete(t.detached, wd)
	}
}

// Len returns the number of live watches.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the job root.
func (t *Tree) Root() string {
	return t.root
}

// Nodes returns a copy of the live nodes ordered by prefix.
func (t *Tree) Nodes() []Node {
	nodes := make([]Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Prefix < nodes[j].Prefix
	})
	return nodes
}

// RelativePath returns the root-relative path reported for an entry named
// name inside node.
func (t *Tree) RelativePath(node *Node, name string) string {
	return JoinRelative(node.Prefix, name)
}

// JoinRelative joins a prefix and an entry name with '/', without a leading
// separator when prefix is empty.
func JoinRelative(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "/" + name
	}
}
