// Package moves pairs "moved out" and "moved in" notifications into renames.
package moves

// Source is where a renamed entry came from.
type Source struct {
	// Path is the absolute path the entry was moved from.
	Path string
	// RelativePath is Path relative to the job root.
	RelativePath string
}

// Correlator maps rename cookies to the source of their MoveFrom event.
// A Correlator belongs to one job and is not safe for concurrent use.
//
// Entries whose MoveTo never arrives, for example because the entry left the
// watched tree, stay until the job stops.
type Correlator struct {
	pending map[uint32]Source
}

// New creates an empty correlator.
func New() *Correlator {
	return &Correlator{pending: make(map[uint32]Source)}
}

// ObserveMoveFrom records src for cookie, replacing any earlier entry.
func (c *Correlator) ObserveMoveFrom(cookie uint32, src Source) {
	c.pending[cookie] = src
}

// ResolveMoveTo removes and returns the source recorded for cookie.
func (c *Correlator) ResolveMoveTo(cookie uint32) (Source, bool) {
	src, ok := c.pending[cookie]
	if ok {
		delete(c.pending, cookie)
	}
	return src, ok
}

// Len returns the number of unresolved moves.
func (c *Correlator) Len() int {
	return len(c.pending)
}
