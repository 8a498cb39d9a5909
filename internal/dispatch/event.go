package dispatch

import (
	"strconv"
	"time"

	"github.com/listenupapp/watcherd/internal/moves"
	"github.com/listenupapp/watcherd/internal/watcher"
)

// Event is a native event resolved against the watch it arrived on.
type Event struct {
	// WatchedDir is the absolute path of the watched directory the entry is in.
	WatchedDir string
	// Path is the absolute path of the entry.
	Path string
	// RelativePath is Path relative to the job root, slash-separated.
	RelativePath string
	Mask         watcher.Mask
	Cookie       uint32
}

// IsDir reports whether the entry is a directory.
func (e Event) IsDir() bool {
	return e.Mask.Has(watcher.IsDir)
}

// Fields returns the placeholder values for the event. src is the resolved
// rename source of a MoveTo, or nil.
func (e Event) Fields(src *moves.Source, now time.Time) Fields {
	fields := Fields{
		FieldWatchedDir:               e.WatchedDir,
		FieldFullPath:                 e.Path,
		FieldDestRelativePath:         e.RelativePath,
		FieldEventKindName:            e.Mask.String(),
		FieldEventKindRaw:             strconv.FormatUint(uint64(e.Mask), 10),
		FieldRenameSourcePath:         "",
		FieldRenameSourceRelativePath: "",
		FieldRenameCookie:             "",
		FieldTimestamp:                now.UTC().Format(time.RFC3339),
	}

	if e.Cookie != 0 && e.Mask&watcher.Move != 0 {
		fields[FieldRenameCookie] = strconv.FormatUint(uint64(e.Cookie), 10)
	}
	if src != nil && e.Mask.Has(watcher.MoveTo) {
		fields[FieldRenameSourcePath] = src.Path
		fields[FieldRenameSourceRelativePath] = src.RelativePath
	}
	return fields
}
