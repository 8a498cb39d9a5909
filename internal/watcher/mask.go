package watcher

import (
	"sort"
	"strings"
)

// Mask is a set of event kinds encoded with the Linux inotify bit layout.
// The values are part of the kernel ABI, so a Mask can be handed to
// inotify_add_watch unchanged.
type Mask uint32

// Primitive event kinds.
const (
	Access          Mask = 0x00000001 // IN_ACCESS
	Modify          Mask = 0x00000002 // IN_MODIFY
	AttributeChange Mask = 0x00000004 // IN_ATTRIB
	WriteClose      Mask = 0x00000008 // IN_CLOSE_WRITE
	NoWriteClose    Mask = 0x00000010 // IN_CLOSE_NOWRITE
	Open            Mask = 0x00000020 // IN_OPEN
	MoveFrom        Mask = 0x00000040 // IN_MOVED_FROM
	MoveTo          Mask = 0x00000080 // IN_MOVED_TO
	Create          Mask = 0x00000100 // IN_CREATE
	Delete          Mask = 0x00000200 // IN_DELETE
	SelfDelete      Mask = 0x00000400 // IN_DELETE_SELF
	SelfMove        Mask = 0x00000800 // IN_MOVE_SELF
)

// Flags reported by the kernel alongside the event kind.
const (
	Unmount  Mask = 0x00002000 // IN_UNMOUNT
	Overflow Mask = 0x00004000 // IN_Q_OVERFLOW
	Ignored  Mask = 0x00008000 // IN_IGNORED
	IsDir    Mask = 0x40000000 // IN_ISDIR
)

// Composite aliases.
const (
	Move  = MoveFrom | MoveTo
	Close = WriteClose | NoWriteClose
	All   = Access | Modify | AttributeChange | WriteClose | NoWriteClose | Open |
		MoveFrom | MoveTo | Create | Delete | SelfDelete | SelfMove
)

// eventNames maps the symbolic names accepted in job files to their bits.
var eventNames = map[string]Mask{
	"access":           Access,
	"attribute_change": AttributeChange,
	"atrribute_change": AttributeChange, // spelling used by early job files
	"write_close":      WriteClose,
	"nowrite_close":    NoWriteClose,
	"create":           Create,
	"delete":           Delete,
	"self_delete":      SelfDelete,
	"modify":           Modify,
	"self_move":        SelfMove,
	"move_from":        MoveFrom,
	"move_to":          MoveTo,
	"open":             Open,
	"all":              All,
	"move":             Move,
	"close":            Close,
}

// nativeNames lists every bit in ascending order with its inotify name.
var nativeNames = []struct {
	bit  Mask
	name string
}{
	{Access, "IN_ACCESS"},
	{Modify, "IN_MODIFY"},
	{AttributeChange, "IN_ATTRIB"},
	{WriteClose, "IN_CLOSE_WRITE"},
	{NoWriteClose, "IN_CLOSE_NOWRITE"},
	{Open, "IN_OPEN"},
	{MoveFrom, "IN_MOVED_FROM"},
	{MoveTo, "IN_MOVED_TO"},
	{Create, "IN_CREATE"},
	{Delete, "IN_DELETE"},
	{SelfDelete, "IN_DELETE_SELF"},
	{SelfMove, "IN_MOVE_SELF"},
	{Unmount, "IN_UNMOUNT"},
	{Overflow, "IN_Q_OVERFLOW"},
	{Ignored, "IN_IGNORED"},
	{IsDir, "IN_ISDIR"},
}

// ParseEvents translates symbolic event names into a mask. Names are
// trimmed and matched case-sensitively. Unknown names contribute nothing and
// are not an error; an empty result must be rejected by the caller.
func ParseEvents(names []string) Mask {
	var m Mask
	for _, name := range names {
		m |= eventNames[strings.TrimSpace(name)]
	}
	return m
}

// ParseEventList is ParseEvents over a comma-separated list.
func ParseEventList(list string) Mask {
	return ParseEvents(strings.Split(list, ","))
}

// KnownEvents returns the accepted symbolic names, sorted.
func KnownEvents() []string {
	names := make([]string, 0, len(eventNames))
	for name := range eventNames {
		if name == "atrribute_change" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether any bit of other is set in m.
func (m Mask) Has(other Mask) bool {
	return m&other != 0
}

// Names returns the inotify names of the bits set in m.
func (m Mask) Names() []string {
	var names []string
	for _, n := range nativeNames {
		if m&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

// String renders the mask as IN_X|IN_Y.
func (m Mask) String() string {
	return strings.Join(m.Names(), "|")
}
