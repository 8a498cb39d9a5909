package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEvents_Primitives(t *testing.T) {
	tests := []struct {
		name string
		want Mask
	}{
		{"access", Access},
		{"attribute_change", AttributeChange},
		{"atrribute_change", AttributeChange},
		{"write_close", WriteClose},
		{"nowrite_close", NoWriteClose},
		{"create", Create},
		{"delete", Delete},
		{"self_delete", SelfDelete},
		{"modify", Modify},
		{"self_move", SelfMove},
		{"move_from", MoveFrom},
		{"move_to", MoveTo},
		{"open", Open},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEvents([]string{tt.name}))
		})
	}
}

func TestParseEvents_Aliases(t *testing.T) {
	assert.Equal(t, MoveFrom|MoveTo, ParseEvents([]string{"move"}))
	assert.Equal(t, WriteClose|NoWriteClose, ParseEvents([]string{"close"}))

	all := ParseEvents([]string{"all"})
	assert.Equal(t, All, all)
	assert.Equal(t, Mask(0xfff), all, "all should cover exactly the twelve primitive kinds")
}

func TestParseEvents_IsUnionOfKnownBits(t *testing.T) {
	names := []string{"create", "delete", "bogus", "modify"}
	assert.Equal(t, Create|Delete|Modify, ParseEvents(names))

	reversed := []string{"modify", "bogus", "delete", "create"}
	assert.Equal(t, ParseEvents(names), ParseEvents(reversed), "order must not matter")
}

func TestParseEvents_TrimsAndIsCaseSensitive(t *testing.T) {
	assert.Equal(t, Create|Open, ParseEvents([]string{"  create", "open\t"}))
	assert.Equal(t, Mask(0), ParseEvents([]string{"CREATE", "Open"}))
}

func TestParseEvents_Empty(t *testing.T) {
	assert.Equal(t, Mask(0), ParseEvents(nil))
	assert.Equal(t, Mask(0), ParseEventList(""))
	assert.Equal(t, Mask(0), ParseEventList("unknown, nope"))
}

func TestParseEventList(t *testing.T) {
	assert.Equal(t, Create|MoveFrom|MoveTo, ParseEventList("create, move"))
	assert.Equal(t, Create|MoveFrom|MoveTo, ParseEventList("move ,create,"))
}

func TestKnownEvents(t *testing.T) {
	names := KnownEvents()
	assert.Len(t, names, 15)
	assert.Contains(t, names, "attribute_change")
	assert.NotContains(t, names, "atrribute_change")
	assert.IsIncreasing(t, names)
}

func TestMask_String(t *testing.T) {
	tests := []struct {
		mask Mask
		want string
	}{
		{Create, "IN_CREATE"},
		{Create | IsDir, "IN_CREATE|IN_ISDIR"},
		{WriteClose | NoWriteClose, "IN_CLOSE_WRITE|IN_CLOSE_NOWRITE"},
		{Ignored, "IN_IGNORED"},
		{0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mask.String())
		})
	}
}

func TestMask_Has(t *testing.T) {
	m := Create | Delete
	assert.True(t, m.Has(Create))
	assert.True(t, m.Has(Move|Delete))
	assert.False(t, m.Has(Move))
}
