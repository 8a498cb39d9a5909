package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate("test", RunLength)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("job", 8)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "job-"))
	random := strings.TrimPrefix(id, "job-")
	assert.Len(t, random, 8)
	for _, char := range random {
		assert.True(t, (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9'),
			"Character %c should be lowercase alphanumeric", char)
	}
}

func TestRun(t *testing.T) {
	id := Run()
	assert.True(t, strings.HasPrefix(id, "run-"))
	assert.Len(t, id, len("run-")+RunLength)
	assert.NotEqual(t, id, Run())
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustGenerate("x", 4)
		assert.Len(t, id, 6)
	})
}
