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
		id, err := Generate("test")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("rsv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "rsv-"))
	assert.Len(t, id, len("rsv-")+21)
}

func TestCancelToken_Length(t *testing.T) {
	tok, err := CancelToken()
	require.NoError(t, err)
	assert.Len(t, tok, 32)
	assert.NotContains(t, tok, " ")
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustGenerate("tk")
		assert.True(t, strings.HasPrefix(id, "tk-"))
	})
}
