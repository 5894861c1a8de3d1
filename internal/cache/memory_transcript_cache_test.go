package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-notebook/internal/model"
)

func TestMemoryTranscriptCacheRoundTrip(t *testing.T) {
	c := NewMemoryTranscriptCache(0)
	ctx := context.Background()

	_, ok, err := c.LoadTranscript(ctx, "nb")
	require.NoError(t, err)
	assert.False(t, ok)

	messages := []model.Message{{Role: model.RoleUser, Content: "hi"}}
	require.NoError(t, c.SaveTranscript(ctx, "nb", messages))
	messages[0].Content = "mutated"

	got, ok, err := c.LoadTranscript(ctx, "nb")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hi", got[0].Content)

	require.NoError(t, c.DeleteTranscript(ctx, "nb"))
	_, ok, _ = c.LoadTranscript(ctx, "nb")
	assert.False(t, ok)
}

func TestTranscriptKey(t *testing.T) {
	assert.Equal(t, "notebook:transcript:abc", transcriptKey("abc"))
}
