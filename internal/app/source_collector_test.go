package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-notebook/internal/model"
)

func TestSourceCollectorPayloadFollowsHeldSources(t *testing.T) {
	c := NewSourceCollector()
	assert.True(t, c.IsEmpty())

	c.Add(model.NewFileSource("a.pdf", []byte("%PDF-1.4 a"), "application/pdf"))
	c.Add(model.NewURLSource("https://example.com/one"))
	c.Add(model.NewTextSource("first"))
	c.Add(model.NewFileSource("b.txt", []byte("plain b"), "text/plain"))
	c.Add(model.NewURLSource("https://example.com/two"))
	c.Add(model.NewTextSource("second"))

	require.True(t, c.Remove(0))
	require.False(t, c.Remove(42))
	require.False(t, c.Remove(-1))

	payload := c.ToSubmissionPayload()
	require.Len(t, payload.Files, 1)
	assert.Equal(t, "b.txt", payload.Files[0].Name)
	assert.Equal(t, []byte("plain b"), payload.Files[0].Content)
	assert.Equal(t, []string{"https://example.com/one", "https://example.com/two"}, payload.URLs)
	assert.Equal(t, "first"+model.TextSeparator+"second", payload.PlainText)

	urlField, err := payload.URLField()
	require.NoError(t, err)
	assert.Equal(t, `["https://example.com/one","https://example.com/two"]`, urlField)

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.ToSubmissionPayload().IsEmpty())
}

func TestSourceCollectorJoinsTextsInOrder(t *testing.T) {
	c := NewSourceCollector()
	for _, text := range []string{"a", "b", "c"} {
		c.Add(model.NewTextSource(text))
	}

	payload := c.ToSubmissionPayload()
	assert.Equal(t, "a\n\n---\n\nb\n\n---\n\nc", payload.PlainText)
	assert.Empty(t, payload.Files)
	assert.Empty(t, payload.URLs)
}

func TestSourceCollectorRemoveKeepsOrder(t *testing.T) {
	c := NewSourceCollector()
	for _, text := range []string{"zero", "one", "two", "three"} {
		c.Add(model.NewTextSource(text))
	}
	require.True(t, c.Remove(1))
	require.True(t, c.Remove(2))

	sources := c.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "zero", sources[0].Value)
	assert.Equal(t, "two", sources[1].Value)
	assert.Equal(t, "zero"+model.TextSeparator+"two", c.ToSubmissionPayload().PlainText)
}

func TestSourceCollectorForwardsChunkHints(t *testing.T) {
	c := NewSourceCollector()
	c.SetChunkHints(1000, 200)
	c.Add(model.NewTextSource("hello"))

	payload := c.ToSubmissionPayload()
	assert.Equal(t, 1000, payload.ChunkSize)
	assert.Equal(t, 200, payload.ChunkOverlap)
}

func TestNewFileSourceSniffsMimeType(t *testing.T) {
	src := model.NewFileSource("notes", []byte("just some text"), "")
	assert.Equal(t, model.SourceKindFile, src.Kind)
	assert.Equal(t, int64(len("just some text")), src.SizeBytes)
	assert.Contains(t, src.MimeType, "text/plain")
}
