package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"gopherai-notebook/internal/model"
)

// MemoryTranscriptCache is the in-process fallback used when redis is
// disabled. Transcripts do not survive a restart.
type MemoryTranscriptCache struct {
	store *gocache.Cache
}

func NewMemoryTranscriptCache(ttl time.Duration) *MemoryTranscriptCache {
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	return &MemoryTranscriptCache{store: gocache.New(ttl, ttl/2)}
}

func (c *MemoryTranscriptCache) LoadTranscript(_ context.Context, notebookID string) ([]model.Message, bool, error) {
	v, ok := c.store.Get(transcriptKey(notebookID))
	if !ok {
		return nil, false, nil
	}
	stored := v.([]model.Message)
	out := make([]model.Message, len(stored))
	copy(out, stored)
	return out, true, nil
}

func (c *MemoryTranscriptCache) SaveTranscript(_ context.Context, notebookID string, messages []model.Message) error {
	stored := make([]model.Message, len(messages))
	copy(stored, messages)
	c.store.SetDefault(transcriptKey(notebookID), stored)
	return nil
}

func (c *MemoryTranscriptCache) DeleteTranscript(_ context.Context, notebookID string) error {
	c.store.Delete(transcriptKey(notebookID))
	return nil
}
