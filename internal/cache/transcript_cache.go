package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"gopherai-notebook/internal/model"
)

const defaultTranscriptTTL = 24 * time.Hour

// TranscriptCache keeps each notebook's chat transcript in redis so a gateway
// restart does not lose the conversation.
type TranscriptCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewTranscriptCache(client *redisv9.Client, ttl time.Duration) *TranscriptCache {
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	return &TranscriptCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *TranscriptCache) LoadTranscript(ctx context.Context, notebookID string) ([]model.Message, bool, error) {
	raw, err := c.client.Get(ctx, transcriptKey(notebookID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get transcript failed: %w", err)
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached transcript failed: %w", err)
	}
	return messages, true, nil
}

func (c *TranscriptCache) SaveTranscript(ctx context.Context, notebookID string, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal transcript failed: %w", err)
	}
	if err := c.client.Set(ctx, transcriptKey(notebookID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set transcript failed: %w", err)
	}
	return nil
}

func (c *TranscriptCache) DeleteTranscript(ctx context.Context, notebookID string) error {
	if err := c.client.Del(ctx, transcriptKey(notebookID)).Err(); err != nil {
		return fmt.Errorf("redis delete transcript failed: %w", err)
	}
	return nil
}

func transcriptKey(notebookID string) string {
	return "notebook:transcript:" + notebookID
}

// Store is implemented by both the redis and the in-memory transcript caches.
type Store interface {
	LoadTranscript(ctx context.Context, notebookID string) ([]model.Message, bool, error)
	SaveTranscript(ctx context.Context, notebookID string, messages []model.Message) error
	DeleteTranscript(ctx context.Context, notebookID string) error
}
