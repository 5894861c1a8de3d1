package app

import (
	"slices"
	"strings"
	"sync"

	"gopherai-notebook/internal/model"
)

// SourceCollector accumulates the sources of one notebook before submission.
// Sources are identified by their position.
type SourceCollector struct {
	mu      sync.Mutex
	sources []model.Source

	chunkSize    int
	chunkOverlap int
}

func NewSourceCollector() *SourceCollector {
	return &SourceCollector{}
}

// SetChunkHints sets the optional chunking hints forwarded with the payload.
func (c *SourceCollector) SetChunkHints(size, overlap int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunkSize = size
	c.chunkOverlap = overlap
}

// Add takes ownership of the source, including any file payload.
func (c *SourceCollector) Add(source model.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, source)
}

// Remove drops the source at index and reports whether it existed.
func (c *SourceCollector) Remove(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.sources) {
		return false
	}
	c.sources = slices.Delete(c.sources, index, index+1)
	return true
}

func (c *SourceCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = nil
}

func (c *SourceCollector) IsEmpty() bool {
	return c.Len() == 0
}

func (c *SourceCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sources)
}

// Sources returns the held sources in insertion order. File payloads are
// shared, not copied.
func (c *SourceCollector) Sources() []model.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// ToSubmissionPayload groups the held sources by kind, preserving insertion
// order within each kind. Pasted texts are joined with model.TextSeparator.
func (c *SourceCollector) ToSubmissionPayload() model.SubmissionPayload {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := model.SubmissionPayload{
		ChunkSize:    c.chunkSize,
		ChunkOverlap: c.chunkOverlap,
	}
	var texts []string
	for _, src := range c.sources {
		switch src.Kind {
		case model.SourceKindFile:
			payload.Files = append(payload.Files, model.FilePart{
				Name:     src.Name,
				MimeType: src.MimeType,
				Content:  src.Payload,
			})
		case model.SourceKindURL:
			payload.URLs = append(payload.URLs, src.Value)
		case model.SourceKindText:
			texts = append(texts, src.Value)
		}
	}
	payload.PlainText = strings.Join(texts, model.TextSeparator)
	return payload
}
