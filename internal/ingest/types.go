package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SessionSummary is one entry of GET /sessions.
type SessionSummary struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	DocumentCount *int            `json:"document_count"`
	Model         string          `json:"model"`
	CreatedAtRaw  json.RawMessage `json:"created_at"`
}

// CreatedAt returns the created_at field as text. Numeric values are kept in
// their decimal form; absent or null values yield "".
func (s SessionSummary) CreatedAt() string {
	raw := strings.TrimSpace(string(s.CreatedAtRaw))
	if raw == "" || raw == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(s.CreatedAtRaw, &text); err == nil {
		return text
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return raw
	}
	return ""
}

// SessionInfo is the body of GET /sessions/{id}/info. Depending on the
// service version ingested_documents is a list or a free-form text summary.
type SessionInfo struct {
	IngestedDocuments json.RawMessage `json:"ingested_documents"`
}

func (i SessionInfo) DocumentCount() int {
	var list []json.RawMessage
	if err := json.Unmarshal(i.IngestedDocuments, &list); err == nil {
		return len(list)
	}
	var text string
	if err := json.Unmarshal(i.IngestedDocuments, &text); err == nil {
		count := 0
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) != "" {
				count++
			}
		}
		return count
	}
	return 0
}

// QueryAnswer keeps Answer as a pointer so callers can tell an absent field
// from an empty answer.
type QueryAnswer struct {
	Answer *string `json:"answer"`
}

type ModelInfo struct {
	Name                 string  `json:"name"`
	Provider             string  `json:"provider"`
	CostPerMillionTokens float64 `json:"cost_per_million_tokens"`
}

type PodcastRequest struct {
	Topic  string `json:"topic"`
	Voice1 string `json:"voice1"`
	Voice2 string `json:"voice2"`
}

type PodcastResult struct {
	Transcript string `json:"transcript"`
	AudioURL   string `json:"audio_url"`
}

type documentWire struct {
	Path  string  `json:"path"`
	Type  string  `json:"type"`
	Size  float64 `json:"size"`
	Error string  `json:"error"`
}

type sessionWire struct {
	SessionID           *string        `json:"session_id"`
	SuccessfulDocuments []documentWire `json:"successful_documents"`
	FailedDocuments     []documentWire `json:"failed_documents"`
}

type errorWire struct {
	Detail json.RawMessage `json:"detail"`
}
