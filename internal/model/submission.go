package model

import (
	"encoding/json"
	"fmt"
)

type FilePart struct {
	Name     string
	MimeType string
	Content  []byte
}

// SubmissionPayload is the multi-part body of one session creation request.
type SubmissionPayload struct {
	Files     []FilePart
	URLs      []string
	PlainText string

	// Optional chunking hints, forwarded only when positive.
	ChunkSize    int
	ChunkOverlap int
}

// URLField encodes the URLs as a JSON array. The ingestion service only
// ingests the first entry; the rest are sent for completeness.
func (p SubmissionPayload) URLField() (string, error) {
	if len(p.URLs) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(p.URLs)
	if err != nil {
		return "", fmt.Errorf("marshal url field failed: %w", err)
	}
	return string(raw), nil
}

func (p SubmissionPayload) IsEmpty() bool {
	return len(p.Files) == 0 && len(p.URLs) == 0 && p.PlainText == ""
}

type DocumentRef struct {
	Path string `json:"path"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type FailedDocument struct {
	Ref         DocumentRef `json:"ref"`
	ErrorReason string      `json:"error"`
}

type SubmissionResult struct {
	SessionID           string           `json:"session_id"`
	SuccessfulDocuments []DocumentRef    `json:"successful_documents"`
	FailedDocuments     []FailedDocument `json:"failed_documents"`

	// Local marks a result synthesized on the client after the service could
	// not be reached or answered with an error.
	Local bool `json:"local"`
}
