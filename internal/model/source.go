package model

import (
	"github.com/gabriel-vasile/mimetype"
)

type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindURL  SourceKind = "url"
	SourceKindText SourceKind = "text"
)

// TextSeparator joins pasted text sources into the single plain_text field.
const TextSeparator = "\n\n---\n\n"

// Source is one unit of input content prior to ingestion. Only the fields
// matching Kind are meaningful.
type Source struct {
	Kind      SourceKind `json:"kind"`
	Name      string     `json:"name,omitempty"`
	SizeBytes int64      `json:"size_bytes,omitempty"`
	MimeType  string     `json:"mime_type,omitempty"`
	Payload   []byte     `json:"-"`
	Value     string     `json:"value,omitempty"`
}

// NewFileSource takes ownership of payload; callers must not modify it afterwards.
// An empty mimeType is sniffed from the payload bytes.
func NewFileSource(name string, payload []byte, mimeType string) Source {
	if mimeType == "" {
		mimeType = mimetype.Detect(payload).String()
	}
	return Source{
		Kind:      SourceKindFile,
		Name:      name,
		SizeBytes: int64(len(payload)),
		MimeType:  mimeType,
		Payload:   payload,
	}
}

func NewURLSource(value string) Source {
	return Source{Kind: SourceKindURL, Value: value}
}

func NewTextSource(value string) Source {
	return Source{Kind: SourceKindText, Value: value}
}
