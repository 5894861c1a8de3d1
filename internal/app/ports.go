package app

import (
	"context"

	"gopherai-notebook/internal/ingest"
	"gopherai-notebook/internal/model"
)

// SubmissionClient is the part of the ingestion service used to create and
// extend sessions.
type SubmissionClient interface {
	CreateSession(ctx context.Context, payload model.SubmissionPayload) (*model.SubmissionResult, error)
	UploadFile(ctx context.Context, sessionID string, file model.FilePart) (*model.SubmissionResult, error)
	UploadText(ctx context.Context, sessionID, text string) (*model.SubmissionResult, error)
	UploadURL(ctx context.Context, sessionID, rawURL string) (*model.SubmissionResult, error)
}

type SessionDirectory interface {
	ListSessions(ctx context.Context) ([]ingest.SessionSummary, error)
	SessionInfo(ctx context.Context, sessionID string) (*ingest.SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type Querier interface {
	Query(ctx context.Context, sessionID, query string) (*ingest.QueryAnswer, error)
}

// TranscriptStore keeps the last resolved transcript of a notebook.
type TranscriptStore interface {
	LoadTranscript(ctx context.Context, notebookID string) ([]model.Message, bool, error)
	SaveTranscript(ctx context.Context, notebookID string, messages []model.Message) error
}

type TurnPublisher interface {
	Publish(ctx context.Context, turn model.Turn) error
}
