package app

import (
	"context"
	"sync"

	"gopherai-notebook/internal/ingest"
	"gopherai-notebook/internal/model"
)

// fakeIngest stands in for the ingestion service. When release is set, every
// call signals started and then blocks until release is closed.
type fakeIngest struct {
	mu sync.Mutex

	started chan struct{}
	release chan struct{}

	createResult *model.SubmissionResult
	createErr    error
	payloads     []model.SubmissionPayload

	uploadResult *model.SubmissionResult
	uploadErr    error
	uploads      []string

	sessions  []ingest.SessionSummary
	listErr   error
	infoErr   error
	infoCalls int
	deleteErr error
	deleted   []string

	// When infoRelease is set, SessionInfo signals infoStarted and waits for
	// infoRelease or ctx; the ctx error is sent on infoDone.
	info        *ingest.SessionInfo
	infoStarted chan struct{}
	infoRelease chan struct{}
	infoDone    chan error

	answer   *string
	queryErr error
	queries  []string
}

func newBlockingIngest() *fakeIngest {
	return &fakeIngest{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (f *fakeIngest) block() {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeIngest) CreateSession(_ context.Context, payload model.SubmissionPayload) (*model.SubmissionResult, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	f.block()
	return f.createResult, f.createErr
}

func (f *fakeIngest) UploadFile(_ context.Context, sessionID string, file model.FilePart) (*model.SubmissionResult, error) {
	return f.upload(sessionID, "file:"+file.Name)
}

func (f *fakeIngest) UploadText(_ context.Context, sessionID, text string) (*model.SubmissionResult, error) {
	return f.upload(sessionID, "text:"+text)
}

func (f *fakeIngest) UploadURL(_ context.Context, sessionID, rawURL string) (*model.SubmissionResult, error) {
	return f.upload(sessionID, "url:"+rawURL)
}

func (f *fakeIngest) upload(sessionID, what string) (*model.SubmissionResult, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, sessionID+"|"+what)
	f.mu.Unlock()
	f.block()
	return f.uploadResult, f.uploadErr
}

func (f *fakeIngest) ListSessions(context.Context) ([]ingest.SessionSummary, error) {
	return f.sessions, f.listErr
}

func (f *fakeIngest) SessionInfo(ctx context.Context, _ string) (*ingest.SessionInfo, error) {
	f.mu.Lock()
	f.infoCalls++
	f.mu.Unlock()
	if f.infoRelease != nil {
		f.infoStarted <- struct{}{}
		select {
		case <-f.infoRelease:
			f.infoDone <- nil
		case <-ctx.Done():
			f.infoDone <- ctx.Err()
			return nil, ctx.Err()
		}
	}
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	if f.info != nil {
		return f.info, nil
	}
	return &ingest.SessionInfo{}, nil
}

func (f *fakeIngest) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, sessionID)
	f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeIngest) Query(_ context.Context, _ string, query string) (*ingest.QueryAnswer, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	f.block()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &ingest.QueryAnswer{Answer: f.answer}, nil
}

func (f *fakeIngest) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func strPtr(s string) *string {
	return &s
}

type fakeTranscriptStore struct {
	mu    sync.Mutex
	saved map[string][]model.Message
}

func newFakeTranscriptStore() *fakeTranscriptStore {
	return &fakeTranscriptStore{saved: map[string][]model.Message{}}
}

func (s *fakeTranscriptStore) LoadTranscript(_ context.Context, notebookID string) ([]model.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages, ok := s.saved[notebookID]
	return messages, ok, nil
}

func (s *fakeTranscriptStore) SaveTranscript(_ context.Context, notebookID string, messages []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[notebookID] = messages
	return nil
}

type fakeTurnPublisher struct {
	mu    sync.Mutex
	turns []model.Turn
}

func (p *fakeTurnPublisher) Publish(_ context.Context, turn model.Turn) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, turn)
	return nil
}
