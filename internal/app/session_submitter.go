package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"gopherai-notebook/internal/logger"
	"gopherai-notebook/internal/model"
)

const submitterModule = "session_submitter"

// SessionSubmitter sends one notebook's sources to the ingestion service.
// Expected failures never surface as errors: they are converted into a
// SubmissionResult whose FailedDocuments carry the reason.
type SessionSubmitter struct {
	client   SubmissionClient
	progress *ProgressReporter
	logger   logger.Logger
	newID    func() string

	mu       sync.Mutex
	inFlight bool
	closed   bool
	epoch    uint64
	cancel   context.CancelFunc
}

func NewSessionSubmitter(client SubmissionClient, progress *ProgressReporter, log logger.Logger) *SessionSubmitter {
	if progress == nil {
		progress = NewProgressReporter()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionSubmitter{
		client:   client,
		progress: progress,
		logger:   log,
		newID:    uuid.NewString,
	}
}

func (s *SessionSubmitter) Progress() *ProgressReporter {
	return s.progress
}

// Submit creates a session from everything the collector holds. Concurrent
// calls are rejected with ErrSubmissionInFlight. When the submitter is closed
// while the request is outstanding, the response is dropped and ErrDiscarded
// is returned.
func (s *SessionSubmitter) Submit(ctx context.Context, collector *SourceCollector) (*model.SubmissionResult, error) {
	if collector == nil || collector.IsEmpty() {
		return nil, ErrNoSources
	}
	payload := collector.ToSubmissionPayload()

	return s.run(ctx, "", describePayload(payload), func(reqCtx context.Context) (*model.SubmissionResult, error) {
		return s.client.CreateSession(reqCtx, payload)
	}, collector.Clear)
}

// Append uploads one more source into an existing session.
func (s *SessionSubmitter) Append(ctx context.Context, sessionID string, source model.Source) (*model.SubmissionResult, error) {
	if strings.TrimSpace(sessionID) == "" || isBlankSource(source) {
		return nil, ErrNoSources
	}

	return s.run(ctx, sessionID, describeSource(source), func(reqCtx context.Context) (*model.SubmissionResult, error) {
		switch source.Kind {
		case model.SourceKindFile:
			return s.client.UploadFile(reqCtx, sessionID, model.FilePart{
				Name:     source.Name,
				MimeType: source.MimeType,
				Content:  source.Payload,
			})
		case model.SourceKindURL:
			return s.client.UploadURL(reqCtx, sessionID, source.Value)
		default:
			return s.client.UploadText(reqCtx, sessionID, source.Value)
		}
	}, nil)
}

// Close discards any outstanding response and stops progress. Later calls
// to Submit or Append fail with ErrSubmitterClosed.
func (s *SessionSubmitter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.epoch++
	if s.cancel != nil {
		s.cancel()
	}
	s.progress.Stop()
}

// run holds the in-flight flag for the duration of call and converts its
// failure into a local result. sessionID is kept in the fallback when set.
// onSuccess runs only for a current, successful response.
func (s *SessionSubmitter) run(
	ctx context.Context,
	sessionID string,
	ref string,
	call func(context.Context) (*model.SubmissionResult, error),
	onSuccess func(),
) (*model.SubmissionResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSubmitterClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	s.inFlight = true
	epoch := s.epoch
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	s.progress.Start()
	defer s.progress.Stop()

	result, err := call(reqCtx)
	if err == nil && (result == nil || result.SessionID == "") {
		err = errors.New("ingest service returned no session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Debug(submitterModule, "dropped stale submission response", map[string]interface{}{
			"ref": ref,
		})
		return nil, ErrDiscarded
	}

	if err != nil {
		result = s.fallback(sessionID, ref, err)
		s.logger.Warn(submitterModule, "submission degraded to local record", map[string]interface{}{
			"session_id": result.SessionID,
			"ref":        ref,
			"error":      err.Error(),
		})
	} else {
		if onSuccess != nil {
			onSuccess()
		}
		s.logger.Info(submitterModule, "submission accepted", map[string]interface{}{
			"session_id": result.SessionID,
			"successful": len(result.SuccessfulDocuments),
			"failed":     len(result.FailedDocuments),
		})
	}
	s.progress.Complete()
	return result, nil
}

// fallback is built only from data already held in memory.
func (s *SessionSubmitter) fallback(sessionID, ref string, cause error) *model.SubmissionResult {
	if sessionID == "" {
		sessionID = model.LocalIDPrefix + s.newID()
	}
	return &model.SubmissionResult{
		SessionID:           sessionID,
		SuccessfulDocuments: []model.DocumentRef{},
		FailedDocuments: []model.FailedDocument{{
			Ref:         model.DocumentRef{Path: ref},
			ErrorReason: cause.Error(),
		}},
		Local: true,
	}
}

func describePayload(payload model.SubmissionPayload) string {
	var parts []string
	for _, f := range payload.Files {
		parts = append(parts, f.Name)
	}
	if len(payload.URLs) > 0 {
		parts = append(parts, payload.URLs[0])
	}
	if payload.PlainText != "" {
		parts = append(parts, "plain_text")
	}
	if len(parts) == 0 {
		return "submission"
	}
	return strings.Join(parts, ", ")
}

func describeSource(source model.Source) string {
	switch source.Kind {
	case model.SourceKindFile:
		return source.Name
	case model.SourceKindURL:
		return source.Value
	default:
		return "plain_text"
	}
}

func isBlankSource(source model.Source) bool {
	switch source.Kind {
	case model.SourceKindFile:
		return len(source.Payload) == 0
	case model.SourceKindURL, model.SourceKindText:
		return strings.TrimSpace(source.Value) == ""
	default:
		return true
	}
}
