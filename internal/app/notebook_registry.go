package app

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gopherai-notebook/internal/logger"
	"gopherai-notebook/internal/model"
)

const (
	registryModule       = "notebook_registry"
	defaultNotebookTitle = "Untitled notebook"
	displayDateLayout    = "Jan 2, 2006"
)

var notebookIcons = []string{
	"book",
	"notebook",
	"flask",
	"globe",
	"lightbulb",
	"rocket",
	"atom",
	"compass",
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NotebookRegistry projects ingestion sessions into notebooks.
type NotebookRegistry struct {
	dir    SessionDirectory
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewNotebookRegistry(dir SessionDirectory, log logger.Logger) *NotebookRegistry {
	if log == nil {
		log = logger.NewNop()
	}
	return &NotebookRegistry{
		dir:    dir,
		logger: log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create never fails. Sessions created by the service are confirmed through
// their info endpoint, whose document count fills in the source count when
// the submission result listed none. If that call fails, or the result was
// synthesized locally, the notebook is assembled from the submission result
// alone.
func (r *NotebookRegistry) Create(ctx context.Context, title string, result *model.SubmissionResult) model.Notebook {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultNotebookTitle
	}

	id := ""
	sourceCount := 0
	if result != nil {
		id = result.SessionID
		sourceCount = len(result.SuccessfulDocuments)
	}
	if id == "" {
		id = model.LocalIDPrefix + r.newID()
	}

	createdAt := r.now()
	notebook := model.Notebook{
		ID:          id,
		Title:       title,
		IconRef:     IconFor(id),
		CreatedAt:   createdAt,
		DisplayDate: createdAt.Format(displayDateLayout),
		SourceCount: sourceCount,
		Local:       model.IsLocalID(id),
	}
	if notebook.Local || (result != nil && result.Local) {
		return notebook
	}

	info, err := r.dir.SessionInfo(ctx, id)
	if err != nil {
		r.logger.Warn(registryModule, "session info unavailable, using local notebook record", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return notebook
	}
	// The service's own count wins when the submission listed no documents.
	if ingested := info.DocumentCount(); ingested != notebook.SourceCount {
		r.logger.Debug(registryModule, "ingested document count differs from submission", map[string]interface{}{
			"session_id": id,
			"submitted":  notebook.SourceCount,
			"ingested":   ingested,
		})
		if notebook.SourceCount == 0 {
			notebook.SourceCount = ingested
		}
	}
	return notebook
}

// List returns the live sessions as notebooks. When the service cannot be
// reached it returns an empty, non-nil slice together with the error, so
// callers can tell "unavailable" apart from "no notebooks".
func (r *NotebookRegistry) List(ctx context.Context) ([]model.Notebook, error) {
	sessions, err := r.dir.ListSessions(ctx)
	if err != nil {
		r.logger.Warn(registryModule, "list sessions failed", map[string]interface{}{
			"error": err.Error(),
		})
		return []model.Notebook{}, err
	}

	notebooks := make([]model.Notebook, 0, len(sessions))
	for _, s := range sessions {
		if s.ID == "" {
			continue
		}
		createdAt, display := DisplayDate(s.CreatedAt())
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = "Session " + shortID(s.ID)
		}
		count := 0
		if s.DocumentCount != nil {
			count = *s.DocumentCount
		}
		notebooks = append(notebooks, model.Notebook{
			ID:          s.ID,
			Title:       title,
			IconRef:     IconFor(s.ID),
			CreatedAt:   createdAt,
			DisplayDate: display,
			SourceCount: count,
			Local:       model.IsLocalID(s.ID),
		})
	}
	return notebooks, nil
}

// Remove deletes the backing session. Local placeholders only ever existed on
// the client and are removed without a network call.
func (r *NotebookRegistry) Remove(ctx context.Context, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if model.IsLocalID(id) {
		return true
	}
	if err := r.dir.DeleteSession(ctx, id); err != nil {
		r.logger.Warn(registryModule, "delete session failed", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return false
	}
	return true
}

// IconFor picks a display icon from a stable hash of id.
func IconFor(id string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return notebookIcons[h.Sum32()%uint32(len(notebookIcons))]
}

// DisplayDate parses a created_at value. Unparseable or empty values yield
// the zero time and model.UnknownDate.
func DisplayDate(raw string) (time.Time, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, model.UnknownDate
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, t.Format(displayDateLayout)
		}
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
		t := time.Unix(int64(secs), 0).UTC()
		return t, t.Format(displayDateLayout)
	}
	return time.Time{}, model.UnknownDate
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
