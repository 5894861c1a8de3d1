package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"gopherai-notebook/internal/app"
	"gopherai-notebook/internal/bootstrap"
	"gopherai-notebook/internal/model"
	"gopherai-notebook/internal/transport/http/response"
)

const chatModule = "chat_handler"

type ChatHandler struct {
	app      *bootstrap.App
	sessions *ChatSessions
}

type SendMessageRequest struct {
	Query string `json:"query"`
}

type transcriptView struct {
	NotebookID string          `json:"notebook_id"`
	Messages   []model.Message `json:"messages"`
	Busy       bool            `json:"busy"`
	Error      string          `json:"error,omitempty"`
}

func NewChatHandler(a *bootstrap.App, sessions *ChatSessions) *ChatHandler {
	return &ChatHandler{app: a, sessions: sessions}
}

// SendMessage appends the query and its pending answer, then returns at once.
// Clients poll ListMessages until busy is false.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	orch := h.sessions.get(c.Request.Context(), c.Param("id"))
	if _, err := orch.SubmitQuery(req.Query); err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyQuery):
			response.Error(c, http.StatusBadRequest, response.CodeEmptyQuery, "query is empty")
		case errors.Is(err, app.ErrQueryInFlight), errors.Is(err, app.ErrOrchestratorClosed):
			response.Error(c, http.StatusConflict, response.CodeQueryInFlight, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "submit query failed")
		}
		return
	}
	response.Accepted(c, viewOf(orch))
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	orch := h.sessions.get(c.Request.Context(), c.Param("id"))
	response.OK(c, viewOf(orch))
}

func (h *ChatHandler) DismissError(c *gin.Context) {
	orch := h.sessions.get(c.Request.Context(), c.Param("id"))
	orch.DismissError()
	response.OK(c, viewOf(orch))
}

// Close tears down the notebook's chat. A query still in flight is abandoned.
func (h *ChatHandler) Close(c *gin.Context) {
	h.sessions.drop(c.Param("id"))
	response.OK(c, gin.H{"closed": true})
}

func viewOf(orch *app.ChatOrchestrator) transcriptView {
	return transcriptView{
		NotebookID: orch.SessionID(),
		Messages:   orch.Snapshot(),
		Busy:       orch.Busy(),
		Error:      orch.LastError(),
	}
}

// ChatSessions keeps one orchestrator per notebook. Idle orchestrators expire
// and are closed; the transcript survives in the transcript store.
type ChatSessions struct {
	app   *bootstrap.App
	mu    sync.Mutex
	cache *gocache.Cache
}

// chatEntry is ready once its transcript restore has finished.
type chatEntry struct {
	orch  *app.ChatOrchestrator
	ready chan struct{}
}

func NewChatSessions(a *bootstrap.App) *ChatSessions {
	ttl := time.Duration(a.Config.Gateway.NotebookTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	store := gocache.New(ttl, time.Minute)
	store.OnEvicted(func(_ string, v interface{}) {
		if entry, ok := v.(*chatEntry); ok {
			entry.orch.Close()
		}
	})
	return &ChatSessions{app: a, cache: store}
}

// get returns the notebook's orchestrator, restoring its transcript on first
// use. The restore runs outside s.mu so a slow store only holds up callers of
// the same notebook.
func (s *ChatSessions) get(ctx context.Context, notebookID string) *app.ChatOrchestrator {
	notebookID = strings.TrimSpace(notebookID)

	s.mu.Lock()
	if v, ok := s.cache.Get(notebookID); ok {
		entry := v.(*chatEntry)
		// Sliding expiry.
		s.cache.SetDefault(notebookID, entry)
		s.mu.Unlock()

		select {
		case <-entry.ready:
		case <-ctx.Done():
		}
		return entry.orch
	}
	entry := &chatEntry{orch: s.app.NewChat(notebookID), ready: make(chan struct{})}
	s.cache.SetDefault(notebookID, entry)
	s.mu.Unlock()

	defer close(entry.ready)
	restoreCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := entry.orch.Restore(restoreCtx); err != nil {
		s.app.Logger.Warn(chatModule, "restore transcript failed", map[string]interface{}{
			"notebook_id": notebookID,
			"error":       err.Error(),
		})
	}
	return entry.orch
}

func (s *ChatSessions) drop(notebookID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(strings.TrimSpace(notebookID))
}
