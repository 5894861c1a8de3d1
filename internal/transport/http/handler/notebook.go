package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gopherai-notebook/internal/app"
	"gopherai-notebook/internal/bootstrap"
	"gopherai-notebook/internal/ingest"
	"gopherai-notebook/internal/model"
	"gopherai-notebook/internal/transport/http/response"
)

const notebookModule = "notebook_handler"

type NotebookHandler struct {
	app      *bootstrap.App
	sessions *ChatSessions
}

type SwitchModelRequest struct {
	ModelName string `json:"model_name" binding:"required"`
}

type PodcastRequest struct {
	Topic  string `json:"topic"`
	Voice1 string `json:"voice1"`
	Voice2 string `json:"voice2"`
}

func NewNotebookHandler(a *bootstrap.App, sessions *ChatSessions) *NotebookHandler {
	return &NotebookHandler{app: a, sessions: sessions}
}

// List always answers 200. When the ingestion service is unreachable the
// list is empty and unavailable is true.
func (h *NotebookHandler) List(c *gin.Context) {
	notebooks, err := h.app.Registry.List(c.Request.Context())
	data := gin.H{
		"notebooks":   notebooks,
		"unavailable": err != nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	response.OK(c, data)
}

func (h *NotebookHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !h.app.Registry.Remove(c.Request.Context(), id) {
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, "delete notebook failed")
		return
	}

	h.sessions.drop(id)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 3*time.Second)
	defer cancel()
	if err := h.app.Transcripts.DeleteTranscript(ctx, id); err != nil {
		h.app.Logger.Warn(notebookModule, "delete transcript failed", map[string]interface{}{
			"notebook_id": id,
			"error":       err.Error(),
		})
	}
	if h.app.Turns != nil {
		if err := h.app.Turns.DeleteByNotebookID(ctx, id); err != nil {
			h.app.Logger.Warn(notebookModule, "delete archived turns failed", map[string]interface{}{
				"notebook_id": id,
				"error":       err.Error(),
			})
		}
	}
	response.OK(c, gin.H{"deleted": true})
}

// AddSources uploads each source of the form into an existing notebook, one
// request per source.
func (h *NotebookHandler) AddSources(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if model.IsLocalID(id) {
		response.Error(c, http.StatusConflict, response.CodeConflict, "notebook exists only locally")
		return
	}
	sources, err := formSources(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	if len(sources) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeNoSources, "at least one source is required")
		return
	}

	submitter := app.NewSessionSubmitter(h.app.Ingest, app.NewProgressReporter(h.app.ProgressOptions()...), h.app.Logger)
	results := make([]*model.SubmissionResult, 0, len(sources))
	for _, src := range sources {
		result, err := submitter.Append(c.Request.Context(), id, src)
		if err != nil {
			if errors.Is(err, app.ErrNoSources) {
				continue
			}
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload source failed")
			return
		}
		results = append(results, result)
	}
	response.OK(c, gin.H{"results": results})
}

func (h *NotebookHandler) Models(c *gin.Context) {
	models, err := h.app.Ingest.ListModels(c.Request.Context())
	if err != nil {
		respondUpstream(c, err)
		return
	}
	response.OK(c, gin.H{"models": models})
}

func (h *NotebookHandler) SwitchModel(c *gin.Context) {
	var req SwitchModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "model_name is required")
		return
	}
	message, err := h.app.Ingest.SwitchModel(c.Request.Context(), c.Param("id"), req.ModelName)
	if err != nil {
		respondUpstream(c, err)
		return
	}
	response.OK(c, gin.H{"message": message})
}

func (h *NotebookHandler) Podcast(c *gin.Context) {
	var req PodcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.app.Ingest.Podcast(c.Request.Context(), c.Param("id"), ingest.PodcastRequest{
		Topic:  req.Topic,
		Voice1: req.Voice1,
		Voice2: req.Voice2,
	})
	if err != nil {
		respondUpstream(c, err)
		return
	}
	response.OK(c, result)
}

// Turns lists the archived question/answer pairs of a notebook.
func (h *NotebookHandler) Turns(c *gin.Context) {
	if h.app.Turns == nil {
		response.OK(c, gin.H{"turns": []model.Turn{}, "archived": false})
		return
	}
	turns, err := h.app.Turns.ListByNotebookID(c.Request.Context(), c.Param("id"), 100)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list turns failed")
		return
	}
	response.OK(c, gin.H{"turns": turns, "archived": true})
}

func respondUpstream(c *gin.Context, err error) {
	var apiErr *ingest.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		response.Error(c, http.StatusNotFound, response.CodeNotebookGone, apiErr.Error())
		return
	}
	response.Error(c, http.StatusBadGateway, response.CodeUpstream, err.Error())
}
