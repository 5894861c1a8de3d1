package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"gopherai-notebook/internal/app"
	"gopherai-notebook/internal/bootstrap"
	"gopherai-notebook/internal/transport/http/response"
)

// FlowHandler runs notebook creation flows. Each flow is independent and
// kept only for polling; an expired flow is cancelled.
type FlowHandler struct {
	app   *bootstrap.App
	flows *gocache.Cache
}

func NewFlowHandler(a *bootstrap.App) *FlowHandler {
	ttl := time.Duration(a.Config.Gateway.FlowTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	flows := gocache.New(ttl, time.Minute)
	flows.OnEvicted(func(_ string, v interface{}) {
		if flow, ok := v.(*app.NotebookFlow); ok {
			flow.Cancel()
		}
	})
	return &FlowHandler{app: a, flows: flows}
}

// Create accepts a multipart form with any mix of files, url and plain_text
// fields plus an optional title, and starts submitting in the background.
func (h *FlowHandler) Create(c *gin.Context) {
	sources, err := formSources(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	flow := h.app.NewFlow(uuid.NewString())
	collector := flow.Collector()
	if size, overlap := formInt(c, "chunk_size"), formInt(c, "chunk_overlap"); size > 0 {
		collector.SetChunkHints(size, overlap)
	}
	for _, src := range sources {
		collector.Add(src)
	}

	if err := flow.Start(c.Request.Context(), c.PostForm("title")); err != nil {
		if errors.Is(err, app.ErrNoSources) {
			response.Error(c, http.StatusBadRequest, response.CodeNoSources, "at least one source is required")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "start flow failed")
		return
	}
	h.flows.SetDefault(flow.ID(), flow)
	response.Accepted(c, flow.Status())
}

func (h *FlowHandler) Get(c *gin.Context) {
	flow, ok := h.lookup(c.Param("id"))
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeFlowNotFound, "flow not found")
		return
	}
	response.OK(c, flow.Status())
}

func (h *FlowHandler) Cancel(c *gin.Context) {
	flow, ok := h.lookup(c.Param("id"))
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeFlowNotFound, "flow not found")
		return
	}
	flow.Cancel()
	select {
	case <-flow.Done():
	case <-time.After(2 * time.Second):
	}
	response.OK(c, flow.Status())
}

func (h *FlowHandler) lookup(id string) (*app.NotebookFlow, bool) {
	v, ok := h.flows.Get(id)
	if !ok {
		return nil, false
	}
	flow, ok := v.(*app.NotebookFlow)
	return flow, ok
}
