package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-notebook/internal/bootstrap"
	"gopherai-notebook/internal/config"
	"gopherai-notebook/internal/pkg/jwtutil"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T, register func(r *gin.Engine)) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	upstream := gin.New()
	register(upstream)
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		App:      config.AppConfig{Name: "test", Env: "test", GinMode: gin.TestMode},
		Ingest:   config.IngestConfig{BaseURL: srv.URL, TimeoutSeconds: 5},
		Progress: config.ProgressConfig{TickMillis: 1, Cap: 90},
	}
	return bootstrap.NewCore(cfg)
}

func fakeIngestRoutes(r *gin.Engine) {
	r.POST("/sessions", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{
			"session_id":           "sess-abc",
			"successful_documents": []gin.H{{"path": "plain_text"}},
			"failed_documents":     []gin.H{},
		})
	})
	r.GET("/sessions/:id/info", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"ingested_documents": []gin.H{{"path": "plain_text"}}})
	})
	r.POST("/sessions/:id/query", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"answer": "ok"})
	})
	r.GET("/models", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"models": []gin.H{{"name": "m1", "provider": "p"}}})
	})
}

func do(t *testing.T, router *gin.Engine, req *nethttp.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestListNotebooksWhenServiceUnavailable(t *testing.T) {
	cfg := &config.Config{
		App:    config.AppConfig{GinMode: gin.TestMode},
		Ingest: config.IngestConfig{BaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1},
	}
	router := NewRouter(bootstrap.NewCore(cfg))

	rec, env := do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/notebooks", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var data struct {
		Notebooks   []json.RawMessage `json:"notebooks"`
		Unavailable bool              `json:"unavailable"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Unavailable)
	assert.NotNil(t, data.Notebooks)
	assert.Empty(t, data.Notebooks)
}

func TestFlowCreatesNotebook(t *testing.T) {
	router := NewRouter(newTestApp(t, fakeIngestRoutes))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("title", "Reading list"))
	require.NoError(t, w.WriteField("plain_text", "first"))
	require.NoError(t, w.WriteField("plain_text", "second"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/flows", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec, env := do(t, router, req)
	require.Equal(t, nethttp.StatusAccepted, rec.Code)

	var started struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &started))
	require.NotEmpty(t, started.ID)

	type flowView struct {
		Phase    string `json:"phase"`
		Notebook *struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			SourceCount int    `json:"source_count"`
		} `json:"notebook"`
	}
	var status flowView
	require.Eventually(t, func() bool {
		_, env := do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/flows/"+started.ID, nil))
		status = flowView{}
		_ = json.Unmarshal(env.Data, &status)
		return status.Phase == "completed"
	}, 3*time.Second, 10*time.Millisecond)

	require.NotNil(t, status.Notebook)
	assert.Equal(t, "sess-abc", status.Notebook.ID)
	assert.Equal(t, "Reading list", status.Notebook.Title)
	assert.Equal(t, 1, status.Notebook.SourceCount)
}

func TestFlowWithoutSources(t *testing.T) {
	router := NewRouter(newTestApp(t, fakeIngestRoutes))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("title", "Empty"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/flows", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec, _ := do(t, router, req)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/flows/missing", nil))
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestChatRoundTrip(t *testing.T) {
	router := NewRouter(newTestApp(t, fakeIngestRoutes))

	empty := httptest.NewRequest(nethttp.MethodPost, "/api/v1/notebooks/sess-abc/messages", strings.NewReader(`{"query":"   "}`))
	empty.Header.Set("Content-Type", "application/json")
	rec, _ := do(t, router, empty)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	ask := httptest.NewRequest(nethttp.MethodPost, "/api/v1/notebooks/sess-abc/messages", strings.NewReader(`{"query":"hi"}`))
	ask.Header.Set("Content-Type", "application/json")
	rec, _ = do(t, router, ask)
	require.Equal(t, nethttp.StatusAccepted, rec.Code)

	type transcript struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Pending bool   `json:"pending"`
		} `json:"messages"`
		Busy bool `json:"busy"`
	}
	var view transcript
	require.Eventually(t, func() bool {
		_, env := do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/notebooks/sess-abc/messages", nil))
		view = transcript{}
		_ = json.Unmarshal(env.Data, &view)
		return !view.Busy
	}, 3*time.Second, 10*time.Millisecond)

	require.Len(t, view.Messages, 2)
	assert.Equal(t, "user", view.Messages[0].Role)
	assert.Equal(t, "hi", view.Messages[0].Content)
	assert.Equal(t, "assistant", view.Messages[1].Role)
	assert.Equal(t, "ok", view.Messages[1].Content)
	assert.False(t, view.Messages[1].Pending)

	rec, _ = do(t, router, httptest.NewRequest(nethttp.MethodDelete, "/api/v1/notebooks/sess-abc/chat", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	a := newTestApp(t, fakeIngestRoutes)
	a.Config.Auth.JWTSecret = "s3cret"
	router := NewRouter(a)

	rec, env := do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/models", nil))
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
	assert.NotZero(t, env.Code)

	token, err := jwtutil.GenerateToken("s3cret", "tester", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/models", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, _ = do(t, router, req)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}

func TestHealthWithOptionalDependenciesDisabled(t *testing.T) {
	router := NewRouter(newTestApp(t, fakeIngestRoutes))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ingest":{"ok":true}`)
}
