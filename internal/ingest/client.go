package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gopherai-notebook/internal/model"
)

var ErrMalformedResponse = errors.New("malformed ingest response")

// APIError is a non-2xx answer from the ingestion service.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ingest service status %d", e.StatusCode)
	}
	return fmt.Sprintf("ingest service status %d: %s", e.StatusCode, e.Detail)
}

// Client talks to the Ingestion & Query Service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateSession sends all sources of one notebook in a single multipart request.
func (c *Client) CreateSession(ctx context.Context, payload model.SubmissionPayload) (*model.SubmissionResult, error) {
	body, contentType, err := encodeSubmission(payload)
	if err != nil {
		return nil, err
	}

	var parsed sessionWire
	if err := c.do(ctx, http.MethodPost, "/sessions", body, contentType, &parsed); err != nil {
		return nil, err
	}
	if parsed.SessionID == nil || strings.TrimSpace(*parsed.SessionID) == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrMalformedResponse)
	}
	return toResult(*parsed.SessionID, parsed), nil
}

func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var parsed struct {
		Sessions *[]SessionSummary `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, "", &parsed); err != nil {
		return nil, err
	}
	if parsed.Sessions == nil {
		return nil, fmt.Errorf("%w: missing sessions", ErrMalformedResponse)
	}
	return *parsed.Sessions, nil
}

func (c *Client) SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "info"), nil, "", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteSession is idempotent on the service side.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(sessionID, ""), nil, "", nil)
}

func (c *Client) Query(ctx context.Context, sessionID, query string) (*QueryAnswer, error) {
	body, err := jsonBody(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	var answer QueryAnswer
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "query"), body, "application/json", &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (c *Client) UploadFile(ctx context.Context, sessionID string, file model.FilePart) (*model.SubmissionResult, error) {
	return c.upload(ctx, sessionID, "upload", func(w *multipart.Writer) error {
		return writeFilePart(w, "file", file)
	})
}

func (c *Client) UploadText(ctx context.Context, sessionID, text string) (*model.SubmissionResult, error) {
	return c.upload(ctx, sessionID, "upload-text", func(w *multipart.Writer) error {
		return w.WriteField("plain_text", text)
	})
}

func (c *Client) UploadURL(ctx context.Context, sessionID, rawURL string) (*model.SubmissionResult, error) {
	return c.upload(ctx, sessionID, "upload-url", func(w *multipart.Writer) error {
		return w.WriteField("url", rawURL)
	})
}

func (c *Client) SwitchModel(ctx context.Context, sessionID, modelName string) (string, error) {
	body, err := jsonBody(map[string]string{"model_name": modelName})
	if err != nil {
		return "", err
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPut, sessionPath(sessionID, "model"), body, "application/json", &parsed); err != nil {
		return "", err
	}
	return parsed.Message, nil
}

func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var parsed struct {
		Models []ModelInfo `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/models", nil, "", &parsed); err != nil {
		return nil, err
	}
	return parsed.Models, nil
}

func (c *Client) Podcast(ctx context.Context, sessionID string, req PodcastRequest) (*PodcastResult, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	var result PodcastResult
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "podcast"), body, "application/json", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) upload(ctx context.Context, sessionID, endpoint string, write func(*multipart.Writer) error) (*model.SubmissionResult, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := write(w); err != nil {
		return nil, fmt.Errorf("build upload body failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close upload body failed: %w", err)
	}

	var parsed sessionWire
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, endpoint), buf, w.FormDataContentType(), &parsed); err != nil {
		return nil, err
	}
	id := sessionID
	if parsed.SessionID != nil && *parsed.SessionID != "" {
		id = *parsed.SessionID
	}
	return toResult(id, parsed), nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build ingest request failed: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ingest request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ingest response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func encodeSubmission(payload model.SubmissionPayload) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, file := range payload.Files {
		if err := writeFilePart(w, "files", file); err != nil {
			return nil, "", fmt.Errorf("write file part failed: %w", err)
		}
	}
	if payload.PlainText != "" {
		if err := w.WriteField("plain_text", payload.PlainText); err != nil {
			return nil, "", fmt.Errorf("write plain_text failed: %w", err)
		}
	}
	urlField, err := payload.URLField()
	if err != nil {
		return nil, "", err
	}
	if urlField != "" {
		if err := w.WriteField("url", urlField); err != nil {
			return nil, "", fmt.Errorf("write url failed: %w", err)
		}
	}
	if payload.ChunkSize > 0 {
		if err := w.WriteField("chunk_size", strconv.Itoa(payload.ChunkSize)); err != nil {
			return nil, "", fmt.Errorf("write chunk_size failed: %w", err)
		}
	}
	if payload.ChunkOverlap > 0 {
		if err := w.WriteField("chunk_overlap", strconv.Itoa(payload.ChunkOverlap)); err != nil {
			return nil, "", fmt.Errorf("write chunk_overlap failed: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body failed: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(w *multipart.Writer, field string, file model.FilePart) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(file.Name)))
	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Content)
	return err
}

func toResult(sessionID string, parsed sessionWire) *model.SubmissionResult {
	result := &model.SubmissionResult{
		SessionID:           sessionID,
		SuccessfulDocuments: make([]model.DocumentRef, 0, len(parsed.SuccessfulDocuments)),
		FailedDocuments:     make([]model.FailedDocument, 0, len(parsed.FailedDocuments)),
	}
	for _, doc := range parsed.SuccessfulDocuments {
		result.SuccessfulDocuments = append(result.SuccessfulDocuments, model.DocumentRef{
			Path: doc.Path,
			Type: doc.Type,
			Size: int64(doc.Size),
		})
	}
	for _, doc := range parsed.FailedDocuments {
		result.FailedDocuments = append(result.FailedDocuments, model.FailedDocument{
			Ref:         model.DocumentRef{Path: doc.Path, Type: doc.Type, Size: int64(doc.Size)},
			ErrorReason: doc.Error,
		})
	}
	return result
}

func errorDetail(raw []byte) string {
	var parsed errorWire
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Detail) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Detail, &text); err == nil {
			return text
		}
		return string(parsed.Detail)
	}
	return strings.TrimSpace(string(raw))
}

func jsonBody(v interface{}) (*bytes.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal ingest request failed: %w", err)
	}
	return bytes.NewReader(raw), nil
}

func sessionPath(sessionID, action string) string {
	path := "/sessions/" + url.PathEscape(sessionID)
	if action != "" {
		path += "/" + action
	}
	return path
}
