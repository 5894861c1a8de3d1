package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gopherai-notebook/internal/model"
)

const maxUploadBytes = 64 << 20

// formSources reads every source carried by a multipart request, in the
// order files, urls, plain texts.
func formSources(c *gin.Context) ([]model.Source, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("parse multipart form failed: %w", err)
	}

	var sources []model.Source
	for _, field := range []string{"files", "file"} {
		for _, fh := range form.File[field] {
			src, err := fileSource(fh)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
	}
	for _, raw := range form.Value["url"] {
		if u := strings.TrimSpace(raw); u != "" {
			sources = append(sources, model.NewURLSource(u))
		}
	}
	for _, text := range form.Value["plain_text"] {
		if strings.TrimSpace(text) != "" {
			sources = append(sources, model.NewTextSource(text))
		}
	}
	return sources, nil
}

func fileSource(fh *multipart.FileHeader) (model.Source, error) {
	if fh.Size > maxUploadBytes {
		return model.Source{}, fmt.Errorf("file %s exceeds upload limit", fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return model.Source{}, fmt.Errorf("open upload %s failed: %w", fh.Filename, err)
	}
	defer f.Close()

	payload, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return model.Source{}, fmt.Errorf("read upload %s failed: %w", fh.Filename, err)
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}
	return model.NewFileSource(fh.Filename, payload, mimeType), nil
}

func formInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.PostForm(key)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
