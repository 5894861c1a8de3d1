package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFileLoggerWritesStructuredLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notebook.log")
	log := NewFileLogger(path, "debug")

	log.Info("submitter", "submission accepted", map[string]interface{}{"session_id": "s1"})
	log.Error("submitter", "submission failed", map[string]interface{}{"error": errors.New("boom")})
	log.Debug("submitter", "no details", nil)
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `"module":"submitter"`)
	assert.Contains(t, out, `"session_id":"s1"`)
	assert.Contains(t, out, `"message":"submission failed"`)
	assert.Contains(t, out, "boom")
}

func TestFileLoggerWithoutPathIsNop(t *testing.T) {
	log := NewFileLogger("", "info")
	log.Warn("x", "ignored", nil)
	assert.NoError(t, log.Sync())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
