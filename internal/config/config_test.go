package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[ingest]
base_url = "http://ingest.internal:9000"
chunk_size = 1200

[progress]
cap = 80

[redis]
enabled = true
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("INGEST_CHUNK_OVERLAP", "150")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://ingest.internal:9000", cfg.Ingest.BaseURL)
	assert.Equal(t, 1200, cfg.Ingest.ChunkSize)
	assert.Equal(t, 150, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 80, cfg.Progress.Cap)
	assert.Equal(t, 300, cfg.Progress.TickMillis)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "notebook.turn.archive", cfg.RabbitMQ.TurnQueue)
}

func TestLoadRequiresIngestURL(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("INGEST_BASE_URL", "  ")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ingest\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestDerivedValues(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.False(t, cfg.IsProduction())
	assert.Contains(t, cfg.MySQLDSN(), "@tcp(127.0.0.1:3306)/gopherai_notebook?")

	cfg.App.Env = "production"
	assert.True(t, cfg.IsProduction())
}

func TestTurnArchiveNeedsQueueAndStore(t *testing.T) {
	cfg := defaultConfig()
	assert.False(t, cfg.TurnArchiveEnabled())

	cfg.RabbitMQ.Enabled = true
	assert.False(t, cfg.TurnArchiveEnabled())

	cfg.MySQL.Enabled = true
	assert.True(t, cfg.TurnArchiveEnabled())

	cfg.RabbitMQ.Enabled = false
	assert.False(t, cfg.TurnArchiveEnabled())
}
