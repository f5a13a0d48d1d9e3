package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().GenerateModel, cfg.GenerateModel)
	assert.Equal(t, 5, cfg.MaxAttempts)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"voice":"Puck","max_attempts":3,"database_path":"a.db"}`), 0644))

	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("STUDYPACK_DB", "b.db")
	t.Setenv("STUDYPACK_MAX_ATTEMPTS", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Puck", cfg.Voice)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, "b.db", cfg.DatabasePath)
	assert.Equal(t, "secret", cfg.GeminiAPIKey)
}

func TestSaveDoesNotWriteAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.GeminiAPIKey = "secret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestRetryDelay(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second, cfg.RetryDelay())
	cfg.RetryBaseDelay = 0
	assert.Equal(t, time.Second, cfg.RetryDelay())
	cfg.RetryBaseDelay = 250
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay())
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes())
}
