package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Defaults.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Defaults.Model)
	assert.Equal(t, 3, cfg.Search.MaxPages)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"defaults": {"provider": "google", "model": "gemini-2.0-flash"},
		"search": {"endpoint": "https://searx.example.com", "max_pages": 5}
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.Defaults.Provider)
	assert.Equal(t, "https://searx.example.com", cfg.Search.Endpoint)
	assert.Equal(t, 5, cfg.Search.MaxPages)
	assert.Equal(t, "info", cfg.Logging.Level, "unset sections keep defaults")
}

func TestLoadRejectsInvalidProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"defaults": {"provider": "anthropic", "model": "claude"}
	}`), 0644))

	_, err := Load(path)
	require.Error(t, err)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Field, "Provider")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CHATTER_SEARCH_ENDPOINT", "https://searx.local")
	t.Setenv("CHATTER_DEBUG", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "https://searx.local", cfg.Search.Endpoint)
	assert.True(t, cfg.Debug)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "config.json")
	cfg := DefaultConfig()
	cfg.Defaults.Provider = "local"
	cfg.Defaults.Model = "llama3"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local", loaded.Defaults.Provider)
	assert.Equal(t, "llama3", loaded.Defaults.Model)
}

func TestStoragePathsAreDistinct(t *testing.T) {
	paths := GetDefaultStoragePaths()
	assert.NotEmpty(t, paths.DatabasePath)
	assert.NotEqual(t, paths.ImagesPrimary, paths.ImagesFallback)
	assert.NotEqual(t, paths.SecretsDir, paths.LogDir)
}
