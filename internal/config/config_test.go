package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data-qa.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data-qa/1.0", cfg.Fetcher.UserAgent)
	assert.Equal(t, 30, cfg.Fetcher.TimeoutSecs)
	assert.Equal(t, int64(10_000_000), cfg.Fetcher.MaxContentLength)
	assert.Equal(t, "file", cfg.Sniff.FileToolPath)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
	assert.Empty(t, cfg.Registry.FormatsPath)
	assert.Empty(t, cfg.Policy.Path)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/qa
log:
  level: debug
  format: console
server:
  port: 9090
fetcher:
  max_content_length: 5000000
policy:
  path: /etc/data-qa/policy.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/qa", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(5_000_000), cfg.Fetcher.MaxContentLength)
	assert.Equal(t, "/etc/data-qa/policy.yaml", cfg.Policy.Path)
	// Untouched defaults survive.
	assert.Equal(t, 30, cfg.Fetcher.TimeoutSecs)
}

func TestLoadFromEnv(t *testing.T) {
	chTempDir(t)
	t.Setenv("DATAQA_STORE_DRIVER", "postgres")
	t.Setenv("DATAQA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
