package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config.yaml present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Crawl.Timeout())
	assert.Equal(t, 3, cfg.Crawl.MaxContactPages)
	assert.Equal(t, time.Second, cfg.Crawl.PageGap())
	assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.Geocode.BaseURL)
	assert.Equal(t, "br", cfg.Geocode.CountryCode)
	assert.Equal(t, "RS", cfg.Pipeline.TargetState)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.RecordGap())
	assert.Equal(t, 10, cfg.Pipeline.CheckpointInterval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
crawl:
  max_contact_pages: 1
  timeout_secs: 5
pipeline:
  target_state: SC
  checkpoint_interval: 25
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Crawl.MaxContactPages)
	assert.Equal(t, 5*time.Second, cfg.Crawl.Timeout())
	assert.Equal(t, "SC", cfg.Pipeline.TargetState)
	assert.Equal(t, 25, cfg.Pipeline.CheckpointInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("crawl: ["), 0o644))
	chdir(t, dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "warn", Format: "console"})
	assert.NoError(t, err)
}
