package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "agb_searcher.db", cfg.Store.SQLitePath)
	assert.Equal(t, "https://api.polza.ai/v1", cfg.Polza.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.Polza.Model)
	assert.Equal(t, 2000, cfg.Polza.MaxTokens)
	assert.InDelta(t, 0.3, cfg.Polza.Temperature, 0.001)
	assert.Equal(t, 120, cfg.Polza.TimeoutSecs)
	assert.Equal(t, "https://html.duckduckgo.com/html/", cfg.Search.BaseURL)
	assert.Equal(t, 15, cfg.Search.TimeoutSecs)
	assert.InDelta(t, 1.0, cfg.Search.RatePerSec, 0.001)
	assert.Equal(t, "polza", cfg.Pipeline.Provider)
	assert.Equal(t, 3, cfg.Pipeline.RetryCount)
	assert.Equal(t, 60, cfg.Pipeline.LookupTimeoutSecs)
	assert.Equal(t, 20, cfg.Chat.SummarizeThreshold)
	assert.Equal(t, 6, cfg.Chat.SummaryKeepRecent)
	assert.Equal(t, 3, cfg.Import.MaxConcurrentLookups)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://frontend:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: sqlite
  sqlite_path: /tmp/companies.db
polza:
  model: gpt-4o-mini
server:
  port: 9090
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/companies.db", cfg.Store.SQLitePath)
	assert.Equal(t, "gpt-4o-mini", cfg.Polza.Model)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 2000, cfg.Polza.MaxTokens)
	assert.Equal(t, 3, cfg.Pipeline.RetryCount)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("AGB_STORE_DRIVER", "postgres")
	t.Setenv("AGB_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("AGB_SERVER_PORT", "3000")
	t.Setenv("AGB_POLZA_KEY", "pk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "pk-test", cfg.Polza.Key)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
