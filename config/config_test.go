package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"CME_XLS_URL", "HISTORY_LIMIT", "HISTORY_BACKEND", "MATCHERS_PATH", "BROWSER_WARMUP", "HTTP_TIMEOUT_MS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSourceURL, cfg.SourceURL)
	assert.Equal(t, 120, cfg.HistoryLimit)
	assert.Equal(t, "file", cfg.HistoryBackend)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.BrowserWarmup)
	assert.Equal(t, DefaultColumnRules(), cfg.ColumnRules)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CME_XLS_URL", "http://localhost/stocks.xls")
	t.Setenv("HISTORY_LIMIT", "30")
	t.Setenv("HISTORY_BACKEND", "Postgres")
	t.Setenv("BROWSER_WARMUP", "true")
	t.Setenv("HTTP_TIMEOUT_MS", "not-a-number")
	t.Setenv("MATCHERS_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/stocks.xls", cfg.SourceURL)
	assert.Equal(t, 30, cfg.HistoryLimit)
	assert.Equal(t, "postgres", cfg.HistoryBackend)
	assert.True(t, cfg.BrowserWarmup)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoadClampsHistoryLimit(t *testing.T) {
	t.Setenv("MATCHERS_PATH", "")
	for _, v := range []string{"500", "121", "0", "-3"} {
		t.Setenv("HISTORY_LIMIT", v)
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, MaxHistoryLimit, cfg.HistoryLimit, "HISTORY_LIMIT=%s", v)
	}
}

func TestLoadBadMatchersPath(t *testing.T) {
	t.Setenv("MATCHERS_PATH", "/does/not/exist.yaml")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &Config{PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u", PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}
