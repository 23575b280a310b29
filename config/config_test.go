package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	m := cfg.Metrics

	assert.True(t, m.Enabled)
	assert.False(t, m.LogMetrics)
	assert.Equal(t, "metrics:", m.Cache.Prefix)
	assert.Equal(t, time.Hour, m.Cache.TTL)
	assert.Equal(t, 1000, m.Cache.BatchSize)
	assert.Equal(t, 5*time.Minute, m.Cache.FlushInterval)
	assert.Equal(t, "metrics", m.Table)
	assert.Equal(t, 1500*time.Millisecond, m.DBQuery.SlowQueryThreshold)
	assert.Equal(t, ".slow", m.DBQuery.SlowQueryNameSuffix)
	assert.True(t, m.DBQuery.StoreOnlySlowQuery)
	assert.Equal(t, 15, m.Exception.TraceLines)
	assert.Equal(t, map[string]any{"environment": "production", "app_name": "lamet"}, m.DefaultTags)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
app_name: billing
run_mode: staging
data:
  database:
    driver: sqlite
    source: ":memory:"
metrics:
  storage: sqlite
  table: app_metrics
  cache:
    ttl: 7200
    flush_interval: 2m
    batch_size: 50
  ignore:
    paths: ["/health", "/internal/*"]
    exceptions: ['App\*']
    db_query:
      tables: [sessions]
  db_query:
    slow_query_threshold: 250
    store_only_slow_query: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	m := cfg.Metrics
	assert.Equal(t, "app_metrics", m.Table)
	assert.Equal(t, 2*time.Hour, m.Cache.TTL)
	assert.Equal(t, 2*time.Minute, m.Cache.FlushInterval)
	assert.Equal(t, 50, m.Cache.BatchSize)
	assert.Equal(t, []string{"/health", "/internal/*"}, m.Ignore.Paths)
	assert.Equal(t, []string{`App\*`}, m.Ignore.Exceptions)
	assert.Equal(t, []string{"sessions"}, m.Ignore.DBQuery.Tables)
	assert.Equal(t, 250*time.Millisecond, m.DBQuery.SlowQueryThreshold)
	assert.False(t, m.DBQuery.StoreOnlySlowQuery)
	assert.Equal(t, "staging", m.DefaultTags["environment"])
	assert.Equal(t, "billing", m.DefaultTags["app_name"])
	assert.Equal(t, "sqlite", cfg.Data.Database.Driver)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "metrics:\n  cache:\n    batch_size: 10\n")
	t.Setenv("LAMET_METRICS_CACHE_BATCH_SIZE", "25")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Metrics.Cache.BatchSize)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Metrics.Cache.BatchSize = 0 }},
		{"zero ttl", func(c *Config) { c.Metrics.Cache.TTL = 0 }},
		{"unknown cache driver", func(c *Config) { c.Metrics.Cache.Driver = "memcached" }},
		{"unknown storage", func(c *Config) { c.Metrics.Storage = "oracle" }},
		{"unknown query tag", func(c *Config) { c.Metrics.DBQuery.Tags = []string{"bindings"} }},
		{"redis without addr", func(c *Config) { c.Metrics.Cache.Driver = "redis" }},
		{"sql storage without source", func(c *Config) { c.Metrics.Storage = "postgres" }},
		{"mongodb without uri", func(c *Config) { c.Metrics.Storage = "mongodb" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Cache.TTL = time.Minute
	cfg.Metrics.Storage = "memory"

	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "metrics.cache.ttl")
	assert.Contains(t, warnings[1], "memory")
}
