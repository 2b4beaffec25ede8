package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	assert.Equal(t, DefaultPageSize, c.Query.PageSize)
	assert.Equal(t, DefaultChunkSize, c.Bulk.ChunkSize)
	assert.Equal(t, DefaultConcurrency, c.Bulk.Concurrency)
	assert.False(t, c.Retry.ServiceAccount)
	assert.Equal(t, DefaultMaxAttempts, c.Retry.MaxAttempts)
	assert.Equal(t, DefaultInitialBackoffMS, c.Retry.InitialBackoffMS)
	assert.Equal(t, DefaultMaxBackoffMS, c.Retry.MaxBackoffMS)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero page size", func(c *Config) { c.Query.PageSize = 0 }, "query.page_size"},
		{"oversized page", func(c *Config) { c.Query.PageSize = MaxPageSize + 1 }, "query.page_size"},
		{"zero chunk size", func(c *Config) { c.Bulk.ChunkSize = 0 }, "bulk.chunk_size"},
		{"oversized chunk", func(c *Config) { c.Bulk.ChunkSize = MaxChunkSize + 1 }, "bulk.chunk_size"},
		{"zero concurrency", func(c *Config) { c.Bulk.Concurrency = 0 }, "bulk.concurrency"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"backoff inversion", func(c *Config) { c.Retry.MaxBackoffMS = 1; c.Retry.InitialBackoffMS = 10 }, "retry.max_backoff_ms"},
		{"negative rate", func(c *Config) { c.Retry.RequestsPerSecond = -1 }, "retry.requests_per_second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ewsq.toml")

	c := Default()
	c.Query.PageSize = 250
	c.Bulk.Concurrency = 4
	c.Retry.ServiceAccount = true
	require.NoError(t, Save(c, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250, loaded.Query.PageSize)
	assert.Equal(t, 4, loaded.Bulk.Concurrency)
	assert.True(t, loaded.Retry.ServiceAccount)
	// Untouched sections keep defaults
	assert.Equal(t, DefaultChunkSize, loaded.Bulk.ChunkSize)
}

func TestSaveRotatesBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ewsq.toml")

	c := Default()
	require.NoError(t, Save(c, path))
	c.Query.PageSize = 10
	require.NoError(t, Save(c, path))

	_, err := os.Stat(path + ".back1")
	assert.NoError(t, err)
}

func TestSaveRejectsInvalid(t *testing.T) {
	c := Default()
	c.Bulk.ChunkSize = -1
	err := Save(c, filepath.Join(t.TempDir(), "ewsq.toml"))
	require.Error(t, err)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestRetryDurations(t *testing.T) {
	r := RetryConfig{InitialBackoffMS: 1500, MaxBackoffMS: 60000}
	assert.Equal(t, int64(1500), r.InitialBackoff().Milliseconds())
	assert.Equal(t, int64(60000), r.MaxBackoff().Milliseconds())
}
