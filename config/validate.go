package config

import "github.com/tarowe/go-ews/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Query.PageSize <= 0 {
		return errors.Newf("query.page_size must be > 0, got %d", c.Query.PageSize)
	}
	if c.Query.PageSize > MaxPageSize {
		return errors.Newf("query.page_size must be <= %d, got %d", MaxPageSize, c.Query.PageSize)
	}

	if c.Bulk.ChunkSize <= 0 {
		return errors.Newf("bulk.chunk_size must be > 0, got %d", c.Bulk.ChunkSize)
	}
	if c.Bulk.ChunkSize > MaxChunkSize {
		return errors.Newf("bulk.chunk_size must be <= %d, got %d", MaxChunkSize, c.Bulk.ChunkSize)
	}
	if c.Bulk.Concurrency <= 0 {
		return errors.Newf("bulk.concurrency must be > 0, got %d", c.Bulk.Concurrency)
	}
	if c.Bulk.Concurrency > MaxConcurrency {
		return errors.Newf("bulk.concurrency must be <= %d, got %d", MaxConcurrency, c.Bulk.Concurrency)
	}

	if c.Retry.MaxAttempts <= 0 {
		return errors.Newf("retry.max_attempts must be > 0, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoffMS <= 0 {
		return errors.Newf("retry.initial_backoff_ms must be > 0, got %d", c.Retry.InitialBackoffMS)
	}
	if c.Retry.MaxBackoffMS < c.Retry.InitialBackoffMS {
		return errors.Newf("retry.max_backoff_ms must be >= retry.initial_backoff_ms, got %d < %d",
			c.Retry.MaxBackoffMS, c.Retry.InitialBackoffMS)
	}
	if c.Retry.RequestsPerSecond < 0 {
		return errors.Newf("retry.requests_per_second must be >= 0, got %f", c.Retry.RequestsPerSecond)
	}

	if c.Logging.Verbosity < 0 {
		return errors.Newf("logging.verbosity must be >= 0, got %d", c.Logging.Verbosity)
	}

	return nil
}
