// Package config manages go-ews client configuration: query paging, bulk
// chunking, retry/backoff policy and logging. Configuration is loaded from
// ewsq.toml (project or user scope) with EWSQ_* environment overrides.
package config

import "time"

// Config represents the full client configuration
type Config struct {
	Query   QueryConfig   `mapstructure:"query"`
	Bulk    BulkConfig    `mapstructure:"bulk"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// QueryConfig configures paged item fetching
type QueryConfig struct {
	PageSize int `mapstructure:"page_size"` // items requested per page (default: 100, max: 1000)
}

// BulkConfig configures chunked bulk operations
type BulkConfig struct {
	ChunkSize   int `mapstructure:"chunk_size"`  // items per bulk request (default: 100, server max: 1000)
	Concurrency int `mapstructure:"concurrency"` // concurrent chunk dispatches, 1 = sequential (default: 1)
}

// RetryConfig configures the fault policy for remote calls
type RetryConfig struct {
	ServiceAccount     bool    `mapstructure:"service_account"`       // false = fail fast, no retries
	MaxAttempts        int     `mapstructure:"max_attempts"`          // total attempts per call (default: 5)
	InitialBackoffMS   int     `mapstructure:"initial_backoff_ms"`    // first retry delay (default: 1000)
	MaxBackoffMS       int     `mapstructure:"max_backoff_ms"`        // backoff cap (default: 60000)
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"`   // dispatch pacing, 0 = unlimited
}

// LoggingConfig configures log output
type LoggingConfig struct {
	JSON      bool `mapstructure:"json"`      // structured JSON instead of console output
	Verbosity int  `mapstructure:"verbosity"` // 0..3, see logger.VerbosityToLevel
}

// InitialBackoff returns the first retry delay as a duration.
func (r RetryConfig) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the backoff cap as a duration.
func (r RetryConfig) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}
