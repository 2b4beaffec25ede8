package config

import "github.com/spf13/viper"

// Server-imposed limits and client defaults. The page and chunk maxima
// mirror what multi-tenant backends advertise; exceeding them gets the
// request rejected with ErrorInvalidRequest, not silently truncated.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000

	DefaultChunkSize = 100
	MaxChunkSize     = 1000

	DefaultConcurrency = 1
	MaxConcurrency     = 16

	DefaultMaxAttempts      = 5
	DefaultInitialBackoffMS = 1000
	DefaultMaxBackoffMS     = 60000
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("query.page_size", DefaultPageSize)

	v.SetDefault("bulk.chunk_size", DefaultChunkSize)
	v.SetDefault("bulk.concurrency", DefaultConcurrency)

	// Service accounts tolerate throttling with backoff; interactive callers
	// default to fail-fast (see retry.service_account).
	v.SetDefault("retry.service_account", false)
	v.SetDefault("retry.max_attempts", DefaultMaxAttempts)
	v.SetDefault("retry.initial_backoff_ms", DefaultInitialBackoffMS)
	v.SetDefault("retry.max_backoff_ms", DefaultMaxBackoffMS)
	v.SetDefault("retry.requests_per_second", 0.0) // unlimited

	v.SetDefault("logging.json", false)
	v.SetDefault("logging.verbosity", 0)
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var c Config
	// Unmarshal of pure defaults cannot fail
	_ = v.Unmarshal(&c)
	return &c
}
