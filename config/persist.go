package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/tarowe/go-ews/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before
// modifying a config file.
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, 0644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// Save writes the configuration to configPath as TOML, keeping rotating
// backups of any previous file. The write is marked as our own so a running
// ConfigWatcher does not trigger a reload loop.
func Save(c *Config, configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(tomlDoc(c))
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", configPath)
	}

	return nil
}

// tomlDoc converts a Config into the key layout Load expects. go-toml
// marshals by struct field name, not mapstructure tag, so build the map
// explicitly.
func tomlDoc(c *Config) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"page_size": c.Query.PageSize,
		},
		"bulk": map[string]any{
			"chunk_size":  c.Bulk.ChunkSize,
			"concurrency": c.Bulk.Concurrency,
		},
		"retry": map[string]any{
			"service_account":     c.Retry.ServiceAccount,
			"max_attempts":        c.Retry.MaxAttempts,
			"initial_backoff_ms":  c.Retry.InitialBackoffMS,
			"max_backoff_ms":      c.Retry.MaxBackoffMS,
			"requests_per_second": c.Retry.RequestsPerSecond,
		},
		"logging": map[string]any{
			"json":      c.Logging.JSON,
			"verbosity": c.Logging.Verbosity,
		},
	}
}
