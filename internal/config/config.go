// Package config defines process configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
)

// Supported database/sql driver names for the structured store.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8081".
	Addr string `koanf:"addr"`

	// BaseURL is used when building links encoded into candidate card QR codes.
	BaseURL string `koanf:"base_url"`

	// DBPath is the structured store location. ":memory:" is accepted.
	DBPath string `koanf:"db_path"`

	// DBDriver picks the SQLite driver registered with database/sql.
	DBDriver string `koanf:"db_driver"`

	// LegacyStorePath points at the flat key-value file migrated on startup.
	// Empty disables the migration.
	LegacyStorePath string `koanf:"legacy_store_path"`

	// SchemaSeedPath is an optional YAML file of custom sports applied on first run.
	SchemaSeedPath string `koanf:"schema_seed_path"`

	// HTTPLogging turns on per-request access logs.
	HTTPLogging bool `koanf:"http_logging"`

	// BackupVersion is the format tag written into exported snapshots.
	BackupVersion string `koanf:"backup_version"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":8081",
		BaseURL:         "http://localhost:8081",
		DBPath:          "talentscout.db",
		DBDriver:        DriverCGO,
		LegacyStorePath: "talentscout-legacy.json",
		BackupVersion:   "1.0",
	}
}

// Validate checks the fields that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.BackupVersion) == "":
		return fmt.Errorf("%w: backup_version must not be empty", ErrInvalidConfig)
	}
	if c.DBDriver != DriverCGO && c.DBDriver != DriverPureGo {
		return fmt.Errorf("%w: db_driver must be %q or %q, got %q", ErrInvalidConfig, DriverCGO, DriverPureGo, c.DBDriver)
	}
	return nil
}
