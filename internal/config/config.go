// Package config provides centralized configuration management for the
// movingbox command. Settings come from struct-tag defaults, an optional
// YAML file and environment variables, in increasing precedence, and are
// validated on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// Every setting can be configured via environment variables.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Export  ExportConfig  `yaml:"export"`
	Import  ImportConfig  `yaml:"import"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig selects and connects the inventory store.
type StoreConfig struct {
	// Driver is sqlite, postgres or memory (default: sqlite)
	Driver string `env:"MOVINGBOX_STORE_DRIVER" default:"sqlite" yaml:"driver"`

	// Path is the SQLite database file (default: movingbox.db)
	Path string `env:"MOVINGBOX_DB_PATH" default:"movingbox.db" yaml:"path"`

	// DSN is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DSN string `env:"DATABASE_URL" envAlt:"DB_URL" yaml:"dsn"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10" yaml:"max_conns"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1" yaml:"min_conns"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h" yaml:"max_conn_lifetime"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m" yaml:"max_conn_idle_time"`
}

// ExportConfig holds archive creation settings. WorkDir and BatchSize apply
// to imports as well.
type ExportConfig struct {
	// OutputDir receives finished archives (default: current directory)
	OutputDir string `env:"MOVINGBOX_EXPORT_DIR" default:"." yaml:"output_dir"`

	// AppName prefixes archive names (default: movingbox)
	AppName string `env:"MOVINGBOX_APP_NAME" default:"movingbox" yaml:"app_name"`

	// BatchSize is rows per batch; 0 derives it from physical memory (default: 0)
	BatchSize int `env:"MOVINGBOX_BATCH_SIZE" default:"0" yaml:"batch_size"`

	// WorkDir holds scratch trees (default: the OS temp dir)
	WorkDir string `env:"MOVINGBOX_WORK_DIR" yaml:"work_dir"`
}

// ImportConfig holds the per-file policy applied to imported archives.
type ImportConfig struct {
	// MaxFileSize is the largest accepted archive entry in bytes (default: 50MB)
	MaxFileSize int64 `env:"MOVINGBOX_IMPORT_MAX_FILE_SIZE" default:"52428800" yaml:"max_file_size"`

	// AllowedExtensions is a comma-separated list of accepted extensions
	// without dots (default: csv and common photo types)
	AllowedExtensions []string `env:"MOVINGBOX_IMPORT_ALLOWED_EXTENSIONS" yaml:"allowed_extensions"`

	// StrictFiles aborts an import on the first rejected file (default: false)
	StrictFiles bool `env:"MOVINGBOX_IMPORT_STRICT" default:"false" yaml:"strict_files"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" yaml:"level"`

	// Format is the log format: text, json or color (default: text)
	Format string `env:"LOG_FORMAT" default:"text" yaml:"format"`
}
