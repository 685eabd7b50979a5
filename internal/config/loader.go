package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding the config file path.
const FileEnv = "MOVINGBOX_CONFIG"

// Load reads configuration from the file named by MOVINGBOX_CONFIG, if any,
// and environment variables. See LoadFile.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile applies struct-tag defaults, then the YAML file at path (skipped
// when path is empty), then environment variables, and validates the
// result. ${VAR} references in the file are expanded from the environment.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	v := reflect.ValueOf(cfg).Elem()

	if err := walk(v, applyDefault); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		if err := loadYAML(cfg, path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	if err := walk(v, applyEnv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with its value. Bare $VAR is left alone so
// DSNs and passwords containing $ survive.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// walk calls fn for every settable leaf field of v, recursing into nested
// structs.
func walk(v reflect.Value, fn func(reflect.StructField, reflect.Value) error) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := walk(fieldVal, fn); err != nil {
				return err
			}
			continue
		}

		if err := fn(field, fieldVal); err != nil {
			return err
		}
	}

	return nil
}

func applyDefault(field reflect.StructField, fieldVal reflect.Value) error {
	value := field.Tag.Get("default")
	if value == "" {
		return nil
	}
	if err := setField(fieldVal, value); err != nil {
		return fmt.Errorf("invalid default for %s=%q: %w", field.Name, value, err)
	}
	return nil
}

// applyEnv overrides a field from its env var, then its alternate.
// A required field left empty by every source is an error.
func applyEnv(field reflect.StructField, fieldVal reflect.Value) error {
	envName := field.Tag.Get("env")
	if envName == "" {
		return nil
	}

	value := os.Getenv(envName)
	if value == "" {
		if alt := field.Tag.Get("envAlt"); alt != "" {
			value = os.Getenv(alt)
		}
	}

	if value == "" {
		if field.Tag.Get("required") == "true" && fieldVal.IsZero() {
			return fmt.Errorf("required environment variable %s is not set", envName)
		}
		return nil
	}

	if err := setField(fieldVal, value); err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
	}
	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Store validation
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "MOVINGBOX_DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres driver")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("MOVINGBOX_STORE_DRIVER (%q) must be one of: sqlite, postgres, memory", c.Store.Driver))
	}
	if c.Store.MaxConns < c.Store.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Store.MaxConns, c.Store.MinConns))
	}
	if c.Store.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Store.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Export validation
	if c.Export.OutputDir == "" {
		errs = append(errs, "MOVINGBOX_EXPORT_DIR must not be empty")
	}
	if c.Export.BatchSize < 0 {
		errs = append(errs, "MOVINGBOX_BATCH_SIZE must be non-negative")
	}

	// Import validation
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "MOVINGBOX_IMPORT_MAX_FILE_SIZE must be positive")
	}
	for _, ext := range c.Import.AllowedExtensions {
		if strings.ContainsAny(ext, "./\\") {
			errs = append(errs, fmt.Sprintf("MOVINGBOX_IMPORT_ALLOWED_EXTENSIONS entry %q must be a bare extension like jpg", ext))
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true, "color": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json, color", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	dsn := ""
	if c.Store.DSN != "" {
		dsn = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Store: {Driver: %q, Path: %q, DSN: %s, MaxConns: %d, MinConns: %d}, ",
		c.Store.Driver, c.Store.Path, dsn, c.Store.MaxConns, c.Store.MinConns))
	b.WriteString(fmt.Sprintf("Export: {OutputDir: %q, AppName: %q, BatchSize: %d}, ",
		c.Export.OutputDir, c.Export.AppName, c.Export.BatchSize))
	b.WriteString(fmt.Sprintf("Import: {MaxFileSize: %d, StrictFiles: %v}, ",
		c.Import.MaxFileSize, c.Import.StrictFiles))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
