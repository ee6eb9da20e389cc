package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values, overlays the widget TOML file when
// WIDGET_CONFIG names one, and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if cfg.Widget.File != "" {
		if err := cfg.Widget.Overlay(cfg.Widget.File); err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
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

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Widget validation
	if c.Widget.MaxFiles <= 0 {
		errs = append(errs, "WIDGET_MAX_FILES must be positive")
	}
	if c.Widget.MaxFileSize <= 0 {
		errs = append(errs, "WIDGET_MAX_FILE_SIZE must be positive")
	}
	if c.Widget.MaxCapacity <= 0 {
		errs = append(errs, "WIDGET_MAX_CAPACITY must be positive")
	} else {
		if c.Widget.MaxFiles > c.Widget.MaxCapacity {
			errs = append(errs, fmt.Sprintf("WIDGET_MAX_FILES (%d) must not exceed WIDGET_MAX_CAPACITY (%d)",
				c.Widget.MaxFiles, c.Widget.MaxCapacity))
		}
		if c.Widget.MaxFileSize > 0 && c.Widget.MaxFileSize > math.MaxInt64/2/int64(c.Widget.MaxCapacity) {
			errs = append(errs, "WIDGET_MAX_FILE_SIZE times WIDGET_MAX_CAPACITY is too large")
		}
	}
	if c.Widget.MaxConcurrent < 0 {
		errs = append(errs, "WIDGET_MAX_CONCURRENT must be non-negative")
	}
	if c.Widget.MaxWait <= 0 {
		errs = append(errs, "WIDGET_MAX_WAIT must be positive")
	}
	if c.Widget.OperationTimeout < 0 {
		errs = append(errs, "WIDGET_OPERATION_TIMEOUT must be non-negative")
	}
	if c.Widget.InputName == "" {
		errs = append(errs, "WIDGET_INPUT_NAME must not be empty")
	}
	for _, t := range c.Widget.FileTypes {
		if !strings.Contains(t, "/") {
			errs = append(errs, fmt.Sprintf("WIDGET_FILE_TYPES entry %q is not a MIME type", t))
		}
	}

	// Storage validation
	switch strings.ToLower(c.Storage.Backend) {
	case "memory":
	case "mock":
		if c.Storage.MockFailurePercent < 0 || c.Storage.MockFailurePercent > 100 {
			errs = append(errs, fmt.Sprintf("STORAGE_MOCK_FAILURE_PERCENT (%d) must be 0-100", c.Storage.MockFailurePercent))
		}
		if c.Storage.MockMaxDelay < c.Storage.MockMinDelay {
			errs = append(errs, "STORAGE_MOCK_MAX_DELAY must be >= STORAGE_MOCK_MIN_DELAY")
		}
	case "http":
		if c.Storage.HTTPEndpoint == "" {
			errs = append(errs, "STORAGE_HTTP_ENDPOINT is required for the http backend")
		}
	case "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, "S3_BUCKET is required for the s3 backend")
		}
		if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
			errs = append(errs, "S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres backend")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND (%q) must be one of: memory, mock, http, s3, postgres", c.Storage.Backend))
	}

	// Session validation
	if c.Session.TTL <= 0 {
		errs = append(errs, "SESSION_TTL must be positive")
	}
	if c.Session.JanitorInterval <= 0 {
		errs = append(errs, "SESSION_JANITOR_INTERVAL must be positive")
	}
	if c.Session.MaxSessions <= 0 {
		errs = append(errs, "SESSION_MAX must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.AddLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_ADD must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials and database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Widget: {MaxFiles: %d, FileTypes: %v, MaxConcurrent: %d}, ",
		c.Widget.MaxFiles, c.Widget.FileTypes, c.Widget.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Storage: {Backend: %q}, ", c.Storage.Backend))
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		mask(c.Database.URL), c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("S3: {Bucket: %q, Endpoint: %q, AccessKeyID: %s}, ",
		c.S3.Bucket, c.S3.Endpoint, mask(c.S3.AccessKeyID)))
	b.WriteString(fmt.Sprintf("Session: {TTL: %s, MaxSessions: %d}, ", c.Session.TTL, c.Session.MaxSessions))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
