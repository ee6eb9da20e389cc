// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Widget   WidgetConfig
	Storage  StorageConfig
	Database DatabaseConfig
	S3       S3Config
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// WidgetConfig holds the options every upload widget session starts with.
type WidgetConfig struct {
	// File is an optional TOML file overlaying these settings
	File string `env:"WIDGET_CONFIG"`

	// MaxFiles is the collection capacity (default: 1)
	MaxFiles int `env:"WIDGET_MAX_FILES" default:"1"`

	// MaxCapacity is the largest capacity a client may request (default: 20)
	MaxCapacity int `env:"WIDGET_MAX_CAPACITY" default:"20"`

	// FileTypes is a comma-separated MIME allow-list; empty allows all
	FileTypes []string `env:"WIDGET_FILE_TYPES"`

	// Description is shown above the file input
	Description string `env:"WIDGET_DESCRIPTION" default:"Select files to upload"`

	// InputName is the form field name of the file input (default: file)
	InputName string `env:"WIDGET_INPUT_NAME" default:"file"`

	// MaxFileSize is the maximum accepted file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"WIDGET_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent bounds simultaneous operations per session (default: 4)
	MaxConcurrent int `env:"WIDGET_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long an operation waits for a slot (default: 30s)
	MaxWait time.Duration `env:"WIDGET_MAX_WAIT" default:"30s"`

	// OperationTimeout caps a single upload or delete (default: 2m)
	OperationTimeout time.Duration `env:"WIDGET_OPERATION_TIMEOUT" default:"2m"`
}

// StorageConfig selects and tunes the storage backend.
type StorageConfig struct {
	// Backend is one of: memory, mock, http, s3, postgres (default: memory)
	Backend string `env:"STORAGE_BACKEND" default:"memory"`

	// HTTPEndpoint is the upload URL for the http backend
	HTTPEndpoint string `env:"STORAGE_HTTP_ENDPOINT"`

	// HTTPTimeout bounds each request of the http backend (default: 60s)
	HTTPTimeout time.Duration `env:"STORAGE_HTTP_TIMEOUT" default:"60s"`

	// MockMinDelay and MockMaxDelay bound the simulated latency of the mock backend
	MockMinDelay time.Duration `env:"STORAGE_MOCK_MIN_DELAY" default:"200ms"`
	MockMaxDelay time.Duration `env:"STORAGE_MOCK_MAX_DELAY" default:"2s"`

	// MockFailurePercent is the chance (0-100) a mock operation fails (default: 20)
	MockFailurePercent int `env:"STORAGE_MOCK_FAILURE_PERCENT" default:"20"`
}

// DatabaseConfig holds database connection settings for the postgres backend.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// S3Config holds settings for the s3 backend.
type S3Config struct {
	Bucket string `env:"S3_BUCKET"`

	// Prefix is prepended to every object key (default: uploads/)
	Prefix string `env:"S3_PREFIX" default:"uploads/"`

	Region string `env:"S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// Endpoint targets an S3-compatible service such as MinIO
	Endpoint string `env:"S3_ENDPOINT"`

	// Static credentials; when empty the default AWS credential chain is used
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	// UsePathStyle is required by most S3-compatible services
	UsePathStyle bool `env:"S3_USE_PATH_STYLE" default:"false"`
}

// SessionConfig controls widget session lifetime.
type SessionConfig struct {
	// TTL is how long an untouched session lives (default: 30m)
	TTL time.Duration `env:"SESSION_TTL" default:"30m"`

	// JanitorInterval is how often expired sessions are reaped (default: 1m)
	JanitorInterval time.Duration `env:"SESSION_JANITOR_INTERVAL" default:"1m"`

	// MaxSessions caps live sessions (default: 1000)
	MaxSessions int `env:"SESSION_MAX" default:"1000"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// AddLimit is requests per minute for the file add endpoint (default: 30)
	AddLimit int `env:"RATE_LIMIT_ADD" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Options converts the widget settings into coordinator options.
func (c *WidgetConfig) Options() uploader.Options {
	return uploader.Options{
		MaxFiles:         c.MaxFiles,
		FileTypes:        c.FileTypes,
		Description:      c.Description,
		InputName:        c.InputName,
		MaxConcurrent:    c.MaxConcurrent,
		MaxWait:          c.MaxWait,
		OperationTimeout: c.OperationTimeout,
	}
}
