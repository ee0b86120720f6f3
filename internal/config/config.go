// Package config provides environment-driven configuration for the ATM Master server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL   Secret
	DatabaseName  string
	Schema        string
	DBMaxConns    int
	Port          string
	MetricsPort   string
	ListenHost    string
	CORSOrigins   []string
	LogLevel      string
	LogFormat     string
	MaxUploadMB   int
	RowErrorLimit int
	AuditQueue    int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		Schema:      envOrDefault("DATABASE_SCHEMA", "dbo"),
		Port:        envOrDefault("PORT", "8080"),
		MetricsPort: envOrDefault("METRICS_PORT", "9091"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "text"),
	}

	var err error

	if cfg.DBMaxConns, err = envInt("DB_MAX_CONNS", 10, 2, 100); err != nil {
		return nil, err
	}

	if cfg.MaxUploadMB, err = envInt("MAX_UPLOAD_MB", 100, 1, 2048); err != nil {
		return nil, err
	}

	if cfg.RowErrorLimit, err = envInt("RESTORE_ROW_ERROR_LOG_LIMIT", 3, 0, 100); err != nil {
		return nil, err
	}

	if cfg.AuditQueue, err = envInt("AUDIT_QUEUE_SIZE", 1000, 1, 100000); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

// MaxUploadBytes returns the restore upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// databaseName extracts the database query parameter of a sqlserver:// URL.
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}

	return u.Query().Get("database")
}

func envInt(key string, fallback, lo, hi int) (int, error) {
	v, err := strconv.Atoi(envOrDefault(key, strconv.Itoa(fallback)))
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}

	return v, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
