package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var schemaPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "sqlserver" {
		return fmt.Errorf("DATABASE_URL scheme must be sqlserver://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	c.DatabaseName = databaseName(c.DatabaseURL.Value())
	if c.DatabaseName == "" {
		return fmt.Errorf("DATABASE_URL must name a database (?database=...)")
	}

	dbHost := dbURL.Hostname()
	if dbHost != "localhost" && dbHost != "127.0.0.1" && dbHost != "::1" {
		if strings.EqualFold(dbURL.Query().Get("encrypt"), "disable") {
			return fmt.Errorf("DATABASE_URL encrypt=disable is not allowed for non-local host %q", dbHost)
		}
	}

	if !schemaPattern.MatchString(c.Schema) {
		return fmt.Errorf("DATABASE_SCHEMA must be a plain identifier, got %q", c.Schema)
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local deployments, 0.0.0.0/:: when a container network
	// is the boundary.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	metricsPort, err := strconv.Atoi(c.MetricsPort)
	if err != nil {
		return fmt.Errorf("METRICS_PORT must be a valid integer: %w", err)
	}

	if metricsPort < 1 || metricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT must be between 1 and 65535")
	}

	if metricsPort == port {
		return fmt.Errorf("METRICS_PORT must differ from PORT")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json', got %q", c.LogFormat)
	}

	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error (got %q)", c.LogLevel)
	}

	return nil
}
