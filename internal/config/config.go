// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor
// principles, optionally seeded from an environment file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is the environment file name the original scripts used.
const DefaultEnvFile = "environment.env"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Meraki Dashboard API
	APIKey  string `env:"API_KEY,required"`
	OrgID   string `env:"ORG_ID"`
	BaseURL string `env:"MERAKI_BASE_URL" envDefault:"https://api.meraki.com/api/v1"`

	// Audit settings
	// Comma-separated manufacturer names matched case-insensitively.
	Manufacturers string `env:"AUDIT_MANUFACTURERS" envDefault:"Dell,Adrenaline,Nintendo"`
	// MAC prefix in dotted notation, e.g. "50a4.d0".
	MACPrefix  string        `env:"AUDIT_MAC_PREFIX" envDefault:"50a4.d0"`
	TargetVLAN int           `env:"AUDIT_VLAN" envDefault:"10"`
	Lookback   time.Duration `env:"AUDIT_LOOKBACK" envDefault:"720h"` // 30 days

	// Max networks audited concurrently.
	NetworkConcurrency int `env:"AUDIT_NETWORK_CONCURRENCY" envDefault:"4"`

	// Export paths for CLI runs
	JSONExportPath string `env:"EXPORT_JSON_PATH" envDefault:"meraki_audit_results.json"`
	XLSXExportPath string `env:"EXPORT_XLSX_PATH" envDefault:"output.xlsx"`

	// Dashboard rate limiting (Meraki allows ~10 req/s per org)
	DashboardRPS   int `env:"DASHBOARD_RPS" envDefault:"8"`
	DashboardBurst int `env:"DASHBOARD_BURST" envDefault:"8"`

	// Database (PostgreSQL, service mode only)
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache (Redis, service mode only)
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting for the toolkit's own API surface
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ManufacturerList parses the comma-separated manufacturers string into a slice.
func (c *Config) ManufacturerList() []string {
	if c.Manufacturers == "" {
		return nil
	}

	parts := strings.Split(c.Manufacturers, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// RedactedAPIKey returns the API key reduced to its last four characters
// for log output.
func (c *Config) RedactedAPIKey() string {
	return RedactSecret(c.APIKey)
}

// RedactSecret masks all but the last four characters of a secret.
func RedactSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// LoadEnvFile seeds the process environment from an environment file.
// Both file formats seen in deployments are accepted: unquoted values
// with no spaces around "=" as well as quoted values with spaces around
// "=" (godotenv strips quotes and surrounding whitespace). Variables
// already exported in the environment win over file values.
//
// A missing file at the default path is not an error, so the toolkit
// still works with exported variables alone. An explicitly requested
// file must exist.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if path == "" {
		path = DefaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing; a missing API_KEY
// produces an error naming the variable so the operator knows what to fix.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
