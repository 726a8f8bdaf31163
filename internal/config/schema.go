package config

import (
	"time"
)

// Version is written into generated config files
const Version = "0.1.0"

// Config represents the complete .colops.yml configuration
type Config struct {
	Version    string           `yaml:"version"`
	CreatedAt  time.Time        `yaml:"created_at"`
	Database   DatabaseConfig   `yaml:"database"`
	Operations OperationsConfig `yaml:"operations"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatabaseConfig holds database connection settings.
// ConnectionString wins over the discrete fields when both are set.
type DatabaseConfig struct {
	Driver            string `yaml:"driver"`            // postgresql
	ConnectionString  string `yaml:"connection_string"` // ${DATABASE_URL} or hardcoded
	Host              string `yaml:"host,omitempty"`
	Port              int    `yaml:"port,omitempty"`
	Name              string `yaml:"name,omitempty"`
	User              string `yaml:"user,omitempty"`
	Password          string `yaml:"password,omitempty"`
	SSLMode           string `yaml:"sslmode,omitempty"`
	MaxConnections    int    `yaml:"max_connections,omitempty"`
	MinConnections    int    `yaml:"min_connections,omitempty"`
	ConnectionTimeout int    `yaml:"connection_timeout,omitempty"` // seconds
	StatementTimeout  int    `yaml:"statement_timeout,omitempty"`  // seconds, per operation
}

// OperationsConfig holds column operation settings
type OperationsConfig struct {
	PreviewLimit    int  `yaml:"preview_limit,omitempty"`
	AuditLogging    bool `yaml:"audit_logging"`    // Write the journal
	TrackCoercions  bool `yaml:"track_coercions"`  // Record columns left as TEXT
	ConfirmCoercion bool `yaml:"confirm_coercion"` // Ask before widening a column
}

// LoggingConfig holds structured logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// ConnectionTimeoutDuration returns the connect timeout
func (d DatabaseConfig) ConnectionTimeoutDuration() time.Duration {
	return time.Duration(d.ConnectionTimeout) * time.Second
}

// StatementTimeoutDuration returns the per-operation timeout, zero for none
func (d DatabaseConfig) StatementTimeoutDuration() time.Duration {
	return time.Duration(d.StatementTimeout) * time.Second
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Version:   Version,
		CreatedAt: time.Now(),
		Database: DatabaseConfig{
			Driver:            "postgresql",
			ConnectionString:  "${DATABASE_URL}",
			MaxConnections:    10,
			MinConnections:    2,
			ConnectionTimeout: 30,
			StatementTimeout:  300,
		},
		Operations: OperationsConfig{
			PreviewLimit:    10,
			AuditLogging:    true,
			TrackCoercions:  true,
			ConfirmCoercion: false,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"console": true, "json": true}
)

// Validate checks if config is valid, filling zero values with defaults
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		return &ConfigError{
			Field:  "database.driver",
			Reason: "Database driver is required",
		}
	}

	if c.Database.Driver != "postgresql" && c.Database.Driver != "postgres" {
		return &ConfigError{
			Field:      "database.driver",
			Reason:     "Unsupported driver '" + c.Database.Driver + "'",
			Suggestion: "Use driver: postgresql",
		}
	}

	if c.Database.MaxConnections < 0 || c.Database.MinConnections < 0 {
		return &ConfigError{
			Field:  "database.max_connections",
			Reason: "Connection pool sizes cannot be negative",
		}
	}

	if c.Database.MaxConnections > 0 && c.Database.MinConnections > c.Database.MaxConnections {
		return &ConfigError{
			Field:      "database.min_connections",
			Reason:     "min_connections is larger than max_connections",
			Suggestion: "Lower min_connections or raise max_connections",
		}
	}

	if c.Operations.PreviewLimit < 0 {
		return &ConfigError{
			Field:  "operations.preview_limit",
			Reason: "Preview limit cannot be negative",
		}
	}

	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return &ConfigError{
			Field:      "logging.level",
			Reason:     "Unknown level '" + c.Logging.Level + "'",
			Suggestion: "Use one of debug, info, warn, error",
		}
	}

	if c.Logging.Format != "" && !validFormats[c.Logging.Format] {
		return &ConfigError{
			Field:      "logging.format",
			Reason:     "Unknown format '" + c.Logging.Format + "'",
			Suggestion: "Use console or json",
		}
	}

	if c.Database.ConnectionTimeout < 1 {
		c.Database.ConnectionTimeout = 30
	}

	if c.Operations.PreviewLimit == 0 {
		c.Operations.PreviewLimit = 10
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Reason     string
	Suggestion string
}

func (e *ConfigError) Error() string {
	msg := "Configuration error: " + e.Field + ": " + e.Reason
	if e.Suggestion != "" {
		msg += "\nSuggestion: " + e.Suggestion
	}
	return msg
}
