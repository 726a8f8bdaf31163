package main

import (
	"fmt"
	"os"

	"github.com/chameleon-db/colops/internal/config"
	"github.com/chameleon-db/colops/pkg/engine"
)

// loadConfig reads .colops.yml (or .colops.toml) from workDir, falling back
// to defaults when neither exists
func loadConfig(workDir string) (*config.Config, error) {
	cfg, err := config.NewLoader(workDir).LoadOrDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadConnectorConfig resolves database settings from:
// 1. DATABASE_URL environment variable (priority)
// 2. connection_string in the config file
// 3. discrete host/port/name/user fields in the config file
// 4. Default configuration (localhost:5432)
func LoadConnectorConfig(cfg *config.Config) (engine.ConnectorConfig, error) {
	conn, source, err := connectorConfigFrom(cfg, os.Getenv("DATABASE_URL"))
	if err != nil {
		return engine.ConnectorConfig{}, err
	}
	if verbose {
		printInfo("Using %s", source)
	}
	return conn, nil
}

func connectorConfigFrom(cfg *config.Config, databaseURL string) (engine.ConnectorConfig, string, error) {
	var (
		conn   engine.ConnectorConfig
		source string
		err    error
	)

	switch {
	case databaseURL != "":
		conn, err = engine.ParseConnectionString(databaseURL)
		if err != nil {
			return engine.ConnectorConfig{}, "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		source = "DATABASE_URL from environment"

	case cfg.Database.ConnectionString != "":
		conn, err = engine.ParseConnectionString(cfg.Database.ConnectionString)
		if err != nil {
			return engine.ConnectorConfig{}, "", fmt.Errorf("invalid connection string in config: %w", err)
		}
		source = "connection string from config"

	default:
		conn = engine.DefaultConfig()
		source = "default configuration (localhost:5432)"

		db := cfg.Database
		if db.Host != "" || db.Name != "" || db.User != "" {
			source = "database fields from config"
		}
		if db.Host != "" {
			conn.Host = db.Host
		}
		if db.Port != 0 {
			conn.Port = db.Port
		}
		if db.Name != "" {
			conn.Database = db.Name
		}
		if db.User != "" {
			conn.User = db.User
		}
		if db.Password != "" {
			conn.Password = db.Password
		}
		if db.SSLMode != "" {
			conn.SSLMode = db.SSLMode
		}
	}

	// Pool and timeout settings always come from config
	if timeout := cfg.Database.ConnectionTimeoutDuration(); timeout > 0 {
		conn.ConnectTimeout = timeout
	}
	conn.StatementTimeout = cfg.Database.StatementTimeoutDuration()
	if cfg.Database.MaxConnections > 0 {
		conn.MaxConns = int32(cfg.Database.MaxConnections)
	}
	if cfg.Database.MinConnections > 0 {
		conn.MinConns = int32(cfg.Database.MinConnections)
	}

	return conn, source, nil
}
