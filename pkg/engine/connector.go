package engine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationName is reported to the server as application_name
const ApplicationName = "colops"

// ConnectorConfig describes where the engine's pool connects and how it is sized.
// When URL is set it is handed to pgx unchanged and the discrete fields only
// describe the target; otherwise the fields are assembled into a keyword/value string.
type ConnectorConfig struct {
	URL      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// ConnectTimeout bounds each dial, zero leaves pgx's default
	ConnectTimeout time.Duration
	// StatementTimeout is set as the session's statement_timeout, so the server
	// cancels a stuck ALTER or UPDATE even if the client stops waiting
	StatementTimeout time.Duration

	MaxConns    int32
	MinConns    int32
	MaxIdleTime time.Duration
}

// DefaultConfig returns the local development target
func DefaultConfig() ConnectorConfig {
	return ConnectorConfig{
		Host:           "localhost",
		Port:           5432,
		Database:       "colops",
		User:           "postgres",
		SSLMode:        "disable",
		ConnectTimeout: 30 * time.Second,
		MaxConns:       10,
		MinConns:       2,
		MaxIdleTime:    5 * time.Minute,
	}
}

// Target names the database for messages, never including the password
func (c ConnectorConfig) Target() string {
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
}

// ConnectionString returns URL, or the discrete fields as keyword/value pairs
func (c ConnectorConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, quoteValue(c.Password), sslMode,
	)
}

// quoteValue quotes a keyword/value connection parameter when it needs it
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// PoolConfig builds the pgxpool configuration without connecting
func (c ConnectorConfig) PoolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	if c.MaxConns > 0 {
		poolConfig.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		poolConfig.MinConns = c.MinConns
	}
	if c.MaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = c.MaxIdleTime
	}

	conn := poolConfig.ConnConfig
	if c.ConnectTimeout > 0 {
		conn.ConnectTimeout = c.ConnectTimeout
	}
	if _, ok := conn.RuntimeParams["application_name"]; !ok {
		conn.RuntimeParams["application_name"] = ApplicationName
	}
	if c.StatementTimeout > 0 {
		conn.RuntimeParams["statement_timeout"] = strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}

	return poolConfig, nil
}

// Connector owns the engine's connection pool
type Connector struct {
	pool   *pgxpool.Pool
	config ConnectorConfig
}

// NewConnector creates a connector; nothing is dialed until Connect
func NewConnector(config ConnectorConfig) *Connector {
	return &Connector{config: config}
}

// Config returns the settings the connector was built with
func (c *Connector) Config() ConnectorConfig {
	return c.config
}

// Connect opens the pool and checks that one connection can be acquired.
// On failure no pool is kept.
func (c *Connector) Connect(ctx context.Context) error {
	poolConfig, err := c.config.PoolConfig()
	if err != nil {
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create pool for %s: %w", c.config.Target(), err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to reach %s: %w", c.config.Target(), err)
	}

	c.pool = pool
	return nil
}

// Pool returns the connection pool, nil before Connect
func (c *Connector) Pool() *pgxpool.Pool {
	return c.pool
}

// IsConnected reports whether Connect succeeded and Close has not run
func (c *Connector) IsConnected() bool {
	return c.pool != nil
}

// Ping verifies the connection is alive
func (c *Connector) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected")
	}
	return c.pool.Ping(ctx)
}

// Close closes the connection pool
func (c *Connector) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

// ParseConnectionString accepts a postgres:// or postgresql:// URL or a
// keyword/value string. Parsing follows pgx (and so libpq), including PG*
// environment defaults; the original string is kept as URL.
func ParseConnectionString(connStr string) (ConnectorConfig, error) {
	if scheme, _, ok := strings.Cut(connStr, "://"); ok && scheme != "postgres" && scheme != "postgresql" {
		return ConnectorConfig{}, fmt.Errorf("unsupported scheme: %s (expected postgresql or postgres)", scheme)
	}

	parsed, err := pgconn.ParseConfig(connStr)
	if err != nil {
		return ConnectorConfig{}, fmt.Errorf("invalid connection string: %w", err)
	}

	config := DefaultConfig()
	config.URL = connStr
	config.Host = parsed.Host
	config.Port = int(parsed.Port)
	config.Database = parsed.Database
	config.User = parsed.User
	config.Password = parsed.Password
	config.SSLMode = sslModeOf(connStr)
	if parsed.ConnectTimeout > 0 {
		config.ConnectTimeout = parsed.ConnectTimeout
	}

	return config, nil
}

// sslModeOf reports the sslmode written in connStr, "prefer" (the libpq
// default) when it names none
func sslModeOf(connStr string) string {
	if strings.Contains(connStr, "://") {
		if u, err := url.Parse(connStr); err == nil {
			if mode := u.Query().Get("sslmode"); mode != "" {
				return mode
			}
		}
		return "prefer"
	}

	for _, field := range strings.Fields(connStr) {
		if mode, ok := strings.CutPrefix(field, "sslmode="); ok {
			return strings.Trim(mode, "'")
		}
	}
	return "prefer"
}
