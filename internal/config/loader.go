package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File names looked up in the work directory, in order
const (
	FileName       = ".colops.yml"
	LegacyFileName = ".colops.toml"
)

// ErrNotFound is returned by Load when neither config file exists
var ErrNotFound = errors.New("config file not found")

// Loader handles loading and parsing .colops.yml
type Loader struct {
	filePath   string
	legacyPath string
	workDir    string
}

// NewLoader creates a new config loader
func NewLoader(workDir string) *Loader {
	return &Loader{
		filePath:   filepath.Join(workDir, FileName),
		legacyPath: filepath.Join(workDir, LegacyFileName),
		workDir:    workDir,
	}
}

// Path returns the path of the YAML config file
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads .colops.yml, falling back to the legacy .colops.toml
func (l *Loader) Load() (*Config, error) {
	var (
		cfg *Config
		err error
	)

	switch {
	case fileExists(l.filePath):
		cfg, err = l.loadYAML()
	case fileExists(l.legacyPath):
		cfg, err = l.loadTOML()
	default:
		return nil, fmt.Errorf("%w: %s\nRun 'colops init' to create one", ErrNotFound, l.filePath)
	}
	if err != nil {
		return nil, err
	}

	// Expand environment variables in connection settings
	cfg.Database.ConnectionString = os.ExpandEnv(cfg.Database.ConnectionString)
	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) loadYAML() (*Config, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// legacyConfig is the flat TOML layout of .colops.toml
type legacyConfig struct {
	Database struct {
		URL      string `toml:"url"`
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		Database string `toml:"database"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		SSLMode  string `toml:"sslmode"`
		MaxConns int    `toml:"max_conns"`
		MinConns int    `toml:"min_conns"`
	} `toml:"database"`
}

func (l *Loader) loadTOML() (*Config, error) {
	var legacy legacyConfig
	if _, err := toml.DecodeFile(l.legacyPath, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", LegacyFileName, err)
	}

	cfg := Defaults()
	db := legacy.Database
	// An unset URL must not fall back to ${DATABASE_URL}: the discrete fields apply instead
	cfg.Database.ConnectionString = db.URL
	cfg.Database.Host = db.Host
	cfg.Database.Port = db.Port
	cfg.Database.Name = db.Database
	cfg.Database.User = db.User
	cfg.Database.Password = db.Password
	cfg.Database.SSLMode = db.SSLMode
	if db.MaxConns != 0 {
		cfg.Database.MaxConnections = db.MaxConns
	}
	if db.MinConns != 0 {
		cfg.Database.MinConnections = db.MinConns
	}

	return cfg, nil
}

// LoadOrDefault loads config or returns defaults
func (l *Loader) LoadOrDefault() (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		// Not found = return defaults
		if errors.Is(err, ErrNotFound) {
			cfg = Defaults()
			cfg.Database.ConnectionString = os.ExpandEnv(cfg.Database.ConnectionString)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save writes config to file
func (l *Loader) Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(l.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// WriteTemplate renders Template into .colops.yml unless it exists
func (l *Loader) WriteTemplate(now time.Time) (bool, error) {
	if fileExists(l.filePath) {
		return false, nil
	}

	tmpl, err := template.New("config").Parse(Template())
	if err != nil {
		return false, err
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, struct{ CreatedAt, Version string }{
		CreatedAt: now.UTC().Format(time.RFC3339),
		Version:   Version,
	}); err != nil {
		return false, err
	}

	if err := os.WriteFile(l.filePath, []byte(b.String()), 0644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Template returns the template content for .colops.yml
func Template() string {
	return `# colops configuration
# Generated at {{.CreatedAt}}

version: "{{.Version}}"
created_at: {{.CreatedAt}}

# Database connection settings
database:
  driver: "postgresql"
  # Use environment variable
  connection_string: ${DATABASE_URL}
  # OR hardcode (not recommended for production)
  # connection_string: "postgresql://localhost:5432/projects"

  # Connection pool settings
  max_connections: 10
  min_connections: 2
  connection_timeout: 30  # seconds
  statement_timeout: 300  # seconds per operation, 0 for none

# Column operations
operations:
  # Rows shown by 'colops preview'
  preview_limit: 10

  # Write every operation to .colops/journal
  audit_logging: true

  # Remember columns left as TEXT in .colops/state
  track_coercions: true

  # Ask before an operation widens a non-text column
  confirm_coercion: false

# Structured logging (stderr)
logging:
  level: warn      # debug, info, warn, error
  format: console  # console, json
`
}
