package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Version is written into every saved state file
const Version = "0.1.0"

// CurrentState records where the workspace last operated
type CurrentState struct {
	Version         string        `json:"version"`
	Timestamp       time.Time     `json:"timestamp"`
	Database        DatabaseState `json:"database"`
	LastOperation   string        `json:"last_operation,omitempty"`
	LastOperationAt time.Time     `json:"last_operation_at,omitempty"`
	Operations      int           `json:"operations"`
}

// DatabaseState holds database metadata
type DatabaseState struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
}

// Coercion records a column that was widened to TEXT and kept that way
// because an operation changed at least one of its rows.
type Coercion struct {
	OperationID  string    `json:"operation_id"`
	Table        string    `json:"table"`
	Column       string    `json:"column"`
	OriginalType string    `json:"original_type"`
	Operation    string    `json:"operation"`
	AffectedRows int64     `json:"affected_rows"`
	CoercedAt    time.Time `json:"coerced_at"`
}

// Manifest holds all recorded coercions
type Manifest struct {
	Coercions []*Coercion `json:"coercions"`
}

// Find returns the coercion recorded for table.column, or nil
func (m *Manifest) Find(table, column string) *Coercion {
	for _, c := range m.Coercions {
		if c.Table == table && c.Column == column {
			return c
		}
	}
	return nil
}

// Tracker manages state files
type Tracker struct {
	stateDir string
	mu       sync.Mutex
}

// NewTracker creates a new state tracker
func NewTracker(stateDir string) (*Tracker, error) {
	// Create directory if not exists
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Tracker{
		stateDir: stateDir,
	}, nil
}

// LoadCurrent loads the current state
func (t *Tracker) LoadCurrent() (*CurrentState, error) {
	stateFile := filepath.Join(t.stateDir, "current.state.json")

	data, err := os.ReadFile(stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &CurrentState{Version: Version}, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var state CurrentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	return &state, nil
}

// SaveCurrent saves the current state
func (t *Tracker) SaveCurrent(state *CurrentState) error {
	state.Timestamp = time.Now().UTC()
	state.Version = Version

	return writeJSON(filepath.Join(t.stateDir, "current.state.json"), state)
}

// RecordOperation bumps the operation counter in the current state
func (t *Tracker) RecordOperation(operationID string, db DatabaseState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.LoadCurrent()
	if err != nil {
		return err
	}

	current.Database = db
	current.LastOperation = operationID
	current.LastOperationAt = time.Now().UTC()
	current.Operations++

	return t.SaveCurrent(current)
}

// LoadManifest loads the coercion manifest
func (t *Tracker) LoadManifest() (*Manifest, error) {
	manifestFile := filepath.Join(t.stateDir, "coercions", "manifest.json")

	data, err := os.ReadFile(manifestFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{Coercions: []*Coercion{}}, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Coercions == nil {
		manifest.Coercions = []*Coercion{}
	}

	return &manifest, nil
}

// SaveManifest saves the coercion manifest
func (t *Tracker) SaveManifest(manifest *Manifest) error {
	coercionsDir := filepath.Join(t.stateDir, "coercions")
	if err := os.MkdirAll(coercionsDir, 0755); err != nil {
		return fmt.Errorf("failed to create coercions directory: %w", err)
	}

	return writeJSON(filepath.Join(coercionsDir, "manifest.json"), manifest)
}

// RecordCoercion adds c to the manifest. A column already recorded keeps its
// first entry, since that one holds the type it had before any operation.
func (t *Tracker) RecordCoercion(c *Coercion) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	manifest, err := t.LoadManifest()
	if err != nil {
		return false, err
	}

	if manifest.Find(c.Table, c.Column) != nil {
		return false, nil
	}

	if c.CoercedAt.IsZero() {
		c.CoercedAt = time.Now().UTC()
	}
	manifest.Coercions = append(manifest.Coercions, c)

	return true, t.SaveManifest(manifest)
}

// Coercions returns every recorded coercion, oldest first
func (t *Tracker) Coercions() ([]*Coercion, error) {
	manifest, err := t.LoadManifest()
	if err != nil {
		return nil, err
	}
	return manifest.Coercions, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return nil
}
