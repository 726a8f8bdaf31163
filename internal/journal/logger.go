package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Status values written by the CLI
const (
	StatusOK    = "ok"
	StatusNoop  = "noop"
	StatusError = "error"
)

// Entry represents a single journal entry
type Entry struct {
	Timestamp   time.Time              `json:"timestamp"`
	OperationID string                 `json:"operation_id,omitempty"`
	Action      string                 `json:"action"`
	Status      string                 `json:"status"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Code        string                 `json:"code,omitempty"`
	Duration    int64                  `json:"duration_ms,omitempty"`
}

// IsOperation reports whether the entry records a column operation
func (e *Entry) IsOperation() bool {
	return e.OperationID != ""
}

// Index summarizes the entries written today
type Index struct {
	Date     string         `json:"date"`
	Entries  int            `json:"entries"`
	ByAction map[string]int `json:"by_action"`
	ByStatus map[string]int `json:"by_status"`
}

// Logger is an append-only journal logger.
// Each day gets one file of JSON lines, plus index.json for today.
type Logger struct {
	journalDir string
	now        func() time.Time
	mu         sync.Mutex
	indexMu    sync.Mutex
}

// NewLogger creates a new journal logger
func NewLogger(journalDir string) (*Logger, error) {
	// Create directory if not exists
	if err := os.MkdirAll(journalDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &Logger{
		journalDir: journalDir,
		now:        time.Now,
	}, nil
}

// Log appends an entry to the journal
func (l *Logger) Log(action, status string, details map[string]interface{}, err error) error {
	entry := Entry{
		Action:  action,
		Status:  status,
		Details: details,
	}
	setError(&entry, err)
	return l.logEntry(&entry)
}

// LogOperation records the outcome of a column operation
func (l *Logger) LogOperation(operationID, action, status string, duration time.Duration, details map[string]interface{}, err error) error {
	entry := Entry{
		OperationID: operationID,
		Action:      action,
		Status:      status,
		Details:     details,
		Duration:    duration.Milliseconds(),
	}
	setError(&entry, err)
	return l.logEntry(&entry)
}

// LogError logs an error event
func (l *Logger) LogError(action string, err error, details map[string]interface{}) error {
	return l.Log(action, StatusError, details, err)
}

type coded interface {
	Code() string
}

func setError(e *Entry, err error) {
	if err == nil {
		return
	}
	e.Error = err.Error()
	var c coded
	if errors.As(err, &c) {
		e.Code = c.Code()
	}
}

// logEntry writes entry to file and updates index
func (l *Logger) logEntry(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Timestamp = l.now().UTC()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	f, err := os.OpenFile(l.logFile(entry.Timestamp), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}

	// Don't fail on index error, just report it
	if err := l.updateIndex(entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to update index: %v\n", err)
	}

	return nil
}

// logFile returns the path of the log file for day t
func (l *Logger) logFile(t time.Time) string {
	return filepath.Join(l.journalDir, t.Format("2006-01-02")+".jsonl")
}

// updateIndex updates the daily index
func (l *Logger) updateIndex(e *Entry) error {
	l.indexMu.Lock()
	defer l.indexMu.Unlock()

	index, err := l.LoadIndex()
	if err != nil {
		return err
	}

	today := e.Timestamp.Format("2006-01-02")
	if index.Date != today {
		index = &Index{Date: today}
	}
	if index.ByAction == nil {
		index.ByAction = make(map[string]int)
	}
	if index.ByStatus == nil {
		index.ByStatus = make(map[string]int)
	}

	index.Entries++
	index.ByAction[e.Action]++
	index.ByStatus[e.Status]++

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(l.journalDir, "index.json"), data, 0644)
}

// LoadIndex reads index.json, returning an empty index when absent
func (l *Logger) LoadIndex() (*Index, error) {
	data, err := os.ReadFile(filepath.Join(l.journalDir, "index.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{}, nil
		}
		return nil, err
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return &index, nil
}

// ============================================================
// READING
// ============================================================

// All returns every entry in chronological order
func (l *Logger) All() ([]*Entry, error) {
	files, err := filepath.Glob(filepath.Join(l.journalDir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	// Day-stamped names sort chronologically
	sort.Strings(files)

	entries := []*Entry{}
	for _, file := range files {
		fileEntries, err := readEntries(file)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}

// Last returns the last N entries, oldest first
func (l *Logger) Last(n int) ([]*Entry, error) {
	entries, err := l.All()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Errors returns all error entries
func (l *Logger) Errors() ([]*Entry, error) {
	return l.filter(func(e *Entry) bool { return e.Status == StatusError })
}

// Operations returns every column operation entry
func (l *Logger) Operations() ([]*Entry, error) {
	return l.filter((*Entry).IsOperation)
}

// Find returns the entries of one operation
func (l *Logger) Find(operationID string) ([]*Entry, error) {
	return l.filter(func(e *Entry) bool { return e.OperationID == operationID })
}

func (l *Logger) filter(keep func(*Entry) bool) ([]*Entry, error) {
	entries, err := l.All()
	if err != nil {
		return nil, err
	}

	out := []*Entry{}
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// readEntries parses one day file. Blank lines are skipped; a malformed line
// is an error naming the file and line.
func readEntries(path string) ([]*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []*Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var e Entry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		entries = append(entries, &e)
	}

	return entries, scanner.Err()
}
