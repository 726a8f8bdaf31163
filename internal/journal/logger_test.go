package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedErr struct{}

func (codedErr) Error() string { return "column 'x' does not exist" }
func (codedErr) Code() string  { return "COLUMN_NOT_FOUND" }

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)
	return l
}

func TestLogOperationRoundTrip(t *testing.T) {
	l := newTestLogger(t)

	err := l.LogOperation("op-1", "replace", StatusOK, 1500*time.Millisecond,
		map[string]interface{}{"table": "test", "column": "age", "affected_rows": 2}, nil)
	require.NoError(t, err)

	entries, err := l.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "op-1", e.OperationID)
	assert.Equal(t, "replace", e.Action)
	assert.Equal(t, StatusOK, e.Status)
	assert.Equal(t, int64(1500), e.Duration)
	assert.Equal(t, "age", e.Details["column"])
	assert.Equal(t, float64(2), e.Details["affected_rows"])
	assert.True(t, e.IsOperation())
}

func TestLogErrorKeepsCode(t *testing.T) {
	l := newTestLogger(t)

	require.NoError(t, l.LogError("trim", codedErr{}, nil))
	require.NoError(t, l.LogError("inspect", errors.New("plain"), nil))

	errs, err := l.Errors()
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "COLUMN_NOT_FOUND", errs[0].Code)
	assert.Empty(t, errs[1].Code)
	assert.Equal(t, "plain", errs[1].Error)
}

func TestLastAndFilters(t *testing.T) {
	l := newTestLogger(t)

	require.NoError(t, l.Log("init", StatusOK, nil, nil))
	require.NoError(t, l.LogOperation("a", "trim", StatusNoop, 0, nil, nil))
	require.NoError(t, l.LogOperation("b", "lowercase", StatusOK, 0, nil, nil))
	require.NoError(t, l.LogOperation("c", "replace", StatusError, 0, nil, errors.New("boom")))

	last, err := l.Last(2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].OperationID)
	assert.Equal(t, "c", last[1].OperationID)

	all, err := l.Last(0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	ops, err := l.Operations()
	require.NoError(t, err)
	assert.Len(t, ops, 3)

	found, err := l.Find("b")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "lowercase", found[0].Action)
}

func TestEntriesSpanDays(t *testing.T) {
	l := newTestLogger(t)

	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return day }
	require.NoError(t, l.LogOperation("first", "trim", StatusOK, 0, nil, nil))

	day = day.Add(2 * time.Minute)
	require.NoError(t, l.LogOperation("second", "trim", StatusOK, 0, nil, nil))

	files, err := filepath.Glob(filepath.Join(l.journalDir, "*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	entries, err := l.All()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].OperationID)
	assert.Equal(t, "second", entries[1].OperationID)

	index, err := l.LoadIndex()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", index.Date)
	assert.Equal(t, 1, index.Entries, "index resets on a new day")
}

func TestIndexCounts(t *testing.T) {
	l := newTestLogger(t)

	require.NoError(t, l.LogOperation("a", "trim", StatusOK, 0, nil, nil))
	require.NoError(t, l.LogOperation("b", "trim", StatusNoop, 0, nil, nil))
	require.NoError(t, l.LogError("replace", errors.New("x"), nil))

	index, err := l.LoadIndex()
	require.NoError(t, err)
	assert.Equal(t, 3, index.Entries)
	assert.Equal(t, 2, index.ByAction["trim"])
	assert.Equal(t, 1, index.ByStatus[StatusError])
}

func TestEmptyJournal(t *testing.T) {
	l := newTestLogger(t)

	last, err := l.Last(10)
	require.NoError(t, err)
	assert.Empty(t, last)

	index, err := l.LoadIndex()
	require.NoError(t, err)
	assert.Zero(t, index.Entries)
}

func TestMalformedLine(t *testing.T) {
	l := newTestLogger(t)
	path := filepath.Join(l.journalDir, "2026-01-01.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"action\":\"trim\"}\n\nnot json\n"), 0644))

	_, err := l.All()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2026-01-01.jsonl:3")
}
