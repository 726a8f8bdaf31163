package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chameleon-db/colops/internal/admin"
	"github.com/chameleon-db/colops/internal/config"
	"github.com/chameleon-db/colops/internal/journal"
	"github.com/chameleon-db/colops/internal/state"
	"github.com/chameleon-db/colops/pkg/engine"
	"github.com/chameleon-db/colops/pkg/engine/operation"
)

func TestBuildRequest(t *testing.T) {
	flags := replaceFlags{find: "25", replace: "35", wholeWord: true}

	req := buildRequest(operation.Replace, []string{"test", "age"}, flags.params())

	assert.Equal(t, "test", req.Ref.Table)
	assert.Equal(t, "age", req.Ref.Column)
	assert.Equal(t, operation.Replace, req.Kind)
	assert.Equal(t, "25", req.Params.Find)
	assert.Equal(t, "35", req.Params.Replace)
	assert.True(t, req.Params.WholeWord)
	assert.False(t, req.Params.CaseSensitive)
	assert.NoError(t, req.Validate())
}

func TestBuildRequestMissingFind(t *testing.T) {
	req := buildRequest(operation.Replace, []string{"test", "age"}, operation.Params{})
	assert.True(t, engine.IsValidation(req.Validate()))
}

func TestJournalStatus(t *testing.T) {
	assert.Equal(t, journal.StatusOK, journalStatus(&engine.Result{AffectedRows: 2}, nil))
	assert.Equal(t, journal.StatusNoop, journalStatus(&engine.Result{}, nil))
	assert.Equal(t, journal.StatusError, journalStatus(&engine.Result{AffectedRows: 2}, errors.New("boom")))
}

func TestOperationDetails(t *testing.T) {
	req := buildRequest(operation.Replace, []string{"test", "age"}, operation.Params{Find: "25", Replace: "35"})
	result := &engine.Result{
		AffectedRows: 2,
		OriginalType: "INTEGER",
		FinalType:    "TEXT",
		Coerced:      true,
		Duration:     time.Millisecond,
	}

	details := operationDetails(req, result)

	assert.Equal(t, "test", details["table"])
	assert.Equal(t, "age", details["column"])
	assert.Equal(t, "25", details["find"])
	assert.Equal(t, int64(2), details["affected_rows"])
	assert.Equal(t, "INTEGER", details["original_type"])
	assert.Equal(t, true, details["coerced"])
	assert.Equal(t, false, details["reverted"])
}

func TestOperationDetailsWithoutResult(t *testing.T) {
	req := buildRequest(operation.Trim, []string{"users", "email"}, operation.Params{})

	details := operationDetails(req, nil)

	assert.Len(t, details, 2)
	assert.NotContains(t, details, "find")
}

func TestRecordWritesJournalAndCoercion(t *testing.T) {
	sess := newRecordingSession(t)
	req := buildRequest(operation.Replace, []string{"test", "age"}, operation.Params{Find: "25", Replace: "35"})
	result := &engine.Result{
		OperationID:  "op-1",
		Kind:         operation.Replace,
		AffectedRows: 2,
		OriginalType: "INTEGER",
		FinalType:    "TEXT",
		Coerced:      true,
	}

	sess.record(req, result, nil)

	entries, err := sess.journal.Operations()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "op-1", entries[0].OperationID)
	assert.Equal(t, "replace", entries[0].Action)
	assert.Equal(t, journal.StatusOK, entries[0].Status)

	coercions, err := sess.tracker.Coercions()
	require.NoError(t, err)
	require.Len(t, coercions, 1)
	assert.Equal(t, "INTEGER", coercions[0].OriginalType)

	current, err := sess.tracker.LoadCurrent()
	require.NoError(t, err)
	assert.Equal(t, "op-1", current.LastOperation)
}

func TestRecordRevertedOperationLeavesNoCoercion(t *testing.T) {
	sess := newRecordingSession(t)
	req := buildRequest(operation.Replace, []string{"test", "age"}, operation.Params{Find: "99", Replace: "35"})
	result := &engine.Result{OperationID: "op-2", OriginalType: "INTEGER", FinalType: "INTEGER", Coerced: true, Reverted: true}

	sess.record(req, result, nil)

	entries, err := sess.journal.Find("op-2")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusNoop, entries[0].Status)

	coercions, err := sess.tracker.Coercions()
	require.NoError(t, err)
	assert.Empty(t, coercions)
}

func TestRecordFailure(t *testing.T) {
	sess := newRecordingSession(t)
	req := buildRequest(operation.Trim, []string{"missing", "c"}, operation.Params{})

	sess.record(req, nil, &engine.NotFoundError{Kind: "table", Table: "missing"})

	entries, err := sess.journal.Errors()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "TABLE_NOT_FOUND", entries[0].Code)

	current, err := sess.tracker.LoadCurrent()
	require.NoError(t, err)
	assert.Zero(t, current.Operations)
}

func TestConfirmCoercionAnswer(t *testing.T) {
	for input, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		got, err := readConfirmation(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
	}
}

// previewMock answers the describe, count and sample statements of a Preview
func previewMock(t *testing.T, sqlType string, total int64) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	mock.ExpectQuery("pg_attrdef").
		WillReturnRows(pgxmock.NewRows([]string{"table_exists", "column_exists", "type", "default"}).
			AddRow(true, true, sqlType, ""))
	mock.ExpectQuery(`^SELECT COUNT\(\*\)`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(total))
	if total > 0 {
		mock.ExpectQuery("AS before").
			WithArgs("25", "35", "g", 1).
			WillReturnRows(pgxmock.NewRows([]string{"before", "after"}).AddRow("25", "35"))
	}
	return mock
}

func TestConfirmCoercionPromptsOnCommandOutput(t *testing.T) {
	req := buildRequest(operation.Replace, []string{"test", "age"},
		operation.Params{Find: "25", Replace: "35", CaseSensitive: true})

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"accepted", "y\n", true},
		{"declined", "n\n", false},
		{"closed input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			eng := engine.New(previewMock(t, "integer", 2))

			proceed, err := confirmCoercion(context.Background(), eng, req, strings.NewReader(tt.input), &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, proceed)

			assert.Contains(t, out.String(), "test.age is INTEGER; 2 row(s) would change and the column would become TEXT")
			assert.True(t, strings.HasSuffix(out.String(), "Continue? [y/N] "), "prompt ends the output: %q", out.String())
		})
	}
}

func TestConfirmCoercionSkipsPrompt(t *testing.T) {
	req := buildRequest(operation.Replace, []string{"test", "age"},
		operation.Params{Find: "25", Replace: "35", CaseSensitive: true})

	for _, tc := range []struct {
		sqlType string
		total   int64
	}{
		{"text", 2},
		{"integer", 0},
	} {
		var out bytes.Buffer
		eng := engine.New(previewMock(t, tc.sqlType, tc.total))

		proceed, err := confirmCoercion(context.Background(), eng, req, strings.NewReader(""), &out)
		require.NoError(t, err)
		assert.True(t, proceed)
		assert.Empty(t, out.String(), "%s with %d rows", tc.sqlType, tc.total)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "3f2a9c1b", shortID("3f2a9c1b-0000-4000-8000-000000000000"))
}

func newRecordingSession(t *testing.T) *session {
	t.Helper()

	factory := admin.NewManagerFactory(t.TempDir())
	require.NoError(t, factory.Initialize())

	logger, err := factory.CreateJournalLogger()
	require.NoError(t, err)
	tracker, err := factory.CreateStateTracker()
	require.NoError(t, err)

	return &session{
		cfg:      config.Defaults(),
		factory:  factory,
		journal:  logger,
		tracker:  tracker,
		logger:   zap.NewNop(),
		database: state.DatabaseState{Driver: "postgresql", Host: "localhost", Port: 5432, Database: "colops"},
	}
}
