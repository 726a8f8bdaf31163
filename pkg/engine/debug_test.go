package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDebugContext verifies debug context creation
func TestDebugContextCreation(t *testing.T) {
	dc := DefaultDebugContext()

	assert.Equal(t, DebugNone, dc.Level)
	assert.NotNil(t, dc.Writer)
	assert.True(t, dc.ColorOutput)
}

func TestDebugContextFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  DebugLevel
	}{
		{"", DebugNone},
		{"0", DebugNone},
		{"1", DebugSQL},
		{"sql", DebugSQL},
		{"trace", DebugTrace},
		{"explain", DebugExplain},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("COLOPS_DEBUG", tt.value)
			assert.Equal(t, tt.want, DebugContextFromEnv().Level)
		})
	}
}

// TestDebugLog verifies SQL logging with different levels
func TestDebugLogSQL(t *testing.T) {
	tests := []struct {
		name     string
		level    DebugLevel
		sqlText  string
		expected string
	}{
		{
			name:     "DebugSQL outputs SQL",
			level:    DebugSQL,
			sqlText:  `SELECT COUNT(*) FROM "test" WHERE "name" <> lower("name")`,
			expected: `lower("name")`,
		},
		{
			name:     "DebugNone outputs nothing",
			level:    DebugNone,
			sqlText:  `SELECT COUNT(*) FROM "test"`,
			expected: "",
		},
		{
			name:     "DebugTrace outputs SQL",
			level:    DebugTrace,
			sqlText:  `UPDATE "test" SET "name" = upper("name")`,
			expected: `upper("name")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			dc := &DebugContext{
				Level:       tt.level,
				Writer:      &buf,
				ColorOutput: false,
			}

			dc.LogSQL(tt.sqlText)
			output := buf.String()

			if tt.expected == "" {
				assert.Empty(t, output, "expected no output for level %d", tt.level)
			} else {
				assert.Contains(t, output, tt.expected)
				assert.Contains(t, output, "[SQL]")
			}
		})
	}
}

func TestDebugLogStatementArgs(t *testing.T) {
	var buf bytes.Buffer
	dc := &DebugContext{Level: DebugSQL, Writer: &buf}

	dc.LogStatement(Statement{SQL: "SELECT $1, $2", Args: []interface{}{"a.b", 5}})
	output := buf.String()

	assert.Contains(t, output, "SELECT $1, $2")
	assert.Contains(t, output, `$1 = "a.b"`)
	assert.Contains(t, output, "$2 = 5")
}

// TestDebugLogQuery verifies query trace logging
func TestDebugLogQuery(t *testing.T) {
	var buf bytes.Buffer

	dc := &DebugContext{
		Level:       DebugTrace,
		Writer:      &buf,
		ColorOutput: false,
	}

	dc.LogQuery(`UPDATE "test" SET "age" = '35'`, 5, 10)
	output := buf.String()

	assert.Contains(t, output, "Query Trace")
	assert.Contains(t, output, `UPDATE "test"`)
	assert.Contains(t, output, "Rows: 10")
}

// TestDebugLogFilter verifies logging respects debug level
func TestDebugLogFilter(t *testing.T) {
	tests := []struct {
		name       string
		debugLevel DebugLevel
		logLevel   DebugLevel
		shouldLog  bool
	}{
		{"DebugSQL >= DebugSQL", DebugSQL, DebugSQL, true},
		{"DebugTrace >= DebugSQL", DebugTrace, DebugSQL, true},
		{"DebugSQL < DebugTrace", DebugSQL, DebugTrace, false},
		{"DebugNone < DebugSQL", DebugNone, DebugSQL, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			dc := &DebugContext{
				Level:       tt.debugLevel,
				Writer:      &buf,
				ColorOutput: false,
			}

			dc.Log(tt.logLevel, "test message")
			output := buf.String()

			if tt.shouldLog {
				assert.Contains(t, output, "test message")
			} else {
				assert.Empty(t, output)
			}
		})
	}
}

// TestDebugPrefixes verifies color and text prefixes
func TestDebugPrefixes(t *testing.T) {
	tests := []struct {
		name        string
		level       DebugLevel
		colorPrefix string
		textPrefix  string
	}{
		{"DebugSQL", DebugSQL, "\033[36m[DEBUG]\033[0m ", "[DEBUG] "},
		{"DebugTrace", DebugTrace, "\033[33m[TRACE]\033[0m ", "[TRACE] "},
		{"DebugExplain", DebugExplain, "\033[35m[EXPLAIN]\033[0m ", "[EXPLAIN] "},
		{"DebugNone", DebugNone, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.colorPrefix, colorPrefix(tt.level))
			assert.Equal(t, tt.textPrefix, textPrefix(tt.level))
		})
	}
}

// TestEngineWithDebug verifies engine debug context
func TestEngineWithDebug(t *testing.T) {
	t.Setenv("COLOPS_DEBUG", "")

	eng := New(newMock(t))
	assert.Equal(t, DebugNone, eng.Debug.Level)

	eng2 := eng.WithDebug(DebugSQL)
	assert.Equal(t, DebugSQL, eng2.Debug.Level)
	assert.Same(t, eng.Debug, eng.executor.debug)

	eng3 := eng.WithDebug(DebugTrace)
	assert.Equal(t, DebugTrace, eng3.Debug.Level)
}

func TestEngineEchoesStatements(t *testing.T) {
	var buf bytes.Buffer

	mock := newMock(t)
	expectDescribe(mock, ageRef, "integer", "")
	expectWiden(mock, ageRef).WillReturnResult(altered())
	expectCount(mock, ageRef).WillReturnRows(countRows(1))
	expectUpdate(mock, ageRef).WillReturnResult(updated(1))

	eng := New(mock).WithDebug(DebugTrace)
	eng.Debug.Writer = &buf
	eng.Debug.ColorOutput = false

	_, err := eng.Trim(context.Background(), ageRef)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, `TYPE TEXT USING "age"::TEXT`)
	assert.Contains(t, output, `UPDATE "test" SET "age"`)
	assert.Contains(t, output, "Query Trace")
}

func TestExecutorExplain(t *testing.T) {
	var buf bytes.Buffer

	// ALTER is never explained, so it is the only statement after the count.
	mock := newMock(t)
	mock.ExpectQuery(`^EXPLAIN SELECT COUNT\(\*\) FROM "test"$`).
		WillReturnRows(pgxmock.NewRows([]string{"QUERY PLAN"}).
			AddRow("Seq Scan on test").
			AddRow("  Filter: (name <> lower(name))"))
	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM "test"$`).WillReturnRows(countRows(4))
	mock.ExpectExec(`^ALTER TABLE`).WillReturnResult(altered())

	ex := NewExecutor(mock, &DebugContext{Level: DebugExplain, Writer: &buf})

	var n int64
	require.NoError(t, ex.QueryRow(context.Background(), Statement{SQL: `SELECT COUNT(*) FROM "test"`}, &n))
	assert.Equal(t, int64(4), n)
	assert.Contains(t, buf.String(), "Seq Scan on test")

	buf.Reset()
	_, err := ex.Exec(context.Background(), Statement{SQL: `ALTER TABLE "test" ALTER COLUMN "n" TYPE TEXT`})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "[EXPLAIN]")
}
