package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Row is a single result row keyed by column name
type Row map[string]interface{}

// Executor runs statements on a Querier, echoing them through the debug context
type Executor struct {
	db    Querier
	debug *DebugContext
}

// NewExecutor creates an executor over db
func NewExecutor(db Querier, debug *DebugContext) *Executor {
	if debug == nil {
		debug = DefaultDebugContext()
	}
	return &Executor{db: db, debug: debug}
}

// Exec runs a statement that returns no rows and reports the rows it touched
func (ex *Executor) Exec(ctx context.Context, stmt Statement) (int64, error) {
	ex.debug.LogStatement(stmt)
	ex.explain(ctx, stmt)

	start := time.Now()
	tag, err := ex.db.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, err
	}

	affected := tag.RowsAffected()
	ex.debug.LogQuery(stmt.SQL, time.Since(start), affected)
	return affected, nil
}

// QueryRow runs a single-row statement and scans it into dest
func (ex *Executor) QueryRow(ctx context.Context, stmt Statement, dest ...any) error {
	ex.debug.LogStatement(stmt)
	ex.explain(ctx, stmt)

	start := time.Now()
	if err := ex.db.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(dest...); err != nil {
		return err
	}

	ex.debug.LogQuery(stmt.SQL, time.Since(start), 1)
	return nil
}

// Query runs a statement and collects every row
func (ex *Executor) Query(ctx context.Context, stmt Statement) ([]Row, error) {
	ex.debug.LogStatement(stmt)

	start := time.Now()
	rows, err := ex.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	ex.debug.LogQuery(stmt.SQL, time.Since(start), int64(len(result)))
	return result, nil
}

// explain prints the plan of SELECT and UPDATE statements at DebugExplain.
// EXPLAIN without ANALYZE never executes the statement.
func (ex *Executor) explain(ctx context.Context, stmt Statement) {
	if ex.debug.Level < DebugExplain {
		return
	}

	head := strings.ToUpper(strings.TrimSpace(stmt.SQL))
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "UPDATE") {
		return
	}

	rows, err := ex.db.Query(ctx, "EXPLAIN "+stmt.SQL, stmt.Args...)
	if err != nil {
		ex.debug.Log(DebugExplain, "explain failed: %v", err)
		return
	}
	defer rows.Close()

	var plan []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			ex.debug.Log(DebugExplain, "explain failed: %v", err)
			return
		}
		plan = append(plan, line)
	}
	ex.debug.LogPlan(plan)
}

// scanRows converts pgx rows into our Row type
func scanRows(rows pgx.Rows) ([]Row, error) {
	var result []Row
	columns := rows.FieldDescriptions()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row)
		for i, col := range columns {
			row[col.Name] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
