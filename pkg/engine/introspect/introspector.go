package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is the read-only subset of a pgx connection the inspector needs.
// *pgxpool.Pool, *pgx.Conn and pgx.Tx all satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ColumnType is the declared type of a column
type ColumnType struct {
	// Name is the canonical upper-case form, e.g. "INTEGER", "CHARACTER VARYING(50)"
	Name string
	// SQL is the type as the catalog prints it, safe to splice back into DDL
	SQL string
	// Default is the column default as the catalog prints it, "" when none
	Default string
}

// ColumnInfo represents a column
type ColumnInfo struct {
	Name     string
	Type     ColumnType
	Nullable bool
	Position int
}

// TableInfo represents a table structure
type TableInfo struct {
	Name    string
	Columns []ColumnInfo
}

// Column returns the named column, or nil
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// NotFoundError reports a table or column missing from the catalog
type NotFoundError struct {
	Kind   string // "table" or "column"
	Table  string
	Column string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "column" {
		return fmt.Sprintf("NotFoundError: column '%s' does not exist in table '%s'", e.Column, e.Table)
	}
	return fmt.Sprintf("NotFoundError: table '%s' does not exist", e.Table)
}

func (e *NotFoundError) Code() string {
	if e.Kind == "column" {
		return "COLUMN_NOT_FOUND"
	}
	return "TABLE_NOT_FOUND"
}

// Canonical normalizes a catalog type name so string comparisons are stable
func Canonical(sqlType string) string {
	return strings.ToUpper(strings.Join(strings.Fields(sqlType), " "))
}

// Inspector reads column types from the PostgreSQL catalog
type Inspector struct {
	db Querier
}

// NewInspector creates an inspector over db
func NewInspector(db Querier) *Inspector {
	return &Inspector{db: db}
}

// tableRef is the argument to to_regclass for an opaque table name
func tableRef(table string) string {
	return pgx.Identifier{table}.Sanitize()
}

// Describe returns the declared type and default of table.column
func (i *Inspector) Describe(ctx context.Context, table, column string) (ColumnType, error) {
	var (
		tableExists  bool
		columnExists bool
		sqlType      string
		def          string
	)

	err := i.db.QueryRow(ctx, `
		SELECT c.oid IS NOT NULL,
			a.attnum IS NOT NULL,
			coalesce(format_type(a.atttypid, a.atttypmod), ''),
			coalesce(pg_get_expr(d.adbin, d.adrelid), '')
		FROM (SELECT to_regclass($1::text) AS oid) c
		LEFT JOIN pg_attribute a
			ON a.attrelid = c.oid
			AND a.attname = $2
			AND a.attnum > 0
			AND NOT a.attisdropped
		LEFT JOIN pg_attrdef d
			ON d.adrelid = a.attrelid
			AND d.adnum = a.attnum
	`, tableRef(table), column).Scan(&tableExists, &columnExists, &sqlType, &def)
	if err != nil {
		return ColumnType{}, fmt.Errorf("failed to read type of %s.%s: %w", table, column, err)
	}

	if !tableExists {
		return ColumnType{}, &NotFoundError{Kind: "table", Table: table}
	}
	if !columnExists {
		return ColumnType{}, &NotFoundError{Kind: "column", Table: table, Column: column}
	}

	return ColumnType{Name: Canonical(sqlType), SQL: sqlType, Default: def}, nil
}

// TypeOf returns the canonical type name of table.column
func (i *Inspector) TypeOf(ctx context.Context, table, column string) (string, error) {
	ct, err := i.Describe(ctx, table, column)
	if err != nil {
		return "", err
	}
	return ct.Name, nil
}

// ListTables returns the base tables visible in the current schema
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// InspectTable returns every live column of table in ordinal order
func (i *Inspector) InspectTable(ctx context.Context, table string) (*TableInfo, error) {
	var exists bool
	if err := i.db.QueryRow(ctx, `SELECT to_regclass($1::text) IS NOT NULL`, tableRef(table)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	if !exists {
		return nil, &NotFoundError{Kind: "table", Table: table}
	}

	rows, err := i.db.Query(ctx, `
		SELECT a.attname, format_type(a.atttypid, a.atttypmod), coalesce(pg_get_expr(d.adbin, d.adrelid), ''),
			NOT a.attnotnull, a.attnum
		FROM pg_attribute a
		LEFT JOIN pg_attrdef d
			ON d.adrelid = a.attrelid
			AND d.adnum = a.attnum
		WHERE a.attrelid = to_regclass($1::text)
			AND a.attnum > 0
			AND NOT a.attisdropped
		ORDER BY a.attnum
	`, tableRef(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info := &TableInfo{
		Name:    table,
		Columns: []ColumnInfo{},
	}

	for rows.Next() {
		var (
			col     ColumnInfo
			sqlType string
			def     string
			pos     int16
		)
		if err := rows.Scan(&col.Name, &sqlType, &def, &col.Nullable, &pos); err != nil {
			return nil, err
		}
		col.Type = ColumnType{Name: Canonical(sqlType), SQL: sqlType, Default: def}
		col.Position = int(pos)
		info.Columns = append(info.Columns, col)
	}

	return info, rows.Err()
}

// GetAllTables returns the structure of every table in the current schema
func (i *Inspector) GetAllTables(ctx context.Context) ([]TableInfo, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var result []TableInfo
	for _, name := range tables {
		table, err := i.InspectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect table %s: %w", name, err)
		}
		result = append(result, *table)
	}

	return result, nil
}
