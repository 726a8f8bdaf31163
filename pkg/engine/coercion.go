package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/chameleon-db/colops/pkg/engine/introspect"
)

// textTypes are the base names of types string operations run on directly
var textTypes = map[string]struct{}{
	"TEXT":              {},
	"CHARACTER VARYING": {},
	"VARCHAR":           {},
	"CHARACTER":         {},
	"CHAR":              {},
	"BPCHAR":            {},
	"NAME":              {},
	"CITEXT":            {},
}

// IsTextType reports whether a canonical type name belongs to a text family.
// Length modifiers and schema qualifiers are ignored; arrays are never text.
func IsTextType(canonical string) bool {
	name := strings.TrimSpace(canonical)
	if strings.HasSuffix(name, "]") {
		return false
	}
	if i := strings.Index(name, "("); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Trim(name, `"`)

	_, ok := textTypes[name]
	return ok
}

// TypeCoercer widens columns to TEXT and narrows them back
type TypeCoercer struct {
	inspector *introspect.Inspector
	executor  *Executor
}

// NewTypeCoercer creates a coercer
func NewTypeCoercer(inspector *introspect.Inspector, executor *Executor) *TypeCoercer {
	return &TypeCoercer{inspector: inspector, executor: executor}
}

// EnsureStringType inspects ref and widens it to TEXT when its type is not
// text-like. It returns the type the column had before and whether it changed.
func (c *TypeCoercer) EnsureStringType(ctx context.Context, ref ColumnRef) (ColumnType, bool, error) {
	original, err := c.inspector.Describe(ctx, ref.Table, ref.Column)
	if err != nil {
		return ColumnType{}, false, err
	}

	converted, err := c.Coerce(ctx, ref, original)
	return original, converted, err
}

// Coerce widens ref to TEXT unless current is already text-like
func (c *TypeCoercer) Coerce(ctx context.Context, ref ColumnRef, current ColumnType) (bool, error) {
	if IsTextType(current.Name) {
		return false, nil
	}

	if _, err := c.executor.Exec(ctx, widenStatement(ref)); err != nil {
		return false, err
	}
	return true, nil
}

// RevertType restores ref to original, the type and default reported before
// widening. This is a compensating statement, not a rollback.
func (c *TypeCoercer) RevertType(ctx context.Context, ref ColumnRef, original ColumnType) error {
	_, err := c.executor.Exec(ctx, revertStatement(ref, original))
	return err
}

func widenStatement(ref ColumnRef) Statement {
	col := ref.QuotedColumn()
	return Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE TEXT USING %s::TEXT", ref.QuotedTable(), col, col),
	}
}

// revertStatement splices the catalog's own rendering of the type, which is
// already quoted where the type name needs it. Widening casts a column default
// to text along with the values, and that text default cannot be cast back
// automatically, so a column with a default drops it, changes type and gets
// the original expression back in the same statement.
func revertStatement(ref ColumnRef, original ColumnType) Statement {
	table, col := ref.QuotedTable(), ref.QuotedColumn()
	sqlType := original.SQL
	if sqlType == "" {
		sqlType = original.Name
	}

	alterType := fmt.Sprintf("ALTER COLUMN %s TYPE %s USING %s::%s", col, sqlType, col, sqlType)
	if original.Default == "" {
		return Statement{SQL: fmt.Sprintf("ALTER TABLE %s %s", table, alterType)}
	}

	return Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT, %s, ALTER COLUMN %s SET DEFAULT %s",
			table, col, alterType, col, original.Default),
	}
}
