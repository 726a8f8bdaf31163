package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// mapStorageError converts a failed statement into the engine's error types.
// Errors that are already typed pass through unchanged.
func mapStorageError(err error, phase Phase, ref ColumnRef, sqlType string) error {
	if err == nil {
		return nil
	}

	if IsNotFound(err) || IsValidation(err) || IsStorage(err) {
		return err
	}

	storageErr := &StorageError{
		Op:     string(phase),
		Table:  ref.Table,
		Column: ref.Column,
		Type:   sqlType,
		Err:    err,
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			storageErr.Suggestion = "The operation was cancelled; the column may have been left as TEXT, check 'colops status'"
		}
		return storageErr
	}

	storageErr.SQLState = pgErr.Code

	// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
	switch pgErr.Code {
	case "42P01": // undefined_table
		return &NotFoundError{Kind: "table", Table: ref.Table}

	case "42703": // undefined_column
		return &NotFoundError{Kind: "column", Table: ref.Table, Column: ref.Column}

	case "22P02", "22007", "22008", "22003": // invalid text representation, datetime format, datetime overflow, numeric overflow
		storageErr.Suggestion = fmt.Sprintf("Some values of %s cannot be cast back to %s", ref.Column, sqlType)

	case "42804": // datatype_mismatch
		storageErr.Suggestion = fmt.Sprintf("The default or an expression on %s cannot be cast to %s", ref.Column, sqlType)

	case "23502", "23514": // not_null_violation, check_violation
		storageErr.Suggestion = fmt.Sprintf("A constraint on %s rejects the transformed values", ref.Column)

	case "0A000": // feature_not_supported
		storageErr.Suggestion = fmt.Sprintf("%s is probably used by a view or rule; its type cannot be changed", ref.Column)

	case "42501": // insufficient_privilege
		storageErr.Suggestion = fmt.Sprintf("The database role needs ALTER and UPDATE rights on %s", ref.Table)

	case "55P03", "40P01": // lock_not_available, deadlock_detected
		storageErr.Suggestion = "Another session holds a lock on the table; retry when it is idle"
	}

	return storageErr
}
