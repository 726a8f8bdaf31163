package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/chameleon-db/colops/pkg/engine/introspect"
	"github.com/chameleon-db/colops/pkg/engine/operation"
)

// ============================================================
// BASE ERROR INTERFACE
// ============================================================

// EngineError is implemented by every error the engine returns on purpose
type EngineError interface {
	error
	Code() string // Error code for programmatic handling
}

// ColumnRef names the column an operation targets
type ColumnRef = operation.Target

// Statement is a parameterized SQL statement
type Statement = operation.Statement

// ColumnType is the declared type of a column
type ColumnType = introspect.ColumnType

// ValidationError: malformed request, raised before any storage access
type ValidationError = operation.ValidationError

// NotFoundError: table or column missing from the catalog
type NotFoundError = introspect.NotFoundError

// ============================================================
// STORAGE ERRORS
// ============================================================

// StorageError: the database rejected a statement
type StorageError struct {
	Op         string // phase that issued the statement
	Table      string
	Column     string
	Type       string // declared column type, when known
	SQLState   string
	Suggestion string
	Err        error
}

func (e *StorageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "StorageError: %s failed on %s.%s", e.Op, e.Table, e.Column)
	if e.Type != "" {
		fmt.Fprintf(&b, " (type %s)", e.Type)
	}
	if e.SQLState != "" {
		fmt.Fprintf(&b, " [SQLSTATE %s]", e.SQLState)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Code() string { return "STORAGE_ERROR" }

// ============================================================
// HELPER FUNCTIONS
// ============================================================

// IsNotFound reports whether err is a missing table or column
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a rejected request
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err came from the database
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ErrorCode extracts the error code
func ErrorCode(err error) string {
	var ee EngineError
	if errors.As(err, &ee) {
		return ee.Code()
	}
	return "UNKNOWN_ERROR"
}

// FormatError renders err for a terminal
func FormatError(err error) string {
	var b strings.Builder

	errorColor := color.New(color.FgRed, color.Bold)
	errorColor.Fprintf(&b, "Error: ")
	fmt.Fprintf(&b, "%s\n", err.Error())

	codeColor := color.New(color.FgCyan)
	codeColor.Fprintf(&b, "  --> ")
	fmt.Fprintf(&b, "%s\n", ErrorCode(err))

	if hint := suggestionFor(err); hint != "" {
		b.WriteString("\n")
		helpColor := color.New(color.FgYellow, color.Bold)
		helpColor.Fprintf(&b, "  Help: ")
		fmt.Fprintf(&b, "%s\n", hint)
	}

	return b.String()
}

func suggestionFor(err error) string {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Suggestion
	}

	var nf *NotFoundError
	if errors.As(err, &nf) {
		if nf.Kind == "column" {
			return fmt.Sprintf("Run 'colops inspect %s' to list its columns", nf.Table)
		}
		return "Run 'colops inspect' to list the available tables"
	}

	var ve *ValidationError
	if errors.As(err, &ve) && ve.Field == "kind" {
		names := make([]string, 0, len(operation.Kinds()))
		for _, k := range operation.Kinds() {
			names = append(names, k.String())
		}
		return "Supported operations: " + strings.Join(names, ", ")
	}

	return ""
}
