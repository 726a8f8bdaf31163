package engine

import (
	"fmt"
	"io"
	"os"
	"time"
)

// DebugLevel defines verbosity
type DebugLevel int

const (
	DebugNone DebugLevel = iota
	DebugSQL
	DebugTrace
	DebugExplain
)

// DebugContext holds debug configuration
type DebugContext struct {
	Level  DebugLevel
	Writer io.Writer // Where to write (stdout, file, etc)

	ColorOutput bool
}

// DefaultDebugContext for production
func DefaultDebugContext() *DebugContext {
	return &DebugContext{
		Level:       DebugNone,
		Writer:      os.Stdout,
		ColorOutput: true,
	}
}

// DebugContextFromEnv reads COLOPS_DEBUG: "1" echoes SQL, "trace" adds
// timings, "explain" also prints plans.
func DebugContextFromEnv() *DebugContext {
	return &DebugContext{
		Level:       ParseDebugLevel(os.Getenv("COLOPS_DEBUG")),
		Writer:      os.Stdout,
		ColorOutput: true,
	}
}

// ParseDebugLevel maps a COLOPS_DEBUG value to a level
func ParseDebugLevel(value string) DebugLevel {
	switch value {
	case "1", "sql":
		return DebugSQL
	case "trace":
		return DebugTrace
	case "explain":
		return DebugExplain
	default:
		return DebugNone
	}
}

// Log writes debug output
func (dc *DebugContext) Log(level DebugLevel, format string, args ...interface{}) {
	if dc.Level < level {
		return
	}

	var prefix string
	if dc.ColorOutput {
		prefix = colorPrefix(level)
	} else {
		prefix = textPrefix(level)
	}

	fmt.Fprintf(dc.Writer, prefix+format+"\n", args...)
}

// LogSQL logs generated SQL
func (dc *DebugContext) LogSQL(sql string) {
	if dc.Level < DebugSQL {
		return
	}

	if dc.ColorOutput {
		fmt.Fprintf(dc.Writer, "\n\033[36m[SQL]\033[0m\n%s\n\n", sql)
	} else {
		fmt.Fprintf(dc.Writer, "\n[SQL]\n%s\n\n", sql)
	}
}

// LogStatement logs a statement together with its bound parameters
func (dc *DebugContext) LogStatement(stmt Statement) {
	if dc.Level < DebugSQL {
		return
	}

	dc.LogSQL(stmt.SQL)
	for i, arg := range stmt.Args {
		fmt.Fprintf(dc.Writer, "  $%d = %#v\n", i+1, arg)
	}
	if len(stmt.Args) > 0 {
		fmt.Fprintln(dc.Writer)
	}
}

// LogQuery logs full query trace
func (dc *DebugContext) LogQuery(sql string, duration time.Duration, rowCount int64) {
	if dc.Level < DebugTrace {
		return
	}

	fmt.Fprintf(dc.Writer, "\n")
	fmt.Fprintf(dc.Writer, "┌─────────────────────────────────────\n")
	fmt.Fprintf(dc.Writer, "│ Query Trace\n")
	fmt.Fprintf(dc.Writer, "├─────────────────────────────────────\n")
	fmt.Fprintf(dc.Writer, "│ SQL:\n│   %s\n", sql)
	fmt.Fprintf(dc.Writer, "│ Duration: %v\n", duration)
	fmt.Fprintf(dc.Writer, "│ Rows: %d\n", rowCount)
	fmt.Fprintf(dc.Writer, "└─────────────────────────────────────\n\n")
}

// LogPlan prints an EXPLAIN plan
func (dc *DebugContext) LogPlan(lines []string) {
	if dc.Level < DebugExplain {
		return
	}

	dc.Log(DebugExplain, "query plan")
	for _, line := range lines {
		fmt.Fprintf(dc.Writer, "  %s\n", line)
	}
	fmt.Fprintln(dc.Writer)
}

func colorPrefix(level DebugLevel) string {
	switch level {
	case DebugSQL:
		return "\033[36m[DEBUG]\033[0m "
	case DebugTrace:
		return "\033[33m[TRACE]\033[0m "
	case DebugExplain:
		return "\033[35m[EXPLAIN]\033[0m "
	default:
		return ""
	}
}

func textPrefix(level DebugLevel) string {
	switch level {
	case DebugSQL:
		return "[DEBUG] "
	case DebugTrace:
		return "[TRACE] "
	case DebugExplain:
		return "[EXPLAIN] "
	default:
		return ""
	}
}
