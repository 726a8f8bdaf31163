package operation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
)

// Target names the column an operation runs against
type Target struct {
	Table  string
	Column string
}

func (t Target) String() string {
	return t.Table + "." + t.Column
}

// QuotedTable returns the table as a sanitized SQL identifier
func (t Target) QuotedTable() string {
	return pgx.Identifier{t.Table}.Sanitize()
}

// QuotedColumn returns the column as a sanitized SQL identifier
func (t Target) QuotedColumn() string {
	return pgx.Identifier{t.Column}.Sanitize()
}

// Statement is a parameterized SQL statement
type Statement struct {
	SQL  string
	Args []interface{}
}

// clause is shared by the predicate and the mutation of a strategy so both
// select exactly the same rows.
type clause struct {
	value string // expression producing the new value
	where string // true for rows whose value would change
	args  []interface{}
}

type clauseBuilder func(col string, p Params) clause

type valueApplier func(value string, p Params) string

// Strategy builds the statements of one operation kind
type Strategy struct {
	kind  Kind
	build clauseBuilder
	apply valueApplier
}

var strategies = map[Kind]Strategy{
	Trim:      {kind: Trim, build: trimClause, apply: trimValue},
	Lowercase: {kind: Lowercase, build: caseClause("lower"), apply: func(v string, _ Params) string { return strings.ToLower(v) }},
	Uppercase: {kind: Uppercase, build: caseClause("upper"), apply: func(v string, _ Params) string { return strings.ToUpper(v) }},
	Replace:   {kind: Replace, build: replaceClause, apply: replaceValue},
}

// For returns the strategy registered for kind
func For(kind Kind) (Strategy, error) {
	s, ok := strategies[kind]
	if !ok {
		return Strategy{}, &ValidationError{
			Field:   "kind",
			Value:   kind.String(),
			Message: "unsupported operation",
		}
	}
	return s, nil
}

// Kind returns the kind this strategy implements
func (s Strategy) Kind() Kind {
	return s.kind
}

// Predicate counts the rows the mutation would change
func (s Strategy) Predicate(t Target, p Params) Statement {
	c := s.build(t.QuotedColumn(), p)
	return Statement{
		SQL:  fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.QuotedTable(), c.where),
		Args: c.args,
	}
}

// Mutation rewrites every row matched by Predicate
func (s Strategy) Mutation(t Target, p Params) Statement {
	col := t.QuotedColumn()
	c := s.build(col, p)
	return Statement{
		SQL:  fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s", t.QuotedTable(), col, c.value, c.where),
		Args: c.args,
	}
}

// PreviewPredicate is Predicate evaluated over the column cast to text, so it
// can run against a column that has not been coerced.
func (s Strategy) PreviewPredicate(t Target, p Params) Statement {
	c := s.build(t.QuotedColumn()+"::text", p)
	return Statement{
		SQL:  fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.QuotedTable(), c.where),
		Args: c.args,
	}
}

// Sample selects up to limit before/after pairs without writing anything
func (s Strategy) Sample(t Target, p Params, limit int) Statement {
	col := t.QuotedColumn() + "::text"
	c := s.build(col, p)

	args := make([]interface{}, 0, len(c.args)+1)
	args = append(args, c.args...)
	args = append(args, limit)

	return Statement{
		SQL: fmt.Sprintf(
			"SELECT %s AS before, %s AS after FROM %s WHERE %s LIMIT $%d",
			col, c.value, t.QuotedTable(), c.where, len(args),
		),
		Args: args,
	}
}

// Apply computes the transformed value in memory with the same semantics as
// the SQL mutation. The bool reports whether the value changed.
//
// Trim strips the ASCII [[:space:]] set. Whether the server strips other
// Unicode spaces depends on its locale; U+00A0 is outside the class under both
// glibc and the C locale, so both sides keep it. Whole-word boundaries treat
// letters and digits of any script plus '_' as word characters, as \y does in
// a UTF-8 database.
func (s Strategy) Apply(value string, p Params) (string, bool) {
	out := s.apply(value, p)
	return out, out != value
}

// ============================================================
// TRIM
// ============================================================

// trimPattern strips leading and trailing [[:space:]], so a whitespace-only
// value becomes '' rather than NULL.
const trimPattern = `'^[[:space:]]+|[[:space:]]+$'`

func trimClause(col string, _ Params) clause {
	value := fmt.Sprintf("regexp_replace(%s, %s, '', 'g')", col, trimPattern)
	return clause{
		value: value,
		where: fmt.Sprintf("%s <> %s", col, value),
	}
}

// isPOSIXSpace is the [[:space:]] class: space, \t, \n, \v, \f and \r
func isPOSIXSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func trimValue(value string, _ Params) string {
	return strings.TrimFunc(value, isPOSIXSpace)
}

// ============================================================
// CASE CONVERSION
// ============================================================

func caseClause(fn string) clauseBuilder {
	return func(col string, _ Params) clause {
		value := fmt.Sprintf("%s(%s)", fn, col)
		return clause{
			value: value,
			where: fmt.Sprintf("%s <> %s", col, value),
		}
	}
}

// ============================================================
// FIND / REPLACE
// ============================================================

// Pattern returns the PostgreSQL regular expression matching Find literally,
// anchored on word boundaries when WholeWord is set.
func Pattern(p Params) string {
	quoted := regexp.QuoteMeta(p.Find)
	if p.WholeWord {
		return `\y` + quoted + `\y`
	}
	return quoted
}

// Flags returns the regexp_replace flags: every match, optionally case-insensitive
func Flags(p Params) string {
	if p.CaseSensitive {
		return "g"
	}
	return "gi"
}

// escapeReplacement makes regexp_replace insert the text verbatim.
// Backslash is the only character it treats specially in the replacement.
func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, `\`, `\\`)
}

func replaceClause(col string, p Params) clause {
	op := "~"
	if !p.CaseSensitive {
		op = "~*"
	}

	value := fmt.Sprintf("regexp_replace(%s, $1, $2, $3)", col)
	return clause{
		value: value,
		where: fmt.Sprintf("%s %s $1 AND %s <> %s", col, op, value, col),
		args:  []interface{}{Pattern(p), escapeReplacement(p.Replace), Flags(p)},
	}
}

// compileReplace mirrors Pattern and Flags with Go's regexp syntax. Word
// boundaries are checked by replaceValue, since \b only knows ASCII.
func compileReplace(p Params) *regexp.Regexp {
	expr := regexp.QuoteMeta(p.Find)
	if !p.CaseSensitive {
		expr = "(?i)" + expr
	}
	// A quoted literal always compiles.
	return regexp.MustCompile(expr)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// atWordBoundary reports whether byte offset i of s lies between a word rune
// and a non-word rune, the ends of s counting as non-word
func atWordBoundary(s string, i int) bool {
	var before, after bool
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:i])
		before = isWordRune(r)
	}
	if i < len(s) {
		r, _ := utf8.DecodeRuneInString(s[i:])
		after = isWordRune(r)
	}
	return before != after
}

func replaceValue(value string, p Params) string {
	if p.Find == "" {
		return value
	}

	re := compileReplace(p)
	if !p.WholeWord {
		return re.ReplaceAllLiteralString(value, p.Replace)
	}

	// Leftmost matches whose both ends sit on a boundary; a rejected match
	// resumes the search one rune after its start.
	var b strings.Builder
	last, pos := 0, 0
	for pos < len(value) {
		loc := re.FindStringIndex(value[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if atWordBoundary(value, start) && atWordBoundary(value, end) {
			b.WriteString(value[last:start])
			b.WriteString(p.Replace)
			last, pos = end, end
			continue
		}
		_, size := utf8.DecodeRuneInString(value[start:])
		pos = start + size
	}
	b.WriteString(value[last:])
	return b.String()
}
