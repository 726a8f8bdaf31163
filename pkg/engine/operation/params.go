package operation

import "fmt"

// Params carries the per-kind arguments of an operation.
// Only Replace reads them; the other kinds ignore every field.
type Params struct {
	Find          string `json:"find,omitempty" yaml:"find,omitempty"`
	Replace       string `json:"replace,omitempty" yaml:"replace,omitempty"`
	CaseSensitive bool   `json:"caseSensitive" yaml:"case_sensitive"`
	WholeWord     bool   `json:"wholeWord" yaml:"whole_word"`
}

// Validate checks the params for the given kind before any storage access
func (p Params) Validate(kind Kind) error {
	if !kind.Valid() {
		return &ValidationError{
			Field:   "kind",
			Value:   kind.String(),
			Message: "unsupported operation",
		}
	}

	if kind == Replace && p.Find == "" {
		return &ValidationError{
			Field:   "find",
			Value:   p.Find,
			Message: "find must be at least 1 character long",
		}
	}

	return nil
}

// ValidationError reports malformed or missing operation input
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ValidationError: field '%s' (got %q): %s", e.Field, fmt.Sprint(e.Value), e.Message)
}

func (e *ValidationError) Code() string { return "VALIDATION_ERROR" }
