package operation

import (
	"fmt"
	"strings"
)

// Kind identifies a column transformation
type Kind int

const (
	Trim Kind = iota
	Lowercase
	Uppercase
	Replace
)

var kindNames = map[Kind]string{
	Trim:      "trim",
	Lowercase: "lowercase",
	Uppercase: "uppercase",
	Replace:   "replace",
}

// Kinds returns every supported kind in declaration order
func Kinds() []Kind {
	return []Kind{Trim, Lowercase, Uppercase, Replace}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a kind from its name.
// "lower" and "upper" are accepted as aliases.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	switch normalized {
	case "lower":
		return Lowercase, nil
	case "upper":
		return Uppercase, nil
	}

	for k, n := range kindNames {
		if n == normalized {
			return k, nil
		}
	}

	return 0, &ValidationError{
		Field:   "kind",
		Value:   name,
		Message: "expected one of trim, lowercase, uppercase, replace",
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", k)
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
