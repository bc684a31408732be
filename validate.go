package liteorm

import (
	"fmt"
	"regexp"
)

// Pre-compiled regular expression for identifier validation
var (
	// identifierPattern matches valid SQL identifiers
	// Rules: starts with letter or underscore, followed by letters/digits/underscores
	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

const (
	// Maximum identifier length (SQLite itself is lenient, keep a sane bound)
	maxIdentifierLength = 128
)

// ErrInvalidIdentifier represents an invalid table or column name error
type ErrInvalidIdentifier struct {
	Name   string
	Reason string
}

func (e *ErrInvalidIdentifier) Error() string {
	return fmt.Sprintf("liteorm: invalid identifier '%s': %s", e.Name, e.Reason)
}

// ValidateTableName validates if a table name is valid (public interface)
// Can be called externally to validate table names in advance
func ValidateTableName(table string) error {
	return validateIdentifier(table)
}

// validateIdentifier validates SQL identifiers (table names/column names etc.)
// Rules:
//   - Length between 1-128 characters
//   - Starts with letter or underscore
//   - Contains only letters, digits, underscores
//
// Returns error if the identifier is invalid
// 凡是会被直接拼接进 SQL 的标识符（表名、列名）都必须先通过这里
func validateIdentifier(name string) error {
	if name == "" {
		return &ErrInvalidIdentifier{Name: name, Reason: "name cannot be empty"}
	}

	if len(name) > maxIdentifierLength {
		return &ErrInvalidIdentifier{Name: name, Reason: fmt.Sprintf("name exceeds maximum length of %d characters", maxIdentifierLength)}
	}

	if !identifierPattern.MatchString(name) {
		return &ErrInvalidIdentifier{Name: name, Reason: "name contains invalid characters (only letters, numbers, underscores allowed; must start with letter or underscore)"}
	}

	return nil
}
