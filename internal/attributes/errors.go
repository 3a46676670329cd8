package attributes

import (
	"errors"
	"fmt"
)

// Domain errors for the attributes package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, attributes.ErrConfigNotFound) {
//	    // fall back to a caller-defined attribute set
//	}
var (
	// ErrConfigNotFound is returned when neither an environment nor a base
	// document exists for the requested kind and type.
	ErrConfigNotFound = errors.New("attributes: config not found")

	// ErrConfigParse is returned when a document exists but is not valid YAML
	// or its root is not a mapping.
	ErrConfigParse = errors.New("attributes: config parse error")

	// ErrSchemaViolation is returned when a document parses but its shape is
	// invalid (ambiguous specifiers, inverted ranges, missing sections).
	ErrSchemaViolation = errors.New("attributes: schema violation")

	// ErrInvalidTypeName is returned when a type name could escape the
	// definition tree (path separators, "..").
	ErrInvalidTypeName = errors.New("attributes: invalid type name")
)

// DocumentError identifies the document a load or compile failure belongs to.
// It wraps one of the sentinel errors above.
type DocumentError struct {
	Kind        Kind
	Type        string
	Environment string
	Path        string
	Err         error
}

// Error implements error.
func (e *DocumentError) Error() string {
	msg := fmt.Sprintf("%s/%s", e.Kind, e.Type)
	if e.Environment != "" {
		msg += fmt.Sprintf(" (environment %q)", e.Environment)
	}
	if e.Path != "" {
		msg += " at " + e.Path
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// schemaViolation builds an error wrapping ErrSchemaViolation.
func schemaViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaViolation, fmt.Sprintf(format, args...))
}
