package validation

import "strings"

// FieldError represents a validation failure scoped to a specific field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.Field
	}
	return e.Field + ": " + e.Message
}

// Errors aggregates multiple field errors.
type Errors []FieldError

// Error implements the error interface.
func (errs Errors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
