package config

import (
	"fmt"
	"strings"
)

// ValidationError describes one field-level configuration problem.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of ValidationError, satisfying error so
// callers can return it directly while still inspecting individual entries.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return strings.Join(parts, "; ")
}

// HasErrors reports whether the collection is non-empty.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Add appends a new validation error.
func (e *ValidationErrors) Add(field string, value interface{}, message string) {
	*e = append(*e, &ValidationError{Field: field, Value: value, Message: message})
}

// LoadError wraps a structural failure that aborts loading entirely:
// an unreadable file, malformed JSON/YAML, a circular configPaths
// reference, or an exceeded nesting depth. Unlike a skipped package, a
// LoadError means no server has been initialized yet.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
