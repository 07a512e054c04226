package rag

import (
	"errors"
	"fmt"
)

// ErrGenerationUnavailable marks a failure to reach the generator backend
// (connection refused, timeout, 5xx). It is retryable from the caller's side;
// this core never retries internally. Check with errors.Is.
var ErrGenerationUnavailable = errors.New("generation backend unavailable")

// ErrStoreUnavailable marks an unreadable or corrupt vector index. It is
// fatal for the running process and is not retried in-process.
var ErrStoreUnavailable = errors.New("vector store unavailable")

// ValidationError reports bad caller input: empty text, malformed filter
// value types, or an invalid chunking configuration. It is raised before any
// I/O and is never retryable — the caller must fix the input.
type ValidationError struct {
	// Field names the offending input (e.g. "question", "filters.age").
	Field string
	// Reason explains what was wrong.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError constructs a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateMetadata checks that every value in m is a supported scalar type.
// Supported: string, bool, int, int32, int64, uint, uint32, uint64, float32,
// float64. Anything else (maps, slices, structs, nil) is rejected with a
// *ValidationError naming the offending key — values are never coerced.
func ValidateMetadata(field string, m Metadata) error {
	for k, v := range m {
		switch v.(type) {
		case string, bool,
			int, int32, int64,
			uint, uint32, uint64,
			float32, float64:
		default:
			return NewValidationError(
				fmt.Sprintf("%s.%s", field, k),
				fmt.Sprintf("unsupported value type %T — only string, number, and bool are allowed", v),
			)
		}
	}
	return nil
}
