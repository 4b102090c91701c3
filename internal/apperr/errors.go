// Package apperr holds the error taxonomy shared by the retrieval core and
// the serving layer. Callers classify errors with errors.Is and errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// Core pipeline failures.
var (
	// ErrConfiguration is returned when a component is missing a required
	// model, credential, or setting at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrExtraction is returned when a source document cannot be read.
	ErrExtraction = errors.New("extraction error")
	// ErrEmbedding is returned when the embedding model fails.
	ErrEmbedding = errors.New("embedding error")
	// ErrIndex is returned when the vector index fails to read or write.
	ErrIndex = errors.New("index error")
)

// Serving layer failures.
var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when an external service call fails.
	ErrExternalService = errors.New("external service error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation failures.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Classify tags err with kind unless it already carries it.
// The original error stays reachable through errors.Is and errors.As.
func Classify(kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return WrapError(err, msg)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
