// Package errors consolidates error definitions for the epictree application.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
//
// The taxonomy distinguishes caller errors (returned synchronously, never
// corrupt the store or the tree), degraded-data conditions (resolved to a
// documented fallback plus a log diagnostic, never returned as errors), and
// fatal conditions (no safe fallback exists, always returned).
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Navigation errors (caller errors)
	ErrIndexOutOfRange = errors.New("child index out of range")
	ErrPastRoot        = errors.New("ancestor level past the root")
	ErrNotFound        = errors.New("not found")

	// Retrieval errors (caller errors)
	ErrSampleRateMismatch = errors.New("sample rate mismatch across records")

	// Container errors (fatal: the container cannot be opened at all)
	ErrContainerNotFound   = errors.New("container not found")
	ErrContainerUnreadable = errors.New("container unreadable")

	// Side-file errors (fatal only for an explicitly named file)
	ErrSideFileUnreadable = errors.New("side file unreadable")
	ErrSideFileVersion    = errors.New("unsupported side file version")

	// Validation errors
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidFieldPath = errors.New("invalid field path")
	ErrInvalidRule      = errors.New("invalid grouping rule")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidDataset   = errors.New("invalid dataset")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrContainerNotFound)
}

// IsNavigation returns true if err is a navigation caller error.
func IsNavigation(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrPastRoot)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidFieldPath) ||
		errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidDataset)
}

// IsFatal returns true if err is a condition with no safe fallback.
func IsFatal(err error) bool {
	return errors.Is(err, ErrContainerNotFound) ||
		errors.Is(err, ErrContainerUnreadable) ||
		errors.Is(err, ErrSideFileUnreadable) ||
		errors.Is(err, ErrSideFileVersion)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
