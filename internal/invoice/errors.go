package invoice

import (
	"errors"
	"fmt"
)

// Common invoice editing errors
var (
	// ErrMissingRequiredField is returned when a record lacks a field that must be
	// present before it can be saved (invoice number, date).
	ErrMissingRequiredField = errors.New("missing required invoice field")

	// ErrItemIndex is returned when an item edit addresses a position outside the item list.
	ErrItemIndex = errors.New("item index out of range")
)

// ValidationError represents a refused save caused by invalid record data.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string

	// Err is the sentinel the failure classifies as.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %q)", e.Field, e.Message, fmt.Sprint(e.Value))
}

// Unwrap returns the underlying sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}
