package extract

import (
	"errors"
	"fmt"

	"invoicesnap/internal/config"
)

// Common recognition errors
var (
	// ErrRecognitionFailed is returned when the recognition service call fails or
	// its response cannot be used.
	ErrRecognitionFailed = errors.New("invoice recognition failed")

	// ErrInvalidCredentials is returned when the recognition service rejects the
	// configured credential.
	ErrInvalidCredentials = errors.New("recognition credential rejected")

	// ErrEmptyResponse is returned when the service answers without content.
	ErrEmptyResponse = errors.New("recognition service returned no content")

	// ErrImageTooLarge is returned when the image exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image exceeds the maximum size (20MB)")

	// ErrUnsupportedImage is returned when the payload is not a raster image.
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrUnknownRecognizer is returned for a recognizer name New does not know.
	ErrUnknownRecognizer = errors.New("unknown recognizer")
)

// RecognitionError wraps errors with the provider and operation that failed.
type RecognitionError struct {
	// Op is the operation that failed (e.g., "Recognize", "Reconcile").
	Op string

	// Provider is the recognition backend (gemini, openai, documentai).
	Provider string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s %s failed: %s: %v", e.Provider, e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s %s failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Is makes every RecognitionError match ErrRecognitionFailed.
func (e *RecognitionError) Is(target error) bool {
	return target == ErrRecognitionFailed
}

// WrapRecognitionError wraps err as a RecognitionError unless it already is one.
func WrapRecognitionError(op, provider string, err error, details string) error {
	if err == nil {
		return nil
	}

	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return err
	}

	return &RecognitionError{Op: op, Provider: provider, Err: err, Details: details}
}

// IsCredentialError reports whether err means the user must fix the
// recognition configuration rather than retry.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, config.ErrNotConfigured)
}
