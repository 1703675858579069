// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Flow errors
	ErrInvalidStep          = errors.New("action not valid for current step")
	ErrDetailsIncomplete    = errors.New("personal details incomplete")
	ErrFrontNotCaptured     = errors.New("document front not captured")
	ErrBackNotCaptured      = errors.New("document back not captured")
	ErrSelfiesIncomplete    = errors.New("selfie captures incomplete")
	ErrSubmissionInFlight   = errors.New("submission already in progress")
	ErrBackBeforeFront      = errors.New("document back captured before front")
	ErrInvalidDocumentType  = errors.New("invalid document type")
	ErrInvalidReviewAction  = errors.New("invalid review action")

	// Capture errors
	ErrEmptyCapture = errors.New("capture contains no image data")

	// Submission errors
	ErrBaseURLNotConfigured = errors.New("verification base URL not configured")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
