// ==============================================================================
// FLOW ERROR HANDLING - internal/flow/errors.go
// ==============================================================================
// Structured errors for the step transition engine with HTTP status mapping
// and the redirect step that can fix the gap.
// ==============================================================================

package flow

import (
	"fmt"
	"net/http"

	"kycflow/internal/domain"
)

// ErrorCategory groups flow errors for handling and logging.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryCapture    ErrorCategory = "capture"
	CategoryState      ErrorCategory = "state"
)

// FlowError is a recoverable error raised by the transition engine. When
// RedirectStep is set, the session is moved to the screen that can fix the
// gap and Message lands in the error banner.
type FlowError struct {
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	Category     ErrorCategory `json:"category"`
	RedirectStep *domain.Step  `json:"redirect_step,omitempty"`
	Cause        error         `json:"-"`
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error category to a response status.
func (e *FlowError) HTTPStatus() int {
	switch e.Category {
	case CategoryState:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func redirect(step domain.Step) *domain.Step {
	return &step
}

// Engine error constructors. Messages are user-facing banner text.

func errInvalidStep(action string, current domain.Step) *FlowError {
	return &FlowError{
		Code:     "INVALID_STEP",
		Message:  fmt.Sprintf("Action %q is not available on the %s screen.", action, current),
		Category: CategoryState,
	}
}

func errSubmissionInFlight() *FlowError {
	return &FlowError{
		Code:     "SUBMISSION_IN_FLIGHT",
		Message:  "A submission is already in progress. Please wait for it to finish.",
		Category: CategoryState,
	}
}

func errDetailsIncomplete() *FlowError {
	return &FlowError{
		Code:     "DETAILS_INCOMPLETE",
		Message:  "Please complete all required form fields.",
		Category: CategoryValidation,
	}
}

func errInvalidDocumentType(value string) *FlowError {
	return &FlowError{
		Code:     "INVALID_DOCUMENT_TYPE",
		Message:  fmt.Sprintf("Document type %q is not supported.", value),
		Category: CategoryValidation,
	}
}

func errFrontMissing() *FlowError {
	return &FlowError{
		Code:         "DOCUMENT_FRONT_MISSING",
		Message:      "Please capture the front of your document before submitting.",
		Category:     CategoryValidation,
		RedirectStep: redirect(domain.StepDocumentCapture),
	}
}

func errBackMissing() *FlowError {
	return &FlowError{
		Code:         "DOCUMENT_BACK_MISSING",
		Message:      "Please capture the back of your document before submitting.",
		Category:     CategoryValidation,
		RedirectStep: redirect(domain.StepDocumentBack),
	}
}

func errSelfiesIncomplete(have int) *FlowError {
	return &FlowError{
		Code:         "SELFIES_INCOMPLETE",
		Message:      fmt.Sprintf("Please capture at least %d selfies before submitting.", domain.SelfieTarget),
		Category:     CategoryValidation,
		RedirectStep: redirect(domain.StepFaceCapture),
		Cause:        fmt.Errorf("have %d of %d selfies", have, domain.SelfieTarget),
	}
}

func errBackBeforeFront() *FlowError {
	return &FlowError{
		Code:     "BACK_BEFORE_FRONT",
		Message:  "Capture the front of your document before the back.",
		Category: CategoryCapture,
	}
}

func errInvalidReviewAction(action string) *FlowError {
	return &FlowError{
		Code:     "INVALID_REVIEW_ACTION",
		Message:  fmt.Sprintf("Unknown review action %q.", action),
		Category: CategoryValidation,
	}
}
