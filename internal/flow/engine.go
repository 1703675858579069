// ==============================================================================
// STEP TRANSITION ENGINE - internal/flow/engine.go
// ==============================================================================
// The state machine deciding which step follows each user action or capture
// event. Pure session-state rules; no I/O. The orchestrator applies these
// rules and persists the result.
// ==============================================================================

package flow

import (
	"strings"
	"time"

	"kycflow/internal/domain"
)

// DocumentSide identifies which side of the document a capture belongs to.
type DocumentSide string

const (
	SideFront DocumentSide = "front"
	SideBack  DocumentSide = "back"
)

// ReviewAction identifies a user choice on the review screen.
type ReviewAction string

const (
	ReviewRetakeDocument ReviewAction = "retake_document"
	ReviewRetakeSelfies  ReviewAction = "retake_selfies"
	ReviewEditDetails    ReviewAction = "edit_details"
)

// Engine applies step transition rules to a SessionState.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Start moves a fresh session from the welcome screen to the form.
func (e *Engine) Start(s *domain.SessionState) *FlowError {
	if s.CurrentStep != domain.StepWelcome {
		return errInvalidStep("start", s.CurrentStep)
	}
	s.CurrentStep = domain.StepForm
	e.touch(s)
	return nil
}

// UpdateDetails applies a form edit. Changing the document type discards
// both captured document sides (a document captured for one type is never
// valid for another) and, when the flow is already past the form, forces
// the session back to document capture.
func (e *Engine) UpdateDetails(s *domain.SessionState, details domain.PersonalDetails) *FlowError {
	if !details.DocumentType.Valid() {
		return errInvalidDocumentType(string(details.DocumentType))
	}

	typeChanged := details.DocumentType != s.Details.DocumentType
	s.Details = details

	if typeChanged {
		s.Document = domain.DocumentArtifacts{}
		if s.CurrentStep != domain.StepWelcome && s.CurrentStep != domain.StepForm {
			s.CurrentStep = domain.StepDocumentCapture
		}
	}
	e.touch(s)
	return nil
}

// AdvanceToDocument leaves the form for document capture. Refused while any
// required field is blank; the session stays put.
func (e *Engine) AdvanceToDocument(s *domain.SessionState) *FlowError {
	if s.CurrentStep != domain.StepForm {
		return errInvalidStep("advance", s.CurrentStep)
	}
	if !s.Details.Complete() {
		return errDetailsIncomplete()
	}
	s.CurrentStep = domain.StepDocumentCapture
	e.touch(s)
	return nil
}

// ApplyDocumentCapture stores an accepted document capture and computes the
// next step: front of a two-sided document leads to back capture, otherwise
// the flow proceeds to selfies, or straight to review when four selfies
// already exist.
func (e *Engine) ApplyDocumentCapture(s *domain.SessionState, side DocumentSide, artifact *domain.CapturedArtifact) *FlowError {
	switch side {
	case SideFront:
		if s.CurrentStep != domain.StepDocumentCapture {
			return errInvalidStep("capture document front", s.CurrentStep)
		}
		s.Document.Front = artifact
	case SideBack:
		if s.Document.Front == nil {
			return errBackBeforeFront()
		}
		if s.CurrentStep != domain.StepDocumentBack {
			return errInvalidStep("capture document back", s.CurrentStep)
		}
		s.Document.Back = artifact
	default:
		return errInvalidStep("capture document "+string(side), s.CurrentStep)
	}

	if side == SideFront && s.Details.DocumentType.RequiresBack() && s.Document.Back == nil {
		s.CurrentStep = domain.StepDocumentBack
	} else if s.Selfies.Ready() {
		s.CurrentStep = domain.StepReview
	} else {
		s.CurrentStep = domain.StepFaceCapture
	}
	e.touch(s)
	return nil
}

// ApplySelfieCapture appends a selfie with sliding-window truncation to the
// newest four. When the window fills and a document front exists, the
// session moves to review; captures that arrive afterwards keep sliding the
// window (retakes while reviewing).
func (e *Engine) ApplySelfieCapture(s *domain.SessionState, artifact *domain.CapturedArtifact) *FlowError {
	if s.CurrentStep != domain.StepFaceCapture && s.CurrentStep != domain.StepReview {
		return errInvalidStep("capture selfie", s.CurrentStep)
	}

	s.Selfies = s.Selfies.Append(*artifact)

	if s.CurrentStep == domain.StepFaceCapture && s.Selfies.Ready() && s.Document.Front != nil {
		s.CurrentStep = domain.StepReview
	}
	e.touch(s)
	return nil
}

// Review applies one of the review-screen choices.
func (e *Engine) Review(s *domain.SessionState, action ReviewAction) *FlowError {
	if s.CurrentStep != domain.StepReview {
		return errInvalidStep("review", s.CurrentStep)
	}
	switch action {
	case ReviewRetakeDocument:
		s.CurrentStep = domain.StepDocumentCapture
	case ReviewRetakeSelfies:
		s.CurrentStep = domain.StepFaceCapture
	case ReviewEditDetails:
		s.CurrentStep = domain.StepForm
	default:
		return errInvalidReviewAction(string(action))
	}
	e.touch(s)
	return nil
}

// NavigateBack handles the capture widgets' backward navigation.
func (e *Engine) NavigateBack(s *domain.SessionState) *FlowError {
	switch s.CurrentStep {
	case domain.StepForm:
		s.CurrentStep = domain.StepWelcome
	case domain.StepDocumentCapture:
		s.CurrentStep = domain.StepForm
	case domain.StepDocumentBack:
		s.CurrentStep = domain.StepDocumentCapture
	case domain.StepFaceCapture:
		s.CurrentStep = domain.StepDocumentCapture
	default:
		return errInvalidStep("back", s.CurrentStep)
	}
	e.touch(s)
	return nil
}

// ValidateSubmission checks every submission precondition without touching
// the network. The first failure wins; its RedirectStep points at the
// screen that can fix it.
func (e *Engine) ValidateSubmission(s *domain.SessionState) *FlowError {
	if s.Submitting {
		return errSubmissionInFlight()
	}
	if s.Document.Front == nil {
		return errFrontMissing()
	}
	if s.Details.DocumentType.RequiresBack() && s.Document.Back == nil {
		return errBackMissing()
	}
	if len(s.Selfies) < domain.SelfieTarget {
		return errSelfiesIncomplete(len(s.Selfies))
	}
	if !s.Details.Complete() {
		// No redirect: the review screen shows the details inline.
		return errDetailsIncomplete()
	}
	return nil
}

// BeginSubmission marks the session as submitting. Call only after
// ValidateSubmission passed.
func (e *Engine) BeginSubmission(s *domain.SessionState) {
	s.ClearBanners()
	s.Result = nil
	s.Submitting = true
	s.CurrentStep = domain.StepSubmitting
	e.touch(s)
}

// CompleteSubmission records the interpreted outcome. SUBMITTING always
// exits into RESULT, success or not.
func (e *Engine) CompleteSubmission(s *domain.SessionState, result domain.SubmissionResult) {
	s.Submitting = false
	s.Result = &result
	if result.Outcome == domain.OutcomeSuccess {
		s.SuccessMessage = result.Message
	}
	s.CurrentStep = domain.StepResult
	e.touch(s)
}

// Restart resets the session to the welcome screen. Details, artifacts and
// transient messages are all cleared; the user identifier is kept.
func (e *Engine) Restart(s *domain.SessionState) {
	s.Reset()
}

// ReportCaptureError surfaces a capture-pipeline failure in the banner
// without changing the step.
func (e *Engine) ReportCaptureError(s *domain.SessionState, message string) {
	if strings.TrimSpace(message) == "" {
		message = "Capture failed. Please try again."
	}
	s.ErrorMessage = message
	e.touch(s)
}

func (e *Engine) touch(s *domain.SessionState) {
	s.UpdatedAt = time.Now().UTC()
}
