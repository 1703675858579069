// ==============================================================================
// SESSION DOMAIN MODEL - internal/domain/session.go
// ==============================================================================
// Core types for a guided KYC capture session: steps, personal details,
// captured artifacts, and the submission outcome.
// ==============================================================================

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ==============================================================================
// STEPS
// ==============================================================================

// Step identifies a screen in the guided verification flow.
type Step string

const (
	StepWelcome         Step = "WELCOME"
	StepForm            Step = "FORM"
	StepDocumentCapture Step = "DOCUMENT_CAPTURE"
	StepDocumentBack    Step = "DOCUMENT_BACK"
	StepFaceCapture     Step = "FACE_CAPTURE"
	StepReview          Step = "REVIEW"
	StepSubmitting      Step = "SUBMITTING"
	StepResult          Step = "RESULT"
)

// ==============================================================================
// DOCUMENT TYPES
// ==============================================================================

// DocumentType identifies the government document being captured.
type DocumentType string

const (
	DocumentTypePassport        DocumentType = "passport"
	DocumentTypeDriverLicense   DocumentType = "driver_license"
	DocumentTypeIDCard          DocumentType = "id_card"
	DocumentTypeResidencePermit DocumentType = "residence_permit"
)

// RequiresBack reports whether the document type has a back side that must
// be captured. Passports are single-sided.
func (d DocumentType) RequiresBack() bool {
	switch d {
	case DocumentTypeDriverLicense, DocumentTypeIDCard, DocumentTypeResidencePermit:
		return true
	}
	return false
}

// Valid reports whether the document type is one of the accepted values.
func (d DocumentType) Valid() bool {
	switch d {
	case DocumentTypePassport, DocumentTypeDriverLicense, DocumentTypeIDCard, DocumentTypeResidencePermit:
		return true
	}
	return false
}

// ==============================================================================
// PERSONAL DETAILS
// ==============================================================================

// PersonalDetails carries the form fields submitted alongside the captures.
type PersonalDetails struct {
	Name         string       `json:"name" validate:"notblank,max=100"`
	Surname      string       `json:"surname" validate:"notblank,max=100"`
	DateOfBirth  string       `json:"dateOfBirth" validate:"notblank,datetime=2006-01-02"`
	DocumentType DocumentType `json:"documentType" validate:"required,document_type"`
}

// Complete reports whether every field is non-empty after trimming. This is
// the gate for leaving the form step; full validation happens separately.
func (p PersonalDetails) Complete() bool {
	return strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Surname) != "" &&
		strings.TrimSpace(p.DateOfBirth) != "" &&
		strings.TrimSpace(string(p.DocumentType)) != ""
}

// ==============================================================================
// CAPTURED ARTIFACTS
// ==============================================================================

// CapturedArtifact is one accepted capture with all encodings of the same
// bytes. Immutable after creation; a retake supersedes it with a new value.
type CapturedArtifact struct {
	ImageID  uuid.UUID `json:"imageId"`
	Bytes    []byte    `json:"bytes"`
	MimeType string    `json:"mimeType"`
	Base64   string    `json:"base64"`
	DataURI  string    `json:"dataUri"`
	Filename string    `json:"filename"`
	TakenAt  time.Time `json:"takenAt"`
}

// DocumentArtifacts holds the captured sides of the ID document. Back may
// only be present when front is.
type DocumentArtifacts struct {
	Front *CapturedArtifact `json:"front,omitempty"`
	Back  *CapturedArtifact `json:"back,omitempty"`
}

// SelfieTarget is the number of selfies required for submission.
const SelfieTarget = 4

// SelfieCollection is an ordered window of the most recent selfies,
// bounded at SelfieTarget. A capture beyond the bound evicts the oldest.
type SelfieCollection []CapturedArtifact

// Append adds a selfie and truncates to the newest SelfieTarget entries.
func (s SelfieCollection) Append(a CapturedArtifact) SelfieCollection {
	out := append(s, a)
	if len(out) > SelfieTarget {
		out = out[len(out)-SelfieTarget:]
	}
	return out
}

// Ready reports whether enough selfies have been captured for submission.
func (s SelfieCollection) Ready() bool {
	return len(s) >= SelfieTarget
}

// ==============================================================================
// SUBMISSION RESULT
// ==============================================================================

// Outcome labels the terminal result of a submission attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// SubmissionResult is the interpreted backend verdict shown on the result
// screen. Optional fields stay nil when the backend omitted them.
type SubmissionResult struct {
	Outcome            Outcome  `json:"outcome"`
	Message            string   `json:"message"`
	FaceScore          *float64 `json:"faceScore,omitempty"`
	FaceThreshold      float64  `json:"faceThreshold"`
	LivenessStatus     string   `json:"livenessStatus,omitempty"`
	LivenessConfidence *float64 `json:"livenessConfidence,omitempty"`
}

// ==============================================================================
// SESSION STATE
// ==============================================================================

// SessionState is the single mutable record for one verification session.
// It is owned by the orchestrator; every mutation goes through it.
type SessionState struct {
	ID             uuid.UUID         `json:"id"`
	UserID         string            `json:"userId"`
	CurrentStep    Step              `json:"currentStep"`
	Details        PersonalDetails   `json:"details"`
	Document       DocumentArtifacts `json:"document"`
	Selfies        SelfieCollection  `json:"selfies"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
	SuccessMessage string            `json:"successMessage,omitempty"`
	Submitting     bool              `json:"submitting"`
	Result         *SubmissionResult `json:"result,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// NewSessionState creates a fresh session with a stable user identifier.
// The user ID survives restarts within the same session.
func NewSessionState() *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		ID:          uuid.New(),
		UserID:      fmt.Sprintf("user_%s", uuid.NewString()),
		CurrentStep: StepWelcome,
		Details: PersonalDetails{
			DocumentType: DocumentTypePassport,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset returns the session to its initial values. The user ID and session
// ID are kept; everything else is cleared.
func (s *SessionState) Reset() {
	s.CurrentStep = StepWelcome
	s.Details = PersonalDetails{DocumentType: DocumentTypePassport}
	s.Document = DocumentArtifacts{}
	s.Selfies = nil
	s.ErrorMessage = ""
	s.SuccessMessage = ""
	s.Submitting = false
	s.Result = nil
	s.UpdatedAt = time.Now().UTC()
}

// ClearBanners drops the transient messages.
func (s *SessionState) ClearBanners() {
	s.ErrorMessage = ""
	s.SuccessMessage = ""
}

// ArtifactByImageID finds a stored artifact by its display handle ID.
// Used to serve preview images; returns nil when the handle has been
// superseded or released.
func (s *SessionState) ArtifactByImageID(imageID uuid.UUID) *CapturedArtifact {
	if s.Document.Front != nil && s.Document.Front.ImageID == imageID {
		return s.Document.Front
	}
	if s.Document.Back != nil && s.Document.Back.ImageID == imageID {
		return s.Document.Back
	}
	for i := range s.Selfies {
		if s.Selfies[i].ImageID == imageID {
			return &s.Selfies[i]
		}
	}
	return nil
}
