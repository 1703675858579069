// ==============================================================================
// SESSION HTTP HANDLER - internal/handler/session.go
// ==============================================================================
// Session lifecycle and step-transition endpoints for the capture frontend.
// ==============================================================================

package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kycflow/internal/domain"
	"kycflow/internal/flow"
	"kycflow/pkg/logger"
	"kycflow/pkg/validator"

	"github.com/google/uuid"
)

// ==============================================================================
// SESSION HANDLER STRUCT
// ==============================================================================

// SessionHandler exposes the orchestrator over HTTP.
type SessionHandler struct {
	orchestrator *flow.Orchestrator
	validator    *validator.Validator
	logger       logger.Logger
}

// NewSessionHandler creates a SessionHandler with required dependencies.
func NewSessionHandler(orch *flow.Orchestrator, val *validator.Validator, log logger.Logger) *SessionHandler {
	return &SessionHandler{
		orchestrator: orch,
		validator:    val,
		logger:       log,
	}
}

// ==============================================================================
// VIEW MODELS
// ==============================================================================

// artifactView is the render-ready projection of a captured artifact. Raw
// bytes stay server-side; the display URL serves them on demand.
type artifactView struct {
	ImageID    uuid.UUID `json:"imageId"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType"`
	DisplayURL string    `json:"displayUrl"`
	TakenAt    time.Time `json:"takenAt"`
}

type documentView struct {
	Front *artifactView `json:"front,omitempty"`
	Back  *artifactView `json:"back,omitempty"`
}

type sessionView struct {
	ID             uuid.UUID                `json:"id"`
	UserID         string                   `json:"userId"`
	CurrentStep    domain.Step              `json:"currentStep"`
	Details        domain.PersonalDetails   `json:"details"`
	Document       documentView             `json:"document"`
	Selfies        []artifactView           `json:"selfies"`
	SelfieTarget   int                      `json:"selfieTarget"`
	ReviewReady    bool                     `json:"reviewReady"`
	ErrorMessage   string                   `json:"errorMessage,omitempty"`
	SuccessMessage string                   `json:"successMessage,omitempty"`
	Submitting     bool                     `json:"submitting"`
	Result         *domain.SubmissionResult `json:"result,omitempty"`
}

func newArtifactView(sessionID uuid.UUID, a *domain.CapturedArtifact) *artifactView {
	if a == nil {
		return nil
	}
	return &artifactView{
		ImageID:    a.ImageID,
		Filename:   a.Filename,
		MimeType:   a.MimeType,
		DisplayURL: fmt.Sprintf("/api/v1/sessions/%s/images/%s", sessionID, a.ImageID),
		TakenAt:    a.TakenAt,
	}
}

func newSessionView(s *domain.SessionState) sessionView {
	view := sessionView{
		ID:          s.ID,
		UserID:      s.UserID,
		CurrentStep: s.CurrentStep,
		Details:     s.Details,
		Document: documentView{
			Front: newArtifactView(s.ID, s.Document.Front),
			Back:  newArtifactView(s.ID, s.Document.Back),
		},
		SelfieTarget:   domain.SelfieTarget,
		ReviewReady:    s.Selfies.Ready() && s.Document.Front != nil,
		ErrorMessage:   s.ErrorMessage,
		SuccessMessage: s.SuccessMessage,
		Submitting:     s.Submitting,
		Result:         s.Result,
	}
	for i := range s.Selfies {
		view.Selfies = append(view.Selfies, *newArtifactView(s.ID, &s.Selfies[i]))
	}
	return view
}

// ==============================================================================
// HELPER METHODS
// ==============================================================================

// parseAndValidateRequest parses and validates a JSON request body.
func (h *SessionHandler) parseAndValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(req); err != nil {
		if err == io.EOF {
			respondError(h.logger, w, http.StatusBadRequest, "Request body is required")
			return false
		}
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"error":    err.Error(),
			"handler":  "session",
			"endpoint": r.URL.Path,
		})
		respondError(h.logger, w, http.StatusBadRequest, "Invalid request body format")
		return false
	}

	if errs := h.validator.ValidateStructured(req); errs != nil {
		respondJSON(h.logger, w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed",
			"fields": errs,
		})
		return false
	}
	return true
}

// ==============================================================================
// ENDPOINTS
// ==============================================================================

// Create starts a new verification session.
// POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	state, err := h.orchestrator.CreateSession(r.Context())
	if err != nil {
		respondState(h.logger, w, nil, err)
		return
	}
	respondJSON(h.logger, w, http.StatusCreated, newSessionView(state))
}

// Get returns the current session view.
// GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}
	state, err := h.orchestrator.GetSession(r.Context(), id)
	respondState(h.logger, w, state, err)
}

// Start moves the session from the welcome screen to the form.
// POST /api/v1/sessions/{id}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}
	state, err := h.orchestrator.Start(r.Context(), id)
	respondState(h.logger, w, state, err)
}

type updateDetailsRequest struct {
	Name         string `json:"name" validate:"max=100"`
	Surname      string `json:"surname" validate:"max=100"`
	DateOfBirth  string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	DocumentType string `json:"documentType" validate:"required,document_type"`
}

// UpdateDetails applies a form edit.
// PUT /api/v1/sessions/{id}/details
func (h *SessionHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}

	var req updateDetailsRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	state, err := h.orchestrator.UpdateDetails(r.Context(), id, domain.PersonalDetails{
		Name:         req.Name,
		Surname:      req.Surname,
		DateOfBirth:  req.DateOfBirth,
		DocumentType: domain.DocumentType(req.DocumentType),
	})
	respondState(h.logger, w, state, err)
}

// Advance moves the session from the form to document capture.
// POST /api/v1/sessions/{id}/advance
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}
	state, err := h.orchestrator.AdvanceToDocument(r.Context(), id)
	respondState(h.logger, w, state, err)
}

type reviewRequest struct {
	Action string `json:"action" validate:"required,oneof=retake_document retake_selfies edit_details"`
}

// Review applies a review-screen choice.
// POST /api/v1/sessions/{id}/review
func (h *SessionHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	state, err := h.orchestrator.Review(r.Context(), id, flow.ReviewAction(req.Action))
	respondState(h.logger, w, state, err)
}

// Back handles backward navigation from the capture widgets.
// POST /api/v1/sessions/{id}/back
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}
	state, err := h.orchestrator.NavigateBack(r.Context(), id)
	respondState(h.logger, w, state, err)
}

// Submit runs the verification submission.
// POST /api/v1/sessions/{id}/submit
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}
	state, err := h.orchestrator.Submit(r.Context(), id)
	respondState(h.logger, w, state, err)
}

// Restart resets the session to the welcome screen.
// POST /api/v1/sessions/{id}/restart
func (h *SessionHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}
	state, err := h.orchestrator.Restart(r.Context(), id)
	respondState(h.logger, w, state, err)
}

// DismissBanners clears the transient messages.
// POST /api/v1/sessions/{id}/banner/dismiss
func (h *SessionHandler) DismissBanners(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}
	state, err := h.orchestrator.DismissBanners(r.Context(), id)
	respondState(h.logger, w, state, err)
}

// Delete tears the session down and releases its artifacts.
// DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}
	if err := h.orchestrator.Teardown(r.Context(), id); err != nil {
		respondState(h.logger, w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
