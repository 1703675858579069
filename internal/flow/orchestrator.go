// ==============================================================================
// FLOW ORCHESTRATOR - internal/flow/orchestrator.go
// ==============================================================================
// Owns session mutations. Every inbound event (user action, capture
// callback, submission outcome) is applied under a per-session lock:
// load state, run the transition engine, save, broadcast.
// ==============================================================================

package flow

import (
	"context"
	"sync"
	"time"

	"kycflow/internal/capture"
	"kycflow/internal/domain"
	"kycflow/internal/session"
	"kycflow/internal/verification"
	"kycflow/pkg/logger"

	"github.com/google/uuid"
)

// Verifier is the submission boundary. Satisfied by *verification.Client.
type Verifier interface {
	Submit(ctx context.Context, req verification.SubmitRequest) (*verification.VerifyResponse, error)
}

// Orchestrator drives verification sessions end to end.
type Orchestrator struct {
	store    session.Store
	engine   *Engine
	verifier Verifier
	events   *Broadcaster
	logger   logger.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewOrchestrator(store session.Store, verifier Verifier, events *Broadcaster, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		engine:   NewEngine(),
		verifier: verifier,
		events:   events,
		logger:   log,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// Events exposes the broadcaster for WebSocket handlers.
func (o *Orchestrator) Events() *Broadcaster {
	return o.events
}

// sessionLock returns the mutex serializing mutations for one session.
func (o *Orchestrator) sessionLock(id uuid.UUID) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	return lock
}

func (o *Orchestrator) releaseLock(id uuid.UUID) {
	o.mu.Lock()
	delete(o.locks, id)
	o.mu.Unlock()
}

// mutate loads the session, applies fn, saves and broadcasts. A returned
// FlowError with a redirect step is itself a state mutation: the banner is
// set, the step moved, and the updated state still saved.
func (o *Orchestrator) mutate(ctx context.Context, id uuid.UUID, fn func(*domain.SessionState) *FlowError) (*domain.SessionState, error) {
	lock := o.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	state, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	flowErr := fn(state)
	if flowErr != nil {
		if flowErr.Category == CategoryValidation || flowErr.Category == CategoryCapture {
			state.ErrorMessage = flowErr.Message
		}
		if flowErr.RedirectStep != nil {
			state.CurrentStep = *flowErr.RedirectStep
		}
	}

	if err := o.store.Save(ctx, state); err != nil {
		return nil, err
	}
	o.events.Publish(state)

	if flowErr != nil {
		return state, flowErr
	}
	return state, nil
}

// CreateSession starts a new verification session at the welcome screen.
func (o *Orchestrator) CreateSession(ctx context.Context) (*domain.SessionState, error) {
	state := domain.NewSessionState()
	if err := o.store.Save(ctx, state); err != nil {
		return nil, err
	}
	o.logger.Info("Session created", map[string]interface{}{
		"session_id": state.ID,
		"user_id":    state.UserID,
	})
	return state, nil
}

// GetSession returns the current state without mutating it.
func (o *Orchestrator) GetSession(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	return o.store.Get(ctx, id)
}

// Start moves WELCOME -> FORM.
func (o *Orchestrator) Start(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	return o.mutate(ctx, id, o.engine.Start)
}

// UpdateDetails applies a form edit, including the document-type-change
// invalidation rules.
func (o *Orchestrator) UpdateDetails(ctx context.Context, id uuid.UUID, details domain.PersonalDetails) (*domain.SessionState, error) {
	return o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		return o.engine.UpdateDetails(s, details)
	})
}

// AdvanceToDocument moves FORM -> DOCUMENT_CAPTURE when the details are
// complete.
func (o *Orchestrator) AdvanceToDocument(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	return o.mutate(ctx, id, o.engine.AdvanceToDocument)
}

// CaptureDocument handles a document widget onPhotoTaken callback.
func (o *Orchestrator) CaptureDocument(ctx context.Context, id uuid.UUID, side DocumentSide, img capture.Image) (*domain.SessionState, error) {
	prefix := capture.PrefixDocumentFront
	if side == SideBack {
		prefix = capture.PrefixDocumentBack
	}

	return o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		artifact, err := capture.ToArtifact(img, prefix, time.Now())
		if err != nil {
			o.logger.Warn("Document capture rejected", map[string]interface{}{
				"session_id": id,
				"side":       side,
				"error":      err.Error(),
			})
			return &FlowError{
				Code:     "CAPTURE_FAILED",
				Message:  "Failed to capture document. Please try again.",
				Category: CategoryCapture,
				Cause:    err,
			}
		}

		if flowErr := o.engine.ApplyDocumentCapture(s, side, artifact); flowErr != nil {
			return flowErr
		}
		o.logger.Info("Document captured", map[string]interface{}{
			"session_id": id,
			"side":       side,
			"filename":   artifact.Filename,
			"bytes":      len(artifact.Bytes),
			"next_step":  s.CurrentStep,
		})
		return nil
	})
}

// CaptureSelfie handles a face widget onPhotoTaken callback.
func (o *Orchestrator) CaptureSelfie(ctx context.Context, id uuid.UUID, img capture.Image) (*domain.SessionState, error) {
	return o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		artifact, err := capture.ToArtifact(img, capture.PrefixSelfie, time.Now())
		if err != nil {
			return &FlowError{
				Code:     "CAPTURE_FAILED",
				Message:  "Failed to capture selfie. Please try again.",
				Category: CategoryCapture,
				Cause:    err,
			}
		}

		if flowErr := o.engine.ApplySelfieCapture(s, artifact); flowErr != nil {
			return flowErr
		}
		o.logger.Info("Selfie captured", map[string]interface{}{
			"session_id": id,
			"count":      len(s.Selfies),
			"step":       s.CurrentStep,
		})
		return nil
	})
}

// ReportCaptureError surfaces a widget onError callback in the banner.
func (o *Orchestrator) ReportCaptureError(ctx context.Context, id uuid.UUID, message string) (*domain.SessionState, error) {
	return o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		o.engine.ReportCaptureError(s, message)
		return nil
	})
}

// NavigateBack handles a widget onBack callback.
func (o *Orchestrator) NavigateBack(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	return o.mutate(ctx, id, o.engine.NavigateBack)
}

// Review applies a review-screen choice (retake document, retake selfies,
// edit details).
func (o *Orchestrator) Review(ctx context.Context, id uuid.UUID, action ReviewAction) (*domain.SessionState, error) {
	return o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		return o.engine.Review(s, action)
	})
}

// DismissBanners clears the transient messages.
func (o *Orchestrator) DismissBanners(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	return o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		s.ClearBanners()
		return nil
	})
}

// Restart resets the session to the welcome screen.
func (o *Orchestrator) Restart(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	return o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		o.engine.Restart(s)
		return nil
	})
}

// Teardown deletes the session, releasing every stored artifact handle.
func (o *Orchestrator) Teardown(ctx context.Context, id uuid.UUID) error {
	if err := o.store.Delete(ctx, id); err != nil {
		return err
	}
	o.releaseLock(id)
	o.logger.Info("Session deleted", map[string]interface{}{"session_id": id})
	return nil
}

// Submit runs the full submission: local validation, SUBMITTING, backend
// call, RESULT. The session lock is released during the network call; the
// submitting flag keeps a second submit out, and SUBMITTING always exits
// into RESULT.
func (o *Orchestrator) Submit(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	var req verification.SubmitRequest

	state, err := o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		if s.CurrentStep != domain.StepReview {
			return errInvalidStep("submit", s.CurrentStep)
		}
		if flowErr := o.engine.ValidateSubmission(s); flowErr != nil {
			return flowErr
		}

		req = verification.SubmitRequest{
			Details:       s.Details,
			UserID:        s.UserID,
			ChallengeType: "passive",
			DocumentFront: s.Document.Front,
			DocumentBack:  s.Document.Back,
			Selfies:       s.Selfies,
		}
		o.engine.BeginSubmission(s)
		return nil
	})
	if err != nil {
		return state, err
	}

	resp, submitErr := o.verifier.Submit(ctx, req)
	result := verification.Interpret(resp, submitErr)

	final, err := o.mutate(ctx, id, func(s *domain.SessionState) *FlowError {
		o.engine.CompleteSubmission(s, result)
		return nil
	})
	if err != nil {
		return final, err
	}

	o.logger.Info("Submission completed", map[string]interface{}{
		"session_id": id,
		"outcome":    result.Outcome,
		"message":    result.Message,
	})
	return final, nil
}
