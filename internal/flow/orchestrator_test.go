package flow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kycflow/internal/capture"
	"kycflow/internal/domain"
	"kycflow/internal/session"
	"kycflow/internal/verification"
	"kycflow/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockVerifier mocks the submission boundary.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Submit(ctx context.Context, req verification.SubmitRequest) (*verification.VerifyResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.VerifyResponse), args.Error(1)
}

func newTestOrchestrator(verifier Verifier) *Orchestrator {
	store := session.NewMemoryStore(10 * time.Minute)
	return NewOrchestrator(store, verifier, NewBroadcaster(), logger.NewNop())
}

func jpegImage(tag string) capture.Image {
	return capture.Image{
		Data:     []byte("jpeg-" + tag),
		MimeType: "image/jpeg",
	}
}

// driveToReview walks a session from creation to the review screen.
func driveToReview(t *testing.T, orch *Orchestrator, docType domain.DocumentType) *domain.SessionState {
	t.Helper()
	ctx := context.Background()

	state, err := orch.CreateSession(ctx)
	require.NoError(t, err)
	id := state.ID

	_, err = orch.Start(ctx, id)
	require.NoError(t, err)

	_, err = orch.UpdateDetails(ctx, id, domain.PersonalDetails{
		Name:         "Jane",
		Surname:      "Doe",
		DateOfBirth:  "1990-01-01",
		DocumentType: docType,
	})
	require.NoError(t, err)

	_, err = orch.AdvanceToDocument(ctx, id)
	require.NoError(t, err)

	state, err = orch.CaptureDocument(ctx, id, SideFront, jpegImage("front"))
	require.NoError(t, err)

	if docType.RequiresBack() {
		require.Equal(t, domain.StepDocumentBack, state.CurrentStep)
		state, err = orch.CaptureDocument(ctx, id, SideBack, jpegImage("back"))
		require.NoError(t, err)
	}
	require.Equal(t, domain.StepFaceCapture, state.CurrentStep)

	for i := 1; i <= domain.SelfieTarget; i++ {
		state, err = orch.CaptureSelfie(ctx, id, jpegImage(fmt.Sprintf("selfie-%d", i)))
		require.NoError(t, err)
	}
	require.Equal(t, domain.StepReview, state.CurrentStep)
	return state
}

func TestFullFlowSuccess(t *testing.T) {
	score := 0.81
	confidence := 0.93
	verifier := new(MockVerifier)
	verifier.On("Submit", mock.Anything, mock.MatchedBy(func(req verification.SubmitRequest) bool {
		return req.Details.Name == "Jane" &&
			req.ChallengeType == "passive" &&
			req.DocumentFront != nil &&
			req.DocumentBack == nil &&
			len(req.Selfies) == domain.SelfieTarget
	})).Return(&verification.VerifyResponse{
		Success: true,
		Message: "Verification completed",
		Data: &verification.VerifyData{
			Results: &verification.VerifyResults{
				FaceComparison: &verification.FaceComparison{Score: &score},
				LivenessCheck:  &verification.LivenessResult{Status: "live", Confidence: &confidence},
			},
		},
	}, nil)

	orch := newTestOrchestrator(verifier)
	state := driveToReview(t, orch, domain.DocumentTypePassport)

	final, err := orch.Submit(context.Background(), state.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StepResult, final.CurrentStep)
	assert.False(t, final.Submitting)
	require.NotNil(t, final.Result)
	assert.Equal(t, domain.OutcomeSuccess, final.Result.Outcome)
	assert.Equal(t, "Verification completed", final.Result.Message)
	require.NotNil(t, final.Result.FaceScore)
	assert.Equal(t, 0.81, *final.Result.FaceScore)
	assert.Equal(t, 0.64, final.Result.FaceThreshold)
	assert.Equal(t, "live", final.Result.LivenessStatus)
	assert.Equal(t, "Verification completed", final.SuccessMessage)
	verifier.AssertExpectations(t)
}

func TestFullFlowTwoSidedDocument(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("Submit", mock.Anything, mock.MatchedBy(func(req verification.SubmitRequest) bool {
		return req.DocumentBack != nil
	})).Return(&verification.VerifyResponse{Success: true}, nil)

	orch := newTestOrchestrator(verifier)
	state := driveToReview(t, orch, domain.DocumentTypeDriverLicense)

	final, err := orch.Submit(context.Background(), state.ID)
	require.NoError(t, err)
	require.NotNil(t, final.Result)
	assert.Equal(t, domain.OutcomeSuccess, final.Result.Outcome)
	verifier.AssertExpectations(t)
}

func TestSubmitRejectedByBackend(t *testing.T) {
	score := 0.2
	verifier := new(MockVerifier)
	verifier.On("Submit", mock.Anything, mock.Anything).Return(nil, &verification.SubmissionError{
		StatusCode: 422,
		Message:    "face mismatch",
		Details: &verification.ErrorDetails{
			FaceMatch: &verification.FaceMatchDetails{Score: &score},
		},
	})

	orch := newTestOrchestrator(verifier)
	state := driveToReview(t, orch, domain.DocumentTypePassport)

	final, err := orch.Submit(context.Background(), state.ID)
	require.NoError(t, err)

	// SUBMITTING always exits into RESULT, even on rejection.
	assert.Equal(t, domain.StepResult, final.CurrentStep)
	assert.False(t, final.Submitting)
	require.NotNil(t, final.Result)
	assert.Equal(t, domain.OutcomeError, final.Result.Outcome)
	assert.Equal(t, "face mismatch", final.Result.Message)
	require.NotNil(t, final.Result.FaceScore)
	assert.Equal(t, 0.2, *final.Result.FaceScore)
	assert.Equal(t, 0.64, final.Result.FaceThreshold)
}

func TestSubmitRefusedWithoutRequiredBack(t *testing.T) {
	verifier := new(MockVerifier)
	orch := newTestOrchestrator(verifier)
	ctx := context.Background()

	// Reach review with a passport, then switch to a two-sided type directly
	// in the store to fabricate a session missing its back side.
	state := driveToReview(t, orch, domain.DocumentTypePassport)
	state.Details.DocumentType = domain.DocumentTypeIDCard
	require.NoError(t, orch.store.Save(ctx, state))

	after, err := orch.Submit(ctx, state.ID)
	require.Error(t, err)

	flowErr, ok := err.(*FlowError)
	require.True(t, ok)
	assert.Equal(t, "DOCUMENT_BACK_MISSING", flowErr.Code)

	// The session was redirected to the fixing screen with a banner.
	assert.Equal(t, domain.StepDocumentBack, after.CurrentStep)
	assert.NotEmpty(t, after.ErrorMessage)
	verifier.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmitRefusedOutsideReview(t *testing.T) {
	verifier := new(MockVerifier)
	orch := newTestOrchestrator(verifier)
	ctx := context.Background()

	state, err := orch.CreateSession(ctx)
	require.NoError(t, err)

	_, err = orch.Submit(ctx, state.ID)
	require.Error(t, err)
	flowErr, ok := err.(*FlowError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_STEP", flowErr.Code)
	verifier.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmitRefusedWhileInFlight(t *testing.T) {
	verifier := new(MockVerifier)
	orch := newTestOrchestrator(verifier)
	ctx := context.Background()

	state := driveToReview(t, orch, domain.DocumentTypePassport)
	state.Submitting = true
	require.NoError(t, orch.store.Save(ctx, state))

	_, err := orch.Submit(ctx, state.ID)
	require.Error(t, err)
	flowErr, ok := err.(*FlowError)
	require.True(t, ok)
	assert.Equal(t, "SUBMISSION_IN_FLIGHT", flowErr.Code)
	verifier.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestCaptureErrorSetsBannerOnly(t *testing.T) {
	orch := newTestOrchestrator(new(MockVerifier))
	ctx := context.Background()

	state, err := orch.CreateSession(ctx)
	require.NoError(t, err)

	after, err := orch.ReportCaptureError(ctx, state.ID, "camera unavailable")
	require.NoError(t, err)
	assert.Equal(t, "camera unavailable", after.ErrorMessage)
	assert.Equal(t, domain.StepWelcome, after.CurrentStep)

	cleared, err := orch.DismissBanners(ctx, state.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.ErrorMessage)
}

func TestEmptyDocumentCaptureRejected(t *testing.T) {
	orch := newTestOrchestrator(new(MockVerifier))
	ctx := context.Background()

	state, err := orch.CreateSession(ctx)
	require.NoError(t, err)
	id := state.ID

	_, err = orch.Start(ctx, id)
	require.NoError(t, err)
	_, err = orch.UpdateDetails(ctx, id, domain.PersonalDetails{
		Name: "Jane", Surname: "Doe", DateOfBirth: "1990-01-01",
		DocumentType: domain.DocumentTypePassport,
	})
	require.NoError(t, err)
	_, err = orch.AdvanceToDocument(ctx, id)
	require.NoError(t, err)

	after, err := orch.CaptureDocument(ctx, id, SideFront, capture.Image{})
	require.Error(t, err)

	// Step unchanged, banner set, nothing stored.
	assert.Equal(t, domain.StepDocumentCapture, after.CurrentStep)
	assert.Equal(t, "Failed to capture document. Please try again.", after.ErrorMessage)
	assert.Nil(t, after.Document.Front)
}

func TestRestartKeepsUserID(t *testing.T) {
	orch := newTestOrchestrator(new(MockVerifier))
	ctx := context.Background()

	state := driveToReview(t, orch, domain.DocumentTypePassport)
	userID := state.UserID

	after, err := orch.Restart(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepWelcome, after.CurrentStep)
	assert.Equal(t, userID, after.UserID)
	assert.Nil(t, after.Document.Front)
	assert.Empty(t, after.Selfies)
}

func TestTeardownDeletesSession(t *testing.T) {
	orch := newTestOrchestrator(new(MockVerifier))
	ctx := context.Background()

	state, err := orch.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, orch.Teardown(ctx, state.ID))
	_, err = orch.GetSession(ctx, state.ID)
	require.Error(t, err)
}

func TestEventsPublishedOnMutation(t *testing.T) {
	orch := newTestOrchestrator(new(MockVerifier))
	ctx := context.Background()

	state, err := orch.CreateSession(ctx)
	require.NoError(t, err)

	events, cancel := orch.Events().Subscribe(state.ID)
	defer cancel()

	_, err = orch.Start(ctx, state.ID)
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, state.ID, event.SessionID)
		assert.Equal(t, domain.StepForm, event.Step)
	case <-time.After(time.Second):
		t.Fatal("expected a step-change event")
	}
}
