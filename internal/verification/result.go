// ==============================================================================
// RESULT INTERPRETER - internal/verification/result.go
// ==============================================================================
// Maps a backend response or submission failure into the user-facing
// SubmissionResult. Best-effort: malformed responses still produce a result.
// ==============================================================================

package verification

import "kycflow/internal/domain"

// FaceMatchThreshold is the fixed minimum passing face-comparison score.
const FaceMatchThreshold = 0.64

const (
	defaultSuccessMessage = "KYC verification completed successfully. We will email you with next steps shortly."
	defaultFailureMessage = "Failed to submit verification. Please try again."
)

// Interpret converts the outcome of Client.Submit into a SubmissionResult.
// It never fails; fields the backend omitted are simply left absent.
func Interpret(resp *VerifyResponse, err error) domain.SubmissionResult {
	if err != nil {
		return interpretFailure(err)
	}

	result := domain.SubmissionResult{
		Outcome:       domain.OutcomeSuccess,
		Message:       defaultSuccessMessage,
		FaceThreshold: FaceMatchThreshold,
	}
	if resp == nil {
		return result
	}
	if resp.Message != "" {
		result.Message = resp.Message
	}

	if resp.Data != nil && resp.Data.Results != nil {
		results := resp.Data.Results
		if results.FaceComparison != nil && results.FaceComparison.Score != nil {
			result.FaceScore = results.FaceComparison.Score
		}
		liveness := results.LivenessCheck
		if liveness == nil {
			liveness = results.Liveness
		}
		if liveness != nil {
			result.LivenessStatus = liveness.Status
			result.LivenessConfidence = liveness.Confidence
		}
	}
	return result
}

func interpretFailure(err error) domain.SubmissionResult {
	result := domain.SubmissionResult{
		Outcome:       domain.OutcomeError,
		Message:       defaultFailureMessage,
		FaceThreshold: FaceMatchThreshold,
	}

	subErr, ok := err.(*SubmissionError)
	if !ok {
		if msg := err.Error(); msg != "" {
			result.Message = msg
		}
		return result
	}

	if subErr.Message != "" {
		result.Message = subErr.Message
	}
	if subErr.Details != nil {
		if fm := subErr.Details.FaceMatch; fm != nil {
			if fm.Score != nil {
				result.FaceScore = fm.Score
			}
			if fm.Threshold != nil {
				result.FaceThreshold = *fm.Threshold
			}
		}
		if lv := subErr.Details.Liveness; lv != nil {
			result.LivenessStatus = lv.Status
			result.LivenessConfidence = lv.Confidence
		}
	}
	return result
}
