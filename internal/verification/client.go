// ==============================================================================
// SUBMISSION PROTOCOL CLIENT - internal/verification/client.go
// ==============================================================================
// Builds and sends the multipart verification request and decodes the
// backend's success and failure bodies.
// ==============================================================================

package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"kycflow/internal/domain"
	"kycflow/pkg/errors"
	"kycflow/pkg/logger"
)

const (
	verifyPath           = "/api/kyc/verify"
	defaultChallengeType = "passive"
	defaultMimeType      = "image/jpeg"
)

// SubmitRequest carries everything the backend needs for one verification.
type SubmitRequest struct {
	Details       domain.PersonalDetails
	UserID        string
	ChallengeType string
	DocumentFront *domain.CapturedArtifact
	DocumentBack  *domain.CapturedArtifact
	Selfies       []domain.CapturedArtifact
}

// VerifyResponse is the decoded 2xx body. Nested fields are pointers so
// absent values stay absent.
type VerifyResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    *VerifyData `json:"data,omitempty"`
}

type VerifyData struct {
	Results *VerifyResults `json:"results,omitempty"`
}

type VerifyResults struct {
	FaceComparison *FaceComparison `json:"faceComparison,omitempty"`
	LivenessCheck  *LivenessResult `json:"livenessCheck,omitempty"`
	// Liveness is the legacy alias some backend versions still emit.
	Liveness *LivenessResult `json:"liveness,omitempty"`
}

type FaceComparison struct {
	Score *float64 `json:"score,omitempty"`
}

type LivenessResult struct {
	Status     string   `json:"status,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// SubmissionError is a non-2xx verification response. It keeps the parsed
// details and raw body so callers can render partial biometric results even
// on rejection.
type SubmissionError struct {
	StatusCode int
	Message    string
	Details    *ErrorDetails
	RawBody    []byte
}

type ErrorDetails struct {
	FaceMatch *FaceMatchDetails `json:"faceMatch,omitempty"`
	Liveness  *LivenessResult   `json:"liveness,omitempty"`
}

type FaceMatchDetails struct {
	Score     *float64 `json:"score,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

func (e *SubmissionError) Error() string {
	return e.Message
}

// Client submits verification payloads to the configured backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient builds a Client. baseURL may be empty; Submit then fails fast
// with a configuration error instead of calling an empty endpoint.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// Submit sends the multipart request. Preconditions here only guard against
// literally empty required fields; the transition engine enforces the full
// four-selfie gate before this layer is reached.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*VerifyResponse, error) {
	if c.baseURL == "" {
		return nil, errors.ErrBaseURLNotConfigured
	}
	if req.DocumentFront == nil || len(req.DocumentFront.Bytes) == 0 {
		return nil, fmt.Errorf("document front image is required")
	}
	if len(req.Selfies) == 0 {
		return nil, fmt.Errorf("at least one selfie image is required")
	}

	body, contentType, err := c.encodeForm(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode multipart form")
	}

	endpoint := c.baseURL + verifyPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, "build verification request")
	}
	httpReq.Header.Set("Content-Type", contentType)

	c.logger.Info("Submitting KYC verification", map[string]interface{}{
		"endpoint":  endpoint,
		"user_id":   req.UserID,
		"doc_type":  req.Details.DocumentType,
		"selfies":   len(req.Selfies),
		"has_back":  req.DocumentBack != nil,
		"body_size": body.Len(),
	})

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "verification request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read verification response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.decodeError(resp.StatusCode, raw)
	}

	var out VerifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "decode verification response")
	}
	return &out, nil
}

func (c *Client) encodeForm(req SubmitRequest) (*bytes.Buffer, string, error) {
	challenge := req.ChallengeType
	if challenge == "" {
		challenge = defaultChallengeType
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"name":          req.Details.Name,
		"surname":       req.Details.Surname,
		"dateOfBirth":   req.Details.DateOfBirth,
		"documentType":  string(req.Details.DocumentType),
		"userId":        req.UserID,
		"challengeType": challenge,
	}
	for field, value := range fields {
		if err := writer.WriteField(field, value); err != nil {
			return nil, "", err
		}
	}

	if err := writeFilePart(writer, "documentFront", req.DocumentFront, "document_front.jpg"); err != nil {
		return nil, "", err
	}
	if req.DocumentBack != nil {
		if err := writeFilePart(writer, "documentBack", req.DocumentBack, "document_back.jpg"); err != nil {
			return nil, "", err
		}
	}

	primary := req.Selfies[0]
	if err := writeFilePart(writer, "selfiePrimary", &primary, "selfie_primary.jpg"); err != nil {
		return nil, "", err
	}
	for i := range req.Selfies {
		selfie := req.Selfies[i]
		fallback := fmt.Sprintf("selfie_%d.jpg", i+1)
		if err := writeFilePart(writer, "selfieImages", &selfie, fallback); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

// writeFilePart writes one file field with an explicit Content-Type, since
// the backend rejects parts without an image media type.
func writeFilePart(writer *multipart.Writer, field string, artifact *domain.CapturedArtifact, fallbackName string) error {
	filename := artifact.Filename
	if filename == "" {
		filename = fallbackName
	}
	mimeType := artifact.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(artifact.Bytes)
	return err
}

func (c *Client) decodeError(status int, raw []byte) *SubmissionError {
	subErr := &SubmissionError{
		StatusCode: status,
		Message:    fmt.Sprintf("KYC submission failed with status %d", status),
		RawBody:    raw,
	}

	var parsed struct {
		Message string        `json:"message"`
		Details *ErrorDetails `json:"details"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			subErr.Message = parsed.Message
		}
		subErr.Details = parsed.Details
	}

	c.logger.Warn("KYC verification rejected", map[string]interface{}{
		"status":  status,
		"message": subErr.Message,
	})
	return subErr
}
