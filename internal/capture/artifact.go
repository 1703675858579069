// ==============================================================================
// CAPTURE RESULT ADAPTER - internal/capture/artifact.go
// ==============================================================================
// Normalizes a raw capture event into a stored CapturedArtifact with all
// encodings of the same bytes plus a timestamped filename.
// ==============================================================================

package capture

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"kycflow/internal/domain"
	"kycflow/pkg/errors"

	"github.com/google/uuid"
)

// Filename prefixes per capture kind.
const (
	PrefixDocumentFront = "document-front"
	PrefixDocumentBack  = "document-back"
	PrefixSelfie        = "selfie"
)

const defaultMimeType = "image/jpeg"

// GenerateFilename builds `{prefix}_{timestamp}.jpg` where the timestamp is
// an ISO8601 instant with ':' and '.' separators normalized to '-' and
// sub-second precision dropped.
func GenerateFilename(prefix string, now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05")
	ts = strings.ReplaceAll(ts, ":", "-")
	return fmt.Sprintf("%s_%s.jpg", prefix, ts)
}

// ToArtifact converts an accepted capture into an immutable artifact record.
// All encodings are derived from the same bytes; an empty payload is a
// capture error and must not advance the flow.
func ToArtifact(img Image, prefix string, now time.Time) (*domain.CapturedArtifact, error) {
	if len(img.Data) == 0 {
		return nil, errors.ErrEmptyCapture
	}

	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	b64 := base64.StdEncoding.EncodeToString(img.Data)

	return &domain.CapturedArtifact{
		ImageID:  uuid.New(),
		Bytes:    img.Data,
		MimeType: mimeType,
		Base64:   b64,
		DataURI:  fmt.Sprintf("data:%s;base64,%s", mimeType, b64),
		Filename: GenerateFilename(prefix, now),
		TakenAt:  now.UTC(),
	}, nil
}
