// ==============================================================================
// CAPTURE ENGINE CONTRACT - internal/capture/engine.go
// ==============================================================================
// The document/face auto-capture component is an external black box. This
// package only defines the callback contract the orchestrator consumes and
// the control surface it drives.
// ==============================================================================

package capture

import "context"

// Image is the raw payload delivered by a capture engine when it accepts
// a frame.
type Image struct {
	// Data holds the encoded image bytes (typically JPEG).
	Data []byte
	// MimeType as declared by the engine. May be empty; callers default
	// to image/jpeg.
	MimeType string
}

// Metadata is the opaque per-capture payload emitted alongside the image
// (detection quality, document classification, etc.). The orchestrator
// never interprets it.
type Metadata map[string]interface{}

// Callbacks is the three-method contract every capture collaborator honors.
type Callbacks struct {
	// OnPhotoTaken fires once per accepted capture.
	OnPhotoTaken func(img Image, meta Metadata)
	// OnError fires on a capture-pipeline failure. The message is surfaced
	// verbatim in the session error banner.
	OnError func(err error)
	// OnBack fires on user-initiated backward navigation.
	OnBack func()
}

// Engine abstracts an auto-capture widget: camera, detection pipeline and
// all. Implementations run their own loop and invoke Callbacks.
type Engine interface {
	// Start begins detection and blocks until ctx is done or the engine
	// finishes its configured capture sequence.
	Start(ctx context.Context, cb Callbacks) error
	// ResumeDetection instructs the engine to continue after a capture was
	// accepted (multi-shot selfie sequences).
	ResumeDetection()
	// Stop tears the engine down.
	Stop()
}
