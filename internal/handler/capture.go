// ==============================================================================
// CAPTURE HTTP HANDLER - internal/handler/capture.go
// ==============================================================================
// Receives the capture widgets' callbacks: accepted photos as multipart
// uploads, pipeline errors, and serves stored artifact images for preview.
// ==============================================================================

package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"kycflow/internal/capture"
	"kycflow/internal/flow"
	"kycflow/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxCaptureBytes caps a single capture upload. Auto-capture widgets emit
// JPEG frames well under this.
const maxCaptureBytes = 10 << 20 // 10MB

// CaptureHandler handles capture uploads and artifact image serving.
type CaptureHandler struct {
	orchestrator *flow.Orchestrator
	logger       logger.Logger
}

// NewCaptureHandler creates a CaptureHandler.
func NewCaptureHandler(orch *flow.Orchestrator, log logger.Logger) *CaptureHandler {
	return &CaptureHandler{
		orchestrator: orch,
		logger:       log,
	}
}

// readImage extracts the uploaded image from the multipart form. The widget
// posts the accepted frame under the "image" field.
func (h *CaptureHandler) readImage(w http.ResponseWriter, r *http.Request) (capture.Image, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCaptureBytes)
	if err := r.ParseMultipartForm(maxCaptureBytes); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Invalid multipart form")
		return capture.Image{}, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Form field 'image' is required")
		return capture.Image{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Failed to read image upload")
		return capture.Image{}, false
	}

	return capture.Image{
		Data:     data,
		MimeType: header.Header.Get("Content-Type"),
	}, true
}

// Document receives an accepted document capture.
// POST /api/v1/sessions/{id}/captures/document?side=front|back
func (h *CaptureHandler) Document(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}

	side := flow.DocumentSide(r.URL.Query().Get("side"))
	if side == "" {
		side = flow.SideFront
	}
	if side != flow.SideFront && side != flow.SideBack {
		respondError(h.logger, w, http.StatusBadRequest, "Query parameter 'side' must be front or back")
		return
	}

	img, ok := h.readImage(w, r)
	if !ok {
		return
	}

	state, err := h.orchestrator.CaptureDocument(r.Context(), id, side, img)
	respondState(h.logger, w, state, err)
}

// Selfie receives an accepted selfie capture.
// POST /api/v1/sessions/{id}/captures/selfie
func (h *CaptureHandler) Selfie(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}

	img, ok := h.readImage(w, r)
	if !ok {
		return
	}

	state, err := h.orchestrator.CaptureSelfie(r.Context(), id, img)
	respondState(h.logger, w, state, err)
}

type captureErrorRequest struct {
	Message string `json:"message"`
}

// Error relays the capture widget's onError callback into the banner.
// POST /api/v1/sessions/{id}/capture-errors
func (h *CaptureHandler) Error(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}

	// Body is optional; an empty message falls back to a generic banner.
	var req captureErrorRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	_ = json.NewDecoder(r.Body).Decode(&req)

	state, err := h.orchestrator.ReportCaptureError(r.Context(), id, req.Message)
	respondState(h.logger, w, state, err)
}

// Image serves a stored artifact's bytes, the display handle backing
// preview thumbnails. Handles of superseded artifacts return 404.
// GET /api/v1/sessions/{id}/images/{imageID}
func (h *CaptureHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}

	imageID, err := uuid.Parse(mux.Vars(r)["imageID"])
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Invalid image ID")
		return
	}

	state, err := h.orchestrator.GetSession(r.Context(), id)
	if err != nil {
		respondState(h.logger, w, nil, err)
		return
	}

	artifact := state.ArtifactByImageID(imageID)
	if artifact == nil {
		respondError(h.logger, w, http.StatusNotFound, "Image not found")
		return
	}

	w.Header().Set("Content-Type", artifact.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Bytes)))
	w.Header().Set("Content-Disposition", `inline; filename="`+artifact.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Bytes)
}
