// ==============================================================================
// HANDLER RESPONSE HELPERS - internal/handler/respond.go
// ==============================================================================
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"kycflow/internal/domain"
	"kycflow/internal/flow"
	pkgerrors "kycflow/pkg/errors"
	"kycflow/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// respondJSON sends a JSON response with proper content type and status code.
func respondJSON(log logger.Logger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("Failed to encode JSON response", map[string]interface{}{
			"error":  err.Error(),
			"status": status,
		})
		http.Error(w, `{"error":"response encoding failed"}`, http.StatusInternalServerError)
	}
}

// respondError sends a standardized error response.
func respondError(log logger.Logger, w http.ResponseWriter, status int, message string) {
	respondJSON(log, w, status, map[string]string{"error": message})
}

// respondState maps orchestrator outcomes onto responses. Flow errors are
// recoverable: the session view rides along so the frontend can render the
// banner and the redirected step in one round trip.
func respondState(log logger.Logger, w http.ResponseWriter, state *domain.SessionState, err error) {
	if err == nil {
		respondJSON(log, w, http.StatusOK, newSessionView(state))
		return
	}

	var flowErr *flow.FlowError
	if errors.As(err, &flowErr) {
		payload := map[string]interface{}{
			"error": flowErr.Message,
			"code":  flowErr.Code,
		}
		if state != nil {
			payload["session"] = newSessionView(state)
		}
		respondJSON(log, w, flowErr.HTTPStatus(), payload)
		return
	}

	switch {
	case errors.Is(err, pkgerrors.ErrSessionNotFound), errors.Is(err, pkgerrors.ErrSessionExpired):
		respondError(log, w, http.StatusNotFound, "Session not found")
	default:
		log.Error("Session operation failed", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(log, w, http.StatusInternalServerError, "Internal server error")
	}
}

// parseSessionID extracts and parses the {id} path variable.
func parseSessionID(log logger.Logger, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(log, w, http.StatusBadRequest, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}
