// ==============================================================================
// ROUTE REGISTRATION - internal/handler/routes.go
// ==============================================================================
package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the session API onto the router.
func RegisterRoutes(r *mux.Router, sessions *SessionHandler, captures *CaptureHandler, events *EventsHandler) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/sessions", sessions.Create).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", sessions.Get).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", sessions.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/start", sessions.Start).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/details", sessions.UpdateDetails).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/advance", sessions.Advance).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/review", sessions.Review).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/back", sessions.Back).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/submit", sessions.Submit).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/restart", sessions.Restart).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/banner/dismiss", sessions.DismissBanners).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{id}/captures/document", captures.Document).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/captures/selfie", captures.Selfie).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/capture-errors", captures.Error).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/images/{imageID}", captures.Image).Methods(http.MethodGet)

	api.HandleFunc("/sessions/{id}/events", events.Stream).Methods(http.MethodGet)
}
