// ==============================================================================
// SESSION EVENTS HANDLER - internal/handler/events.go
// ==============================================================================
// Streams step changes and banner updates to the frontend over WebSocket.
// ==============================================================================

package handler

import (
	"net/http"
	"time"

	"kycflow/internal/flow"
	"kycflow/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Same policy as CORS middleware; origins filtered there
	},
}

const (
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

// EventsHandler streams session events.
type EventsHandler struct {
	orchestrator *flow.Orchestrator
	logger       logger.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(orch *flow.Orchestrator, log logger.Logger) *EventsHandler {
	return &EventsHandler{
		orchestrator: orch,
		logger:       log,
	}
}

// Stream subscribes the caller to one session's events.
// GET /api/v1/sessions/{id}/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(h.logger, w, r)
	if !ok {
		return
	}

	// Confirm the session exists before upgrading.
	if _, err := h.orchestrator.GetSession(r.Context(), id); err != nil {
		respondState(h.logger, w, nil, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return
	}
	defer conn.Close()

	events, cancel := h.orchestrator.Events().Subscribe(id)
	defer cancel()

	// Drain client frames so close/ping handling works.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
