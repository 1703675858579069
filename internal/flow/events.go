// ==============================================================================
// SESSION EVENT BROADCASTER - internal/flow/events.go
// ==============================================================================
// Fan-out of step changes and banner updates to WebSocket subscribers.
// Per-instance only; a subscriber sees the sessions handled by this process.
// ==============================================================================

package flow

import (
	"sync"
	"time"

	"kycflow/internal/domain"

	"github.com/google/uuid"
)

// Event is a snapshot of the session's render-relevant state after a
// mutation.
type Event struct {
	SessionID      uuid.UUID   `json:"sessionId"`
	Step           domain.Step `json:"step"`
	Submitting     bool        `json:"submitting"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
	SuccessMessage string      `json:"successMessage,omitempty"`
	At             time.Time   `json:"at"`
}

// Broadcaster delivers session events to subscribers. Slow subscribers drop
// events rather than block the orchestrator.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe registers for one session's events. The returned cancel func
// must be called to release the subscription.
func (b *Broadcaster) Subscribe(sessionID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Event]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, sessionID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans the session's current state out to its subscribers.
func (b *Broadcaster) Publish(state *domain.SessionState) {
	event := Event{
		SessionID:      state.ID,
		Step:           state.CurrentStep,
		Submitting:     state.Submitting,
		ErrorMessage:   state.ErrorMessage,
		SuccessMessage: state.SuccessMessage,
		At:             time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[state.ID] {
		select {
		case ch <- event:
		default:
		}
	}
}
