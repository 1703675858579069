// ==============================================================================
// SESSION STORE - internal/session/store.go
// ==============================================================================
// Session state lives only for the lifetime of a verification attempt. Both
// backends bound sessions with a TTL; nothing is persisted beyond it.
// ==============================================================================

package session

import (
	"context"

	"kycflow/internal/domain"

	"github.com/google/uuid"
)

// Store keeps SessionState records keyed by session ID.
type Store interface {
	// Get returns the session or pkg/errors.ErrSessionNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.SessionState, error)
	// Save writes the session and refreshes its TTL.
	Save(ctx context.Context, state *domain.SessionState) error
	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}
