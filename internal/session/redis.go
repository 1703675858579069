// ==============================================================================
// REDIS SESSION STORE - internal/session/redis.go
// ==============================================================================
package session

import (
	"context"
	"time"

	"kycflow/internal/domain"
	"kycflow/pkg/cache"
	"kycflow/pkg/errors"

	"github.com/google/uuid"
)

const redisKeyPrefix = "kyc:session:"

// RedisStore keeps sessions in Redis with a TTL, for deployments running
// more than one orchestrator instance. Artifact bytes ride along as base64
// inside the JSON snapshot.
type RedisStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

func NewRedisStore(c *cache.RedisCache, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{cache: c, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	var state domain.SessionState
	if err := s.cache.Get(ctx, redisKeyPrefix+id.String(), &state); err != nil {
		if cache.IsMiss(err) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "redis session get")
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state *domain.SessionState) error {
	if err := s.cache.Set(ctx, redisKeyPrefix+state.ID.String(), state, s.ttl); err != nil {
		return errors.Wrap(err, "redis session save")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.cache.Delete(ctx, redisKeyPrefix+id.String()); err != nil {
		return errors.Wrap(err, "redis session delete")
	}
	return nil
}
