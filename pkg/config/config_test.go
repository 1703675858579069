package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 60*time.Second, cfg.Verification.Timeout)
	// No default backend URL; submissions must fail fast when unset.
	assert.Empty(t, cfg.Verification.BaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("VERIFICATION_BASE_URL", "https://kyc.example.com")
	t.Setenv("VERIFICATION_TIMEOUT", "90s")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "https://kyc.example.com", cfg.Verification.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Verification.Timeout)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("REDIS_DB", "three")

	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestNormalizeRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache.internal:6380")
	assert.Equal(t, "cache.internal:6380", Load().Redis.URL)

	t.Setenv("REDIS_URL", "redis+tls://cache.internal:6380")
	assert.Equal(t, "cache.internal:6380", Load().Redis.URL)

	t.Setenv("REDIS_URL", "cache.internal:6379")
	assert.Equal(t, "cache.internal:6379", Load().Redis.URL)
}
