// ==============================================================================
// KYC CAPTURE ORCHESTRATOR - cmd/orchestrator/main.go
// ==============================================================================
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kycflow/internal/flow"
	"kycflow/internal/handler"
	"kycflow/internal/middleware"
	"kycflow/internal/session"
	"kycflow/internal/verification"
	"kycflow/pkg/cache"
	"kycflow/pkg/config"
	"kycflow/pkg/logger"
	"kycflow/pkg/validator"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("kyc-orchestrator")

	if cfg.Verification.BaseURL == "" {
		// Strict policy: boot is allowed so captures can be exercised, but
		// every submission will fail fast with a configuration error.
		log.Warn("VERIFICATION_BASE_URL is not set; submissions will be rejected", nil)
	}

	store, closeStore, err := buildStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize session store", map[string]interface{}{
			"store": cfg.Session.Store,
			"error": err.Error(),
		})
	}
	defer closeStore()

	verifier := verification.NewClient(cfg.Verification.BaseURL, cfg.Verification.Timeout, log)
	orchestrator := flow.NewOrchestrator(store, verifier, flow.NewBroadcaster(), log)
	val := validator.New()

	sessions := handler.NewSessionHandler(orchestrator, val, log)
	captures := handler.NewCaptureHandler(orchestrator, log)
	events := handler.NewEventsHandler(orchestrator, log)

	r := mux.NewRouter()

	// Global middleware
	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(12 << 20)) // capture uploads are the largest inputs

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"kyc-orchestrator"}`))
	}).Methods("GET")

	handler.RegisterRoutes(r, sessions, captures, events)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting KYC orchestrator", map[string]interface{}{
			"addr":          srv.Addr,
			"session_store": cfg.Session.Store,
			"session_ttl":   cfg.Session.TTL.String(),
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

func buildStore(cfg *config.Config, log logger.Logger) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using Redis session store", map[string]interface{}{"url": cfg.Redis.URL})
		return session.NewRedisStore(redisCache, cfg.Session.TTL), func() { _ = redisCache.Close() }, nil
	default:
		return session.NewMemoryStore(cfg.Session.TTL), func() {}, nil
	}
}
