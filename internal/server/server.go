// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package server assembles the passkey HTTP server: ceremony service,
// in-memory stores, rate limiting, metrics, and graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/pkg/ceremony"
	ceremonyhttp "github.com/jeremyhahn/go-passkey/pkg/ceremony/http"
	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/ratelimit"
)

// Server represents the passkey REST API server.
type Server struct {
	server    *http.Server
	service   *ceremony.Service
	users     *ceremony.MemoryUserStore
	creds     *ceremony.MemoryCredentialStore
	config    *config.Config
	limiter   *ratelimit.Limiter
	tlsConfig *tls.Config
	health    *health.Checker
	logger    *slog.Logger
}

// New creates a passkey server from the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	users := ceremony.NewMemoryUserStore()
	creds := ceremony.NewMemoryCredentialStore()

	tokens, err := cfg.Auth.CreateTokenIssuer()
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	service, err := ceremony.NewService(ceremony.ServiceParams{
		Config:          &cfg.RelyingParty,
		UserStore:       users,
		CredentialStore: creds,
		TokenIssuer:     tokens,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ceremony service: %w", err)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMin,
		Burst:             cfg.RateLimit.Burst,
	})

	tlsConfig, err := cfg.TLS.LoadTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS config: %w", err)
	}

	// The ceremony handlers record through the shared registry; the flag
	// keeps them quiet when metrics are configured off.
	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	checker := health.NewChecker()
	checker.RegisterCheck("sessions", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{
			Status:  health.StatusHealthy,
			Message: fmt.Sprintf("%d pending ceremonies", service.Sessions().Count()),
		}
	})
	checker.RegisterCheck("credentials", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{
			Status:  health.StatusHealthy,
			Message: fmt.Sprintf("%d stored credentials", creds.Count()),
		}
	})

	srv := &Server{
		service:   service,
		users:     users,
		creds:     creds,
		config:    cfg,
		limiter:   limiter,
		tlsConfig: tlsConfig,
		health:    checker,
		logger:    logger,
	}

	srv.server = &http.Server{
		Addr:         cfg.ListenAddress(),
		Handler:      srv.setupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    tlsConfig,
	}

	return srv, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(s.RecoveryMiddleware())
	r.Use(s.RequestIDMiddleware())
	r.Use(s.LoggingMiddleware())
	if s.config.Metrics.Enabled {
		r.Use(metrics.HTTPMiddleware)
	}
	r.Use(ratelimit.Middleware(s.limiter))

	// Health probes (no auth, no ceremony state)
	r.Get("/healthz", s.healthzHandler)
	r.Head("/healthz", s.healthzHandler)
	r.Get("/readyz", s.readyzHandler)

	if s.config.Metrics.Enabled {
		// Resample runtime gauges on scrape so readings are at most one
		// request old regardless of the collector interval.
		promHandler := promhttp.Handler()
		r.Handle(s.config.Metrics.Path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			metrics.CollectOnce()
			promHandler.ServeHTTP(w, req)
		}))
	}

	// Ceremony endpoints
	handler := ceremonyhttp.NewHandler(s.service).WithLogger(s.logger)
	r.Route("/api/v1/passkey", func(r chi.Router) {
		ceremonyhttp.MountChi(r, handler)
	})

	return r
}

// healthzHandler reports process liveness.
func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readyzHandler runs the registered readiness checks. Before MarkStarted the
// endpoint reports 503 so load balancers hold traffic during initialization.
func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	results := s.health.Ready(r.Context())
	results = append(results, s.health.Startup(r.Context()))
	status := health.AggregateStatus(results)

	code := http.StatusOK
	if status != health.StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": results,
	})
}

// Start starts the server and its background workers. It blocks until the
// listener fails or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	// Sweep expired pending ceremonies in the background
	s.service.Sessions().StartCleanupRoutine(ctx, s.config.Server.CeremonyCleanupInterval, s.logger)

	if s.config.Metrics.Enabled {
		metrics.StartCollector(ctx, 30*time.Second)
		go s.updateGauges(ctx)
	}

	s.health.MarkStarted()

	if s.tlsConfig != nil {
		s.logger.Info("starting HTTPS server", "addr", s.server.Addr)
		if err := s.server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
	} else {
		s.logger.Info("starting HTTP server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	return nil
}

// updateGauges periodically publishes store sizes to the metrics registry.
func (s *Server) updateGauges(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetPendingCeremonies(s.service.Sessions().Count())
			metrics.SetCredentialsTotal(s.creds.Count())
		}
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Service returns the ceremony service backing the server.
func (s *Server) Service() *ceremony.Service {
	return s.service
}

// Addr returns the address the server binds to.
func (s *Server) Addr() string {
	return s.server.Addr
}
