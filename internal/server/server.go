// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/netcache"
	"github.com/jeranaias/rigrun-gateway/internal/terminal"
	"github.com/jeranaias/rigrun-gateway/internal/tools"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr binds to loopback only.
	DefaultAddr = "127.0.0.1:7878"

	// DefaultMaxBodyBytes leaves room for rewrite_file payloads.
	DefaultMaxBodyBytes = 16 * 1024 * 1024

	// Version is the server version.
	Version = "0.3.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Config controls the HTTP transport.
type Config struct {
	Addr              string
	Token             string
	AllowedIPs        []string
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
}

// HealthCheck probes an optional collaborator. A failing check marks the
// server degraded without failing /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// CacheReporter is implemented by the web service.
type CacheReporter interface {
	CacheStats() (netcache.Stats, bool)
}

// Deps are the collaborators served over HTTP. Gateway is required.
type Deps struct {
	Gateway     *tools.Gateway
	Terminals   *terminal.Coordinator
	Diagnostics *tools.MemoryDiagnostics
	Cache       CacheReporter
	Roots       []string
	Checks      []HealthCheck
}

// Server is the HTTP front end of the tool gateway.
type Server struct {
	cfg     Config
	deps    Deps
	log     zerolog.Logger
	limiter *RateLimiter
	handler http.Handler
	http    *http.Server
	started time.Time
}

// New creates a Server. It does not listen until ListenAndServe.
func New(cfg Config, deps Deps, log zerolog.Logger) (*Server, error) {
	if deps.Gateway == nil {
		return nil, errors.New("server: a gateway is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		log:     log.With().Str("component", "server").Logger(),
		limiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		started: time.Now(),
	}
	s.handler = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(AccessLog(s.log))
	r.Use(Recovery(s.log))
	r.Use(SecurityHeaders)
	r.Use(BodyLimit(s.cfg.MaxBodyBytes))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(&AuthConfig{Token: s.cfg.Token, AllowedIPs: s.cfg.AllowedIPs}, s.log))
		r.Use(s.limiter.Middleware(s.log))

		r.Get("/tools", s.handleListTools)
		r.Post("/tools/{name}", s.handleInvoke)

		r.Get("/terminals", s.handleTerminals)
		r.Get("/terminals/{id}", s.handlePollTerminal)
		r.Delete("/terminals/{id}", s.handleKillTerminal)

		r.Put("/diagnostics", s.handlePutDiagnostics)

		// Quick reads never hold a connection for long.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(10 * time.Second))
			r.Get("/stats", s.handleStats)
			r.Get("/history", s.handleHistory)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint", "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "not_found")
	})
	return r
}

// ListenAndServe serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.cfg.Addr).Str("version", Version).
		Bool("auth", s.cfg.Token != "").Msg("server listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight calls. Running
// commands see their request context cancelled and are interrupted.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down server")
	err := s.http.Shutdown(ctx)
	s.limiter.Stop()
	return err
}
