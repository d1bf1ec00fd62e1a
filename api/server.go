// Package api provides the HTTP REST API for Lectern.
//
// Endpoints:
//
//	POST /api/query          - answer a question about course materials
//	GET  /api/courses        - corpus analytics (course count and titles)
//	POST /api/sessions       - create a conversation session
//	POST /api/sessions/clear - clear a session's history
//	GET  /health             - liveness probe
//	GET  /ready              - readiness probe (database ping)
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (request id, logging, recovery)
//   - health.go: health check endpoints
//   - query.go: query endpoint
//   - courses.go: course analytics endpoint
//   - session.go: session management endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern/lectern/internal/assistant"
	"github.com/lectern/lectern/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generous because a query may run multiple model calls.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for Lectern's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health  *HealthHandler
	query   *QueryHandler
	courses *CoursesHandler
	session *SessionHandler
}

// NewServer creates a new HTTP server with all routes registered.
// pool may be nil; the readiness probe then always reports unavailable.
func NewServer(a *assistant.Assistant, pool *pgxpool.Pool, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		logger:  logger,
		health:  NewHealthHandler(pool, logger),
		query:   NewQueryHandler(a, logger),
		courses: NewCoursesHandler(a, logger),
		session: NewSessionHandler(a, logger),
	}

	s.health.RegisterRoutes(mux)
	s.query.RegisterRoutes(mux)
	s.courses.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → request id → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
