// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/essence/internal/admin"
	"github.com/taibuivan/essence/internal/catalog"
	"github.com/taibuivan/essence/internal/guard"
	"github.com/taibuivan/essence/internal/notify"
	"github.com/taibuivan/essence/internal/platform/config"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/metrics"
	"github.com/taibuivan/essence/internal/platform/middleware"
	"github.com/taibuivan/essence/internal/profile"
	"github.com/taibuivan/essence/internal/session"
	"github.com/taibuivan/essence/internal/status"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler; 200 only when postgres and redis answer.
	Readiness http.HandlerFunc

	// Metrics serves the Prometheus registry.
	Metrics http.Handler

	// Session handles sign-up, sign-in, sign-out and refresh.
	Session *session.Handler

	// Watch streams guard updates for the caller's session.
	Watch *guard.WatchHandler

	Profile *profile.Handler
	Notify  *notify.Handler
	Catalog *catalog.Handler
	Status  *status.Handler
	Admin   *admin.Handler

	// Pages serves the guarded page view models.
	Pages http.Handler
}

// Authentication groups what [middleware.Authenticate] needs.
type Authentication struct {
	Sessions      middleware.SessionLookup
	Verifier      middleware.TokenVerifier
	Resolver      middleware.PrincipalResolver
	LookupTimeout time.Duration
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, recorder *metrics.Metrics, auth Authentication, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.Instrument(recorder))
	r.Use(middleware.RateLimit(context, middleware.DefaultLimits))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(auth.Sessions, auth.Verifier, auth.Resolver, auth.LookupTimeout))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Handle("/metrics", h.Metrics)

	// # Event Streams
	// Long-lived; registered outside the request timeout.
	r.Group(func(streams chi.Router) {
		streams.Handle("/api/v1/auth/session/watch", h.Watch)
		streams.Mount("/api/v1/me/notifications", h.Notify.Routes())
	})

	// # Application API
	r.Group(func(bounded chi.Router) {
		bounded.Use(chimw.Timeout(constants.GlobalRequestTimeout))

		bounded.Route("/api/v1", func(api chi.Router) {
			api.Mount("/auth", h.Session.Routes())
			api.Mount("/me", h.Profile.Routes())
			api.Mount("/scripts", h.Catalog.Routes())
			api.Mount("/status", h.Status.Routes())
			api.Mount("/admin", h.Admin.Routes())
		})

		// # Pages
		bounded.Mount("/", h.Pages)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
