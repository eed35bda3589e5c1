package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nodegrid/nodegrid/pkg/console"
	"github.com/nodegrid/nodegrid/pkg/credential"
	"github.com/nodegrid/nodegrid/pkg/lifecycle"
	"github.com/nodegrid/nodegrid/pkg/metrics"
	"github.com/nodegrid/nodegrid/pkg/rotation"
	"github.com/nodegrid/nodegrid/pkg/update"
)

// PendingMatcher reports whether a presented token is an unexpired pending
// token for this node. Wired when the controller-side pending store is
// reachable in-process; nil otherwise.
type PendingMatcher func(token string) bool

// Config wires the server's collaborators.
type Config struct {
	Manager *lifecycle.Manager
	Bridge  *console.Bridge
	Rotator *rotation.Rotator
	Updater *update.Updater
	Creds   *credential.Store
	Pending PendingMatcher
	Version string
	Logger  zerolog.Logger
}

// Server is the agent's HTTP surface. Every operation except the health
// check requires a bearer credential equal to the current token (or a
// pending token during a rotation window).
type Server struct {
	cfg    Config
	log    zerolog.Logger
	router chi.Router
	http   *http.Server
}

// NewServer builds the router and handlers.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg: cfg,
		log: cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(countRequests)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireCredential)

		r.Handle("/metrics", metrics.Handler())

		r.Route("/v1", func(r chi.Router) {
			r.Get("/containers", s.handleList)
			r.Post("/containers", s.handleCreate)
			r.Delete("/containers/{descriptor}", s.handleDelete)
			r.Post("/containers/{descriptor}/start", s.handleStart)
			r.Post("/containers/{descriptor}/stop", s.handleStop)
			r.Get("/containers/{descriptor}/stats", s.handleStats)
			r.Get("/console", s.handleConsole)
			r.Post("/update-token", s.handleUpdateToken)
			r.Post("/self-update", s.handleSelfUpdate)
		})
	})

	s.router = r
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until the listener fails or Stop is called.
func (s *Server) Start(port int) error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Int("port", port).Msg("agent API listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("agent API server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
