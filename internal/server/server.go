package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/driftcode/agentserver/internal/config"
	"github.com/driftcode/agentserver/internal/session"
	"github.com/driftcode/agentserver/internal/tool"
)

// Server is the HTTP surface the client depends on.
type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	httpSrv  *http.Server
	manager  *session.Manager
	registry *tool.Registry
}

// New builds a Server wired to a session manager and the shared tool
// registry, and sets up middleware and routes.
func New(cfg *config.Config, manager *session.Manager, registry *tool.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		manager:  manager,
		registry: registry,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// Start begins serving on cfg.Port. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams must not be cut off by a write deadline
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
