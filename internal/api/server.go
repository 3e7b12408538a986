// Package api exposes the analysis engine over HTTP. Every response body
// is the same envelope: success flag, data payload, null-capable error.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"narrative_engine/internal/config"
	"narrative_engine/internal/engine"
	"narrative_engine/internal/store"
)

type Server struct {
	router chi.Router
	engine *engine.Engine
	store  *store.Store
	log    *slog.Logger
	cfg    config.Config
}

func NewServer(eng *engine.Engine, st *store.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		engine: eng,
		store:  st,
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Post("/api/projects", s.handleCreateProject)
	r.Get("/api/projects", s.handleListProjects)
	r.Get("/api/projects/{projectID}/duplicates", s.handleDuplicates)
	r.Get("/api/projects/{projectID}/narrative-structure", s.handleStructure)
	r.Get("/api/projects/{projectID}/narrative-templates", s.handleTemplates)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
