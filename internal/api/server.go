package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"kbrag/internal/config"
	"kbrag/internal/pipeline"
)

// Server is the HTTP surface of the question-answering service.
type Server struct {
	router chi.Router
	pipe   *pipeline.Pipeline
	log    *slog.Logger
	cfg    config.Config
}

func NewServer(pipe *pipeline.Pipeline, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		pipe: pipe,
		log:  log,
		cfg:  cfg,
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
	r.Get("/stats", s.handleStats)

	r.Post("/api/ingest", s.handleIngest)
	r.Post("/api/chat", s.handleChat)

	s.router = r
}
