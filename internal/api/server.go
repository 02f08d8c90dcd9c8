package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for bookdigest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	newProvider  pipeline.ProviderFactory
	stats        *llm.Stats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. newProvider builds the
// backend for connection tests; stats may be nil.
func NewServer(orch *pipeline.Orchestrator, newProvider pipeline.ProviderFactory, stats *llm.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		newProvider:  newProvider,
		stats:        stats,
		log:          log,
		cfg:          cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Post("/api/documents/{docID}/runs", s.handleStartRun)
		r.Delete("/api/documents/{docID}/cache", s.handleInvalidate)
		r.Delete("/api/documents/{docID}/cache/{kind}/{groupID}", s.handleInvalidateGroup)

		r.Get("/api/runs/{runID}", s.handleGetRun)
		r.Delete("/api/runs/{runID}", s.handleCancelRun)

		r.Post("/api/llm/ping", s.handlePing)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": s.orchestrator.Documents().Len(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
