package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/rfpgest/internal/config"
	"github.com/dgallion1/rfpgest/internal/doctree"
	"github.com/dgallion1/rfpgest/internal/pipeline"
	"github.com/dgallion1/rfpgest/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for rfpgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	configs      storage.ConfigStore
	coder        *doctree.CodeSuggester
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, configs storage.ConfigStore, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		configs:      configs,
		coder:        &doctree.CodeSuggester{StopWords: doctree.DefaultStopWords},
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

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Post("/extract/batch", s.handleBatchExtract)
		r.Get("/extract/{jobID}/status", s.handleExtractStatus)
		r.Get("/extract/{jobID}/result", s.handleExtractResult)

		r.Post("/tree", s.handleBuildTree)
		r.Post("/tree/requirements", s.handleTreeRequirements)
		r.Post("/categories/suggest-code", s.handleSuggestCode)

		r.Post("/configs/validate", s.handleValidateConfig)
		r.Get("/configs", s.handleListConfigs)
		r.Post("/configs", s.handleCreateConfig)
		r.Get("/configs/{configID}", s.handleGetConfig)
		r.Put("/configs/{configID}", s.handleUpdateConfig)
		r.Delete("/configs/{configID}", s.handleDeleteConfig)

		r.Post("/export/preview", s.handleExportPreview)
		r.Post("/export/docx", s.handleExportDOCX)

		r.Get("/stats/parse", s.handleParseStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleParseStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"parse":       s.orchestrator.Stats().Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"workers":     s.cfg.WorkerCount,
	})
}
