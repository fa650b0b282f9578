package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/rfpgest/internal/extract"
	"github.com/dgallion1/rfpgest/internal/storage"
	"github.com/go-chi/chi/v5"
)

type presetRequest struct {
	Scope     string                    `json:"scope"`
	Name      string                    `json:"name"`
	Config    extract.RequirementConfig `json:"config"`
	IsDefault bool                      `json:"is_default"`
}

func (s *Server) handleValidateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg extract.RequirementConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	issues := extract.Validate(&cfg)
	if issues == nil {
		issues = []extract.Issue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	if scope == "" {
		jsonError(w, "scope is required", http.StatusBadRequest)
		return
	}
	presets, err := s.configs.List(r.Context(), scope)
	if err != nil {
		s.storeError(w, "list configs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": presets})
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validPreset(w, &req.Config) {
		return
	}
	if req.Scope == "" {
		req.Scope = r.URL.Query().Get("scope")
	}

	p := &storage.Preset{
		Scope:     strings.TrimSpace(req.Scope),
		Name:      strings.TrimSpace(req.Name),
		Config:    req.Config,
		IsDefault: req.IsDefault,
	}
	if err := s.configs.Create(r.Context(), p); err != nil {
		s.storeError(w, "create config", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	p, err := s.configs.Get(r.Context(), chi.URLParam(r, "configID"))
	if err != nil {
		s.storeError(w, "get config", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validPreset(w, &req.Config) {
		return
	}

	p := &storage.Preset{
		ID:        chi.URLParam(r, "configID"),
		Name:      strings.TrimSpace(req.Name),
		Config:    req.Config,
		IsDefault: req.IsDefault,
	}
	if err := s.configs.Update(r.Context(), p); err != nil {
		s.storeError(w, "update config", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.configs.Delete(r.Context(), chi.URLParam(r, "configID")); err != nil {
		s.storeError(w, "delete config", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validPreset rejects configs that would silently extract nothing.
func validPreset(w http.ResponseWriter, cfg *extract.RequirementConfig) bool {
	issues := extract.Validate(cfg)
	if len(issues) == 0 {
		return true
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "invalid requirement config",
		"issues": issues,
	})
	return false
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		jsonError(w, "config not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalid):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error(op+" failed", "error", err)
		jsonError(w, op+" failed", http.StatusInternalServerError)
	}
}
