package api

import (
	"net/http"
	"strings"

	"github.com/dgallion1/rfpgest/internal/doctree"
)

func (s *Server) handleBuildTree(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sections []doctree.Section `json:"sections"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, doctree.BuildTree(req.Sections))
}

// handleTreeRequirements flattens a mapped tree into import rows.
func (s *Server) handleTreeRequirements(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tree               *doctree.Tree              `json:"tree"`
		ExistingCategories []doctree.ExistingCategory `json:"existingCategories"`
		FallbackCategory   string                     `json:"fallbackCategory"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Tree == nil {
		jsonError(w, "tree is required", http.StatusBadRequest)
		return
	}

	fallback := strings.TrimSpace(req.FallbackCategory)
	if fallback == "" {
		fallback = s.cfg.FallbackCategory
	}
	rows := req.Tree.ImportRows(req.ExistingCategories, fallback)
	writeJSON(w, http.StatusOK, map[string]any{
		"requirements": rows,
		"count":        len(rows),
	})
}

func (s *Server) handleSuggestCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": s.coder.Suggest(req.Title)})
}
