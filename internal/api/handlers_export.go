package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/rfpgest/internal/render"
)

type exportRequest struct {
	Markdown string `json:"markdown"`
	Title    string `json:"title"`
}

func (s *Server) handleExportPreview(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		jsonError(w, "markdown content is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": render.Render(req.Markdown)})
}

func (s *Server) handleExportDOCX(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		jsonError(w, "markdown content is required", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := render.WriteDOCX(&buf, req.Title, render.Render(req.Markdown)); err != nil {
		s.log.Error("docx export failed", "error", err)
		jsonError(w, "failed to create DOCX export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", render.DOCXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(render.Filename(req.Title))))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
