package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/rfpgest/internal/doctree"
	"github.com/dgallion1/rfpgest/internal/extract"
	"github.com/dgallion1/rfpgest/internal/parser"
	"github.com/dgallion1/rfpgest/internal/pipeline"
	"github.com/dgallion1/rfpgest/internal/storage"
	"github.com/go-chi/chi/v5"
)

type extractResponse struct {
	Success    bool              `json:"success"`
	Title      string            `json:"title"`
	Structured []doctree.Section `json:"structured"`
	Tree       *doctree.Tree     `json:"tree,omitempty"`
}

// handleExtract parses one uploaded document synchronously.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, ok := s.readUpload(w, file)
	if !ok {
		return
	}

	cfg, code, err := s.resolveConfig(r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	log := s.log.With("filename", filename)
	exOpts := s.orchestrator.ExtractOptions()
	exOpts.Logger = log
	start := time.Now()
	res, err := parser.Extract(bytes.NewReader(data), filename,
		cfg,
		parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext},
		exOpts,
	)
	s.orchestrator.Stats().Record(strings.ToLower(filepath.Ext(filename)), time.Since(start), err != nil)
	if err != nil {
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error("parse failed", "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := extractResponse{Success: true, Title: res.Title, Structured: res.Structured}
	if r.FormValue("tree") == "true" {
		resp.Tree = doctree.BuildTree(res.Structured)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBatchExtract queues every uploaded file as a pipeline job.
func (s *Server) handleBatchExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	cfg, code, err := s.resolveConfig(r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	scope := r.FormValue("scope")

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}

		job := pipeline.NewJob(filename, data, cfg)
		job.Scope = scope
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"job_id":   job.ID,
				"error":    err.Error(),
			})
			continue
		}

		results = append(results, map[string]any{
			"filename": filename,
			"job_id":   job.ID,
			"status":   pipeline.StatusQueued,
			"poll_url": fmt.Sprintf("/api/extract/%s/status", job.ID),
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleExtractStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleExtractResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res, ok := job.Result()
	if !ok {
		snap := job.Snapshot()
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  fmt.Sprintf("job is %s", snap.Status),
			"status": snap.Status,
			"errors": snap.Progress.Errors,
		})
		return
	}

	resp := extractResponse{Success: true, Title: res.Title, Structured: res.Structured}
	if r.URL.Query().Get("tree") == "true" {
		resp.Tree = doctree.BuildTree(res.Structured)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) readUpload(w http.ResponseWriter, file io.Reader) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return data, true
}

// resolveConfig picks the requirement config for an upload: an inline
// requirementConfig field, then a saved preset by config_id, then the
// default preset of scope. No config at all is not an error, and an
// unparseable inline config is logged and treated as none.
func (s *Server) resolveConfig(r *http.Request) (*extract.RequirementConfig, int, error) {
	if raw := r.FormValue("requirementConfig"); raw != "" {
		var cfg extract.RequirementConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			s.log.Warn("ignoring invalid requirementConfig", "error", err)
			return nil, 0, nil
		}
		return &cfg, 0, nil
	}

	ctx := r.Context()
	if id := r.FormValue("config_id"); id != "" {
		p, err := s.configs.Get(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, http.StatusNotFound, fmt.Errorf("config %s not found", id)
		}
		if err != nil {
			return nil, http.StatusInternalServerError, fmt.Errorf("load config: %w", err)
		}
		return &p.Config, 0, nil
	}

	if scope := r.FormValue("scope"); scope != "" {
		p, err := s.configs.Default(ctx, scope)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, nil
		}
		if err != nil {
			return nil, http.StatusInternalServerError, fmt.Errorf("load default config: %w", err)
		}
		return &p.Config, 0, nil
	}
	return nil, 0, nil
}
