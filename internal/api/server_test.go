package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/rfpgest/internal/config"
	"github.com/dgallion1/rfpgest/internal/doctree"
	"github.com/dgallion1/rfpgest/internal/extract"
	"github.com/dgallion1/rfpgest/internal/pipeline"
	"github.com/dgallion1/rfpgest/internal/render"
	"github.com/dgallion1/rfpgest/internal/storage"
	storage_mocks "github.com/dgallion1/rfpgest/internal/storage/mocks"

	"go.uber.org/mock/gomock"
)

const exigenceConfigJSON = `{"capturePattern":"Exigence\\s*n°\\s*([a-zA-Z0-9]+)","codeTemplate":"REQ-$1:padStart(2,0)"}`

func testConfig() config.Config {
	return config.Config{
		Port:             "8090",
		WorkerCount:      1,
		MaxQueueSize:     10,
		MaxUploadBytes:   1 << 20,
		JobTTL:           time.Hour,
		RegexTimeout:     time.Second,
		FallbackCategory: "DOCX",
	}
}

func newTestServer(t *testing.T, store storage.ConfigStore) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	cfg := testConfig()
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, nil, log)
	return NewServer(orch, store, log, cfg), orch
}

type formFile struct {
	field, name, body string
}

func multipartRequest(t *testing.T, url string, files []formFile, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, f.body)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestExtract_InlineConfig(t *testing.T) {
	s, orch := newTestServer(t, nil)
	md := "# Sécurité\n\nExigence n°3: Sécurité - Doit chiffrer\n\n## Réseau\n\nTexte\n"
	req := multipartRequest(t, "/api/extract",
		[]formFile{{"file", "cctp.md", md}},
		map[string]string{"requirementConfig": exigenceConfigJSON, "tree": "true"})

	w := serve(s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success    bool              `json:"success"`
		Title      string            `json:"title"`
		Structured []doctree.Section `json:"structured"`
		Tree       *doctree.Tree     `json:"tree"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Title != "cctp" || len(resp.Structured) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
	reqs := resp.Structured[1].Requirements
	if len(reqs) != 1 || reqs[0].Code != "REQ-03" || reqs[0].OriginalCapture != "Exigence n°3" {
		t.Errorf("unexpected requirements %+v", reqs)
	}
	if resp.Tree == nil || len(resp.Tree.Nodes) != 1 || len(resp.Tree.Nodes[0].Children) != 1 {
		t.Errorf("expected nested tree, got %+v", resp.Tree)
	}
	if orch.Stats().Snapshot().Count != 1 {
		t.Error("expected synchronous parse recorded in stats")
	}
}

func TestExtract_Errors(t *testing.T) {
	s, _ := newTestServer(t, nil)
	tests := []struct {
		name   string
		files  []formFile
		fields map[string]string
		want   int
	}{
		{"missing file", nil, nil, http.StatusBadRequest},
		{"unsupported type", []formFile{{"file", "grille.xlsx", "x"}}, nil, http.StatusBadRequest},
		{"malformed docx", []formFile{{"file", "cctp.docx", "not a zip"}}, nil, http.StatusUnprocessableEntity},
		{"missing document part", []formFile{{"file", "cctp.docx", emptyZip(t)}}, nil, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, multipartRequest(t, "/api/extract", tt.files, tt.fields))
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("expected JSON error body, got %s", w.Body.String())
			}
		})
	}
}

func TestExtract_InvalidInlineConfigParsesWithoutConfig(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := multipartRequest(t, "/api/extract",
		[]formFile{{"file", "a.txt", "Exigence n°3: chiffrer"}},
		map[string]string{"requirementConfig": "{"})

	w := serve(s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success    bool              `json:"success"`
		Structured []doctree.Section `json:"structured"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Structured) == 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	for _, sec := range resp.Structured {
		if len(sec.Requirements) != 0 {
			t.Errorf("expected no requirements without a config, got %+v", sec.Requirements)
		}
	}
}

func emptyZip(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("word/styles.xml")
	f.Write([]byte("<w:styles/>"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestExtract_PresetResolution(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storage_mocks.NewMockConfigStore(ctrl)
	s, _ := newTestServer(t, store)

	var cfg extract.RequirementConfig
	if err := json.Unmarshal([]byte(exigenceConfigJSON), &cfg); err != nil {
		t.Fatal(err)
	}
	body := "Exigence n°7 et Exigence n°12"

	t.Run("by id", func(t *testing.T) {
		store.EXPECT().Get(gomock.Any(), "preset-1").Return(&storage.Preset{ID: "preset-1", Config: cfg}, nil)
		w := serve(s, multipartRequest(t, "/api/extract", []formFile{{"file", "a.txt", body}}, map[string]string{"config_id": "preset-1"}))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"REQ-07"`) || !strings.Contains(w.Body.String(), `"REQ-12"`) {
			t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		store.EXPECT().Get(gomock.Any(), "nope").Return(nil, storage.ErrNotFound)
		w := serve(s, multipartRequest(t, "/api/extract", []formFile{{"file", "a.txt", body}}, map[string]string{"config_id": "nope"}))
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("scope default", func(t *testing.T) {
		store.EXPECT().Default(gomock.Any(), "rfp-1").Return(&storage.Preset{Config: cfg}, nil)
		w := serve(s, multipartRequest(t, "/api/extract", []formFile{{"file", "a.txt", body}}, map[string]string{"scope": "rfp-1"}))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"REQ-07"`) {
			t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("scope without default", func(t *testing.T) {
		store.EXPECT().Default(gomock.Any(), "rfp-2").Return(nil, storage.ErrNotFound)
		w := serve(s, multipartRequest(t, "/api/extract", []formFile{{"file", "a.txt", body}}, map[string]string{"scope": "rfp-2"}))
		if w.Code != http.StatusOK || strings.Contains(w.Body.String(), `"REQ-07"`) {
			t.Fatalf("expected success without requirements, got %d %s", w.Code, w.Body.String())
		}
	})
}

func TestBatchExtract_Lifecycle(t *testing.T) {
	s, orch := newTestServer(t, nil)
	orch.Start(context.Background())
	defer orch.Stop()

	req := multipartRequest(t, "/api/extract/batch",
		[]formFile{{"files", "a.md", "# A\n\nExigence n°1"}, {"files", "b.xlsx", "x"}},
		map[string]string{"requirementConfig": exigenceConfigJSON})
	w := serve(s, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Jobs []map[string]any `json:"jobs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Jobs) != 2 || resp.Jobs[1]["error"] == nil {
		t.Fatalf("unexpected jobs %+v", resp.Jobs)
	}
	jobID, _ := resp.Jobs[0]["job_id"].(string)

	deadline := time.Now().Add(5 * time.Second)
	for {
		w = serve(s, httptest.NewRequest(http.MethodGet, "/api/extract/"+jobID+"/status", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", w.Code)
		}
		if strings.Contains(w.Body.String(), `"completed"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete: %s", w.Body.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/extract/"+jobID+"/result", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"REQ-01"`) {
		t.Fatalf("unexpected result %d %s", w.Code, w.Body.String())
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/extract/missing/status", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", w.Code)
	}
}

func TestExtractResult_NotReady(t *testing.T) {
	s, orch := newTestServer(t, nil)
	job := pipeline.NewJob("a.md", []byte("x"), nil)
	if err := orch.Submit(job); err != nil {
		t.Fatal(err)
	}
	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/extract/"+job.ID+"/result", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for queued job, got %d", w.Code)
	}
}

func TestTreeEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)

	sections := `{"sections":[
		{"level":0,"title":"Root","content":[],"tables":[],"requirements":[{"code":"R0","originalCapture":"R0"}]},
		{"level":1,"title":"Sécurité des données","content":["ctx"],"tables":[],"requirements":[{"code":"R1","originalCapture":"R1"}]},
		{"level":2,"title":"Chiffrement","content":[],"tables":[],"requirements":[{"code":"R2","originalCapture":"R2","title":"Chiffrer"}]}
	]}`
	w := serve(s, jsonRequest(http.MethodPost, "/api/tree", sections))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tree doctree.Tree
	if err := json.Unmarshal(w.Body.Bytes(), &tree); err != nil {
		t.Fatal(err)
	}
	if err := tree.SetCategory("section-1", true, nil); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"tree": tree})
	w = serve(s, jsonRequest(http.MethodPost, "/api/tree/requirements", string(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rows struct {
		Requirements []doctree.ImportRow `json:"requirements"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows.Requirements) != 3 {
		t.Fatalf("expected 3 rows, got %+v", rows.Requirements)
	}
	if rows.Requirements[0].CategoryName != "DOCX" {
		t.Errorf("expected root requirement in fallback category, got %+v", rows.Requirements[0])
	}
	if rows.Requirements[1].CategoryName != "SDD" || rows.Requirements[2].CategoryName != "SDD" {
		t.Errorf("expected promotion to SDD, got %+v", rows.Requirements[1:])
	}
	if rows.Requirements[2].Title != "Chiffrer" || rows.Requirements[1].Context != "ctx" {
		t.Errorf("unexpected row fields %+v", rows.Requirements)
	}

	w = serve(s, jsonRequest(http.MethodPost, "/api/tree/requirements", `{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without tree, got %d", w.Code)
	}

	w = serve(s, jsonRequest(http.MethodPost, "/api/categories/suggest-code", `{"title":"Réseau"}`))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"RESE"`) {
		t.Errorf("unexpected suggest-code response %d %s", w.Code, w.Body.String())
	}
}

func TestConfigEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storage_mocks.NewMockConfigStore(ctrl)
	s, _ := newTestServer(t, store)

	t.Run("validate", func(t *testing.T) {
		w := serve(s, jsonRequest(http.MethodPost, "/api/configs/validate", `{"capturePattern":"(unclosed"}`))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"valid":false`) {
			t.Fatalf("unexpected validate response %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("list requires scope", func(t *testing.T) {
		w := serve(s, httptest.NewRequest(http.MethodGet, "/api/configs", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		store.EXPECT().List(gomock.Any(), "rfp-1").Return([]storage.Preset{{ID: "a", Name: "A", IsDefault: true}}, nil)
		w := serve(s, httptest.NewRequest(http.MethodGet, "/api/configs?scope=rfp-1", nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"a"`) {
			t.Fatalf("unexpected list response %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("create", func(t *testing.T) {
		store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *storage.Preset) error {
			if p.Scope != "rfp-1" || p.Name != "Exigences" || !p.IsDefault {
				t.Errorf("unexpected preset %+v", p)
			}
			p.ID = "new-id"
			return nil
		})
		body := `{"scope":"rfp-1","name":" Exigences ","is_default":true,"config":` + exigenceConfigJSON + `}`
		w := serve(s, jsonRequest(http.MethodPost, "/api/configs", body))
		if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), `"new-id"`) {
			t.Fatalf("unexpected create response %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("create rejects invalid config", func(t *testing.T) {
		w := serve(s, jsonRequest(http.MethodPost, "/api/configs", `{"scope":"rfp-1","name":"x","config":{"codeTemplate":"R-$1"}}`))
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("create missing scope", func(t *testing.T) {
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(storage.ErrInvalid)
		w := serve(s, jsonRequest(http.MethodPost, "/api/configs", `{"name":"x"}`))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		store.EXPECT().Get(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)
		w := serve(s, httptest.NewRequest(http.MethodGet, "/api/configs/missing", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *storage.Preset) error {
			if p.ID != "a" || p.Name != "Renamed" {
				t.Errorf("unexpected preset %+v", p)
			}
			return nil
		})
		w := serve(s, jsonRequest(http.MethodPut, "/api/configs/a", `{"name":"Renamed","config":{}}`))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		store.EXPECT().Delete(gomock.Any(), "a").Return(nil)
		w := serve(s, httptest.NewRequest(http.MethodDelete, "/api/configs/a", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store.EXPECT().Delete(gomock.Any(), "b").Return(errors.New("disk full"))
		w := serve(s, httptest.NewRequest(http.MethodDelete, "/api/configs/b", nil))
		if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "disk full") {
			t.Fatalf("expected opaque 500, got %d %s", w.Code, w.Body.String())
		}
	})
}

func TestExportEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := serve(s, jsonRequest(http.MethodPost, "/api/export/preview", `{"markdown":"- [x] Done"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var preview struct {
		Nodes []render.Node `json:"nodes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &preview); err != nil {
		t.Fatal(err)
	}
	if len(preview.Nodes) != 1 || preview.Nodes[0].Kind != render.KindParagraph {
		t.Errorf("unexpected preview %+v", preview.Nodes)
	}

	w = serve(s, jsonRequest(http.MethodPost, "/api/export/docx", `{"markdown":"# Titre\n\nTexte","title":"Rapport"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != render.DOCXContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Rapport.docx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip container body")
	}

	w = serve(s, jsonRequest(http.MethodPost, "/api/export/docx", `{"markdown":"  "}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty markdown, got %d", w.Code)
	}
}

func TestParseStatsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/stats/parse", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"queue_depth":0`) {
		t.Fatalf("unexpected stats response %d %s", w.Code, w.Body.String())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd.md": "passwd.md",
		`C:\docs\cctp.docx`:   "C:_docs_cctp.docx",
		"":                    "unnamed",
		"plain.txt":           "plain.txt",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
