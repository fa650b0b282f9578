package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/rfpgest/internal/extract"
)

func newTestRepo(t *testing.T) *ConfigRepo {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewConfigRepo(db)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return repo
}

func preset(scope, name string, def bool) *Preset {
	return &Preset{
		Scope:     scope,
		Name:      name,
		IsDefault: def,
		Config: extract.RequirementConfig{
			CapturePattern: `REQ-(\d+)`,
			CodeTemplate:   "REQ-$1:padStart(3,0)",
		},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	if err := Migrate(repo.db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestConfigRepo_CreateGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := preset("rfp-1", "Exigences", false)
	p.Config.TitleExtraction = &extract.ExtractionConfig{Type: extract.TypeTable, ColumnIndex: extract.Int(2)}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("expected ID and timestamps assigned, got %+v", p)
	}

	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Exigences" || got.Scope != "rfp-1" {
		t.Errorf("unexpected preset %+v", got)
	}
	if got.Config.CodeTemplate != p.Config.CodeTemplate {
		t.Errorf("config not round-tripped: %+v", got.Config)
	}
	if got.Config.TitleExtraction == nil || *got.Config.TitleExtraction.ColumnIndex != 2 {
		t.Errorf("title extraction lost: %+v", got.Config.TitleExtraction)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConfigRepo_Invalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, p := range []*Preset{preset("", "x", false), preset("rfp", " ", false)} {
		if err := repo.Create(ctx, p); !errors.Is(err, ErrInvalid) {
			t.Errorf("Create(%+v): expected ErrInvalid, got %v", p, err)
		}
	}
}

func TestConfigRepo_DefaultSwitching(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := preset("rfp-1", "A", true)
	b := preset("rfp-1", "B", false)
	other := preset("rfp-2", "Other", true)
	for _, p := range []*Preset{a, b, other} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create(%s) error = %v", p.Name, err)
		}
	}

	def, err := repo.Default(ctx, "rfp-1")
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if def.ID != a.ID {
		t.Errorf("expected A as default, got %s", def.Name)
	}

	b.IsDefault = true
	if err := repo.Update(ctx, b); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	def, err = repo.Default(ctx, "rfp-1")
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if def.ID != b.ID {
		t.Errorf("expected B as default after update, got %s", def.Name)
	}

	list, err := repo.List(ctx, "rfp-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != b.ID || list[1].IsDefault {
		t.Errorf("expected default first and single default, got %+v", list)
	}

	// The other scope keeps its own default.
	def, err = repo.Default(ctx, "rfp-2")
	if err != nil || def.ID != other.ID {
		t.Errorf("expected rfp-2 default untouched, got %+v, %v", def, err)
	}
}

func TestConfigRepo_ListOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"old", "mid", "new"} {
		if err := repo.Create(ctx, preset("rfp", name, false)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	list, err := repo.List(ctx, "rfp")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, p := range list {
		names = append(names, p.Name)
	}
	if len(names) != 3 || names[0] != "new" || names[2] != "old" {
		t.Errorf("expected newest first, got %v", names)
	}

	empty, err := repo.List(ctx, "none")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %v, %v", empty, err)
	}
	if _, err := repo.Default(ctx, "rfp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound without a default, got %v", err)
	}
}

func TestConfigRepo_UpdateDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := preset("rfp", "before", false)
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	created := p.CreatedAt

	p.Name = "after"
	p.Scope = "ignored"
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "after" || got.Scope != "rfp" {
		t.Errorf("unexpected preset after update %+v", got)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.After(created) {
		t.Errorf("unexpected timestamps created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}

	if err := repo.Update(ctx, &Preset{ID: "missing", Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound updating missing preset, got %v", err)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
