package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_config_store.go -package=mocks github.com/dgallion1/rfpgest/internal/storage ConfigStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/rfpgest/internal/extract"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a preset does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalid is returned for presets missing a scope or name.
	ErrInvalid = errors.New("invalid preset")
)

// Preset is a named RequirementConfig saved for a scope, typically one RFP.
type Preset struct {
	ID        string                    `json:"id"`
	Scope     string                    `json:"scope"`
	Name      string                    `json:"name"`
	Config    extract.RequirementConfig `json:"config"`
	IsDefault bool                      `json:"is_default"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// ConfigStore defines the preset storage operations.
type ConfigStore interface {
	// List returns the presets of scope, default first, then newest first.
	List(ctx context.Context, scope string) ([]Preset, error)
	// Get returns one preset or ErrNotFound.
	Get(ctx context.Context, id string) (*Preset, error)
	// Default returns the default preset of scope or ErrNotFound.
	Default(ctx context.Context, scope string) (*Preset, error)
	// Create assigns an ID and timestamps and stores p.
	Create(ctx context.Context, p *Preset) error
	// Update replaces name, config and default flag of an existing preset.
	Update(ctx context.Context, p *Preset) error
	// Delete removes a preset or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// ConfigRepo implements ConfigStore on SQLite.
type ConfigRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewConfigRepo creates a new ConfigRepo.
func NewConfigRepo(db *sql.DB) *ConfigRepo {
	return &ConfigRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const presetColumns = "id, scope, name, config, is_default, created_at, updated_at"

func (r *ConfigRepo) List(ctx context.Context, scope string) ([]Preset, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+presetColumns+" FROM extraction_configs WHERE scope = ? ORDER BY is_default DESC, created_at DESC",
		scope,
	)
	if err != nil {
		return nil, fmt.Errorf("query presets: %w", err)
	}
	defer rows.Close()

	presets := []Preset{}
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presets: %w", err)
	}
	return presets, nil
}

func (r *ConfigRepo) Get(ctx context.Context, id string) (*Preset, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+presetColumns+" FROM extraction_configs WHERE id = ?", id)
	return scanPreset(row)
}

func (r *ConfigRepo) Default(ctx context.Context, scope string) (*Preset, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+presetColumns+" FROM extraction_configs WHERE scope = ? AND is_default = 1 ORDER BY created_at DESC LIMIT 1",
		scope,
	)
	return scanPreset(row)
}

func (r *ConfigRepo) Create(ctx context.Context, p *Preset) error {
	if err := checkPreset(p); err != nil {
		return err
	}
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	p.ID = uuid.New().String()
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if p.IsDefault {
			if err := clearDefault(ctx, tx, p.Scope); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO extraction_configs ("+presetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			p.ID, p.Scope, p.Name, string(cfg), p.IsDefault, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert preset: %w", err)
		}
		return nil
	})
}

func (r *ConfigRepo) Update(ctx context.Context, p *Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		current, err := scanPreset(tx.QueryRowContext(ctx,
			"SELECT "+presetColumns+" FROM extraction_configs WHERE id = ?", p.ID))
		if err != nil {
			return err
		}
		if p.IsDefault {
			if err := clearDefault(ctx, tx, current.Scope); err != nil {
				return err
			}
		}

		p.Scope = current.Scope
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = r.now()
		_, err = tx.ExecContext(ctx,
			"UPDATE extraction_configs SET name = ?, config = ?, is_default = ?, updated_at = ? WHERE id = ?",
			p.Name, string(cfg), p.IsDefault, p.UpdatedAt, p.ID,
		)
		if err != nil {
			return fmt.Errorf("update preset: %w", err)
		}
		return nil
	})
}

func (r *ConfigRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM extraction_configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ConfigRepo) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func clearDefault(ctx context.Context, tx *sql.Tx, scope string) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE extraction_configs SET is_default = 0 WHERE scope = ? AND is_default = 1", scope); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}
	return nil
}

func checkPreset(p *Preset) error {
	switch {
	case strings.TrimSpace(p.Scope) == "":
		return fmt.Errorf("%w: scope is required", ErrInvalid)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(s scanner) (*Preset, error) {
	var p Preset
	var cfg string
	err := s.Scan(&p.ID, &p.Scope, &p.Name, &cfg, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan preset: %w", err)
	}
	if err := json.Unmarshal([]byte(cfg), &p.Config); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", p.ID, err)
	}
	return &p, nil
}
