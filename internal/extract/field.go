package extract

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// field is a compiled title or content ExtractionConfig.
type field struct {
	cfg *ExtractionConfig
	re  *regexp2.Regexp
}

func compileField(cfg *ExtractionConfig, timeout time.Duration, log *slog.Logger, name string) *field {
	if cfg == nil {
		return nil
	}
	f := &field{cfg: cfg}
	if cfg.Type == TypeInline && cfg.Pattern != "" {
		re, err := compilePattern(cfg.Pattern, timeout)
		if err != nil {
			log.Warn("invalid extraction pattern", "field", name, "pattern", cfg.Pattern, "error", err)
			return nil
		}
		f.re = re
	}
	return f
}

// value resolves the field against the full block text or the row cells.
// Empty results count as absent.
func (f *field) value(text string, rowCells []string, log *slog.Logger) (string, bool) {
	if f == nil {
		return "", false
	}
	var v string
	switch f.cfg.Type {
	case TypeInline:
		if f.re == nil {
			return "", false
		}
		m, err := f.re.FindStringMatch(text)
		if err != nil {
			log.Warn("inline extraction aborted", "pattern", f.cfg.Pattern, "error", err)
			return "", false
		}
		if m == nil {
			return "", false
		}
		g := m.GroupByNumber(f.cfg.Group())
		if g == nil || len(g.Captures) == 0 {
			return "", false
		}
		v = g.String()
	case TypeTable:
		if rowCells == nil || f.cfg.ColumnIndex == nil {
			return "", false
		}
		i := *f.cfg.ColumnIndex
		if i < 0 || i >= len(rowCells) {
			return "", false
		}
		v = rowCells[i]
	default:
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// FromConfig evaluates a single ExtractionConfig against text and optional
// row cells. Pattern errors are treated as no match.
func FromConfig(text string, cfg *ExtractionConfig, rowCells []string) (string, bool) {
	discard := slog.New(slog.DiscardHandler)
	return compileField(cfg, 0, discard, "value").value(text, rowCells, discard)
}
