// Package extract mines requirement codes out of block text using a
// caller-supplied capture pattern, code template and transform chain.
package extract

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/rfpgest/internal/doctree"
	"github.com/dgallion1/rfpgest/internal/transform"
	"github.com/dlclark/regexp2"
)

// Options tune how an Extractor compiles and runs patterns.
type Options struct {
	// MatchTimeout bounds each regex match. Zero means no limit.
	MatchTimeout time.Duration
	Logger       *slog.Logger
}

// Extractor is a RequirementConfig compiled for one parse. A nil *Extractor
// extracts nothing.
type Extractor struct {
	capture *regexp2.Regexp
	group   int

	templated bool
	prefix    string
	chain     string

	title   *field
	content *field

	log *slog.Logger
}

// Compile prepares cfg for repeated extraction. It returns nil when cfg has
// no capture pattern or the pattern does not compile; the failure is logged.
func Compile(cfg *RequirementConfig, opts Options) *Extractor {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg == nil || cfg.CapturePattern == "" {
		return nil
	}

	re, err := compilePattern(cfg.CapturePattern, opts.MatchTimeout)
	if err != nil {
		log.Warn("invalid capture pattern, no requirements will be extracted",
			"pattern", cfg.CapturePattern, "error", err)
		return nil
	}

	e := &Extractor{
		capture: re,
		group:   cfg.CaptureGroup(),
		title:   compileField(cfg.TitleExtraction, opts.MatchTimeout, log, "title"),
		content: compileField(cfg.ContentExtraction, opts.MatchTimeout, log, "content"),
		log:     log,
	}
	if cfg.CodeTemplate != "" {
		e.templated = true
		e.prefix, e.chain = splitTemplate(cfg.CodeTemplate, e.group)
	}
	return e
}

// Extract returns the unique requirements found in text. rowCells carries the
// cells of the table row text was joined from, or nil for paragraphs.
//
// Matching resumes one rune after the start of every match, so overlapping
// occurrences are found. Codes are unique within a single call.
func (e *Extractor) Extract(text string, rowCells []string) []doctree.Requirement {
	if e == nil || text == "" {
		return nil
	}

	runes := []rune(text)
	seen := make(map[string]bool)
	var out []doctree.Requirement

	for searchFrom := 0; searchFrom <= len(runes); {
		m, err := e.capture.FindRunesMatchStartingAt(runes, searchFrom)
		if err != nil {
			e.log.Warn("capture pattern aborted", "error", err, "found", len(out))
			break
		}
		if m == nil {
			break
		}
		searchFrom = m.Index + 1

		original := m.String()
		code, ok := e.code(m, original)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true

		req := doctree.Requirement{Code: code, OriginalCapture: original}
		if v, ok := e.title.value(text, rowCells, e.log); ok {
			req.Title = v
		}
		if v, ok := e.content.value(text, rowCells, e.log); ok {
			req.Content = v
		}
		out = append(out, req)
	}
	return out
}

func (e *Extractor) code(m *regexp2.Match, original string) (string, bool) {
	if !e.templated {
		return original, true
	}
	g := m.GroupByNumber(e.group)
	if g == nil || len(g.Captures) == 0 || g.String() == "" {
		return "", false
	}
	return e.prefix + transform.Apply(g.String(), e.chain), true
}

// splitTemplate separates a code template into the literal prefix before the
// $N placeholder and the transform chain after it. Text between the
// placeholder and the first colon is not part of the code.
func splitTemplate(tmpl string, group int) (prefix, chain string) {
	placeholder := "$" + strconv.Itoa(group)
	var rest string
	if i := strings.Index(tmpl, placeholder); i >= 0 {
		prefix = tmpl[:i]
		rest = tmpl[i+len(placeholder):]
	} else if len(tmpl) > 1 {
		rest = tmpl[1:]
	}
	if j := strings.Index(rest, ":"); j >= 0 {
		chain = rest[j+1:]
	}
	return prefix, chain
}

// Extract compiles cfg and runs it once over text.
func Extract(text string, cfg *RequirementConfig, rowCells []string, opts Options) []doctree.Requirement {
	return Compile(cfg, opts).Extract(text, rowCells)
}

func compilePattern(pattern string, timeout time.Duration) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return re, nil
}
