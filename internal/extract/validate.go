package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/rfpgest/internal/transform"
	"github.com/dlclark/regexp2"
)

// Issue is one problem found in a RequirementConfig. Issues never block a
// parse; they are surfaced to users before a preset is saved.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string { return i.Field + ": " + i.Message }

// Validate checks that every pattern in cfg compiles and that the template
// and sub-configs are coherent. A nil or empty config is valid.
func Validate(cfg *RequirementConfig) []Issue {
	if cfg == nil {
		return nil
	}
	var issues []Issue
	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	group := cfg.CaptureGroup()
	if group < 0 {
		add("captureGroupIndex", "must not be negative")
	}

	if cfg.CapturePattern == "" {
		if cfg.CodeTemplate != "" || cfg.TitleExtraction != nil || cfg.ContentExtraction != nil {
			add("capturePattern", "required when other fields are set")
		}
	} else if re, err := regexp2.Compile(cfg.CapturePattern, regexp2.ECMAScript); err != nil {
		add("capturePattern", "does not compile: %v", err)
	} else if cfg.CodeTemplate != "" {
		if n := len(re.GetGroupNumbers()) - 1; group > n {
			add("captureGroupIndex", "pattern has %d capture group(s), template uses $%d", n, group)
		}
	}

	if cfg.CodeTemplate != "" {
		placeholder := "$" + strconv.Itoa(group)
		if !strings.Contains(cfg.CodeTemplate, placeholder) {
			add("codeTemplate", "missing placeholder %s", placeholder)
		}
		_, chain := splitTemplate(cfg.CodeTemplate, group)
		for _, call := range transform.Split(chain) {
			if !transform.Valid(call) {
				add("codeTemplate", "unknown or malformed transform %q", call)
			}
		}
	}

	issues = append(issues, validateField("titleExtraction", cfg.TitleExtraction)...)
	issues = append(issues, validateField("contentExtraction", cfg.ContentExtraction)...)
	return issues
}

func validateField(name string, cfg *ExtractionConfig) []Issue {
	if cfg == nil {
		return nil
	}
	issue := func(msg string) []Issue { return []Issue{{Field: name, Message: msg}} }

	switch cfg.Type {
	case TypeInline:
		if cfg.Pattern == "" {
			return issue("inline extraction requires a pattern")
		}
		re, err := regexp2.Compile(cfg.Pattern, regexp2.ECMAScript)
		if err != nil {
			return issue(fmt.Sprintf("pattern does not compile: %v", err))
		}
		if g := cfg.Group(); g < 0 || g > len(re.GetGroupNumbers())-1 {
			return issue(fmt.Sprintf("groupIndex %d out of range", g))
		}
	case TypeTable:
		if cfg.ColumnIndex == nil {
			return issue("table extraction requires columnIndex")
		}
		if *cfg.ColumnIndex < 0 {
			return issue("columnIndex must not be negative")
		}
	default:
		return issue(fmt.Sprintf("unknown type %q", cfg.Type))
	}
	return nil
}
