package extract

// Extraction config types. Field names follow the JSON presets callers
// already store, so they are camelCase on the wire.
const (
	TypeInline = "inline"
	TypeTable  = "table"
)

// ExtractionConfig selects a title or content value for a requirement,
// either from a regex group over the block text or from a table column.
type ExtractionConfig struct {
	Type        string `json:"type"`
	Pattern     string `json:"pattern,omitempty"`
	GroupIndex  *int   `json:"groupIndex,omitempty"`
	ColumnIndex *int   `json:"columnIndex,omitempty"`
}

// RequirementConfig drives requirement mining for one parse.
type RequirementConfig struct {
	CapturePattern    string            `json:"capturePattern,omitempty"`
	CodeTemplate      string            `json:"codeTemplate,omitempty"`
	CaptureGroupIndex *int              `json:"captureGroupIndex,omitempty"`
	TitleExtraction   *ExtractionConfig `json:"titleExtraction,omitempty"`
	ContentExtraction *ExtractionConfig `json:"contentExtraction,omitempty"`
}

// CaptureGroup returns the configured capture group, defaulting to 1.
func (c *RequirementConfig) CaptureGroup() int {
	if c == nil || c.CaptureGroupIndex == nil {
		return 1
	}
	return *c.CaptureGroupIndex
}

// Group returns the configured inline group, defaulting to 1.
func (c *ExtractionConfig) Group() int {
	if c == nil || c.GroupIndex == nil {
		return 1
	}
	return *c.GroupIndex
}

// Int is a convenience for filling optional index fields.
func Int(n int) *int { return &n }
