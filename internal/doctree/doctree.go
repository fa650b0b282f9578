package doctree

// RootTitle is the title of the implicit level-0 section every parse starts with.
const RootTitle = "Root"

// MaxLevel is the deepest heading level that opens a section.
const MaxLevel = 6

// Requirement is a uniquely-coded item mined from a paragraph or table row.
type Requirement struct {
	Code            string `json:"code"`
	OriginalCapture string `json:"originalCapture"`
	Title           string `json:"title,omitempty"`
	Content         string `json:"content,omitempty"`
}

// Section is a contiguous, heading-scoped span of a document.
type Section struct {
	Level        int           `json:"level"`
	Title        string        `json:"title"`
	Content      []string      `json:"content"`      // Paragraph texts in document order
	Tables       [][]string    `json:"tables"`       // Rows of cell text, flattened across tables
	Requirements []Requirement `json:"requirements"` // In extraction order
}

// NewSection returns a section with non-nil collections so it serializes as [].
func NewSection(level int, title string) *Section {
	return &Section{
		Level:        level,
		Title:        title,
		Content:      []string{},
		Tables:       [][]string{},
		Requirements: []Requirement{},
	}
}

// Result is the output of one document extraction.
type Result struct {
	Title      string    `json:"title"`
	Structured []Section `json:"structured"`
}

// RequirementCount sums requirements across all sections.
func (r *Result) RequirementCount() int {
	n := 0
	for _, s := range r.Structured {
		n += len(s.Requirements)
	}
	return n
}

// TableRowCount sums table rows across all sections.
func (r *Result) TableRowCount() int {
	n := 0
	for _, s := range r.Structured {
		n += len(s.Tables)
	}
	return n
}
