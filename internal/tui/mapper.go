package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgallion1/rfpgest/internal/doctree"
)

type row struct {
	node  *doctree.TreeNode
	depth int
}

// Mapper is the bubbletea model for marking sections as categories and
// choosing what each category maps to. It edits the tree in place.
type Mapper struct {
	tree     *doctree.Tree
	existing []doctree.ExistingCategory
	coder    *doctree.CodeSuggester
	styles   *Styles

	rows   []row
	cursor int
	offset int
	height int

	keys    keyMap
	help    help.Model
	input   textinput.Model
	editing bool
	status  string

	accepted bool
	quitting bool
}

// NewMapper builds a mapper over every visible node of t.
func NewMapper(t *doctree.Tree, existing []doctree.ExistingCategory, coder *doctree.CodeSuggester) Mapper {
	in := textinput.New()
	in.Placeholder = "CODE"
	in.CharLimit = 32

	m := Mapper{
		tree:     t,
		existing: existing,
		coder:    coder,
		styles:   DefaultStyles(),
		keys:     defaultKeys(),
		help:     help.New(),
		input:    in,
	}
	t.Walk(func(n *doctree.TreeNode, depth int) bool {
		m.rows = append(m.rows, row{node: n, depth: depth})
		return true
	})
	return m
}

// Accepted reports whether the user confirmed the mapping with enter.
func (m Mapper) Accepted() bool { return m.accepted }

// Tree returns the tree being mapped.
func (m Mapper) Tree() *doctree.Tree { return m.tree }

func (m Mapper) Init() tea.Cmd { return nil }

func (m Mapper) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		cmd := m.handleKey(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Mapper) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Accept):
		m.accepted = true
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Toggle):
		if n := m.current(); n != nil {
			m.apply(m.tree.SetCategory(n.ID, !n.IsCategory, m.coder))
		}
	case key.Matches(msg, m.keys.Switch):
		m.switchType()
	case key.Matches(msg, m.keys.Next):
		m.nextExisting()
	case key.Matches(msg, m.keys.Edit):
		return m.startEdit()
	}
	return nil
}

func (m Mapper) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.editing = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.editing = false
		m.input.Blur()
		code := strings.TrimSpace(m.input.Value())
		if code == "" {
			m.status = "code must not be empty"
			return m, nil
		}
		if n := m.current(); n != nil {
			m.apply(m.tree.SetNewCode(n.ID, code))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Mapper) current() *doctree.TreeNode {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].node
}

func (m *Mapper) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, len(m.rows)-1)
	m.adjustOffset()
}

func (m *Mapper) adjustOffset() {
	visible := m.listHeight()
	if visible <= 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m *Mapper) switchType() {
	n := m.current()
	if n == nil || !n.IsCategory {
		m.status = "not a category; press space first"
		return
	}
	typ := doctree.MappingExisting
	if n.CategoryMapping != nil && n.CategoryMapping.Type == doctree.MappingExisting {
		typ = doctree.MappingNew
	}
	if err := m.tree.SetMappingType(n.ID, typ, m.coder); err != nil {
		m.apply(err)
		return
	}
	if typ == doctree.MappingExisting && len(m.existing) > 0 {
		m.apply(m.tree.SetExistingCategory(n.ID, m.existing[0].ID))
	}
}

func (m *Mapper) nextExisting() {
	n := m.current()
	if n == nil || !n.IsCategory || n.CategoryMapping == nil || n.CategoryMapping.Type != doctree.MappingExisting {
		m.status = "not mapped to an existing category"
		return
	}
	if len(m.existing) == 0 {
		m.status = "no existing categories"
		return
	}
	next := 0
	for i, c := range m.existing {
		if c.ID == n.CategoryMapping.ExistingID {
			next = (i + 1) % len(m.existing)
			break
		}
	}
	m.apply(m.tree.SetExistingCategory(n.ID, m.existing[next].ID))
}

func (m *Mapper) startEdit() tea.Cmd {
	n := m.current()
	if n == nil || !n.IsCategory || n.CategoryMapping == nil || n.CategoryMapping.Type != doctree.MappingNew {
		m.status = "only new categories have an editable code"
		return nil
	}
	m.editing = true
	m.input.SetValue(n.CategoryMapping.NewCode)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Mapper) apply(err error) {
	if err != nil {
		m.status = err.Error()
	}
}

// listHeight is the number of rows that fit between the header and footer.
// Zero means the terminal size is unknown and every row is drawn.
func (m Mapper) listHeight() int {
	if m.height == 0 {
		return 0
	}
	return max(m.height-6, 1)
}

func (m Mapper) View() string {
	if m.quitting || m.accepted {
		return ""
	}
	st := m.styles
	var b strings.Builder
	b.WriteString(st.Title.Render("Map sections to categories"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(st.Dim.Render("No sections to map."))
		b.WriteByte('\n')
	}

	start, end := 0, len(m.rows)
	if h := m.listHeight(); h > 0 && end > h {
		start = m.offset
		end = min(start+h, len(m.rows))
	}
	for i := start; i < end; i++ {
		r := m.rows[i]
		box := "[ ]"
		if r.node.IsCategory {
			box = "[x]"
		}
		line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", r.depth), box, nodeLabel(r.node, st, m.existing))
		if i == m.cursor {
			line = st.Cursor.Render("> ") + st.Selected.Render(line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	switch {
	case m.editing:
		b.WriteString("Code: " + m.input.View())
	case m.status != "":
		b.WriteString(st.Error.Render(m.status))
	}
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// RunMapper runs the mapper full screen and returns the final model.
func RunMapper(t *doctree.Tree, existing []doctree.ExistingCategory, coder *doctree.CodeSuggester) (Mapper, error) {
	p := tea.NewProgram(NewMapper(t, existing, coder), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Mapper{}, fmt.Errorf("run mapper: %w", err)
	}
	return final.(Mapper), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
