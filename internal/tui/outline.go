// Package tui renders section trees for the terminal and hosts the
// interactive category mapper.
package tui

import (
	"fmt"
	"strings"

	"github.com/dgallion1/rfpgest/internal/doctree"
)

// RenderTree draws t as an indented heading outline with requirement counts.
// Category nodes show the code they map to.
func RenderTree(t *doctree.Tree, st *Styles) string {
	if st == nil {
		st = DefaultStyles()
	}
	var b strings.Builder
	if t.Root != nil {
		b.WriteString(st.Title.Render(t.Root.Title))
		b.WriteString(" " + st.Count.Render(countLabel(len(t.Root.Requirements))))
		b.WriteByte('\n')
	}
	t.Walk(func(n *doctree.TreeNode, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth+1))
		b.WriteString(nodeLabel(n, st, nil))
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

func nodeLabel(n *doctree.TreeNode, st *Styles, existing []doctree.ExistingCategory) string {
	title := st.Heading.Render(fmt.Sprintf("H%d %s", n.Level, n.Title))
	label := title + " " + st.Count.Render(countLabel(len(n.Requirements)))
	if n.IsCategory {
		label += " " + st.Category.Render("→ "+mappingLabel(n, existing))
	}
	return label
}

func mappingLabel(n *doctree.TreeNode, existing []doctree.ExistingCategory) string {
	m := n.CategoryMapping
	if m == nil {
		return "unmapped"
	}
	switch m.Type {
	case doctree.MappingExisting:
		if code, ok := doctree.CategoryCode(n, existing); ok {
			return "existing " + code
		}
		return "existing (none selected)"
	default:
		return "new " + m.NewCode
	}
}

func countLabel(n int) string {
	if n == 1 {
		return "(1 requirement)"
	}
	return fmt.Sprintf("(%d requirements)", n)
}
