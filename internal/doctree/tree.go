package doctree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNodeNotFound is returned by mapping operations for an unknown node ID.
var ErrNodeNotFound = errors.New("tree node not found")

// MappingType says whether a category section maps onto an existing category
// or creates a new one.
type MappingType string

const (
	MappingExisting MappingType = "existing"
	MappingNew      MappingType = "new"
)

// CategoryMapping is the human decision attached to a category node.
type CategoryMapping struct {
	Type       MappingType `json:"type"`
	ExistingID string      `json:"existingId,omitempty"`
	NewCode    string      `json:"newCode,omitempty"`
}

// TreeNode is a Section placed in the heading outline.
type TreeNode struct {
	ID           string        `json:"id"`
	Level        int           `json:"level"`
	Title        string        `json:"title"`
	Content      []string      `json:"content"`
	Requirements []Requirement `json:"requirements"`
	Children     []*TreeNode   `json:"children"`

	IsCategory      bool             `json:"isCategory"`
	CategoryMapping *CategoryMapping `json:"categoryMapping,omitempty"`
}

// Tree is a category-mappable outline. Root holds the content found before
// the first heading; it is never a category.
type Tree struct {
	Root  *TreeNode   `json:"root"`
	Nodes []*TreeNode `json:"nodes"`
}

// BuildTree nests sections by heading level: a section becomes a child of
// the nearest preceding section with a lower level. Node IDs are
// "section-<index>" in the input order.
func BuildTree(sections []Section) *Tree {
	t := &Tree{Nodes: []*TreeNode{}}
	var stack []*TreeNode

	for i, s := range sections {
		node := newNode(i, s)
		if s.Level == 0 && t.Root == nil {
			t.Root = node
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			t.Nodes = append(t.Nodes, node)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}

	if t.Root == nil {
		t.Root = newNode(-1, *NewSection(0, RootTitle))
		t.Root.ID = "root"
	}
	return t
}

func newNode(i int, s Section) *TreeNode {
	content := s.Content
	if content == nil {
		content = []string{}
	}
	reqs := s.Requirements
	if reqs == nil {
		reqs = []Requirement{}
	}
	return &TreeNode{
		ID:           fmt.Sprintf("section-%d", i),
		Level:        s.Level,
		Title:        s.Title,
		Content:      content,
		Requirements: reqs,
		Children:     []*TreeNode{},
	}
}

// Walk visits every visible node depth-first in document order. Returning
// false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *TreeNode, depth int) bool) {
	var walk func(nodes []*TreeNode, depth int)
	walk = func(nodes []*TreeNode, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(t.Nodes, 0)
}

// Find returns the visible node with the given ID.
func (t *Tree) Find(id string) (*TreeNode, error) {
	var found *TreeNode
	t.Walk(func(n *TreeNode, _ int) bool {
		if n.ID == id {
			found = n
		}
		return found == nil
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return found, nil
}

// SetCategory marks or unmarks a node as a category. Marking proposes a new
// category with a code suggested from the title; unmarking clears the mapping.
func (t *Tree) SetCategory(id string, on bool, coder *CodeSuggester) error {
	n, err := t.Find(id)
	if err != nil {
		return err
	}
	n.IsCategory = on
	if on {
		n.CategoryMapping = &CategoryMapping{Type: MappingNew, NewCode: coder.Suggest(n.Title)}
	} else {
		n.CategoryMapping = nil
	}
	return nil
}

// SetMappingType switches a category between new and existing. Switching to
// new regenerates the suggested code; switching to existing clears the
// selection until SetExistingCategory is called.
func (t *Tree) SetMappingType(id string, typ MappingType, coder *CodeSuggester) error {
	n, err := t.Find(id)
	if err != nil {
		return err
	}
	switch typ {
	case MappingNew:
		n.CategoryMapping = &CategoryMapping{Type: MappingNew, NewCode: coder.Suggest(n.Title)}
	case MappingExisting:
		n.CategoryMapping = &CategoryMapping{Type: MappingExisting}
	default:
		return fmt.Errorf("unknown mapping type %q", typ)
	}
	return nil
}

// SetExistingCategory points a category node at an existing category.
func (t *Tree) SetExistingCategory(id, existingID string) error {
	n, err := t.Find(id)
	if err != nil {
		return err
	}
	n.CategoryMapping = &CategoryMapping{Type: MappingExisting, ExistingID: existingID}
	return nil
}

// SetNewCode overrides the code of a new category.
func (t *Tree) SetNewCode(id, code string) error {
	n, err := t.Find(id)
	if err != nil {
		return err
	}
	n.CategoryMapping = &CategoryMapping{Type: MappingNew, NewCode: strings.TrimSpace(code)}
	return nil
}

// Assignment is a requirement resolved to the category it rolls up to.
type Assignment struct {
	Requirement Requirement `json:"requirement"`
	Contexts    []string    `json:"contexts,omitempty"`
	SectionID   string      `json:"sectionId"`
	// Category is the nearest category node at or above the requirement's
	// section, or nil when it stays uncategorized.
	Category *TreeNode `json:"-"`
}

// Assignments flattens every requirement in the tree exactly once, in
// document order, promoting each to its nearest category ancestor. The tree
// is not modified.
func (t *Tree) Assignments() []Assignment {
	var out []Assignment
	add := func(n, category *TreeNode) {
		for _, r := range n.Requirements {
			a := Assignment{Requirement: r, SectionID: n.ID, Category: category}
			if len(n.Content) > 0 {
				a.Contexts = n.Content
			}
			out = append(out, a)
		}
	}

	if t.Root != nil {
		add(t.Root, nil)
	}
	var walk func(nodes []*TreeNode, category *TreeNode)
	walk = func(nodes []*TreeNode, category *TreeNode) {
		for _, n := range nodes {
			c := category
			if n.IsCategory {
				c = n
			}
			add(n, c)
			walk(n.Children, c)
		}
	}
	walk(t.Nodes, nil)
	return out
}

// ExistingCategory is a category already known to the caller.
type ExistingCategory struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// CategoryCode resolves the code a category node maps to. It returns false
// for non-categories, incomplete mappings, and unknown existing IDs.
func CategoryCode(n *TreeNode, existing []ExistingCategory) (string, bool) {
	if n == nil || !n.IsCategory || n.CategoryMapping == nil {
		return "", false
	}
	m := n.CategoryMapping
	switch m.Type {
	case MappingExisting:
		if m.ExistingID == "" {
			return "", false
		}
		for _, c := range existing {
			if c.ID == m.ExistingID {
				return c.Code, true
			}
		}
	case MappingNew:
		if m.NewCode != "" {
			return m.NewCode, true
		}
	}
	return "", false
}

// ImportRow is a requirement ready to hand to a persistence layer.
type ImportRow struct {
	Code         string `json:"code"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Context      string `json:"context"`
	CategoryName string `json:"category_name"`
	OrderIndex   int    `json:"order_index"`
}

// DefaultCategory is used for requirements with no resolvable category.
const DefaultCategory = "DOCX"

// ImportRows turns the tree's assignments into import records. Requirements
// without a resolvable category fall back to fallback, or DefaultCategory
// when fallback is empty.
func (t *Tree) ImportRows(existing []ExistingCategory, fallback string) []ImportRow {
	if fallback == "" {
		fallback = DefaultCategory
	}
	assignments := t.Assignments()
	rows := make([]ImportRow, 0, len(assignments))
	for i, a := range assignments {
		code := strings.TrimSpace(a.Requirement.Code)
		title := a.Requirement.Title
		if title == "" {
			title = code
		}
		category, ok := CategoryCode(a.Category, existing)
		if !ok {
			category = fallback
		}
		rows = append(rows, ImportRow{
			Code:         code,
			Title:        title,
			Description:  a.Requirement.Content,
			Context:      strings.Join(a.Contexts, "\n"),
			CategoryName: category,
			OrderIndex:   i,
		})
	}
	return rows
}
