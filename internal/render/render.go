// Package render turns evaluation Markdown back into a rich document: a flat
// list of styled block nodes that a writer can encode, such as WriteDOCX.
package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/dgallion1/rfpgest/internal/textclean"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Kind is the type of a rendered block.
type Kind string

const (
	KindHeading    Kind = "heading"
	KindParagraph  Kind = "paragraph"
	KindListItem   Kind = "list_item"
	KindTable      Kind = "table"
	KindBlockquote Kind = "blockquote"
	KindCode       Kind = "code"
	KindRule       Kind = "rule"
)

const (
	CheckboxEmpty   = "☐"
	CheckboxChecked = "☑"
)

// Run is a span of text sharing one style. A Break run ends the current line.
type Run struct {
	Text   string `json:"text,omitempty"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Strike bool   `json:"strike,omitempty"`
	Code   bool   `json:"code,omitempty"`
	Link   string `json:"link,omitempty"`
	Break  bool   `json:"break,omitempty"`
}

// Paragraph is one line of a table cell.
type Paragraph struct {
	Runs   []Run `json:"runs"`
	Bullet bool  `json:"bullet,omitempty"`
}

// Cell is a table cell split into paragraphs.
type Cell struct {
	Header     bool        `json:"header,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Node is one rendered block.
type Node struct {
	Kind  Kind  `json:"kind"`
	Level int   `json:"level,omitempty"` // heading level
	Runs  []Run `json:"runs,omitempty"`

	// List items. Depth is 0 for a top-level list. Number is set for
	// ordered lists only.
	Depth  int `json:"depth,omitempty"`
	Number int `json:"number,omitempty"`
	// Indent is the left indentation, in list levels, of paragraphs that
	// carry no bullet, such as checkbox items.
	Indent int `json:"indent,omitempty"`

	Rows     [][]Cell `json:"rows,omitempty"`
	Children []Node   `json:"children,omitempty"`
	Text     string   `json:"text,omitempty"` // code block body
}

var (
	uncheckedBox = regexp.MustCompile(`(?m)^(\s*)-\s*\[\s*\]\s*`)
	checkedBox   = regexp.MustCompile(`(?mi)^(\s*)-\s*\[x\]\s*`)
	bareNumber   = regexp.MustCompile(`(?m)^#(\d+\.)`)
)

// Preprocess rewrites task-list syntax to ballot-box glyphs and turns
// "#1." style lines into level-3 headings.
func Preprocess(md string) string {
	md = uncheckedBox.ReplaceAllString(md, "$1- "+CheckboxEmpty+" ")
	md = checkedBox.ReplaceAllString(md, "$1- "+CheckboxChecked+" ")
	return bareNumber.ReplaceAllString(md, "### $1")
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// Render preprocesses md and converts it to rich nodes.
func Render(md string) []Node {
	src := []byte(Preprocess(md))
	root := markdown.Parser().Parse(text.NewReader(src))

	r := &renderer{src: src}
	var nodes []Node
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		nodes = r.block(nodes, n)
	}
	return nodes
}

type renderer struct {
	src []byte
}

func (r *renderer) block(nodes []Node, n ast.Node) []Node {
	switch node := n.(type) {
	case *ast.Heading:
		return append(nodes, Node{Kind: KindHeading, Level: node.Level, Runs: r.inline(node)})

	case *ast.Paragraph, *ast.TextBlock:
		return append(nodes, Node{Kind: KindParagraph, Runs: r.inline(node)})

	case *ast.List:
		return r.list(nodes, node, 0)

	case *ast.Blockquote:
		var children []Node
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			children = r.block(children, c)
		}
		return append(nodes, Node{Kind: KindBlockquote, Children: children})

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		body := strings.TrimSuffix(string(lines(node, r.src)), "\n")
		return append(nodes, Node{Kind: KindCode, Text: textclean.Sanitize(body)})

	case *ast.ThematicBreak:
		return append(nodes, Node{Kind: KindRule})

	case *extast.Table:
		return append(nodes, Node{Kind: KindTable, Rows: r.table(node)})
	}
	return nodes
}

func (r *renderer) list(nodes []Node, list *ast.List, depth int) []Node {
	number := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				runs := r.inline(c)
				switch {
				case isCheckbox(runs):
					nodes = append(nodes, Node{Kind: KindParagraph, Runs: runs, Indent: depth + 1})
				case first:
					n := Node{Kind: KindListItem, Runs: runs, Depth: depth}
					if list.IsOrdered() {
						n.Number = number
					}
					nodes = append(nodes, n)
				default:
					nodes = append(nodes, Node{Kind: KindParagraph, Runs: runs, Indent: depth + 1})
				}
				first = false
			case *ast.List:
				nodes = r.list(nodes, c, depth+1)
			default:
				nodes = r.block(nodes, c)
			}
		}
		number++
	}
	return nodes
}

// isCheckbox reports whether runs start with a ballot-box glyph.
func isCheckbox(runs []Run) bool {
	if len(runs) == 0 {
		return false
	}
	t := strings.TrimLeft(runs[0].Text, " ")
	return strings.HasPrefix(t, CheckboxEmpty) || strings.HasPrefix(t, CheckboxChecked)
}

// style is the formatting context carried through nested inline nodes.
type style struct {
	bold, italic, strike bool
	link                 string
}

func (r *renderer) inline(n ast.Node) []Run {
	var runs []Run
	r.walkInline(n, style{}, &runs)
	return runs
}

func (r *renderer) walkInline(n ast.Node, st style, runs *[]Run) {
	emit := func(s string, link string) {
		if s == "" {
			return
		}
		if link == "" {
			link = st.link
		}
		*runs = appendRun(*runs, Run{
			Text:   textclean.Sanitize(s),
			Bold:   st.bold,
			Italic: st.italic,
			Strike: st.strike,
			Link:   link,
		})
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			emit(string(util.UnescapePunctuations(t.Segment.Value(r.src))), "")
			if t.SoftLineBreak() || t.HardLineBreak() {
				*runs = append(*runs, Run{Break: true})
			}
		case *ast.String:
			emit(string(t.Value), "")
		case *ast.Emphasis:
			inner := st
			if t.Level >= 2 {
				inner.bold = true
			} else {
				inner.italic = true
			}
			r.walkInline(t, inner, runs)
		case *extast.Strikethrough:
			inner := st
			inner.strike = true
			r.walkInline(t, inner, runs)
		case *ast.CodeSpan:
			*runs = appendRun(*runs, Run{
				Text:   textclean.Sanitize(string(plainText(t, r.src))),
				Bold:   st.bold,
				Italic: st.italic,
				Strike: st.strike,
				Code:   true,
				Link:   st.link,
			})
		case *ast.Link:
			inner := st
			inner.link = string(t.Destination)
			r.walkInline(t, inner, runs)
		case *ast.AutoLink:
			emit(string(t.Label(r.src)), string(t.URL(r.src)))
		case *ast.Image:
			r.walkInline(t, st, runs)
		case *ast.RawHTML:
			if isBreakTag(rawHTML(t, r.src)) {
				*runs = append(*runs, Run{Break: true})
			}
		default:
			r.walkInline(c, st, runs)
		}
	}
}

// appendRun merges r into the last run when both share a style.
func appendRun(runs []Run, r Run) []Run {
	if n := len(runs); n > 0 {
		last := &runs[n-1]
		if !last.Break && last.Bold == r.Bold && last.Italic == r.Italic &&
			last.Strike == r.Strike && last.Code == r.Code && last.Link == r.Link {
			last.Text += r.Text
			return runs
		}
	}
	return append(runs, r)
}

func (r *renderer) table(t *extast.Table) [][]Cell {
	var rows [][]Cell
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*extast.TableHeader)
		var cells []Cell
		for c := row.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, Cell{Header: header, Paragraphs: r.cell(c)})
		}
		rows = append(rows, cells)
	}
	return rows
}

// cell splits multi-line or bullet-delimited cell text into paragraphs.
// Single-segment cells keep their inline styling.
func (r *renderer) cell(c ast.Node) []Paragraph {
	runs := r.inline(c)
	segments := splitCell(runsText(runs))
	if len(segments) <= 1 {
		return []Paragraph{{Runs: trimBreaks(runs)}}
	}

	out := make([]Paragraph, 0, len(segments))
	for _, seg := range segments {
		p := Paragraph{}
		if rest, ok := cutBullet(seg); ok {
			p.Bullet = true
			seg = rest
		}
		p.Runs = []Run{{Text: seg}}
		out = append(out, p)
	}
	return out
}

// splitCell returns the trimmed non-empty lines of s. A single line holding
// an inline "•" list is split before each bullet.
func splitCell(s string) []string {
	var segs []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			segs = append(segs, line)
		}
	}
	if len(segs) != 1 || strings.Count(segs[0], "•") == 0 {
		return segs
	}

	line := segs[0]
	segs = segs[:0]
	for {
		i := strings.Index(line[1:], "•")
		if i < 0 {
			break
		}
		if head := strings.TrimSpace(line[:i+1]); head != "" {
			segs = append(segs, head)
		}
		line = line[i+1:]
	}
	if tail := strings.TrimSpace(line); tail != "" {
		segs = append(segs, tail)
	}
	return segs
}

func cutBullet(s string) (string, bool) {
	for _, marker := range []string{"•", "-", "*"} {
		if rest, ok := strings.CutPrefix(s, marker); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return s, false
}

func runsText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Break {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(r.Text)
	}
	return b.String()
}

func trimBreaks(runs []Run) []Run {
	for len(runs) > 0 && runs[len(runs)-1].Break {
		runs = runs[:len(runs)-1]
	}
	return runs
}

func isBreakTag(tag string) bool {
	tag = strings.ToLower(strings.ReplaceAll(tag, " ", ""))
	return tag == "<br>" || tag == "<br/>"
}

func rawHTML(n *ast.RawHTML, src []byte) string {
	var buf bytes.Buffer
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

func plainText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.Write(plainText(c, src))
		}
	}
	return buf.Bytes()
}

func lines(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	l := n.Lines()
	for i := 0; i < l.Len(); i++ {
		seg := l.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.Bytes()
}
