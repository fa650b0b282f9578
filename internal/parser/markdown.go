package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/rfpgest/internal/textclean"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MarkdownParser handles Markdown files using goldmark with GFM tables.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))

	doc := &Document{Title: baseTitle(filename)}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		doc.Blocks = appendMarkdownBlocks(doc.Blocks, n, src)
	}
	return doc, nil
}

func appendMarkdownBlocks(blocks []Block, n ast.Node, src []byte) []Block {
	switch node := n.(type) {
	case *ast.Heading:
		return append(blocks, Block{
			Kind:  BlockHeading,
			Level: node.Level,
			Text:  textclean.Block(inlineText(node, src, " ")),
		})

	case *ast.Paragraph, *ast.TextBlock:
		return append(blocks, Block{Kind: BlockParagraph, Text: textclean.Block(inlineText(node, src, "\n"))})

	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			blocks = appendListItem(blocks, item, src)
		}
		return blocks

	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			blocks = appendMarkdownBlocks(blocks, c, src)
		}
		return blocks

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return append(blocks, Block{Kind: BlockParagraph, Text: textclean.Block(blockLines(node, src))})

	case *ast.HTMLBlock:
		raw := blockLines(node, src)
		if node.HasClosure() {
			raw += string(node.ClosureLine.Value(src))
		}
		frag, err := (&HTMLParser{}).Parse(strings.NewReader(raw), "")
		if err != nil {
			return blocks
		}
		return append(blocks, frag.Blocks...)

	case *extast.Table:
		var rows [][]string
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, textclean.Cell(inlineText(cell, src, " ")))
			}
			rows = append(rows, cells)
		}
		return append(blocks, Block{Kind: BlockTable, Rows: rows})
	}
	return blocks
}

// appendListItem emits the item's own text as one paragraph, then any nested
// blocks (sub-lists, quotes) after it.
func appendListItem(blocks []Block, item ast.Node, src []byte) []Block {
	var own []string
	var nested []ast.Node
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			own = append(own, inlineText(c, src, "\n"))
		default:
			nested = append(nested, c)
		}
	}
	blocks = append(blocks, Block{Kind: BlockParagraph, Text: textclean.Block(strings.Join(own, "\n"))})
	for _, c := range nested {
		blocks = appendMarkdownBlocks(blocks, c, src)
	}
	return blocks
}

// inlineText concatenates the text of n's inline descendants. Soft line
// breaks are replaced by soft.
func inlineText(n ast.Node, src []byte, soft string) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(decodeInline(t.Segment.Value(src)))
				if t.HardLineBreak() {
					buf.WriteByte('\n')
				} else if t.SoftLineBreak() {
					buf.WriteString(soft)
				}
			case *ast.String:
				buf.Write(t.Value)
			case *ast.CodeSpan:
				// Escapes and entities are literal inside code spans.
				for c := t.FirstChild(); c != nil; c = c.NextSibling() {
					if seg, ok := c.(*ast.Text); ok {
						buf.Write(seg.Segment.Value(src))
					}
				}
			case *ast.AutoLink:
				buf.Write(t.Label(src))
			case *ast.RawHTML:
				// Inline tags carry no text of their own.
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return buf.String()
}

// decodeInline applies backslash escapes and character references the way a
// renderer would.
func decodeInline(v []byte) []byte {
	return util.ResolveEntityNames(util.ResolveNumericReferences(util.UnescapePunctuations(v)))
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}
