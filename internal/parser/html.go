package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/rfpgest/internal/textclean"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML documents, including the HTML rendering of a DOCX.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrMalformedBody, err)
	}

	doc := &Document{Title: baseTitle(filename)}
	if title := findTitle(root); title != "" {
		doc.Title = title
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				doc.Blocks = append(doc.Blocks, Block{
					Kind:  BlockHeading,
					Level: level,
					Text:  textclean.Collapse(textclean.NFC(textContent(n))),
				})
				return
			}

			switch n.Data {
			case "script", "style", "head", "template", "noscript":
				return
			case "table":
				doc.Blocks = append(doc.Blocks, Block{Kind: BlockTable, Rows: tableRows(n)})
				return
			case "p", "li", "blockquote", "pre", "dt", "dd", "figcaption", "div":
				if !hasBlockChild(n) {
					doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Text: textclean.Block(textContent(n))})
					return
				}
			}
		}

		// Inline runs between block children, e.g. "Item" in
		// <li>Item<ul>...</ul></li> or loose text directly under <body>.
		var run []*html.Node
		flush := func() {
			if text := textclean.Block(runText(run)); text != "" {
				doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Text: text})
			}
			run = run[:0]
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isInline(c) {
				run = append(run, c)
				continue
			}
			flush()
			walk(c)
		}
		flush()
	}
	walk(root)

	return doc, nil
}

// isInline reports whether n is text or phrasing content that belongs to the
// paragraph run around it.
func isInline(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.ElementNode:
	default:
		return false
	}
	if isBlockTag(n.Data) || headingLevel(n.Data) > 0 || hasBlockChild(n) {
		return false
	}
	switch n.Data {
	case "html", "head", "body", "title", "script", "style", "template", "noscript",
		"section", "article", "main", "header", "footer", "nav", "aside", "figure", "form",
		"li", "dt", "dd", "figcaption", "hr":
		return false
	}
	return true
}

func runText(run []*html.Node) string {
	var buf strings.Builder
	for _, c := range run {
		switch {
		case c.Type == html.TextNode:
			buf.WriteString(collapseSpaces(c.Data))
		case c.Data == "br":
			buf.WriteByte('\n')
		default:
			writeText(&buf, c, false, false)
		}
	}
	return trimLines(buf.String())
}

// hasBlockChild reports whether n wraps block elements that should be walked
// on their own, e.g. a <li> holding a nested list or table.
func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && isBlockTag(c.Data) {
			return true
		}
	}
	return false
}

func isBlockTag(tag string) bool {
	switch tag {
	case "p", "ul", "ol", "table", "blockquote", "pre", "div", "dl",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// tableRows collects the rows that belong to table itself. Rows and text of
// nested tables are left out.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
				continue
			case "tr":
				var cells []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						cells = append(cells, textclean.Cell(cellText(cell)))
					}
				}
				rows = append(rows, cells)
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

// cellText is the text of a cell excluding any nested table. Block children
// are separated by spaces so adjacent paragraphs do not run together.
func cellText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				buf.WriteString(c.Data)
			case c.Type == html.ElementNode && c.Data == "table":
			case c.Type == html.ElementNode && c.Data == "br":
				buf.WriteByte(' ')
			case c.Type == html.ElementNode:
				walk(c)
				if c.Data == "p" || c.Data == "div" || c.Data == "li" {
					buf.WriteByte(' ')
				}
			}
		}
	}
	walk(n)
	return buf.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// textContent renders n's text the way a browser would: whitespace runs
// collapse to one space except inside <pre>, and <br> starts a new line.
func textContent(n *html.Node) string {
	var buf strings.Builder
	writeText(&buf, n, n.Data == "pre", false)
	return trimLines(buf.String())
}

func writeText(buf *strings.Builder, n *html.Node, pre, skipBlocks bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if pre {
				buf.WriteString(c.Data)
			} else {
				buf.WriteString(collapseSpaces(c.Data))
			}
		case html.ElementNode:
			if c.Data == "br" {
				buf.WriteByte('\n')
				continue
			}
			if c.Data == "script" || c.Data == "style" {
				continue
			}
			if skipBlocks && isBlockTag(c.Data) {
				continue
			}
			writeText(buf, c, pre || c.Data == "pre", skipBlocks)
		}
	}
}

func collapseSpaces(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textclean.Collapse(textContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
