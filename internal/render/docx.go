package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/rfpgest/internal/textclean"
	"github.com/fumiama/go-docx"
)

// DOCXContentType is the MIME type of files produced by WriteDOCX.
const DOCXContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var headingStyle = map[int]struct{ size, color string }{
	1: {"36", "1E293B"},
	2: {"28", "334155"},
	3: {"24", "475569"},
}

const (
	linkColor    = "0563C1"
	strikeColor  = "808080"
	codeShade    = "E7E6E6"
	headerShade  = "F8FAFC"
	ruleColor    = "CBD5E1"
	bodySize     = "22"
	defaultTitle = "export"
)

// WriteDOCX encodes nodes as a Word document. A non-empty title is written
// as a centered heading above the content.
func WriteDOCX(w io.Writer, title string, nodes []Node) error {
	doc := docx.New().WithDefaultTheme()

	if title = strings.TrimSpace(textclean.Sanitize(title)); title != "" {
		doc.AddParagraph().Style("Title").Justification("center").AddText(title).Bold().Size("40")
	}
	dw := &docxWriter{doc: doc}
	for _, n := range nodes {
		dw.node(n, 0)
	}

	var raw bytes.Buffer
	if _, err := doc.WriteTo(&raw); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	if err := addStyles(w, raw.Bytes()); err != nil {
		return fmt.Errorf("write docx styles: %w", err)
	}
	return nil
}

// extraStyles are the definitions referenced by exported paragraphs and runs
// that the default theme lacks. Readers resolve headings by style name.
var extraStyles = func() map[string]string {
	m := map[string]string{
		"Title":     `<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="a"/><w:next w:val="a"/><w:qFormat/><w:pPr><w:jc w:val="center"/></w:pPr><w:rPr><w:b/><w:sz w:val="40"/></w:rPr></w:style>`,
		"Hyperlink": `<w:style w:type="character" w:styleId="Hyperlink"><w:name w:val="Hyperlink"/><w:rPr><w:color w:val="` + linkColor + `"/><w:u w:val="single"/></w:rPr></w:style>`,
	}
	for lvl := 1; lvl <= 6; lvl++ {
		id := fmt.Sprintf("Heading%d", lvl)
		m[id] = fmt.Sprintf(`<w:style w:type="paragraph" w:styleId="%s"><w:name w:val="heading %d"/><w:basedOn w:val="a"/><w:next w:val="a"/><w:qFormat/><w:pPr><w:keepNext/><w:outlineLvl w:val="%d"/></w:pPr><w:rPr><w:b/></w:rPr></w:style>`, id, lvl, lvl-1)
	}
	return m
}()

// addStyles copies the package in raw to w, appending extraStyles missing
// from word/styles.xml.
func addStyles(w io.Writer, raw []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		if f.Name == "word/styles.xml" {
			body = appendStyles(body)
		}
		fw, err := zw.Create(f.Name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(body); err != nil {
			return err
		}
	}
	return zw.Close()
}

func appendStyles(styles []byte) []byte {
	end := bytes.LastIndex(styles, []byte("</w:styles>"))
	if end < 0 {
		return styles
	}
	var add bytes.Buffer
	for _, id := range []string{"Title", "Heading1", "Heading2", "Heading3", "Heading4", "Heading5", "Heading6", "Hyperlink"} {
		if !bytes.Contains(styles, []byte(`w:styleId="`+id+`"`)) {
			add.WriteString(extraStyles[id])
		}
	}
	out := make([]byte, 0, len(styles)+add.Len())
	out = append(out, styles[:end]...)
	out = append(out, add.Bytes()...)
	return append(out, styles[end:]...)
}

// Filename returns the attachment name for an exported title.
func Filename(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	return title + ".docx"
}

type docxWriter struct {
	doc *docx.Docx
}

// paragraph starts a new body paragraph indented by indent tab stops.
func (dw *docxWriter) paragraph(indent int) *docx.Paragraph {
	p := dw.doc.AddParagraph()
	indentParagraph(p, indent)
	return p
}

func indentParagraph(p *docx.Paragraph, indent int) {
	for i := 0; i < indent; i++ {
		p.AddText("").AddTab()
	}
}

func (dw *docxWriter) node(n Node, quote int) {
	switch n.Kind {
	case KindHeading:
		hs, ok := headingStyle[n.Level]
		if !ok {
			hs = struct{ size, color string }{bodySize, headingStyle[3].color}
		}
		p := dw.paragraph(quote).Style(fmt.Sprintf("Heading%d", min(max(n.Level, 1), 6)))
		for _, line := range splitLines(n.Runs) {
			for _, r := range line {
				writeRun(p, r).Bold().Size(hs.size).Color(hs.color)
			}
		}

	case KindParagraph:
		dw.lines(n.Runs, quote+n.Indent, "")

	case KindListItem:
		marker := "• "
		if n.Number > 0 {
			marker = strconv.Itoa(n.Number) + ". "
		}
		dw.lines(n.Runs, quote+n.Depth, marker)

	case KindCode:
		for _, line := range strings.Split(n.Text, "\n") {
			dw.paragraph(quote).AddText(line).Shade("clear", "auto", codeShade)
		}

	case KindRule:
		dw.paragraph(quote).Justification("center").AddText(strings.Repeat("─", 40)).Color(ruleColor)

	case KindBlockquote:
		for _, c := range n.Children {
			dw.node(c, quote+1)
		}

	case KindTable:
		dw.table(n.Rows)
	}
}

// lines writes runs as one paragraph per line break. marker prefixes the
// first line only.
func (dw *docxWriter) lines(runs []Run, indent int, marker string) {
	for i, line := range splitLines(runs) {
		p := dw.paragraph(indent)
		if i == 0 && marker != "" {
			p.AddText(marker)
		}
		for _, r := range line {
			writeRun(p, r)
		}
	}
}

func (dw *docxWriter) table(rows [][]Cell) {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if len(rows) == 0 || cols == 0 {
		return
	}

	tbl := dw.doc.AddTable(len(rows), cols, 0, nil)
	for i, row := range rows {
		for j, cell := range row {
			tc := tbl.TableRows[i].TableCells[j]
			if cell.Header {
				tc.Shade("clear", "auto", headerShade)
			}
			for _, para := range cell.Paragraphs {
				p := tc.AddParagraph()
				if para.Bullet {
					p.AddText("• ")
				}
				for _, r := range para.Runs {
					if r.Break {
						p = tc.AddParagraph()
						continue
					}
					run := writeRun(p, r)
					if cell.Header {
						run.Bold()
					}
				}
			}
		}
	}
}

func writeRun(p *docx.Paragraph, r Run) *docx.Run {
	var run *docx.Run
	if r.Link != "" {
		run = addLink(p, r.Text, r.Link)
	} else {
		run = p.AddText(r.Text)
	}
	if r.Bold {
		run.Bold()
	}
	if r.Italic {
		run.Italic()
	}
	if r.Strike && r.Link == "" {
		run.Color(strikeColor)
	}
	if r.Code {
		run.Shade("clear", "auto", codeShade)
	}
	return run
}

// addLink writes text as a hyperlink to url. The run carries the text in a
// w:t element so readers that skip field instructions still see it.
func addLink(p *docx.Paragraph, text, url string) *docx.Run {
	h := p.AddLink(text, url)
	h.Run.InstrText = ""
	h.Run.Children = []interface{}{&docx.Text{Text: text, XMLSpace: "preserve"}}
	h.Run.RunProperties.RunStyle = &docx.RunStyle{Val: "Hyperlink"}
	return h.Run.Color(linkColor).Underline("single")
}

// splitLines groups runs between Break runs. Empty lines are kept so
// explicit blank breaks survive.
func splitLines(runs []Run) [][]Run {
	lines := [][]Run{nil}
	for _, r := range runs {
		if r.Break {
			lines = append(lines, nil)
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], r)
	}
	for len(lines) > 1 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}
