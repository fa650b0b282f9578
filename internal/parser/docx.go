package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/rfpgest/internal/textclean"
)

// DOCXParser reads OOXML word-processing packages. Heading levels come from
// the style definitions in word/styles.xml.
type DOCXParser struct{}

const (
	docxDocumentPart = "word/document.xml"
	docxStylesPart   = "word/styles.xml"
	docxCorePart     = "docProps/core.xml"
)

var (
	headingStyleName = regexp.MustCompile(`(?i)(?:heading|titre)[\s-]*(\d+)`)
	headingStyleID   = regexp.MustCompile(`(?i)(?:heading|titre)(\d+)`)
)

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open docx container: %v", ErrMalformedBody, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	docFile := files[docxDocumentPart]
	if docFile == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, docxDocumentPart)
	}

	styles, err := readStyleMap(files[docxStylesPart])
	if err != nil {
		return nil, err
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMissingPart, docxDocumentPart, err)
	}
	defer rc.Close()

	blocks, err := parseDocumentBody(rc, styles)
	if err != nil {
		return nil, err
	}

	title := readCoreTitle(files[docxCorePart])
	if title == "" {
		title = baseTitle(filename)
	}
	return &Document{Title: title, Blocks: blocks}, nil
}

// styleMap maps paragraph style IDs to heading levels. Every style defined
// in the styles part has an entry, 0 for non-headings.
type styleMap struct {
	levels  map[string]int
	present bool // the package has a styles part
}

// level classifies a paragraph style ID. Without a styles part the ID itself
// is matched against the built-in heading IDs.
func (m styleMap) level(styleID string) int {
	if styleID == "" {
		return 0
	}
	if lvl, ok := m.levels[styleID]; ok {
		return lvl
	}
	if styleID == "Title" {
		return 1
	}
	if !m.present {
		if sm := headingStyleID.FindStringSubmatch(styleID); sm != nil {
			n, _ := strconv.Atoi(sm[1])
			return n
		}
		if strings.EqualFold(styleID, "Titre") {
			return 1
		}
	}
	return 0
}

type stylesXML struct {
	Styles []struct {
		ID   string `xml:"styleId,attr"`
		Name struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

func readStyleMap(f *zip.File) (styleMap, error) {
	m := styleMap{levels: map[string]int{}}
	if f == nil {
		return m, nil
	}
	m.present = true

	rc, err := f.Open()
	if err != nil {
		return m, fmt.Errorf("%w: open %s: %v", ErrMissingPart, docxStylesPart, err)
	}
	defer rc.Close()

	var doc stylesXML
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return m, fmt.Errorf("%w: decode %s: %v", ErrMalformedBody, docxStylesPart, err)
	}
	for _, s := range doc.Styles {
		name := s.Name.Val
		if s.ID == "" {
			continue
		}
		m.levels[s.ID] = 0
		if sm := headingStyleName.FindStringSubmatch(name); sm != nil {
			n, _ := strconv.Atoi(sm[1])
			m.levels[s.ID] = n
		}
		if strings.EqualFold(name, "Title") || strings.EqualFold(name, "Titre") {
			m.levels[s.ID] = 1
		}
	}
	return m, nil
}

func readCoreTitle(f *zip.File) string {
	if f == nil {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	var core struct {
		Title string `xml:"title"`
	}
	if err := xml.NewDecoder(rc).Decode(&core); err != nil {
		return ""
	}
	return textclean.Collapse(core.Title)
}

// bodyWalker accumulates blocks while streaming word/document.xml.
type bodyWalker struct {
	styles styleMap
	blocks []Block

	inBody   bool
	sawBody  bool
	skip     int // depth inside mc:Fallback or deleted text
	tblDepth int

	// paragraph state; text-box paragraphs nest inside their host
	paraDepth int
	paraStyle string
	paraText  strings.Builder
	inText    bool

	// table state, for the outermost table
	rows     [][]string
	row      []string
	cellDep  int
	cellText []string
}

func parseDocumentBody(r io.Reader, styles styleMap) ([]Block, error) {
	dec := xml.NewDecoder(r)
	w := &bodyWalker{styles: styles}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrMalformedBody, docxDocumentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t)
		case xml.EndElement:
			w.end(t.Name.Local)
		case xml.CharData:
			if w.inText && w.skip == 0 {
				w.paraText.Write(t)
			}
		}
	}

	if !w.sawBody {
		return nil, fmt.Errorf("%w: no w:body in %s", ErrMalformedBody, docxDocumentPart)
	}
	return w.blocks, nil
}

func (w *bodyWalker) start(t xml.StartElement) {
	local := t.Name.Local
	if local == "body" {
		w.inBody, w.sawBody = true, true
		return
	}
	if !w.inBody {
		return
	}
	if w.skip > 0 || local == "Fallback" || local == "delText" {
		w.skip++
		return
	}

	switch local {
	case "tbl":
		w.tblDepth++
		if w.tblDepth == 1 {
			w.rows = nil
		}
	case "tr":
		if w.tblDepth == 1 {
			w.row = []string{}
		}
	case "tc":
		w.cellDep++
		if w.cellDep == 1 {
			w.cellText = nil
		}
	case "p":
		w.paraDepth++
		if w.paraDepth == 1 {
			w.paraStyle = ""
			w.paraText.Reset()
		}
	case "pStyle":
		if w.paraDepth == 1 {
			w.paraStyle = attrVal(t, "val")
		}
	case "t":
		w.inText = w.paraDepth > 0
	case "tab":
		if w.paraDepth > 0 {
			w.paraText.WriteByte('\t')
		}
	case "br", "cr":
		if w.paraDepth > 0 {
			w.paraText.WriteByte('\n')
		}
	}
}

func (w *bodyWalker) end(local string) {
	if local == "body" {
		w.inBody = false
		return
	}
	if !w.inBody {
		return
	}
	if w.skip > 0 {
		w.skip--
		return
	}

	switch local {
	case "t":
		w.inText = false
	case "p":
		if w.paraDepth == 0 {
			return
		}
		w.paraDepth--
		if w.paraDepth > 0 {
			w.paraText.WriteByte('\n')
			return
		}
		if w.cellDep > 0 {
			w.cellText = append(w.cellText, w.paraText.String())
			return
		}
		text := textclean.Block(w.paraText.String())
		if text == "" {
			return
		}
		if lvl := w.styles.level(w.paraStyle); lvl > 0 {
			w.blocks = append(w.blocks, Block{Kind: BlockHeading, Level: lvl, Text: text})
			return
		}
		w.blocks = append(w.blocks, Block{Kind: BlockParagraph, Text: text})
	case "tc":
		if w.cellDep == 1 && w.tblDepth == 1 {
			w.row = append(w.row, textclean.Cell(strings.Join(w.cellText, " ")))
		}
		w.cellDep--
	case "tr":
		if w.tblDepth == 1 {
			w.rows = append(w.rows, w.row)
			w.row = nil
		}
	case "tbl":
		if w.tblDepth == 1 {
			w.blocks = append(w.blocks, Block{Kind: BlockTable, Rows: w.rows})
			w.rows = nil
		}
		w.tblDepth--
	}
}

func attrVal(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
