package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Structural errors. A parse that fails with one of these yields no result.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingPart       = errors.New("missing document part")
	ErrMalformedBody     = errors.New("malformed document body")
)

// BlockKind is the type of a block in a document's body.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockTable
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockTable:
		return "table"
	}
	return "paragraph"
}

// Block is one body element in document order.
type Block struct {
	Kind  BlockKind
	Level int        // Heading level 1-6; 0 when the format could not classify it
	Text  string     // Paragraph or heading text
	Rows  [][]string // Table rows of cell text
}

// Document is the ordered block stream of a parsed file.
type Document struct {
	Title  string
	Blocks []Block
}

// Parser converts raw document bytes into an ordered block stream.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// Options configure format adapters.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
