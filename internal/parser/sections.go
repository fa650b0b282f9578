package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/rfpgest/internal/doctree"
	"github.com/dgallion1/rfpgest/internal/extract"
)

// Structure groups a block stream into heading-scoped sections. The first
// section is always the level-0 root. Every paragraph and every table row is
// an independent extraction call; codes are not deduplicated across blocks.
func Structure(doc *Document, ex *extract.Extractor) []doctree.Section {
	root := doctree.NewSection(0, doctree.RootTitle)
	sections := []*doctree.Section{root}
	cur := root

	addParagraph := func(text string) {
		cur.Content = append(cur.Content, text)
		cur.Requirements = append(cur.Requirements, ex.Extract(text, nil)...)
	}

	for _, b := range doc.Blocks {
		switch b.Kind {
		case BlockHeading:
			if b.Text == "" {
				continue
			}
			if b.Level < 1 || b.Level > doctree.MaxLevel {
				addParagraph(b.Text)
				continue
			}
			cur = doctree.NewSection(b.Level, b.Text)
			sections = append(sections, cur)

		case BlockParagraph:
			if b.Text == "" {
				continue
			}
			addParagraph(b.Text)

		case BlockTable:
			for _, row := range b.Rows {
				if len(row) == 0 {
					continue
				}
				cur.Tables = append(cur.Tables, row)
				cur.Requirements = append(cur.Requirements, ex.Extract(strings.Join(row, " "), row)...)
			}
		}
	}

	out := make([]doctree.Section, len(sections))
	for i, s := range sections {
		out[i] = *s
	}
	return out
}

// Extract parses r with the adapter for filename and structures the result.
// cfg may be nil, in which case sections carry no requirements.
func Extract(r io.Reader, filename string, cfg *extract.RequirementConfig, opts Options, exOpts extract.Options) (*doctree.Result, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(r, filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return &doctree.Result{
		Title:      doc.Title,
		Structured: Structure(doc, extract.Compile(cfg, exOpts)),
	}, nil
}
