// Package textclean normalizes text pulled out of documents before it is
// stored in sections or written into rendered runs.
package textclean

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var entities = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&amp;", "&",
)

// Sanitize removes characters that are illegal in XML 1.0 and decodes the
// common HTML entities.
func Sanitize(s string) string {
	return entities.Replace(StripControl(s))
}

// StripControl drops C0 control characters other than tab, newline and
// carriage return, plus the noncharacters U+FFFE and U+FFFF.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}

// NFC returns s in Unicode normalization form C.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// Collapse replaces runs of whitespace with single spaces and trims the ends.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Block prepares extracted text for a section: control characters removed,
// NFC applied and surrounding whitespace trimmed.
func Block(s string) string {
	return strings.TrimSpace(NFC(StripControl(s)))
}

// Cell prepares a table cell: like Block, with inner whitespace collapsed.
func Cell(s string) string {
	return Collapse(NFC(StripControl(s)))
}
