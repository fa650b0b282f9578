package doctree

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultStopWords are skipped when building a category code from a French
// section title.
var DefaultStopWords = []string{"DE", "DU", "LA", "LE", "LES", "ET", "OU", "POUR", "DANS"}

// FallbackCode is suggested when a title has no usable words.
const FallbackCode = "CAT"

const (
	singleWordLen = 4
	maxInitials   = 6
)

// CodeSuggester derives short category codes from section titles.
// The zero value and a nil *CodeSuggester use DefaultStopWords.
type CodeSuggester struct {
	StopWords []string
}

// Suggest upper-cases title, removes accents and punctuation, drops stop
// words, then returns the first four letters of a lone word or the initials
// of up to six words.
func (c *CodeSuggester) Suggest(title string) string {
	stop := c.stopSet()

	var words []string
	for _, w := range strings.Fields(normalizeTitle(title)) {
		if !stop[w] {
			words = append(words, w)
		}
	}

	switch len(words) {
	case 0:
		return FallbackCode
	case 1:
		r := []rune(words[0])
		if len(r) > singleWordLen {
			r = r[:singleWordLen]
		}
		return string(r)
	}

	var b strings.Builder
	for i, w := range words {
		if i == maxInitials {
			break
		}
		r := []rune(w)
		b.WriteRune(r[0])
	}
	return b.String()
}

func (c *CodeSuggester) stopSet() map[string]bool {
	words := DefaultStopWords
	if c != nil && c.StopWords != nil {
		words = c.StopWords
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToUpper(w)] = true
	}
	return set
}

func normalizeTitle(title string) string {
	upper := strings.ToUpper(title)
	// Chained transformers carry state, so one is built per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, upper); err == nil {
		upper = folded
	}
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsSpace(r) || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, upper)
}
