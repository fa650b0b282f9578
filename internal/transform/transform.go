// Package transform evaluates the colon-separated transform chains used in
// requirement code templates, e.g. "padStart(3,0):toUpperCase()".
package transform

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// ReplaceTimeout bounds a single replace() evaluation.
const ReplaceTimeout = 250 * time.Millisecond

// MaxPadLength is the largest length padStart accepts. Longer calls are
// malformed.
const MaxPadLength = 256

var (
	padStartCall = regexp.MustCompile(`^padStart\((\d+),(.)\)$`)
	replaceCall  = regexp.MustCompile(`^replace\(([^,]+),([^)]*)\)$`)
)

type step func(string) string

// Apply runs every call of chain against value, left to right. Calls that
// are unknown or malformed leave the value unchanged.
func Apply(value, chain string) string {
	for _, call := range Split(chain) {
		if s, ok := parse(call); ok {
			value = s(value)
		}
	}
	return value
}

// Split returns the trimmed, non-empty calls of a chain.
func Split(chain string) []string {
	var calls []string
	for _, part := range strings.Split(chain, ":") {
		part = strings.TrimSpace(part)
		if part != "" {
			calls = append(calls, part)
		}
	}
	return calls
}

// Valid reports whether call is a recognized, well-formed transform.
func Valid(call string) bool {
	_, ok := parse(strings.TrimSpace(call))
	return ok
}

func parse(call string) (step, bool) {
	if m := padStartCall.FindStringSubmatch(call); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > MaxPadLength {
			return nil, false
		}
		fill := m[2]
		return func(v string) string { return padStart(v, n, fill) }, true
	}

	switch call {
	case "toUpperCase()":
		return strings.ToUpper, true
	case "toLowerCase()":
		return strings.ToLower, true
	}

	if m := replaceCall.FindStringSubmatch(call); m != nil {
		re, err := regexp2.Compile(m[1], regexp2.ECMAScript)
		if err != nil {
			return nil, false
		}
		re.MatchTimeout = ReplaceTimeout
		repl := m[2]
		return func(v string) string {
			out, err := re.Replace(v, repl, -1, -1)
			if err != nil {
				return v
			}
			return out
		}, true
	}

	return nil, false
}

func padStart(v string, length int, fill string) string {
	missing := length - utf8.RuneCountInString(v)
	if missing <= 0 {
		return v
	}
	return strings.Repeat(fill, missing) + v
}
