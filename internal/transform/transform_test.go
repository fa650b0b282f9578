package transform

import (
	"strings"
	"testing"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		value string
		chain string
		want  string
	}{
		{"empty chain", "abc", "", "abc"},
		{"pad short value", "7", "padStart(2,0)", "07"},
		{"pad never truncates", "123", "padStart(2,0)", "123"},
		{"pad with letter", "5", "padStart(4,x)", "xxx5"},
		{"pad zero length", "5", "padStart(0,0)", "5"},
		{"upper", "abc", "toUpperCase()", "ABC"},
		{"lower", "ABC", "toLowerCase()", "abc"},
		{"left to right", "ab", "toUpperCase():replace(A,X)", "XB"},
		{"replace is global", "a-b-c", "replace(-,_)", "a_b_c"},
		{"replace backreference", "12ab", "replace(([0-9]+),<$1>)", "<12>ab"},
		{"replace with empty", "a.b", "replace(\\.,)", "ab"},
		{"unknown transform skipped", "ab", "reverse():toUpperCase()", "AB"},
		{"wrong case skipped", "ab", "touppercase()", "ab"},
		{"malformed pad skipped", "7", "padStart(x)", "7"},
		{"multi char fill skipped", "7", "padStart(3,00)", "7"},
		{"invalid regex passes through", "a(b", "replace((,X)", "a(b"},
		{"whitespace around calls", "7", " padStart(3,0) : toUpperCase() ", "007"},
		{"empty segments ignored", "7", "::padStart(2,0)::", "07"},
		{"accented upper", "sécurité", "toUpperCase()", "SÉCURITÉ"},
		{"pad counts runes", "é", "padStart(3,_)", "__é"},
		{"pad at limit", "7", "padStart(256,0)", strings.Repeat("0", 255) + "7"},
		{"pad over limit skipped", "7", "padStart(257,0)", "7"},
		{"huge pad skipped", "7", "padStart(1099511627776,0):toUpperCase()", "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.value, tt.chain); got != tt.want {
				t.Errorf("Apply(%q, %q) = %q, want %q", tt.value, tt.chain, got, tt.want)
			}
		})
	}
}

func TestApply_EmptyChainIsIdentity(t *testing.T) {
	chains := []string{"padStart(3,0)", "toUpperCase():replace(A,X)", "nonsense", ""}
	for _, chain := range chains {
		once := Apply("ab7", chain)
		if again := Apply(once, ""); again != once {
			t.Errorf("Apply(Apply(v, %q), \"\") = %q, want %q", chain, again, once)
		}
	}
}

func TestSplit(t *testing.T) {
	got := Split(":padStart(2,0): toUpperCase() :")
	if len(got) != 2 {
		t.Fatalf("expected 2 calls, got %d (%v)", len(got), got)
	}
	if got[0] != "padStart(2,0)" || got[1] != "toUpperCase()" {
		t.Errorf("unexpected calls: %v", got)
	}
	if Split("") != nil {
		t.Error("expected nil calls for empty chain")
	}
}

func TestValid(t *testing.T) {
	valid := []string{"padStart(2,0)", "toUpperCase()", "toLowerCase()", "replace(a,b)", "replace([0-9],)"}
	for _, c := range valid {
		if !Valid(c) {
			t.Errorf("expected %q to be valid", c)
		}
	}
	invalid := []string{"padStart(x)", "padStart(257,0)", "padStart(1099511627776,0)", "toUpperCase", "trim()", "replace((,x)", ""}
	for _, c := range invalid {
		if Valid(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}
