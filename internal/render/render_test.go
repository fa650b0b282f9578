package render

import (
	"reflect"
	"testing"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unchecked", "- [ ] todo", "- ☐ todo"},
		{"checked", "- [x] done", "- ☑ done"},
		{"checked upper", "  - [X] done", "  - ☑ done"},
		{"bare number heading", "#1. Contexte", "### 1. Contexte"},
		{"real heading untouched", "# 1. Contexte", "# 1. Contexte"},
		{"multiline", "a\n- [ ] b\n#2. c", "a\n- ☐ b\n### 2. c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preprocess(tt.in); got != tt.want {
				t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRender_CheckboxHasNoBullet(t *testing.T) {
	nodes := Render("- [x] Done")
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %+v", nodes)
	}
	n := nodes[0]
	if n.Kind != KindParagraph {
		t.Fatalf("expected a paragraph, got %s", n.Kind)
	}
	if got := runsText(n.Runs); got != "☑ Done" {
		t.Errorf("expected %q, got %q", "☑ Done", got)
	}
	if n.Number != 0 || n.Indent != 1 {
		t.Errorf("expected indented paragraph without numbering, got %+v", n)
	}
}

func TestRender_Blocks(t *testing.T) {
	md := "# Titre\n\n#3. Numéroté\n\nTexte **gras _et italique_** ~~barré~~ `code` [lien](https://exemple.fr)\n\n" +
		"1. un\n2. deux\n   - imbriqué\n\n> citation\n\n```\nligne 1\nligne 2\n```\n\n---\n"
	nodes := Render(md)

	kinds := []Kind{KindHeading, KindHeading, KindParagraph, KindListItem, KindListItem, KindListItem, KindBlockquote, KindCode, KindRule}
	if len(nodes) != len(kinds) {
		t.Fatalf("expected %d nodes, got %d: %+v", len(kinds), len(nodes), nodes)
	}
	for i, k := range kinds {
		if nodes[i].Kind != k {
			t.Errorf("node %d: expected %s, got %s", i, k, nodes[i].Kind)
		}
	}

	if nodes[1].Level != 3 || runsText(nodes[1].Runs) != "3. Numéroté" {
		t.Errorf("expected defused level-3 heading, got %+v", nodes[1])
	}

	want := []Run{
		{Text: "Texte "},
		{Text: "gras ", Bold: true},
		{Text: "et italique", Bold: true, Italic: true},
		{Text: " "},
		{Text: "barré", Strike: true},
		{Text: " "},
		{Text: "code", Code: true},
		{Text: " "},
		{Text: "lien", Link: "https://exemple.fr"},
	}
	if got := nodes[2].Runs; !reflect.DeepEqual(got, want) {
		t.Errorf("runs mismatch\n got: %+v\nwant: %+v", got, want)
	}

	if nodes[3].Number != 1 || nodes[4].Number != 2 {
		t.Errorf("expected numbered items, got %+v %+v", nodes[3], nodes[4])
	}
	if nodes[5].Depth != 1 || nodes[5].Number != 0 {
		t.Errorf("expected nested bullet at depth 1, got %+v", nodes[5])
	}
	if len(nodes[6].Children) != 1 || runsText(nodes[6].Children[0].Runs) != "citation" {
		t.Errorf("unexpected blockquote %+v", nodes[6])
	}
	if nodes[7].Text != "ligne 1\nligne 2" {
		t.Errorf("unexpected code body %q", nodes[7].Text)
	}
}

func TestRender_SoftBreakIsBreak(t *testing.T) {
	nodes := Render("ligne un\nligne deux")
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %+v", nodes)
	}
	if got := runsText(nodes[0].Runs); got != "ligne un\nligne deux" {
		t.Errorf("expected soft break kept as a line break, got %q", got)
	}
}

func TestRender_Sanitizes(t *testing.T) {
	nodes := Render("A &amp; B \x01&lt;ok&gt;")
	if got := runsText(nodes[0].Runs); got != "A & B <ok>" {
		t.Errorf("expected sanitized text, got %q", got)
	}
}

func TestRender_TableCells(t *testing.T) {
	md := "| Exigence | Détail |\n|---|---|\n" +
		"| **REQ-1** | simple |\n" +
		"| REQ-2 | - un<br>- deux |\n" +
		"| REQ-3 | Liste • a • b |\n"
	nodes := Render(md)
	if len(nodes) != 1 || nodes[0].Kind != KindTable {
		t.Fatalf("expected a table, got %+v", nodes)
	}
	rows := nodes[0].Rows
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if !rows[0][0].Header || rows[1][0].Header {
		t.Errorf("expected only the first row flagged as header")
	}

	bold := rows[1][0].Paragraphs
	if len(bold) != 1 || len(bold[0].Runs) != 1 || !bold[0].Runs[0].Bold {
		t.Errorf("expected single-segment cell to keep bold, got %+v", bold)
	}

	lines := rows[2][1].Paragraphs
	if len(lines) != 2 || !lines[0].Bullet || lines[0].Runs[0].Text != "un" || lines[1].Runs[0].Text != "deux" {
		t.Errorf("expected two bulleted lines, got %+v", lines)
	}

	inline := rows[3][1].Paragraphs
	if len(inline) != 3 {
		t.Fatalf("expected inline bullet list split in 3, got %+v", inline)
	}
	if inline[0].Bullet || inline[0].Runs[0].Text != "Liste" {
		t.Errorf("expected leading text without bullet, got %+v", inline[0])
	}
	if !inline[1].Bullet || inline[1].Runs[0].Text != "a" || !inline[2].Bullet || inline[2].Runs[0].Text != "b" {
		t.Errorf("unexpected bullet segments %+v", inline[1:])
	}
}

func TestSplitCell(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"one", []string{"one"}},
		{"a\n\n b ", []string{"a", "b"}},
		{"• a • b", []string{"• a", "• b"}},
		{"x • y", []string{"x", "• y"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := splitCell(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
