package artifact

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_DirectJSON(t *testing.T) {
	doc, err := Parse(`  {"a": 1}  `, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(doc) != `{"a": 1}` {
		t.Errorf("expected trimmed document, got %q", doc)
	}
}

func TestParse_FencedBlock(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"nodeData\":{\"topic\":\"Book\",\"id\":\"1\"}}\n```"
	m, err := ParseMindMap(raw, "mind map")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.NodeData.Topic != "Book" {
		t.Errorf("expected topic %q, got %q", "Book", m.NodeData.Topic)
	}
}

func TestParse_FencedBlockWithoutLanguage(t *testing.T) {
	raw := "```\n[1, 2, 3]\n```\ntrailing words"
	doc, err := Parse(raw, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(doc) != "[1, 2, 3]" {
		t.Errorf("expected fenced interior, got %q", doc)
	}
}

func TestParse_FirstFenceWins(t *testing.T) {
	raw := "```json\n{\"first\": true}\n```\n\n```json\n{\"second\": true}\n```"
	doc, err := Parse(raw, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(doc), "first") {
		t.Errorf("expected first fenced block, got %q", doc)
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t"},
		{"prose", "I could not produce a mind map."},
		{"bad fence", "```json\n{not json}\n```"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw, "chapter mind map")
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsMalformed(err) {
				t.Fatalf("expected MalformedError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), "chapter mind map") {
				t.Errorf("expected label in message, got %q", err.Error())
			}
		})
	}
}

func TestDecode_TypeMismatch(t *testing.T) {
	var v struct {
		N int `json:"n"`
	}
	err := Decode(`{"n": "text"}`, "numbers", &v)
	if !IsMalformed(err) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
}

func TestParseMindMap_MissingNodeData(t *testing.T) {
	_, err := ParseMindMap(`{"arrows": []}`, "mind map")
	if !IsMalformed(err) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
}

func TestText(t *testing.T) {
	got, err := Text("  summary body \n", "summary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "summary body" {
		t.Errorf("expected trimmed text, got %q", got)
	}

	_, err = Text(" \n ", "summary")
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestExtractFenced(t *testing.T) {
	raw := "Relationships:\n```mermaid\ngraph TD\n  A-->B\n```"
	if got := ExtractFenced(raw, "mermaid"); got != "graph TD\n  A-->B" {
		t.Errorf("unexpected extraction %q", got)
	}
	if got := ExtractFenced("  graph TD  ", "mermaid"); got != "graph TD" {
		t.Errorf("expected passthrough, got %q", got)
	}
}
