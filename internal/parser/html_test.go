package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_MetadataAndSections(t *testing.T) {
	input := `<!DOCTYPE html>
<html><head>
<title>Moby Dick</title>
<meta name="Author" content=" Herman Melville ">
<style>p { color: red }</style>
</head><body>
<nav><p>skip me</p></nav>
<h1>Chapter 1. Loomings</h1>
<p>Call me   Ishmael.</p>
<p>Some years ago.</p>
<h2>Aside</h2>
<blockquote>Quoted <em>text</em></blockquote>
<h1>Chapter 2. The Carpet-Bag</h1>
<p>I stuffed a shirt.</p>
<script>var x = 1;</script>
</body></html>`

	outline, err := (&HTMLParser{}).Parse(strings.NewReader(input), "moby.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Title != "Moby Dick" {
		t.Errorf("expected title from <title>, got %q", outline.Title)
	}
	if outline.Author != "Herman Melville" {
		t.Errorf("expected author from meta, got %q", outline.Author)
	}
	if len(outline.Sections) != 2 {
		t.Fatalf("expected 2 top-level sections, got %d", len(outline.Sections))
	}

	ch1 := outline.Sections[0]
	if ch1.Text != "Call me Ishmael.\n\nSome years ago." {
		t.Errorf("unexpected chapter 1 text %q", ch1.Text)
	}
	if len(ch1.Children) != 1 || ch1.Children[0].Text != "Quoted text" {
		t.Errorf("unexpected chapter 1 children %+v", ch1.Children)
	}
	if strings.Contains(outline.Sections[1].Text, "var x") {
		t.Error("script content leaked into text")
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{"h1": 1, "h6": 6, "h7": 0, "p": 0, "hr": 0}
	for tag, want := range tests {
		if got := headingLevel(tag); got != want {
			t.Errorf("headingLevel(%q) = %d, want %d", tag, got, want)
		}
	}
}
