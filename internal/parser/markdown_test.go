package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# The Book

Intro text.

## Chapter A

Chapter A content.

### Scene A1

- first point
- second point

## Chapter B

Chapter B content.
`
	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outline.Title != "The Book" {
		t.Errorf("expected single h1 to name the book, got %q", outline.Title)
	}
	if len(outline.Sections) != 1 {
		t.Fatalf("expected 1 top-level section, got %d", len(outline.Sections))
	}

	h1 := outline.Sections[0]
	if h1.Level != 1 || !strings.Contains(h1.Text, "Intro text.") {
		t.Errorf("unexpected h1 %+v", h1)
	}
	if len(h1.Children) != 2 {
		t.Fatalf("expected 2 h2 children, got %d", len(h1.Children))
	}

	a := h1.Children[0]
	if a.Title != "Chapter A" || a.Text != "Chapter A content." {
		t.Errorf("unexpected chapter A %+v", a)
	}
	if len(a.Children) != 1 {
		t.Fatalf("expected 1 h3 child under Chapter A, got %d", len(a.Children))
	}
	scene := a.Children[0]
	if !strings.Contains(scene.Text, "first point") || !strings.Contains(scene.Text, "second point") {
		t.Errorf("expected list items in scene text, got %q", scene.Text)
	}
	if h1.Children[1].Title != "Chapter B" {
		t.Errorf("expected %q, got %q", "Chapter B", h1.Children[1].Title)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := "Just some plain text.\n\nAnother paragraph here."

	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Title != "plain" {
		t.Errorf("expected filename title, got %q", outline.Title)
	}
	if len(outline.Sections) != 1 {
		t.Fatalf("expected 1 section for headingless markdown, got %d", len(outline.Sections))
	}
	text := outline.Sections[0].Text
	if !strings.Contains(text, "Just some plain text.") || !strings.Contains(text, "Another paragraph here.") {
		t.Errorf("expected both paragraphs, got %q", text)
	}
}

func TestMarkdownParser_CodeBlocksKept(t *testing.T) {
	input := "# One\n\nIntro.\n\n# Two\n\nList:\n\n```\nGET /api/users\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Title != "api" {
		t.Errorf("two h1 headings should keep the filename title, got %q", outline.Title)
	}
	if len(outline.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(outline.Sections))
	}
	two := outline.Sections[1]
	if !strings.Contains(two.Text, "GET /api/users") || !strings.Contains(two.Text, "More text after code.") {
		t.Errorf("unexpected section text %q", two.Text)
	}
}

func TestMarkdownParser_LeadingTextBecomesSection(t *testing.T) {
	input := "Dedication line.\n\n# Chapter 1\n\nBody.\n"
	outline, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outline.Sections) != 2 {
		t.Fatalf("expected leading section plus chapter, got %d", len(outline.Sections))
	}
	if outline.Sections[0].Title != "" || outline.Sections[0].Text != "Dedication line." {
		t.Errorf("unexpected leading section %+v", outline.Sections[0])
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	outline, err := (&MarkdownParser{}).Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outline.Sections) != 0 {
		t.Errorf("expected 0 sections for empty input, got %d", len(outline.Sections))
	}
}
