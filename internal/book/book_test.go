package book

import (
	"strings"
	"testing"

	"github.com/dgallion1/bookdigest/internal/parser"
)

const sampleMarkdown = `# The Voyage

A short foreword.

## Copyright

All rights reserved.

## Chapter 1

Ship leaves port.

### Storm

Waves rise.

## Chapter 2

Landfall.

## Index

a, b, c
`

func TestLoadMarkdown(t *testing.T) {
	doc, err := Load(strings.NewReader(sampleMarkdown), "voyage.md", LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Metadata.Title != "The Voyage" {
		t.Errorf("expected title %q, got %q", "The Voyage", doc.Metadata.Title)
	}
	if len(doc.ID) != 16 {
		t.Errorf("expected 16-char document id, got %q", doc.ID)
	}

	var titles []string
	for _, c := range doc.Chapters {
		titles = append(titles, c.ID+":"+c.Title)
	}
	want := "ch001:The Voyage|ch002:Copyright|ch003:Chapter 1|ch004:Storm|ch005:Chapter 2|ch006:Index"
	if got := strings.Join(titles, "|"); got != want {
		t.Fatalf("chapters = %q, want %q", got, want)
	}
	if doc.Chapters[2].Content != "Ship leaves port." {
		t.Errorf("unexpected chapter 1 content %q", doc.Chapters[2].Content)
	}
}

func TestLoadSkipNonEssentialAndDepth(t *testing.T) {
	doc, err := Load(strings.NewReader(sampleMarkdown), "voyage.md", LoadOptions{
		MaxDepth:         1,
		SkipNonEssential: true,
		Author:           "Anon",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Metadata.Author != "Anon" {
		t.Errorf("author override ignored: %q", doc.Metadata.Author)
	}
	if len(doc.Chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %+v", doc.Chapters)
	}
	ch1 := doc.Chapters[1]
	if ch1.Title != "Chapter 1" || ch1.Content != "Ship leaves port.\n\nStorm\n\nWaves rise." {
		t.Errorf("subsection should fold into its chapter, got %+v", ch1)
	}
	if ch1.Tokens == 0 {
		t.Error("expected token estimate")
	}
}

func TestDocumentIDIsContentDerived(t *testing.T) {
	a := DocumentID([]byte("same bytes"))
	b := DocumentID([]byte("same bytes"))
	c := DocumentID([]byte("other bytes"))
	if a != b {
		t.Error("identical content must share an id")
	}
	if a == c {
		t.Error("different content must not share an id")
	}
}

func TestLoadRejectsEmptyAndUnsupported(t *testing.T) {
	if _, err := Load(strings.NewReader(""), "empty.txt", LoadOptions{}); err == nil {
		t.Error("expected error for empty document")
	}
	if _, err := Load(strings.NewReader("x"), "book.epub", LoadOptions{}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestChaptersNamesUntitledSections(t *testing.T) {
	o := &parser.Outline{Sections: []*parser.Section{
		{Level: 1, Text: "Opening lines."},
		{Title: "One", Level: 1, Text: "Body."},
		{Title: "Empty", Level: 1},
	}}
	chs := Chapters(o, LoadOptions{})
	if len(chs) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chs))
	}
	if chs[0].Title != "Section 1" {
		t.Errorf("expected generated title, got %q", chs[0].Title)
	}
}

func TestSelect(t *testing.T) {
	doc := &Document{Chapters: []Chapter{{ID: "ch001"}, {ID: "ch002"}, {ID: "ch003"}}}

	all, err := doc.Select(nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("Select(nil) = %d, %v", len(all), err)
	}
	some, err := doc.Select([]string{"ch003", "ch001"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(some) != 2 || some[0].ID != "ch001" || some[1].ID != "ch003" {
		t.Errorf("selection must follow document order, got %+v", some)
	}
	if _, err := doc.Select([]string{"nope"}); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestIsNonEssential(t *testing.T) {
	tests := map[string]bool{
		"Copyright Page":    true,
		"Table of Contents": true,
		"Acknowledgments":   true,
		"About the Author":  true,
		"Chapter 3":         false,
		"Indexing Theory":   false,
	}
	for title, want := range tests {
		if got := IsNonEssential(title); got != want {
			t.Errorf("IsNonEssential(%q) = %v, want %v", title, got, want)
		}
	}
}
