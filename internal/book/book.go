// Package book turns a loaded document outline into the ordered chapter list
// the pipeline works on.
package book

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/bookdigest/internal/parser"
)

// Chapter is one processing input. IDs are stable for a given document and
// load options.
type Chapter struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Depth   int    `json:"depth"`
	Tokens  int    `json:"approx_tokens"`
}

// Metadata describes the book as a whole.
type Metadata struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
}

// Document is a loaded book.
type Document struct {
	ID       string    `json:"doc_id"`
	Filename string    `json:"filename"`
	Metadata Metadata  `json:"metadata"`
	Chapters []Chapter `json:"chapters"`
	LoadedAt time.Time `json:"loaded_at"`
}

// LoadOptions control how an outline becomes chapters.
type LoadOptions struct {
	// MaxDepth is the deepest outline level split into its own chapter;
	// deeper sections are folded into their ancestor. Zero means 2.
	MaxDepth int
	// SkipNonEssential drops front and back matter such as copyright pages
	// and indexes.
	SkipNonEssential bool
	// Title and Author override the values found in the file.
	Title  string
	Author string
}

const defaultMaxDepth = 2

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// DocumentID derives the document identity from the file content, so the
// same file maps to the same cache entries across uploads and restarts.
func DocumentID(data []byte) string {
	return ContentHashHex(data)[:16]
}

// Load reads a book file and splits it into chapters.
func Load(r io.Reader, filename string, opts LoadOptions) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	outline, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	doc := &Document{
		ID:       DocumentID(data),
		Filename: filename,
		Metadata: Metadata{Title: outline.Title, Author: outline.Author},
		Chapters: Chapters(outline, opts),
		LoadedAt: time.Now().UTC(),
	}
	if opts.Title != "" {
		doc.Metadata.Title = opts.Title
	}
	if opts.Author != "" {
		doc.Metadata.Author = opts.Author
	}
	if len(doc.Chapters) == 0 {
		return nil, fmt.Errorf("%s: no chapters with content", filename)
	}
	return doc, nil
}

var nonEssentialRe = regexp.MustCompile(
	`(?i)^\s*(copyright|table\s+of\s+contents|contents|index|dedication|` +
		`acknowledg(e)?ments?|about\s+the\s+(author|publisher)|also\s+by|` +
		`bibliography|references|title\s+page|cover|colophon)\b`,
)

// IsNonEssential reports whether a chapter title names front or back matter.
func IsNonEssential(title string) bool {
	return nonEssentialRe.MatchString(title)
}

// Chapters flattens the outline in document order. A single top-level
// section that only wraps others is treated as the book title.
func Chapters(o *parser.Outline, opts LoadOptions) []Chapter {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}

	sections := o.Sections
	if len(sections) == 1 && len(sections[0].Children) > 0 {
		wrapper := sections[0]
		sections = wrapper.Children
		if strings.TrimSpace(wrapper.Text) != "" {
			sections = append([]*parser.Section{{Title: wrapper.Title, Text: wrapper.Text}}, sections...)
		}
	}

	var out []Chapter
	var walk func(s *parser.Section, depth int)
	walk = func(s *parser.Section, depth int) {
		title := strings.TrimSpace(s.Title)
		if opts.SkipNonEssential && title != "" && IsNonEssential(title) {
			return
		}
		if depth >= maxDepth || len(s.Children) == 0 {
			out = appendChapter(out, title, foldText(s), depth)
			return
		}
		out = appendChapter(out, title, strings.TrimSpace(s.Text), depth)
		for _, c := range s.Children {
			walk(c, depth+1)
		}
	}
	for _, s := range sections {
		walk(s, 1)
	}
	return out
}

func appendChapter(out []Chapter, title, content string, depth int) []Chapter {
	if content == "" {
		return out
	}
	n := len(out) + 1
	if title == "" {
		title = fmt.Sprintf("Section %d", n)
	}
	return append(out, Chapter{
		ID:      fmt.Sprintf("ch%03d", n),
		Title:   title,
		Content: content,
		Depth:   depth,
		Tokens:  EstimateTokens(content),
	})
}

// foldText returns a section's text followed by its descendants' titled text.
func foldText(s *parser.Section) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(s.Text))
	for _, c := range s.Children {
		sub := foldText(c)
		if sub == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if c.Title != "" {
			sb.WriteString(c.Title)
			sb.WriteString("\n\n")
		}
		sb.WriteString(sub)
	}
	return sb.String()
}

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// Chapter returns the chapter with id.
func (d *Document) Chapter(id string) (Chapter, bool) {
	for _, c := range d.Chapters {
		if c.ID == id {
			return c, true
		}
	}
	return Chapter{}, false
}

// Select returns the chapters named by ids in document order, or all
// chapters when ids is empty.
func (d *Document) Select(ids []string) ([]Chapter, error) {
	if len(ids) == 0 {
		return append([]Chapter(nil), d.Chapters...), nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := d.Chapter(id); !ok {
			return nil, fmt.Errorf("unknown chapter id %q", id)
		}
		want[id] = true
	}
	out := make([]Chapter, 0, len(want))
	for _, c := range d.Chapters {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

// Outline returns the chapter list without content, for listings.
func (d *Document) Outline() []Chapter {
	out := make([]Chapter, len(d.Chapters))
	for i, c := range d.Chapters {
		c.Content = ""
		out[i] = c
	}
	return out
}
