package parser

import "strings"

// Outline is the section structure of a loaded document.
type Outline struct {
	Title    string
	Author   string
	Sections []*Section
}

// Section is one heading-delimited part of a document. Level is the heading
// depth (1 for top level); Text excludes the text of child sections.
type Section struct {
	Title    string
	Level    int
	Text     string
	Children []*Section
}

// outlineBuilder nests sections by heading level while text is streamed in.
type outlineBuilder struct {
	root  *Section
	stack []*Section
	text  []string
}

func newOutlineBuilder() *outlineBuilder {
	root := &Section{}
	return &outlineBuilder{root: root, stack: []*Section{root}}
}

func (b *outlineBuilder) heading(level int, title string) {
	b.flush()
	s := &Section{Title: title, Level: level}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].Level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, s)
	b.stack = append(b.stack, s)
}

func (b *outlineBuilder) block(t string) {
	if t != "" {
		b.text = append(b.text, t)
	}
}

func (b *outlineBuilder) flush() {
	if len(b.text) == 0 {
		return
	}
	top := b.stack[len(b.stack)-1]
	joined := strings.Join(b.text, "\n\n")
	if top.Text != "" {
		top.Text += "\n\n" + joined
	} else {
		top.Text = joined
	}
	b.text = b.text[:0]
}

// sections returns the top-level sections. Text before the first heading
// becomes an untitled leading section.
func (b *outlineBuilder) sections() []*Section {
	b.flush()
	out := b.root.Children
	if b.root.Text != "" {
		out = append([]*Section{{Level: 1, Text: b.root.Text}}, out...)
	}
	return out
}
