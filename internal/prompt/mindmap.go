package prompt

import (
	"fmt"
	"strings"
)

// BookSeparator separates chapter contents in the whole-book mind map prompt.
const BookSeparator = "\n\n ------------- \n\n"

// MindMapContract is appended to every mind map request.
const MindMapContract = `Return ONLY a JSON object with this exact shape, no other text:
{
  "nodeData": {
    "id": "root",
    "topic": "central topic",
    "children": [
      {"id": "1", "topic": "subtopic", "children": [{"id": "1-1", "topic": "detail", "children": []}]}
    ]
  },
  "arrows": [
    {"id": "a1", "label": "relation", "from": "1", "to": "2"}
  ],
  "summaries": [
    {"id": "s1", "label": "summary", "parent": "root", "start": 0, "end": 1}
  ]
}
Rules:
- every node id must be unique within the tree
- arrows and summaries may be empty arrays
- keep topics short; put detail into child nodes`

const mindMapIntro = `Build a hierarchical mind map of the following content. The root is the central subject; first-level children are the main ideas; deeper levels hold supporting points, examples and key terms.`

// ChapterMindMap builds the per-group mind map prompt.
func ChapterMindMap(content string, o Options) string {
	var sb strings.Builder
	sb.WriteString(mindMapIntro)
	sb.WriteString("\n\nChapter content:\n")
	sb.WriteString(content)
	appendCustom(&sb, o.Custom)
	return sb.String()
}

// BookMindMap builds the single whole-book mind map prompt over every
// selected chapter's content.
func BookMindMap(bookTitle string, contents []string, o Options) string {
	var sb strings.Builder
	sb.WriteString(mindMapIntro)
	fmt.Fprintf(&sb, "\n\nCreate one complete mind map for the whole book %q, integrating the content of every chapter.", bookTitle)
	sb.WriteString("\n\nChapter content:\n")
	sb.WriteString(strings.Join(contents, BookSeparator))
	appendCustom(&sb, o.Custom)
	return sb.String()
}
