package prompt

import (
	"fmt"
	"strings"
)

const fictionChapterTemplate = `Write a detailed summary of the following chapter of a novel.

Chapter title: %s

Chapter content:
%s

Summarize in natural, flowing prose using this markdown layout:

## Chapter summary: %s

### Plot development
[the main plot developments of this chapter]

### Characters and relationships
[every character who appears and how they relate to each other]

### Turning points
[the key turning points of this chapter]`

const nonFictionChapterTemplate = `Write a detailed summary of the following chapter of a non-fiction book.

Chapter title: %s

Chapter content:
%s

Summarize in natural, flowing prose using this markdown layout:

## Chapter summary: %s

### Main arguments
[the chapter's main arguments and the cases or findings that support them]

### Key concepts
[list and explain the key concepts]

### Notable quotes
[a few insightful sentences quoted from the text, as a list]

### Practical application
[advice for applying the ideas, tied closely to this chapter]`

// ChapterSummary builds the per-group summary prompt. With CustomOnly set and
// a custom prompt present, the custom text replaces the template.
func ChapterSummary(title, content string, o Options) string {
	if o.CustomOnly && strings.TrimSpace(o.Custom) != "" {
		return fmt.Sprintf("Chapter title: %s\n\nChapter content:\n%s\n\n%s", title, content, strings.TrimSpace(o.Custom))
	}
	tmpl := nonFictionChapterTemplate
	if o.BookType == Fiction {
		tmpl = fictionChapterTemplate
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(tmpl, title, content, title))
	appendCustom(&sb, o.Custom)
	return sb.String()
}

func joinSections(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.Title+":\n"+summaryOrPlaceholder(s.Text))
	}
	return strings.Join(parts, "\n\n")
}

// Connections asks how the chapters relate to one another.
func Connections(sections []Section, o Options) string {
	var sb strings.Builder
	sb.WriteString("Chapter summaries:\n")
	sb.WriteString(joinSections(sections))
	sb.WriteString("\n\n")
	if o.BookType == Fiction {
		sb.WriteString(`Analyze how these chapters of the novel connect. Cover:
- how the plot threads carry from one chapter to the next
- how characters develop across chapters
- recurring motifs, foreshadowing and their payoff`)
	} else {
		sb.WriteString(`Analyze how these chapters connect. Cover:
- how the ideas build on or qualify each other
- the overall argument the chapters form together
- contradictions or tensions between chapters`)
	}
	return sb.String()
}

// OverallSummary asks for a whole-book report built from chapter summaries.
func OverallSummary(bookTitle string, sections []Section, o Options) string {
	var info strings.Builder
	for i, s := range sections {
		if i > 0 {
			info.WriteString("\n")
		}
		fmt.Fprintf(&info, "Chapter %d: %s, content: %s", i+1, s.Title, summaryOrPlaceholder(s.Text))
	}

	if o.BookType == Fiction {
		return fmt.Sprintf(`Novel chapter structure:
%s

These are the chapters of the novel %q. Write a complete story report that helps a reader grasp the whole story.

## 1. Story overview
- the main plot, its setting in time and place, the central conflict and the ending

## 2. Main characters
- the core characters, their relationships and how they change

## 3. Themes and meaning
- the core themes, symbols and what the author wants to convey

## 4. Reading value
- literary qualities and which readers would enjoy it`, info.String(), bookTitle)
	}
	return fmt.Sprintf(`Book chapter structure:
%s

These are the key points of the book %q. Write a complete summary report that helps a reader quickly grasp the essence of the whole book.`, info.String(), bookTitle)
}

// CharacterRelationship asks for a mermaid graph of the characters.
func CharacterRelationship(sections []Section, o Options) string {
	var sb strings.Builder
	sb.WriteString("Chapter summaries:\n")
	sb.WriteString(joinSections(sections))
	sb.WriteString("\n\n")
	if o.BookType == Fiction {
		sb.WriteString("Identify the characters of this novel and the relationships between them.")
	} else {
		sb.WriteString("Identify the people and organisations discussed in this book and how they relate.")
	}
	sb.WriteString(" Return the result as a mermaid flowchart (graph LR) inside a ```mermaid code block, one edge per relationship with the relationship as the edge label.")
	return sb.String()
}
