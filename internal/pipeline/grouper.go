package pipeline

import (
	"slices"
	"strings"

	"github.com/dgallion1/bookdigest/internal/book"
)

// Group is a processing unit: one untagged chapter, or every chapter that
// shares a tag. Groups are built once per run and not modified afterwards.
type Group struct {
	ID         string   `json:"id"`
	Tag        string   `json:"tag,omitempty"`
	ChapterIDs []string `json:"chapter_ids"`
	Titles     []string `json:"titles"`
}

// Title is the label used in prompts and merged mind maps. A tagged group
// names its member chapters after the tag.
func (g Group) Title() string {
	if g.Tag != "" {
		if len(g.Titles) == 0 {
			return g.Tag
		}
		return g.Tag + " (" + strings.Join(g.Titles, ", ") + ")"
	}
	if len(g.Titles) > 0 {
		return g.Titles[0]
	}
	return g.ID
}

// TagGroupID derives the id of a tagged group from its member chapter ids.
// The result does not depend on the order of ids.
func TagGroupID(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return "tag-" + book.ContentHashHex([]byte(strings.Join(sorted, "_")))[:16]
}

// GroupChapters partitions chapters in document order. An untagged chapter
// forms its own group identified by its title; the first chapter carrying a
// tag pulls in every chapter with that tag. Tags are keyed by chapter id;
// blank tags count as untagged.
func GroupChapters(chapters []book.Chapter, tags map[string]string) []Group {
	var groups []Group
	consumed := make(map[string]bool)
	usedIDs := make(map[string]bool)

	for _, ch := range chapters {
		tag := strings.TrimSpace(tags[ch.ID])
		if tag == "" {
			id := ch.Title
			// Two untagged chapters may share a title; keep ids unique
			// within the run.
			if id == "" || usedIDs[id] {
				id = ch.Title + "#" + ch.ID
			}
			usedIDs[id] = true
			groups = append(groups, Group{
				ID:         id,
				ChapterIDs: []string{ch.ID},
				Titles:     []string{ch.Title},
			})
			continue
		}
		if consumed[tag] {
			continue
		}
		consumed[tag] = true

		g := Group{Tag: tag}
		for _, other := range chapters {
			if strings.TrimSpace(tags[other.ID]) == tag {
				g.ChapterIDs = append(g.ChapterIDs, other.ID)
				g.Titles = append(g.Titles, other.Title)
			}
		}
		g.ID = TagGroupID(g.ChapterIDs)
		usedIDs[g.ID] = true
		groups = append(groups, g)
	}
	return groups
}

// groupContent joins the content of a group's chapters. Multi-chapter groups
// keep each chapter's title as a heading.
func groupContent(g Group, byID map[string]book.Chapter) string {
	if len(g.ChapterIDs) == 1 {
		return byID[g.ChapterIDs[0]].Content
	}
	var sb strings.Builder
	for i, id := range g.ChapterIDs {
		ch := byID[id]
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("### ")
		sb.WriteString(ch.Title)
		sb.WriteString("\n\n")
		sb.WriteString(ch.Content)
	}
	return sb.String()
}
