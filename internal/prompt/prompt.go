// Package prompt builds the stage prompts sent to the LLM backend.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dgallion1/bookdigest/internal/llm"
)

// BookType selects the prompt family.
type BookType string

const (
	Fiction    BookType = "fiction"
	NonFiction BookType = "non-fiction"
)

// ParseBookType maps user input to a BookType, defaulting to NonFiction.
func ParseBookType(s string) (BookType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "non-fiction", "nonfiction":
		return NonFiction, nil
	case "fiction":
		return Fiction, nil
	}
	return "", fmt.Errorf("unknown book type %q", s)
}

var languages = map[string]string{
	"en": "English",
	"zh": "Chinese",
	"ja": "Japanese",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"ru": "Russian",
}

// SupportedLanguage reports whether code has a language instruction.
func SupportedLanguage(code string) bool {
	_, ok := languages[code]
	return ok
}

// LanguageInstruction is appended to every prompt. Unknown codes fall back to
// English.
func LanguageInstruction(code string) string {
	name, ok := languages[code]
	if !ok {
		name = languages["en"]
	}
	return fmt.Sprintf("Important: write the entire response in %s.", name)
}

// Options are the per-run prompt settings.
type Options struct {
	BookType   BookType
	Language   string
	Custom     string
	CustomOnly bool
}

// Section is one titled piece of prior-stage output.
type Section struct {
	Title string
	Text  string
}

// Messages wraps a prompt as the single user turn, followed by the language
// instruction.
func Messages(prompt, language string) []llm.Message {
	return []llm.Message{{
		Role:    llm.RoleUser,
		Content: prompt + "\n\n" + LanguageInstruction(language),
	}}
}

func appendCustom(sb *strings.Builder, custom string) {
	if c := strings.TrimSpace(custom); c != "" {
		sb.WriteString("\n\nAdditional requirements: ")
		sb.WriteString(c)
	}
}

func summaryOrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(no summary)"
	}
	return s
}
