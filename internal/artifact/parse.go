// Package artifact holds the shapes of generated stage outputs and the
// parsing rules that turn raw model text into them.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmpty is returned when a backend produced blank output for a stage
// that expects content.
var ErrEmpty = errors.New("empty artifact")

// MalformedError reports structured output that could not be decoded as JSON
// either directly or from a fenced code block.
type MalformedError struct {
	Label  string
	Reason string
	Raw    string
}

func (e *MalformedError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("malformed %s: %s", e.Label, e.Reason)
	}
	return fmt.Sprintf("malformed %s: %s (raw: %s)", e.Label, e.Reason, truncate(e.Raw, 200))
}

// IsMalformed reports whether err carries a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Parse extracts a JSON document from raw model output. A whole-string parse
// is tried first; on failure the interior of the first fenced block is used.
// The label names the artifact in error messages.
func Parse(raw, label string) (json.RawMessage, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, &MalformedError{Label: label, Reason: "empty response"}
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s), nil
	}

	m := fencedBlockRe.FindStringSubmatch(s)
	if len(m) < 2 {
		return nil, &MalformedError{Label: label, Reason: "no JSON document or fenced block found", Raw: s}
	}
	inner := strings.TrimSpace(m[1])
	if !json.Valid([]byte(inner)) {
		return nil, &MalformedError{Label: label, Reason: "fenced block is not valid JSON", Raw: inner}
	}
	return json.RawMessage(inner), nil
}

// Decode parses raw with Parse and unmarshals the result into v.
func Decode(raw, label string, v any) error {
	doc, err := Parse(raw, label)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return &MalformedError{Label: label, Reason: err.Error(), Raw: string(doc)}
	}
	return nil
}

// Text trims a free-text stage output and rejects blank results.
func Text(raw, label string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%s: %w", label, ErrEmpty)
	}
	return s, nil
}

// ExtractFenced returns the interior of the first ```lang fenced block, or
// the trimmed input when no such block exists.
func ExtractFenced(raw, lang string) string {
	re := regexp.MustCompile("(?s)```" + regexp.QuoteMeta(lang) + "\\s*(.*?)```")
	if m := re.FindStringSubmatch(raw); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
