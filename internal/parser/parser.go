// Package parser loads plain text, markdown and HTML books into an Outline.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Parser converts raw document bytes into an Outline.
type Parser interface {
	Parse(r io.Reader, filename string) (*Outline, error)
}

// ErrUnsupportedFormat is returned for file types without a loader.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// SupportedExtensions lists file extensions with a loader.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".xhtml":    true,
}

// ForFile returns the parser for a filename.
func ForFile(filename string) (Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm", ".xhtml":
		return &HTMLParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
