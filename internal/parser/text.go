package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// chapterLineRe matches lines that open a chapter in plain-text books.
var chapterLineRe = regexp.MustCompile(`(?i)^\s*((chapter|part|book)\s+([0-9]+|[ivxlcdm]+)\b[.:]?.{0,60}|(prologue|epilogue|preface|introduction|afterword)(\s*[:.\-].{0,60})?)$`)

// TextParser handles plain text books. Short lines that look like chapter
// headings start a new section; blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Outline, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := newOutlineBuilder()
	var para strings.Builder
	endPara := func() {
		if para.Len() > 0 {
			b.block(para.String())
			para.Reset()
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		switch {
		case strings.TrimSpace(line) == "":
			endPara()
		case para.Len() == 0 && chapterLineRe.MatchString(line):
			endPara()
			b.heading(headingLevelForLine(line), strings.TrimSpace(line))
		default:
			if para.Len() > 0 {
				para.WriteString("\n")
			}
			para.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	endPara()

	return &Outline{Title: baseTitle(filename), Sections: b.sections()}, nil
}

// headingLevelForLine nests chapters below parts and front/back matter.
func headingLevelForLine(line string) int {
	if strings.EqualFold(strings.Fields(line)[0], "chapter") {
		return 2
	}
	return 1
}
