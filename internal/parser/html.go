package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML and XHTML books. <title> and <meta name="author">
// fill the outline metadata; h1-h6 delimit sections.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Outline, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := &Outline{Title: baseTitle(filename)}
	if t := findElementText(doc, "title"); t != "" {
		out.Title = t
	}
	out.Author = findMeta(doc, "author")

	b := newOutlineBuilder()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				b.heading(level, textContent(n))
				return
			}
			switch n.Data {
			case "script", "style", "nav", "head", "title":
				return
			case "p", "li", "td", "blockquote", "pre":
				b.block(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if body := findElement(doc, "body"); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	out.Sections = b.sections()
	return out, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// textContent joins descendant text with whitespace collapsed.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findElementText(n *html.Node, tag string) string {
	if el := findElement(n, tag); el != nil {
		return textContent(el)
	}
	return ""
}

func findMeta(n *html.Node, name string) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var metaName, content string
		for _, a := range n.Attr {
			switch strings.ToLower(a.Key) {
			case "name":
				metaName = strings.ToLower(a.Val)
			case "content":
				content = a.Val
			}
		}
		if metaName == name {
			return strings.TrimSpace(content)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := findMeta(c, name); v != "" {
			return v
		}
	}
	return ""
}
