package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Headings become headlines, <pre> becomes a
// verbatim block and other text containers become text blocks.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &doctree.Document{Title: findTitle(root)}
	labels := labeler{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if title := textContent(n); title != "" {
					doctree.Append(doc, headline(level, title, labels))
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "pre":
				raw := strings.Trim(rawText(n), "\n")
				if raw != "" {
					doctree.Append(doc, &doctree.Verbatim{Lines: strings.Split(raw, "\n")})
				}
				return
			case "p", "li", "td", "blockquote":
				if t := textContent(n); t != "" {
					doctree.Append(doc, textBlock(t))
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(root); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return doc, nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func textContent(n *html.Node) string {
	return strings.TrimSpace(rawText(n))
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
