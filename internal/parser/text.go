package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
)

// TextParser handles plain text files. Paragraphs are separated by blank
// lines; a paragraph whose every line is indented becomes a verbatim block.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs [][]string
	var current []string

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, current)
				current = nil
			}
		} else {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	doc := &doctree.Document{}
	for _, para := range paragraphs {
		if indented(para) {
			doctree.Append(doc, &doctree.Verbatim{Lines: dedent(para)})
			continue
		}
		doctree.Append(doc, textBlock(strings.Join(para, "\n")))
	}
	return doc, nil
}

func indented(lines []string) bool {
	for _, l := range lines {
		if !strings.HasPrefix(l, " ") && !strings.HasPrefix(l, "\t") {
			return false
		}
	}
	return true
}

// dedent removes the indentation common to all lines.
func dedent(lines []string) []string {
	common := -1
	for _, l := range lines {
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l[common:]
	}
	return out
}
