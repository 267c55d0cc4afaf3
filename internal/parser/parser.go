// Package parser builds RD document trees from other source formats so they
// can be rendered like RD input.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
)

// Parser converts raw document bytes into a document tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// MaxHeadlineLevel is the deepest headline RD supports.
const MaxHeadlineLevel = 4

// labeler hands out labels that are unique within one document. Repeated
// headings get " (2)", " (3)" and so on appended.
type labeler map[string]int

func (l labeler) unique(label string) string {
	l[label]++
	if n := l[label]; n > 1 {
		label += " (" + strconv.Itoa(n) + ")"
		l[label]++
	}
	return label
}

func headline(level int, title string, labels labeler) *doctree.Headline {
	level = max(1, min(level, MaxHeadlineLevel))
	h := &doctree.Headline{Level: level, Label: labels.unique(title)}
	doctree.Append(h, doctree.Text(title))
	return h
}

func textBlock(s string) *doctree.TextBlock {
	tb := &doctree.TextBlock{}
	doctree.Append(tb, doctree.Text(s))
	return tb
}
