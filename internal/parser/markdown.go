package parser

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/labels"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Footnotes and
// definition lists are enabled; a definition list whose terms are all single
// code spans becomes a method list.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Footnote, extension.DefinitionList))
	root := md.Parser().Parse(text.NewReader(src))

	c := &mdConverter{src: src, labels: labeler{}, footnotes: map[int]*east.Footnote{}}
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fn, ok := n.(*east.Footnote); ok && entering {
			c.footnotes[fn.Index] = fn
		}
		return ast.WalkContinue, nil
	})

	doc := &doctree.Document{}
	doctree.Append(doc, c.blocks(root)...)
	return doc, nil
}

type mdConverter struct {
	src       []byte
	labels    labeler
	footnotes map[int]*east.Footnote
}

func (c *mdConverter) blocks(parent ast.Node) []doctree.Node {
	var out []doctree.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.block(n)...)
	}
	return out
}

func (c *mdConverter) block(n ast.Node) []doctree.Node {
	switch node := n.(type) {
	case *ast.Heading:
		h := &doctree.Headline{Level: max(1, min(node.Level, MaxHeadlineLevel))}
		doctree.Append(h, c.inlines(node)...)
		h.Label = c.labels.unique(doctree.PlainText(h))
		return []doctree.Node{h}

	case *ast.Paragraph, *ast.TextBlock:
		tb := &doctree.TextBlock{}
		doctree.Append(tb, c.inlines(node)...)
		return []doctree.Node{tb}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return []doctree.Node{&doctree.Verbatim{Lines: c.lines(node)}}

	case *ast.List:
		var list doctree.Node = &doctree.ItemList{}
		if node.IsOrdered() {
			list = &doctree.EnumList{}
		}
		for li := node.FirstChild(); li != nil; li = li.NextSibling() {
			var item doctree.Node = &doctree.ItemListItem{}
			if node.IsOrdered() {
				item = &doctree.EnumListItem{}
			}
			doctree.Append(item, c.blocks(li)...)
			doctree.Append(list, item)
		}
		return []doctree.Node{list}

	case *east.DefinitionList:
		return []doctree.Node{c.definitionList(node)}

	case *east.FootnoteList, *ast.ThematicBreak, *ast.HTMLBlock:
		return nil
	}
	// Blockquotes and anything unrecognized are flattened into their blocks.
	return c.blocks(n)
}

func (c *mdConverter) lines(n ast.Node) []string {
	lines := n.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		out = append(out, strings.TrimRight(string(line.Value(c.src)), "\r\n"))
	}
	return out
}

func (c *mdConverter) definitionList(dl *east.DefinitionList) doctree.Node {
	methods := true
	for n := dl.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*east.DefinitionTerm); ok && !singleCodeSpan(n) {
			methods = false
			break
		}
	}

	var list doctree.Node = &doctree.DescList{}
	if methods {
		list = &doctree.MethodList{}
	}
	var item doctree.Node
	for n := dl.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.(type) {
		case *east.DefinitionTerm:
			if methods {
				m := &doctree.MethodListItem{Term: inlineText(n.FirstChild(), c.src)}
				m.Label = c.labels.unique(m.LabelName())
				item = m
			} else {
				d := doctree.NewDescListItem("", c.inlines(n)...)
				d.Label = c.labels.unique(doctree.PlainText(d.Term))
				item = d
			}
			doctree.Append(list, item)
		case *east.DefinitionDescription:
			if item != nil {
				doctree.Append(item, c.blocks(n)...)
			}
		}
	}
	return list
}

func singleCodeSpan(term ast.Node) bool {
	first := term.FirstChild()
	if first == nil || first.NextSibling() != nil {
		return false
	}
	_, ok := first.(*ast.CodeSpan)
	return ok
}

func (c *mdConverter) inlines(parent ast.Node) []doctree.Node {
	var out []doctree.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.inline(n)...)
	}
	return out
}

func (c *mdConverter) inline(n ast.Node) []doctree.Node {
	switch node := n.(type) {
	case *ast.Text:
		s := string(node.Value(c.src))
		if node.SoftLineBreak() || node.HardLineBreak() {
			s += "\n"
		}
		return []doctree.Node{doctree.Text(s)}

	case *ast.String:
		return []doctree.Node{doctree.Text(string(node.Value))}

	case *ast.Emphasis:
		em := &doctree.Emphasis{}
		doctree.Append(em, c.inlines(node)...)
		return []doctree.Node{em}

	case *ast.CodeSpan:
		code := &doctree.Code{}
		doctree.Append(code, doctree.Text(inlineText(node, c.src)))
		return []doctree.Node{code}

	case *ast.Link:
		ref := reference(string(node.Destination))
		doctree.Append(ref, c.inlines(node)...)
		return []doctree.Node{ref}

	case *ast.AutoLink:
		ref := &doctree.Reference{URL: string(node.URL(c.src))}
		doctree.Append(ref, doctree.Text(string(node.Label(c.src))))
		return []doctree.Node{ref}

	case *east.FootnoteLink:
		fn := &doctree.Footnote{}
		if def := c.footnotes[node.Index]; def != nil {
			doctree.Append(fn, c.footnoteBody(def)...)
		}
		return []doctree.Node{fn}

	case *east.FootnoteBacklink, *ast.RawHTML:
		return nil
	}
	return c.inlines(n)
}

// footnoteBody joins the paragraphs of a footnote definition into one run of
// inline content.
func (c *mdConverter) footnoteBody(def *east.Footnote) []doctree.Node {
	var out []doctree.Node
	for p := def.FirstChild(); p != nil; p = p.NextSibling() {
		if len(out) > 0 {
			out = append(out, doctree.Text(" "))
		}
		out = append(out, c.inlines(p)...)
	}
	if len(out) > 0 {
		if s, ok := out[len(out)-1].(*doctree.StringElement); ok {
			s.Text = strings.TrimRight(s.Text, "\n")
		}
	}
	return out
}

// inlineText concatenates the text segments under n.
func inlineText(n ast.Node, src []byte) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// reference maps a link destination onto an RD reference: "#label" targets
// this document, "file.rd#label" another RD document, and anything else is a URL.
func reference(dest string) *doctree.Reference {
	if frag, ok := strings.CutPrefix(dest, "#"); ok {
		return &doctree.Reference{Label: &doctree.RefLabel{Name: unescapeFragment(frag)}}
	}
	if !strings.Contains(dest, ":") {
		file, frag, _ := strings.Cut(dest, "#")
		if labels.IsSourceFile(file) {
			return &doctree.Reference{Label: &doctree.RefLabel{Name: unescapeFragment(frag), Filename: file}}
		}
	}
	return &doctree.Reference{URL: dest}
}

func unescapeFragment(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
