package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/footnote"
	"github.com/dgallion1/rdhtml/internal/htmlfmt"
	"github.com/dgallion1/rdhtml/internal/indexterm"
	"github.com/dgallion1/rdhtml/internal/labels"
	"github.com/dgallion1/rdhtml/internal/signature"
)

// session is the state of one render.
type session struct {
	r          *Renderer
	labels     *labels.Table
	notes      *footnote.Manager
	index      *indexterm.Manager
	unresolved []string
}

func (s *session) fail(n doctree.Node, err error) error {
	return &Error{Path: doctree.Path(n), Err: err}
}

// children renders the children of n in order.
func (s *session) children(n doctree.Node) ([]string, error) {
	kids := n.Children()
	out := make([]string, 0, len(kids))
	for _, c := range kids {
		frag, err := s.visit(c)
		if err != nil {
			return nil, err
		}
		out = append(out, frag)
	}
	return out, nil
}

func (s *session) inline(n doctree.Node) (string, error) {
	parts, err := s.children(n)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}

func (s *session) visit(n doctree.Node) (string, error) {
	switch n := n.(type) {
	case *doctree.Document:
		return s.document(n)
	case *doctree.Headline:
		return s.headline(n)
	case *doctree.TextBlock:
		return s.textBlock(n)
	case *doctree.Verbatim:
		lines := make([]string, len(n.Lines))
		for i, l := range n.Lines {
			lines[i] = htmlfmt.EscapeText(l)
		}
		return htmlfmt.Wrap("pre", htmlfmt.Chomp(strings.Join(lines, "\n"))), nil
	case *doctree.ItemList:
		return s.list("ul", n)
	case *doctree.EnumList:
		return s.list("ol", n)
	case *doctree.DescList:
		return s.list("dl", n)
	case *doctree.MethodList:
		return s.list("dl", n)
	case *doctree.ItemListItem, *doctree.EnumListItem:
		parts, err := s.children(n)
		if err != nil {
			return "", err
		}
		return htmlfmt.Wrap("li", htmlfmt.Chomp(strings.Join(parts, "\n"))), nil
	case *doctree.DescListItem:
		return s.descListItem(n)
	case *doctree.DescTerm:
		return s.inline(n)
	case *doctree.MethodListItem:
		return s.methodListItem(n)
	case *doctree.StringElement:
		return htmlfmt.EscapeText(n.Text), nil
	case *doctree.Verb:
		return htmlfmt.EscapeText(n.Text), nil
	case *doctree.Emphasis:
		return s.wrapInline("em", n)
	case *doctree.Code:
		return s.wrapInline("code", n)
	case *doctree.Var:
		return s.wrapInline("var", n)
	case *doctree.Keyboard:
		return s.wrapInline("kbd", n)
	case *doctree.Index:
		content, err := s.inline(n)
		if err != nil {
			return "", err
		}
		return s.index.Record(n, content), nil
	case *doctree.Footnote:
		return s.footnote(n)
	case *doctree.Reference:
		return s.reference(n)
	}
	return "", s.fail(n, fmt.Errorf("%w: %s", ErrUnknownKind, n.Kind()))
}

func (s *session) wrapInline(tag string, n doctree.Node) (string, error) {
	content, err := s.inline(n)
	if err != nil {
		return "", err
	}
	return htmlfmt.Wrap(tag, content), nil
}

func (s *session) document(n *doctree.Document) (string, error) {
	parts, err := s.children(n)
	if err != nil {
		return "", err
	}
	body := append([]string{"<body>"}, parts...)
	if block, ok := s.notes.Block(); ok {
		body = append(body, block)
	}
	body = append(body, "</body>")

	return strings.Join([]string{
		s.r.xmlDecl(),
		doctype,
		s.r.htmlOpenTag(),
		s.r.head(n),
		strings.Join(body, "\n"),
		"</html>",
		"",
	}, "\n"), nil
}

func (s *session) headline(n *doctree.Headline) (string, error) {
	title, err := s.inline(n)
	if err != nil {
		return "", err
	}
	anchor, _ := s.labels.Anchor(n)
	tag := "h" + strconv.Itoa(n.Level)
	return htmlfmt.Wrap(tag, htmlfmt.NamedAnchor(anchor, title)) + labelComment(n.LabelName()), nil
}

func (s *session) textBlock(n *doctree.TextBlock) (string, error) {
	content, err := s.inline(n)
	if err != nil {
		return "", err
	}
	content = htmlfmt.Chomp(content)
	if tightListItem(n.Parent()) {
		return content, nil
	}
	return htmlfmt.Wrap("p", content), nil
}

// tightListItem reports whether item is a list item made of one text block,
// optionally followed by nested lists. Its text block renders without <p>.
func tightListItem(item doctree.Node) bool {
	if item == nil || !item.Kind().IsListItem() {
		return false
	}
	kids := item.Children()
	if len(kids) == 0 || kids[0].Kind() != doctree.KindTextBlock {
		return false
	}
	for _, c := range kids[1:] {
		if !c.Kind().IsList() {
			return false
		}
	}
	return true
}

func (s *session) list(tag string, n doctree.Node) (string, error) {
	items, err := s.children(n)
	if err != nil {
		return "", err
	}
	return "<" + tag + ">\n" + htmlfmt.Chomp(strings.Join(items, "\n")) + "\n</" + tag + ">", nil
}

func (s *session) descListItem(n *doctree.DescListItem) (string, error) {
	term := ""
	if n.Term != nil {
		var err error
		if term, err = s.visit(n.Term); err != nil {
			return "", err
		}
	}
	desc, err := s.children(n)
	if err != nil {
		return "", err
	}
	anchor, _ := s.labels.Anchor(n)
	dt := htmlfmt.Wrap("dt", htmlfmt.NamedAnchor(anchor, term)) + labelComment(n.LabelName())
	if len(desc) == 0 {
		return dt, nil
	}
	return dt + "\n<dd>\n" + htmlfmt.Chomp(strings.Join(desc, "\n")) + "\n</dd>", nil
}

func (s *session) methodListItem(n *doctree.MethodListItem) (string, error) {
	term, err := signature.Format(htmlfmt.EscapeText(n.Term))
	if err != nil {
		return "", s.fail(n, fmt.Errorf("method %q: %w", n.LabelName(), err))
	}
	desc, err := s.children(n)
	if err != nil {
		return "", err
	}
	anchor, _ := s.labels.Anchor(n)
	dt := htmlfmt.Wrap("dt", htmlfmt.NamedAnchor(anchor, htmlfmt.Wrap("code", term))) + labelComment(n.LabelName())
	if len(desc) == 0 {
		return dt, nil
	}
	return dt + "\n<dd>\n" + strings.Join(desc, "\n") + "</dd>", nil
}

func (s *session) footnote(n *doctree.Footnote) (string, error) {
	num, ok := s.notes.Number(n)
	if !ok {
		return "", s.fail(n, footnote.ErrUnregistered)
	}
	body, err := s.inline(n)
	if err != nil {
		return "", err
	}
	if err := s.notes.RegisterBody(num, body); err != nil {
		return "", s.fail(n, err)
	}
	return footnote.Mark(num), nil
}

func (s *session) reference(n *doctree.Reference) (string, error) {
	content, err := s.inline(n)
	if err != nil {
		return "", err
	}
	if n.IsURL() {
		return htmlfmt.Link(htmlfmt.EscapeAttr(n.URL), content), nil
	}
	if n.Label.Filename != "" {
		file := htmlfmt.EscapeAttr(labels.OutputFilename(n.Label.Filename))
		if anchor, ok := labels.ReferExternal(s.r.ext, n); ok {
			return htmlfmt.Link(file+"#"+anchor, content), nil
		}
		return htmlfmt.Link(file, content), nil
	}
	if anchor, ok := s.labels.Refer(n); ok {
		return htmlfmt.Link("#"+anchor, strings.TrimPrefix(content, "function#")), nil
	}

	label := n.LabelText()
	s.unresolved = append(s.unresolved, label)
	s.r.log.Warn("unresolved reference", "label", label, "path", doctree.Path(n))
	return `<!-- Reference, RDLabel "` + htmlfmt.EscapeLabel(htmlfmt.EscapeText(label)) + `" doesn't exist -->` +
		`<em class="label-not-found">` + content + `</em><!-- Reference end -->`, nil
}

func labelComment(label string) string {
	return htmlfmt.LabelComment(htmlfmt.EscapeText(label))
}
