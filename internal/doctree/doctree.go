// Package doctree defines the RD document tree consumed by the renderer.
//
// Every node carries its ordered children and a non-owning back-reference to its
// parent. Node kinds form a closed set: the Node interface has an unexported
// method, so only the types in this package satisfy it.
package doctree

import (
	"strconv"
	"strings"
)

// Kind identifies the concrete type of a node.
type Kind int

const (
	KindDocument Kind = iota
	KindHeadline
	KindTextBlock
	KindVerbatim
	KindItemList
	KindEnumList
	KindDescList
	KindMethodList
	KindItemListItem
	KindEnumListItem
	KindDescListItem
	KindDescTerm
	KindMethodListItem
	KindString
	KindEmphasis
	KindCode
	KindVar
	KindKeyboard
	KindVerb
	KindIndex
	KindFootnote
	KindReference
)

var kindNames = [...]string{
	KindDocument:       "Document",
	KindHeadline:       "Headline",
	KindTextBlock:      "TextBlock",
	KindVerbatim:       "Verbatim",
	KindItemList:       "ItemList",
	KindEnumList:       "EnumList",
	KindDescList:       "DescList",
	KindMethodList:     "MethodList",
	KindItemListItem:   "ItemListItem",
	KindEnumListItem:   "EnumListItem",
	KindDescListItem:   "DescListItem",
	KindDescTerm:       "DescTerm",
	KindMethodListItem: "MethodListItem",
	KindString:         "StringElement",
	KindEmphasis:       "Emphasis",
	KindCode:           "Code",
	KindVar:            "Var",
	KindKeyboard:       "Keyboard",
	KindVerb:           "Verb",
	KindIndex:          "Index",
	KindFootnote:       "Footnote",
	KindReference:      "Reference",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsList reports whether k is one of the four list kinds.
func (k Kind) IsList() bool {
	switch k {
	case KindItemList, KindEnumList, KindDescList, KindMethodList:
		return true
	}
	return false
}

// IsListItem reports whether k is one of the four list item kinds.
func (k Kind) IsListItem() bool {
	switch k {
	case KindItemListItem, KindEnumListItem, KindDescListItem, KindMethodListItem:
		return true
	}
	return false
}

// Node is an element of the document tree.
type Node interface {
	Kind() Kind
	Parent() Node
	Children() []Node
	base() *BaseNode
}

// BaseNode holds the parent/children links shared by every node.
type BaseNode struct {
	parent   Node
	children []Node
}

func (b *BaseNode) Parent() Node     { return b.parent }
func (b *BaseNode) Children() []Node { return b.children }
func (b *BaseNode) base() *BaseNode  { return b }

// Append adds children to parent in order and points their parent links at it.
func Append(parent Node, children ...Node) {
	pb := parent.base()
	for _, c := range children {
		if c == nil {
			continue
		}
		c.base().parent = parent
		pb.children = append(pb.children, c)
	}
}

// Labeled is implemented by nodes that can be the target of a reference.
type Labeled interface {
	Node
	LabelName() string
}

// Document is the root of a tree. Title is set by front-ends that know one.
type Document struct {
	BaseNode
	Title string
}

func (*Document) Kind() Kind { return KindDocument }

// Headline is a section heading of level 1..4.
type Headline struct {
	BaseNode
	Level int
	Label string
}

func (*Headline) Kind() Kind { return KindHeadline }

// LabelName returns the explicit label, or the heading text when none was set.
func (h *Headline) LabelName() string {
	if h.Label != "" {
		return h.Label
	}
	return PlainText(h)
}

type TextBlock struct{ BaseNode }

func (*TextBlock) Kind() Kind { return KindTextBlock }

// Verbatim is preformatted text. Lines carry no trailing newline.
type Verbatim struct {
	BaseNode
	Lines []string
}

func (*Verbatim) Kind() Kind { return KindVerbatim }

type ItemList struct{ BaseNode }

func (*ItemList) Kind() Kind { return KindItemList }

type EnumList struct{ BaseNode }

func (*EnumList) Kind() Kind { return KindEnumList }

type DescList struct{ BaseNode }

func (*DescList) Kind() Kind { return KindDescList }

type MethodList struct{ BaseNode }

func (*MethodList) Kind() Kind { return KindMethodList }

type ItemListItem struct{ BaseNode }

func (*ItemListItem) Kind() Kind { return KindItemListItem }

type EnumListItem struct{ BaseNode }

func (*EnumListItem) Kind() Kind { return KindEnumListItem }

// DescListItem is a term with an optional description. Children hold the
// description blocks; the term's inline content lives in Term.
type DescListItem struct {
	BaseNode
	Term  *DescTerm
	Label string
}

func (*DescListItem) Kind() Kind { return KindDescListItem }

func (d *DescListItem) LabelName() string {
	if d.Label != "" {
		return d.Label
	}
	if d.Term == nil {
		return ""
	}
	return PlainText(d.Term)
}

// DescTerm is the inline container for a DescListItem term.
type DescTerm struct{ BaseNode }

func (*DescTerm) Kind() Kind { return KindDescTerm }

// MethodListItem describes a method. Term is the raw signature text, for
// example "Hash#[]=(key, value)". Children hold the description blocks.
type MethodListItem struct {
	BaseNode
	Term  string
	Label string
}

func (*MethodListItem) Kind() Kind { return KindMethodListItem }

// LabelName returns the explicit label or the signature up to its arguments.
func (m *MethodListItem) LabelName() string {
	if m.Label != "" {
		return m.Label
	}
	term := strings.TrimSpace(m.Term)
	if i := strings.IndexAny(term, "({ \t"); i >= 0 {
		return term[:i]
	}
	return term
}

// StringElement is a run of literal text.
type StringElement struct {
	BaseNode
	Text string
}

func (*StringElement) Kind() Kind { return KindString }

type Emphasis struct{ BaseNode }

func (*Emphasis) Kind() Kind { return KindEmphasis }

type Code struct{ BaseNode }

func (*Code) Kind() Kind { return KindCode }

type Var struct{ BaseNode }

func (*Var) Kind() Kind { return KindVar }

type Keyboard struct{ BaseNode }

func (*Keyboard) Kind() Kind { return KindKeyboard }

// Verb is literal text that is never interpreted as markup.
type Verb struct {
	BaseNode
	Text string
}

func (*Verb) Kind() Kind { return KindVerb }

// Index marks its content as an index term.
type Index struct{ BaseNode }

func (*Index) Kind() Kind { return KindIndex }

// Footnote holds the footnote body as inline children.
type Footnote struct{ BaseNode }

func (*Footnote) Kind() Kind { return KindFootnote }

// RefLabel names a label target. A non-empty Filename points into another document.
type RefLabel struct {
	Name     string
	Filename string
}

// Reference links its content to a label or to a URL. Exactly one of Label and
// URL is set.
type Reference struct {
	BaseNode
	Label *RefLabel
	URL   string
}

func (*Reference) Kind() Kind { return KindReference }

// IsURL reports whether r points at a literal URL.
func (r *Reference) IsURL() bool { return r.Label == nil }

// LabelText is the label as written by the author, used in diagnostics.
func (r *Reference) LabelText() string {
	if r.Label == nil {
		return r.URL
	}
	if r.Label.Filename != "" {
		return r.Label.Filename + "/" + r.Label.Name
	}
	return r.Label.Name
}
