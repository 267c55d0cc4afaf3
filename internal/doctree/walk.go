package doctree

import (
	"fmt"
	"strings"
)

// NewDescListItem builds a description item whose term holds the given inline nodes.
func NewDescListItem(label string, term ...Node) *DescListItem {
	item := &DescListItem{Label: label}
	t := &DescTerm{}
	t.parent = item
	Append(t, term...)
	item.Term = t
	return item
}

// Text returns a StringElement holding s.
func Text(s string) *StringElement {
	return &StringElement{Text: s}
}

// Walk visits n and its descendants in document order. A DescListItem's term is
// visited before its description. When fn returns false the node's subtree is skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if d, ok := n.(*DescListItem); ok && d.Term != nil {
		Walk(d.Term, fn)
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Find returns every node under n, n included, for which match is true, in
// document order.
func Find(n Node, match func(Node) bool) []Node {
	var out []Node
	Walk(n, func(c Node) bool {
		if match(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// PlainText concatenates the literal text of n's subtree.
func PlainText(n Node) string {
	var b strings.Builder
	Walk(n, func(c Node) bool {
		switch c := c.(type) {
		case *StringElement:
			b.WriteString(c.Text)
		case *Verb:
			b.WriteString(c.Text)
		}
		return true
	})
	return b.String()
}

// Path describes where n sits in its tree, e.g. "Document/ItemList[0]/ItemListItem[2]".
func Path(n Node) string {
	var parts []string
	for n != nil {
		parent := n.Parent()
		if parent == nil {
			parts = append(parts, n.Kind().String())
			break
		}
		parts = append(parts, fmt.Sprintf("%s[%d]", n.Kind(), position(parent, n)))
		n = parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

func position(parent, n Node) int {
	if d, ok := parent.(*DescListItem); ok && d.Term == n {
		return 0
	}
	for i, c := range parent.Children() {
		if c == n {
			return i
		}
	}
	return -1
}
