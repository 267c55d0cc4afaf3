// Package indexterm anchors index terms, giving each distinct term exactly one
// anchor per document.
package indexterm

import (
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/htmlfmt"
)

// Manager is the index registry of one render.
type Manager struct {
	seen map[string]int
}

func New() *Manager {
	return &Manager{seen: make(map[string]int)}
}

// Key normalizes an Index node: the escaped concatenation of its direct text
// children. Nested markup does not contribute.
func Key(n *doctree.Index) string {
	var b strings.Builder
	for _, c := range n.Children() {
		if s, ok := c.(*doctree.StringElement); ok {
			b.WriteString(s.Text)
		}
	}
	return htmlfmt.EscapeText(b.String())
}

// Record renders an index term whose inline content is already rendered. The
// first occurrence of a key gets anchor index-N; repeats are bracketed by
// conflict comments and carry no anchor.
func (m *Manager) Record(n *doctree.Index, content string) string {
	key := Key(n)
	if _, dup := m.seen[key]; dup {
		return "<!-- Index, but conflict -->" + content + "<!-- Index end -->"
	}
	num := len(m.seen)
	m.seen[key] = num
	return htmlfmt.NamedAnchor(htmlfmt.AName("index", num), content)
}

// Len returns the number of distinct terms recorded.
func (m *Manager) Len() int { return len(m.seen) }

// Number returns the anchor number assigned to key.
func (m *Manager) Number(key string) (int, bool) {
	n, ok := m.seen[key]
	return n, ok
}
