// Package labels assigns anchors to labelled nodes and resolves references
// against them, both within a document and across documents.
package labels

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
)

// DefaultPrefix is the prefix of counter-based anchors.
const DefaultPrefix = "label-"

// ErrLabelCollision is matched by errors for labels defined twice.
var ErrLabelCollision = errors.New("label collision")

// CollisionError reports a label (or derived anchor) defined more than once.
type CollisionError struct {
	Label  string
	Anchor string
	First  string // tree path of the first definition
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("labels: %q at %s collides with %s (anchor %q)", e.Label, e.Second, e.First, e.Anchor)
}

func (e *CollisionError) Unwrap() error { return ErrLabelCollision }

// Entry pairs a label with its anchor.
type Entry struct {
	Label  string `json:"label"`
	Anchor string `json:"anchor"`
}

// Table maps the labels of one document to anchors. It is built by Prepare and
// read-only afterwards.
type Table struct {
	byNode   map[doctree.Node]string
	byLabel  map[string]string
	entries  []Entry
	nodeAt   map[string]doctree.Node
	anchorOf map[string]string
}

// Prepare walks tree in document order and gives every labelled node an anchor:
// prefix followed by a counter starting at 0, or, in legacy mode, an anchor
// derived from the label text.
func Prepare(tree doctree.Node, prefix string, legacy bool) (*Table, error) {
	t := &Table{
		byNode:   make(map[doctree.Node]string),
		byLabel:  make(map[string]string),
		nodeAt:   make(map[string]doctree.Node),
		anchorOf: make(map[string]string),
	}
	var err error
	doctree.Walk(tree, func(n doctree.Node) bool {
		if err != nil {
			return false
		}
		ln, ok := n.(doctree.Labeled)
		if !ok {
			return true
		}
		label := ln.LabelName()
		anchor := prefix + strconv.Itoa(len(t.entries))
		if legacy {
			anchor = LegacyAnchor(label)
		}
		if first, dup := t.nodeAt[label]; dup {
			err = &CollisionError{Label: label, Anchor: t.byLabel[label], First: doctree.Path(first), Second: doctree.Path(n)}
			return false
		}
		if owner, dup := t.anchorOf[anchor]; dup {
			err = &CollisionError{Label: label, Anchor: anchor, First: doctree.Path(t.nodeAt[owner]), Second: doctree.Path(n)}
			return false
		}
		t.byNode[n] = anchor
		t.byLabel[label] = anchor
		t.nodeAt[label] = n
		t.anchorOf[anchor] = label
		t.entries = append(t.entries, Entry{Label: label, Anchor: anchor})
		return true
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Anchor returns the anchor assigned to a labelled node.
func (t *Table) Anchor(n doctree.Node) (string, bool) {
	a, ok := t.byNode[n]
	return a, ok
}

// Lookup returns the anchor of label in this document.
func (t *Table) Lookup(label string) (string, bool) {
	a, ok := t.byLabel[label]
	return a, ok
}

// Refer resolves a reference to a label of this document. ok is false when the
// label does not exist; callers render a broken-reference marker.
func (t *Table) Refer(ref *doctree.Reference) (anchor string, ok bool) {
	if ref.Label == nil {
		return "", false
	}
	return t.Lookup(ref.Label.Name)
}

// ReferExternal resolves a reference into another document through ext. ok is
// false when ext is nil or does not know the label; callers then link to the
// file without a fragment.
func ReferExternal(ext External, ref *doctree.Reference) (anchor string, ok bool) {
	if ext == nil || ref.Label == nil || ref.Label.Filename == "" {
		return "", false
	}
	return ext.LookupExternal(ref.Label.Filename, ref.Label.Name)
}

// Entries returns every label with its anchor in document order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of labels.
func (t *Table) Len() int { return len(t.entries) }

// reservedPrefixes are the id namespaces of footnote and index anchors.
var reservedPrefixes = []string{"footmark-", "foottext-", "index-"}

// LegacyAnchor derives an anchor from label text. Letters, digits, "_" and "-"
// are kept; any other byte, spaces included, becomes ".XX". The "-" of a
// reserved prefix such as "footmark-" is escaped too, so a label never takes
// a footnote or index id. Distinct labels give distinct anchors.
func LegacyAnchor(label string) string {
	reserved := -1
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(label, p) {
			reserved = len(p) - 1
			break
		}
	}
	var b strings.Builder
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case i == reserved:
			fmt.Fprintf(&b, ".%02X", c)
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, ".%02X", c)
		}
	}
	return b.String()
}

var sourceSuffix = regexp.MustCompile(`\.(rd|rb)(\.\w+)?$`)

// OutputFilename maps a source document name to the name of its rendered page:
// "doc.rd", "doc.rb" and "doc.rd.ja" all become "doc.html".
func OutputFilename(filename string) string {
	return sourceSuffix.ReplaceAllString(filename, ".html")
}

// TrimSourceSuffix removes the source suffix: "doc.rd.ja" becomes "doc".
func TrimSourceSuffix(filename string) string {
	return sourceSuffix.ReplaceAllString(filename, "")
}

// IsSourceFile reports whether filename names an RD source document.
func IsSourceFile(filename string) bool {
	return sourceSuffix.MatchString(filename)
}
