// Package htmlfmt holds the string builders the renderer composes: text
// escaping, anchor names and small tag wrappers. Every function is pure.
package htmlfmt

import (
	"strconv"
	"strings"
)

var textEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;", "&", "&amp;")

// EscapeText replaces <, > and & with entity references. It must be applied
// exactly once to each literal text leaf and never to built fragments.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

var attrEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;", "&", "&amp;", `"`, "&quot;")

// EscapeAttr escapes s for use inside a double-quoted attribute value.
func EscapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// EscapeLabel makes s safe inside an HTML comment by breaking every "--".
func EscapeLabel(s string) string {
	return strings.ReplaceAll(s, "--", "&shy;&shy;")
}

// AName returns the anchor name prefix-n.
func AName(prefix string, n int) string {
	return prefix + "-" + strconv.Itoa(n)
}

// Wrap encloses content in <tag>…</tag>.
func Wrap(tag, content string) string {
	return "<" + tag + ">" + content + "</" + tag + ">"
}

// NamedAnchor returns an anchor that is both a name and an id target.
func NamedAnchor(id, content string) string {
	return `<a name="` + id + `" id="` + id + `">` + content + `</a>`
}

// Link returns <a href="href">content</a>. href is emitted as given.
func Link(href, content string) string {
	return `<a href="` + href + `">` + content + `</a>`
}

// LabelComment echoes a label as a machine-readable comment.
func LabelComment(label string) string {
	return `<!-- RDLabel: "` + EscapeLabel(label) + `" -->`
}

// Chomp removes one trailing line break.
func Chomp(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r")
}
