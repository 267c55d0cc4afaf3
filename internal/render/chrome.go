package render

import (
	"slices"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/htmlfmt"
)

const doctype = `<!DOCTYPE html
  PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN"
  "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
`

func (r *Renderer) documentTitle(doc *doctree.Document) string {
	switch {
	case r.opts.Title != "":
		return r.opts.Title
	case doc != nil && doc.Title != "":
		return doc.Title
	case r.opts.Filename != "":
		return r.opts.Filename
	case r.opts.InputFilename != "" && r.opts.InputFilename != "-":
		return r.opts.InputFilename
	}
	return "Untitled"
}

func (r *Renderer) xmlDecl() string {
	buf := []string{"xml", `version="1.0"`}
	if r.opts.Charset != "" {
		buf = append(buf, `encoding="`+htmlfmt.EscapeAttr(r.opts.Charset)+`"`)
	}
	return "<?" + strings.Join(buf, " ") + " ?>"
}

func (r *Renderer) htmlOpenTag() string {
	buf := []string{"html", `xmlns="http://www.w3.org/1999/xhtml"`}
	if r.opts.Lang != "" {
		lang := htmlfmt.EscapeAttr(r.opts.Lang)
		buf = append(buf, `lang="`+lang+`"`, `xml:lang="`+lang+`"`)
	}
	return "<" + strings.Join(buf, " ") + ">"
}

func (r *Renderer) head(doc *doctree.Document) string {
	lines := []string{"<head>"}
	if r.opts.Charset != "" {
		lines = append(lines, `<meta http-equiv="Content-type" content="text/html; charset=`+htmlfmt.EscapeAttr(r.opts.Charset)+`" />`)
	}
	lines = append(lines, htmlfmt.Wrap("title", htmlfmt.EscapeText(r.documentTitle(doc))))
	if r.opts.CSS != "" {
		lines = append(lines, `<link href="`+htmlfmt.EscapeAttr(r.opts.CSS)+`" type="text/css" rel="stylesheet" />`)
	}
	if l := headerLinks(r.opts.LinkRel, "rel"); l != "" {
		lines = append(lines, l)
	}
	if l := headerLinks(r.opts.LinkRev, "rev"); l != "" {
		lines = append(lines, l)
	}
	lines = append(lines, "</head>")
	return strings.Join(lines, "\n")
}

// headerLinks renders links sorted by relation name; ties keep their order.
func headerLinks(links []Link, attr string) string {
	if len(links) == 0 {
		return ""
	}
	sorted := slices.Clone(links)
	slices.SortStableFunc(sorted, func(a, b Link) int { return strings.Compare(a.Rel, b.Rel) })
	out := make([]string, len(sorted))
	for i, l := range sorted {
		out[i] = `<link href="` + htmlfmt.EscapeAttr(l.Href) + `" ` + attr + `="` + htmlfmt.EscapeAttr(l.Rel) + `" />`
	}
	return strings.Join(out, "\n")
}
