// Package render turns an RD document tree into an XHTML document.
//
// A Renderer holds configuration only. Each call to Render builds a fresh
// session owning the label table, footnote registry and index registry of that
// document, so one Renderer may serve concurrent renders.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/footnote"
	"github.com/dgallion1/rdhtml/internal/indexterm"
	"github.com/dgallion1/rdhtml/internal/labels"
)

// ErrUnknownKind is matched by errors for nodes the renderer has no rule for.
var ErrUnknownKind = errors.New("unknown node kind")

// Error is a fatal render failure at a tree location.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render: at %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Link is a relation → target pair emitted as a <link> in the head.
type Link struct {
	Rel  string
	Href string
}

// Options controls the document chrome and anchor derivation.
type Options struct {
	Charset       string // declared encoding; content is not transcoded
	Lang          string
	Title         string
	Filename      string // output name, used as a title fallback
	InputFilename string // "-" for stdin
	CSS           string
	LegacyAnchors bool
	LinkRel       []Link
	LinkRev       []Link
}

// Result is a rendered document plus the tables a caller may persist.
type Result struct {
	HTML       string
	Labels     *labels.Table
	Footnotes  int
	IndexTerms int
	Unresolved []string
}

// Renderer renders documents with fixed options.
type Renderer struct {
	opts Options
	ext  labels.External
	log  *slog.Logger
}

// New returns a Renderer. ext resolves references into other documents and may
// be nil; log may be nil.
func New(opts Options, ext labels.External, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Renderer{opts: opts, ext: ext, log: log}
}

// Options returns the renderer's options.
func (r *Renderer) Options() Options { return r.opts }

// Render renders doc. Invariant violations abort with an *Error; unresolved
// references are rendered inline and listed in Result.Unresolved.
func (r *Renderer) Render(doc *doctree.Document) (*Result, error) {
	start := time.Now()

	tab, err := labels.Prepare(doc, labels.DefaultPrefix, r.opts.LegacyAnchors)
	if err != nil {
		var ce *labels.CollisionError
		if errors.As(err, &ce) {
			return nil, &Error{Path: ce.Second, Err: err}
		}
		return nil, &Error{Path: doctree.Path(doc), Err: err}
	}

	s := &session{
		r:      r,
		labels: tab,
		notes:  footnote.Collect(doc),
		index:  indexterm.New(),
	}
	out, err := s.visit(doc)
	if err != nil {
		return nil, err
	}

	r.log.Debug("rendered document",
		"title", r.documentTitle(doc),
		"labels", tab.Len(),
		"footnotes", s.notes.Len(),
		"index_terms", s.index.Len(),
		"unresolved", len(s.unresolved),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{
		HTML:       out,
		Labels:     tab,
		Footnotes:  s.notes.Len(),
		IndexTerms: s.index.Len(),
		Unresolved: s.unresolved,
	}, nil
}

// ParseLink parses "rel:href", the form header links take on command lines
// and in query strings.
func ParseLink(s string) (Link, error) {
	rel, href, ok := strings.Cut(s, ":")
	if !ok || rel == "" || href == "" {
		return Link{}, fmt.Errorf("link %q: want rel:href", s)
	}
	return Link{Rel: rel, Href: href}, nil
}
