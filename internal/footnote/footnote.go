// Package footnote numbers the footnotes of a document and renders the
// footnote block that closes the body.
//
// A Manager moves through three states. Collect leaves it Collected with every
// footnote registered and no bodies. RegisterBody, called as the renderer
// reaches each footnote, moves it to Rendering. Block moves it to Finalized.
package footnote

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/htmlfmt"
)

// State is the lifecycle position of a Manager.
type State int

const (
	Collected State = iota
	Rendering
	Finalized
)

var (
	// ErrUnregistered is matched by errors for footnotes missing from the registry.
	ErrUnregistered = errors.New("footnote not registered")
	// ErrFinalized is returned when a body arrives after the block was built.
	ErrFinalized = errors.New("footnote block already finalized")
)

// RangeError reports a footnote number outside the collected registry.
type RangeError struct {
	Number int
	Len    int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("footnote: #%d outside registry of %d: %s", e.Number, e.Len, ErrUnregistered)
}

func (e *RangeError) Unwrap() error { return ErrUnregistered }

// Manager is the footnote registry of one render.
type Manager struct {
	notes  []*doctree.Footnote
	number map[*doctree.Footnote]int
	bodies []string
	state  State
}

// Collect registers every footnote under tree in document order.
func Collect(tree doctree.Node) *Manager {
	m := &Manager{number: make(map[*doctree.Footnote]int)}
	doctree.Walk(tree, func(n doctree.Node) bool {
		if fn, ok := n.(*doctree.Footnote); ok {
			m.notes = append(m.notes, fn)
			m.number[fn] = len(m.notes)
		}
		return true
	})
	m.bodies = make([]string, len(m.notes))
	return m
}

// Len returns the number of collected footnotes.
func (m *Manager) Len() int { return len(m.notes) }

// State returns the current lifecycle state.
func (m *Manager) State() State { return m.state }

// Number returns the 1-based sequence number of fn.
func (m *Manager) Number(fn *doctree.Footnote) (int, bool) {
	n, ok := m.number[fn]
	return n, ok
}

// RegisterBody records the rendered body of footnote n.
func (m *Manager) RegisterBody(n int, body string) error {
	if m.state == Finalized {
		return ErrFinalized
	}
	if n < 1 || n > len(m.notes) {
		return &RangeError{Number: n, Len: len(m.notes)}
	}
	m.bodies[n-1] = body
	m.state = Rendering
	return nil
}

// Mark renders the inline footmark for footnote n, linking forward to its text.
func Mark(n int) string {
	return `<a name="` + htmlfmt.AName("footmark", n) + `" id="` + htmlfmt.AName("footmark", n) +
		`" href="#` + htmlfmt.AName("foottext", n) + `"><sup><small>*` + strconv.Itoa(n) + `</small></sup></a>`
}

// Text renders the block entry for footnote n, linking back to its footmark.
func Text(n int, body string) string {
	return `<a name="` + htmlfmt.AName("foottext", n) + `" id="` + htmlfmt.AName("foottext", n) +
		`" href="#` + htmlfmt.AName("footmark", n) + `"><sup><small>*` + strconv.Itoa(n) + `</small></sup></a>` +
		`<small>` + body + `</small><br />`
}

// Block finalizes the manager and renders the footnote block. ok is false when
// the document has no footnotes and the block should be omitted.
func (m *Manager) Block() (string, bool) {
	m.state = Finalized
	if len(m.notes) == 0 {
		return "", false
	}
	entries := make([]string, len(m.bodies))
	for i, body := range m.bodies {
		entries[i] = Text(i+1, body)
	}
	return "<hr />\n<p class=\"foottext\">\n" + strings.Join(entries, "\n") + "\n</p>", true
}
