package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/render"
	"github.com/google/go-cmp/cmp"
)

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.txt", "a.md", "A.MARKDOWN", "a.csv", "a.html", "a.htm", "a.pdf", "a.docx"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("ForFile(%q): unexpected error: %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("expected %q to be supported", name)
		}
	}
	if _, err := ForFile("a.exe"); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
	if IsSupportedExtension("a.exe") {
		t.Error("expected .exe to be unsupported")
	}
}

func TestCSVParser(t *testing.T) {
	input := "name,kind,size\nalpha,dir,4\nbeta,file\nalpha,file,9\n"
	doc, err := (&CSVParser{}).Parse(strings.NewReader(input), "t.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := ofKind(doc, doctree.KindDescListItem)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	var labels, bodies []string
	for _, n := range items {
		d := n.(*doctree.DescListItem)
		labels = append(labels, d.LabelName())
		bodies = append(bodies, doctree.PlainText(d))
	}
	if diff := cmp.Diff([]string{"alpha", "beta", "alpha (2)"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	// PlainText walks the term first.
	want := []string{"alphakind: dir, size: 4", "betakind: file", "alphakind: file, size: 9"}
	if diff := cmp.Diff(want, bodies); diff != "" {
		t.Errorf("bodies mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	doc, err := (&CSVParser{}).Parse(strings.NewReader("a,b\n"), "t.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Children()) != 0 {
		t.Errorf("expected no children, got %d", len(doc.Children()))
	}
}

func TestHTMLParser(t *testing.T) {
	input := `<html><head><title>Manual</title><style>p{}</style></head><body>
<nav><p>skip me</p></nav>
<h1>Intro</h1><p>Hello <b>there</b>.</p>
<pre>
a &lt; b
  c
</pre>
<h6>Small</h6><ul><li>one</li></ul>
</body></html>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "m.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Manual" {
		t.Errorf("expected title %q, got %q", "Manual", doc.Title)
	}
	want := []doctree.Kind{
		doctree.KindHeadline, doctree.KindTextBlock, doctree.KindVerbatim,
		doctree.KindHeadline, doctree.KindTextBlock,
	}
	if diff := cmp.Diff(want, kinds(doc.Children())); diff != "" {
		t.Fatalf("block kinds mismatch (-want +got):\n%s", diff)
	}
	if got := doctree.PlainText(doc.Children()[1]); got != "Hello there." {
		t.Errorf("expected %q, got %q", "Hello there.", got)
	}
	if diff := cmp.Diff([]string{"a < b", "  c"}, doc.Children()[2].(*doctree.Verbatim).Lines); diff != "" {
		t.Errorf("verbatim mismatch (-want +got):\n%s", diff)
	}
	if h := doc.Children()[3].(*doctree.Headline); h.Level != MaxHeadlineLevel {
		t.Errorf("expected h6 to clamp to %d, got %d", MaxHeadlineLevel, h.Level)
	}
}

func TestPagesDocument(t *testing.T) {
	doc := pagesDocument([]string{"First para.\n\nSecond para.", "  ", "Third page."})
	var heads []string
	for _, n := range ofKind(doc, doctree.KindHeadline) {
		heads = append(heads, doctree.PlainText(n))
	}
	if diff := cmp.Diff([]string{"Page 1", "Page 3"}, heads); diff != "" {
		t.Errorf("headlines mismatch (-want +got):\n%s", diff)
	}
	if n := len(ofKind(doc, doctree.KindTextBlock)); n != 3 {
		t.Errorf("expected 3 text blocks, got %d", n)
	}
}

func TestDocxHeadingLevel(t *testing.T) {
	for style, want := range map[string]int{"Heading1": 1, "heading 3": 3, "Title": 0, "Heading9": 0} {
		if got := headingStyleLevel(style); got != want {
			t.Errorf("style %q: expected %d, got %d", style, want, got)
		}
	}
}

func TestMarkdownRendersEndToEnd(t *testing.T) {
	doc := parseMarkdown(t, "# Intro\n\nSee [below](#Usage)[^1].\n\n# Usage\n\nRun it.\n\n[^1]: Really.\n")
	res, err := render.New(render.Options{}, nil, nil).Render(doc)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	for _, want := range []string{
		`<h1><a name="label-0" id="label-0">Intro</a></h1><!-- RDLabel: "Intro" -->`,
		`<a href="#label-1">below</a>`,
		`<small>Really.</small>`,
	} {
		if !strings.Contains(res.HTML, want) {
			t.Errorf("expected output to contain %q\n%s", want, res.HTML)
		}
	}
	if len(res.Unresolved) != 0 {
		t.Errorf("expected no unresolved references, got %v", res.Unresolved)
	}
}
