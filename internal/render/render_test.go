package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/footnote"
	"github.com/dgallion1/rdhtml/internal/labels"
	"github.com/dgallion1/rdhtml/internal/signature"
	"golang.org/x/net/html"
)

func text(s string) *doctree.StringElement { return doctree.Text(s) }

func node[T doctree.Node](n T, children ...doctree.Node) T {
	doctree.Append(n, children...)
	return n
}

func render(t *testing.T, opts Options, ext labels.External, doc *doctree.Document) *Result {
	t.Helper()
	res, err := New(opts, ext, nil).Render(doc)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	return res
}

// attrs collects the values of attribute key on every tag of the document.
func attrs(t *testing.T, doc, key string) []string {
	t.Helper()
	var out []string
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				t.Fatalf("tokenize: %v", z.Err())
			}
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		for _, a := range z.Token().Attr {
			if a.Key == key {
				out = append(out, a.Val)
			}
		}
	}
}

func TestRender_EndToEnd(t *testing.T) {
	doc := node(&doctree.Document{},
		node(&doctree.Headline{Level: 1, Label: "intro"}, text("Intro")),
		node(&doctree.TextBlock{}, text("Hello <world>"), node(&doctree.Footnote{}, text("note"))),
	)
	res := render(t, Options{Title: "Test"}, nil, doc)

	want := `<?xml version="1.0" ?>
<!DOCTYPE html
  PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN"
  "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">

<html xmlns="http://www.w3.org/1999/xhtml">
<head>
<title>Test</title>
</head>
<body>
<h1><a name="label-0" id="label-0">Intro</a></h1><!-- RDLabel: "intro" -->
<p>Hello &lt;world&gt;<a name="footmark-1" id="footmark-1" href="#foottext-1"><sup><small>*1</small></sup></a></p>
<hr />
<p class="foottext">
<a name="foottext-1" id="foottext-1" href="#footmark-1"><sup><small>*1</small></sup></a><small>note</small><br />
</p>
</body>
</html>
`
	if res.HTML != want {
		t.Errorf("unexpected document.\nexpected:\n%s\ngot:\n%s", want, res.HTML)
	}
	if strings.Count(res.HTML, "<h1>") != 1 {
		t.Errorf("expected exactly one <h1>")
	}
	if res.Footnotes != 1 {
		t.Errorf("expected 1 footnote, got %d", res.Footnotes)
	}
}

func TestRender_Chrome(t *testing.T) {
	doc := node(&doctree.Document{}, node(&doctree.TextBlock{}, text("x")))
	res := render(t, Options{
		Charset: "UTF-8",
		Lang:    "ja",
		CSS:     "style.css",
		LinkRel: []Link{{Rel: "next", Href: "b.html"}, {Rel: "index", Href: "index.html"}},
		LinkRev: []Link{{Rel: "made", Href: "mailto:a@example.com"}},
	}, nil, doc)

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8" ?>`,
		`<html xmlns="http://www.w3.org/1999/xhtml" lang="ja" xml:lang="ja">`,
		`<meta http-equiv="Content-type" content="text/html; charset=UTF-8" />`,
		`<title>Untitled</title>`,
		`<link href="style.css" type="text/css" rel="stylesheet" />`,
		"<link href=\"index.html\" rel=\"index\" />\n<link href=\"b.html\" rel=\"next\" />",
		`<link href="mailto:a@example.com" rev="made" />`,
	} {
		if !strings.Contains(res.HTML, want) {
			t.Errorf("expected document to contain %q", want)
		}
	}
	if strings.Contains(res.HTML, "foottext") {
		t.Error("expected no footnote block without footnotes")
	}
	if !strings.HasSuffix(res.HTML, "</html>\n") {
		t.Error("expected trailing newline after </html>")
	}
}

func TestRender_TitleFallbacks(t *testing.T) {
	tests := []struct {
		opts Options
		want string
	}{
		{Options{Title: "T", Filename: "f.html"}, "T"},
		{Options{Filename: "f.html", InputFilename: "f.rd"}, "f.html"},
		{Options{InputFilename: "f.rd"}, "f.rd"},
		{Options{InputFilename: "-"}, "Untitled"},
		{Options{Title: "a<b"}, "a&lt;b"},
	}
	for _, tt := range tests {
		res := render(t, tt.opts, nil, &doctree.Document{})
		if !strings.Contains(res.HTML, "<title>"+tt.want+"</title>") {
			t.Errorf("options %+v: expected title %q", tt.opts, tt.want)
		}
	}

	res := render(t, Options{Filename: "f.html"}, nil, &doctree.Document{Title: "From Source"})
	if !strings.Contains(res.HTML, "<title>From Source</title>") {
		t.Error("expected the document title to win over the filename")
	}
	res = render(t, Options{Title: "Override"}, nil, &doctree.Document{Title: "From Source"})
	if !strings.Contains(res.HTML, "<title>Override</title>") {
		t.Error("expected the title option to win over the document title")
	}
}

func TestRender_TightListItems(t *testing.T) {
	standalone := node(&doctree.TextBlock{}, text("alone"))
	sole := node(&doctree.ItemListItem{}, node(&doctree.TextBlock{}, text("sole")))
	withSublist := node(&doctree.EnumListItem{},
		node(&doctree.TextBlock{}, text("lead")),
		node(&doctree.ItemList{}, node(&doctree.ItemListItem{}, node(&doctree.TextBlock{}, text("nested")))),
	)
	loose := node(&doctree.ItemListItem{},
		node(&doctree.TextBlock{}, text("one")),
		node(&doctree.TextBlock{}, text("two")),
	)
	doc := node(&doctree.Document{},
		standalone,
		node(&doctree.ItemList{}, sole, loose),
		node(&doctree.EnumList{}, withSublist),
	)
	out := render(t, Options{}, nil, doc).HTML

	for _, want := range []string{
		"<p>alone</p>",
		"<li>sole</li>",
		"<li>lead\n<ul>\n<li>nested</li>\n</ul></li>",
		"<li><p>one</p>\n<p>two</p></li>",
		"<ol>\n<li>lead",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestRender_InlineAndVerbatim(t *testing.T) {
	doc := node(&doctree.Document{},
		node(&doctree.TextBlock{},
			node(&doctree.Emphasis{}, text("e")),
			node(&doctree.Code{}, text("c<")),
			node(&doctree.Var{}, text("v")),
			node(&doctree.Keyboard{}, text("k")),
			&doctree.Verb{Text: "((*not em*))&"},
		),
		&doctree.Verbatim{Lines: []string{"if a < b", "  puts a", ""}},
	)
	out := render(t, Options{}, nil, doc).HTML
	for _, want := range []string{
		"<p><em>e</em><code>c&lt;</code><var>v</var><kbd>k</kbd>((*not em*))&amp;</p>",
		"<pre>if a &lt; b\n  puts a</pre>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestRender_Lists(t *testing.T) {
	desc := doctree.NewDescListItem("", text("term"))
	doctree.Append(desc, node(&doctree.TextBlock{}, text("body")))
	bare := doctree.NewDescListItem("bare")
	doctree.Append(bare.Term, text("bare term"))

	method := node(&doctree.MethodListItem{Term: "Hash#[]=(key, value)"}, node(&doctree.TextBlock{}, text("stores")))
	lone := &doctree.MethodListItem{Term: "String#[](i)"}

	doc := node(&doctree.Document{},
		node(&doctree.DescList{}, desc, bare),
		node(&doctree.MethodList{}, method, lone),
	)
	out := render(t, Options{}, nil, doc).HTML

	for _, want := range []string{
		"<dl>\n<dt><a name=\"label-0\" id=\"label-0\">term</a></dt><!-- RDLabel: \"term\" -->\n<dd>\nbody\n</dd>",
		"<dt><a name=\"label-1\" id=\"label-1\">bare term</a></dt><!-- RDLabel: \"bare\" -->\n</dl>",
		"<dt><a name=\"label-2\" id=\"label-2\"><code>Hash#[<var>key</var>] = <var>value</var></code></a></dt><!-- RDLabel: \"Hash#[]=\" -->\n<dd>\nstores</dd>",
		"<dt><a name=\"label-3\" id=\"label-3\"><code>String#[<var>i</var>]</code></a></dt><!-- RDLabel: \"String#[]\" -->",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestRender_References(t *testing.T) {
	ext := labels.Map{"other.rd": {"setup": "label-7"}}
	doc := node(&doctree.Document{},
		node(&doctree.Headline{Level: 2, Label: "target"}, text("Target")),
		node(&doctree.TextBlock{},
			node(&doctree.Reference{Label: &doctree.RefLabel{Name: "target"}}, text("here")),
			node(&doctree.Reference{Label: &doctree.RefLabel{Name: "target"}}, text("function#open")),
			node(&doctree.Reference{Label: &doctree.RefLabel{Name: "gone"}}, text("function#close")),
			node(&doctree.Reference{Label: &doctree.RefLabel{Name: "setup", Filename: "other.rd"}}, text("there")),
			node(&doctree.Reference{Label: &doctree.RefLabel{Name: "nowhere", Filename: "lost.rd"}}, text("lost")),
			node(&doctree.Reference{URL: "http://example.com/?a=1&b=2"}, text("web")),
			node(&doctree.Reference{Label: &doctree.RefLabel{Name: "no<such>"}}, text("no<such>")),
		),
	)
	res := render(t, Options{}, ext, doc)
	for _, want := range []string{
		`<a href="#label-0">here</a>`,
		`<a href="#label-0">open</a>`,
		`<em class="label-not-found">function#close</em>`,
		`<a href="other.html#label-7">there</a>`,
		`<a href="lost.html">lost</a>`,
		`<a href="http://example.com/?a=1&amp;b=2">web</a>`,
		`<!-- Reference, RDLabel "no&lt;such&gt;" doesn't exist --><em class="label-not-found">no&lt;such&gt;</em><!-- Reference end -->`,
	} {
		if !strings.Contains(res.HTML, want) {
			t.Errorf("expected output to contain %q\n%s", want, res.HTML)
		}
	}
	if len(res.Unresolved) != 2 || res.Unresolved[1] != "no<such>" {
		t.Errorf("expected one unresolved label, got %v", res.Unresolved)
	}
}

func TestRender_FootnotesBidirectional(t *testing.T) {
	doc := &doctree.Document{}
	const n = 4
	for i := 1; i <= n; i++ {
		doctree.Append(doc, node(&doctree.TextBlock{},
			text(fmt.Sprintf("para %d", i)),
			node(&doctree.Footnote{}, text(fmt.Sprintf("note %d", i))),
		))
	}
	out := render(t, Options{}, nil, doc).HTML

	ids := map[string]bool{}
	for _, id := range attrs(t, out, "id") {
		if ids[id] {
			t.Errorf("duplicate id %q", id)
		}
		ids[id] = true
	}
	hrefs := attrs(t, out, "href")
	marks, texts := 0, 0
	for _, h := range hrefs {
		target := strings.TrimPrefix(h, "#")
		if !ids[target] {
			t.Errorf("href %q has no matching id", h)
		}
		switch {
		case strings.HasPrefix(target, "foottext-"):
			marks++
		case strings.HasPrefix(target, "footmark-"):
			texts++
		}
	}
	if marks != n || texts != n {
		t.Errorf("expected %d links each way, got %d marks and %d texts", n, marks, texts)
	}
	for i := 1; i < n; i++ {
		if strings.Index(out, fmt.Sprintf("<small>note %d</small>", i)) > strings.Index(out, fmt.Sprintf("<small>note %d</small>", i+1)) {
			t.Errorf("footnote %d rendered after footnote %d", i, i+1)
		}
	}
}

func TestRender_IndexTermsDeduplicated(t *testing.T) {
	doc := node(&doctree.Document{},
		node(&doctree.TextBlock{}, node(&doctree.Index{}, text("tree"))),
		node(&doctree.TextBlock{}, node(&doctree.Index{}, text("tree"))),
		node(&doctree.TextBlock{}, node(&doctree.Index{}, text("leaf"))),
	)
	res := render(t, Options{}, nil, doc)
	if got := strings.Count(res.HTML, `id="index-0"`); got != 1 {
		t.Errorf("expected one index-0 anchor, got %d", got)
	}
	if !strings.Contains(res.HTML, "<!-- Index, but conflict -->tree<!-- Index end -->") {
		t.Error("expected a conflict marker for the repeated term")
	}
	if !strings.Contains(res.HTML, `id="index-1">leaf`) {
		t.Error("expected the next distinct term to take index-1")
	}
	if res.IndexTerms != 2 {
		t.Errorf("expected 2 index terms, got %d", res.IndexTerms)
	}
}

func TestRender_LabelCollisionIsFatal(t *testing.T) {
	doc := node(&doctree.Document{},
		node(&doctree.Headline{Level: 1, Label: "same"}, text("A")),
		node(&doctree.Headline{Level: 2, Label: "same"}, text("B")),
	)
	_, err := New(Options{}, nil, nil).Render(doc)
	if !errors.Is(err, labels.ErrLabelCollision) {
		t.Fatalf("expected ErrLabelCollision, got %v", err)
	}
	var re *Error
	if !errors.As(err, &re) || re.Path != "Document/Headline[1]" {
		t.Errorf("expected error located at the second headline, got %v", err)
	}
}

func TestRender_IndexAssignArityIsFatal(t *testing.T) {
	doc := node(&doctree.Document{},
		node(&doctree.MethodList{}, &doctree.MethodListItem{Term: "Grid#[]=(a, b, c, d)"}),
	)
	_, err := New(Options{}, nil, nil).Render(doc)
	if !errors.Is(err, signature.ErrIndexArity) {
		t.Fatalf("expected ErrIndexArity, got %v", err)
	}
	if !strings.Contains(err.Error(), "Grid#[]=") {
		t.Errorf("expected error to name the method, got %v", err)
	}
}

func TestRender_UnregisteredFootnoteIsFatal(t *testing.T) {
	doc := node(&doctree.Document{}, node(&doctree.TextBlock{}, text("x")))
	s := &session{r: New(Options{}, nil, nil), notes: footnote.Collect(doc)}
	stray := node(&doctree.Footnote{}, text("late"))
	doctree.Append(doc.Children()[0], stray)

	_, err := s.visit(stray)
	if !errors.Is(err, footnote.ErrUnregistered) {
		t.Fatalf("expected ErrUnregistered, got %v", err)
	}
}

func TestRender_LegacyAnchors(t *testing.T) {
	doc := node(&doctree.Document{},
		node(&doctree.Headline{Level: 1, Label: "Getting Started"}, text("Getting Started")),
		node(&doctree.TextBlock{}, node(&doctree.Reference{Label: &doctree.RefLabel{Name: "Getting Started"}}, text("go"))),
	)
	out := render(t, Options{LegacyAnchors: true}, nil, doc).HTML
	if !strings.Contains(out, `id="Getting.20Started"`) || !strings.Contains(out, `href="#Getting.20Started"`) {
		t.Errorf("expected legacy anchors derived from the label\n%s", out)
	}
}

func TestRender_LegacyAnchorsAvoidFootnoteAndIndexIDs(t *testing.T) {
	doc := node(&doctree.Document{},
		node(&doctree.Headline{Level: 1, Label: "footmark-1"}, text("Notes")),
		node(&doctree.Headline{Level: 1, Label: "index-0"}, text("Index")),
		node(&doctree.TextBlock{},
			text("claim"),
			node(&doctree.Footnote{}, text("note")),
			node(&doctree.Index{}, text("term")),
			node(&doctree.Reference{Label: &doctree.RefLabel{Name: "footmark-1"}}, text("back")),
		),
	)
	out := render(t, Options{LegacyAnchors: true}, nil, doc).HTML
	seen := map[string]int{}
	for _, id := range attrs(t, out, "id") {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("expected id %q once, got %d", id, n)
		}
	}
	for _, id := range []string{"footmark-1", "foottext-1", "index-0", "footmark.2D1", "index.2D0"} {
		if seen[id] != 1 {
			t.Errorf("expected id %q in the output\n%s", id, out)
		}
	}
	if !strings.Contains(out, `<a href="#footmark.2D1">back</a>`) {
		t.Errorf("expected the reference to use the escaped anchor\n%s", out)
	}
}

func TestParseLink(t *testing.T) {
	l, err := ParseLink("made:mailto:a@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != (Link{Rel: "made", Href: "mailto:a@example.com"}) {
		t.Errorf("unexpected link %+v", l)
	}
	for _, bad := range []string{"next", ":x.html", "next:"} {
		if _, err := ParseLink(bad); err == nil {
			t.Errorf("ParseLink(%q): expected an error", bad)
		}
	}
}
