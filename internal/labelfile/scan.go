package labelfile

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/rdhtml/internal/labels"
	"golang.org/x/net/html"
)

var labelComment = regexp.MustCompile(`^\s*RDLabel: "(.*)"\s*$`)

// ScanHTML recovers the label table of an already rendered document from its
// RDLabel comments. Each comment is paired with the first anchor id inside the
// heading or definition term that precedes it.
func ScanHTML(r io.Reader) ([]labels.Entry, error) {
	var (
		entries []labels.Entry
		pending bool
		id      string
	)
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("scan rendered html: %w", err)
			}
			return entries, nil
		case html.StartTagToken:
			tok := z.Token()
			switch tok.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6", "dt":
				pending, id = true, ""
			case "a":
				if pending && id == "" {
					id = attr(tok, "id")
				}
			}
		case html.CommentToken:
			m := labelComment.FindStringSubmatch(z.Token().Data)
			if m == nil || !pending {
				continue
			}
			if id != "" {
				entries = append(entries, labels.Entry{Label: unescapeLabel(m[1]), Anchor: id})
			}
			pending, id = false, ""
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func unescapeLabel(s string) string {
	return html.UnescapeString(strings.ReplaceAll(s, "&shy;&shy;", "--"))
}
