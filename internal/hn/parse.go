package hn

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"hnskin/internal/types"
)

// ErrMalformed is returned when a page has neither a created date nor karma
var ErrMalformed = errors.New("profile page malformed")

// Row labels recognized on the profile page, after trimming and lower-casing
const (
	labelCreated = "created:"
	labelKarma   = "karma:"
	labelAbout   = "about:"
)

// aboutPolicy allows the formatting markup users put in their about text
var aboutPolicy = bluemonday.UGCPolicy()

// ParseProfile extracts the profile fields from a user page. It returns
// ErrMalformed when neither a created date nor a non-zero karma is present.
// The caller fills in the URLs.
func ParseProfile(r io.Reader, username string) (*types.ProfileRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	record := &types.ProfileRecord{Username: username}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			if label, value, ok := rowCells(n); ok {
				applyRow(record, label, value)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if record.JoinDate == "" && record.Karma == 0 {
		return nil, ErrMalformed
	}
	return record, nil
}

// rowCells returns the two cells of a label/value row. Rows with any other
// number of direct cells are not profile fields.
func rowCells(tr *html.Node) (label, value *html.Node, ok bool) {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			cells = append(cells, c)
		}
	}
	if len(cells) != 2 {
		return nil, nil, false
	}
	return cells[0], cells[1], true
}

func applyRow(record *types.ProfileRecord, labelCell, valueCell *html.Node) {
	switch strings.ToLower(strings.TrimSpace(textContent(labelCell))) {
	case labelCreated:
		if a := firstElement(valueCell, atom.A); a != nil {
			record.JoinDate = strings.TrimSpace(textContent(a))
		} else {
			record.JoinDate = strings.TrimSpace(textContent(valueCell))
		}
	case labelKarma:
		record.Karma = parseKarma(textContent(valueCell))
	case labelAbout:
		record.AboutMarkup = strings.TrimSpace(aboutPolicy.Sanitize(innerHTML(valueCell)))
	}
}

// parseKarma reads an optionally signed run of leading digits, the way a
// lenient integer parse does ("4321 points" is 4321). Anything else is 0.
func parseKarma(s string) int {
	s = strings.TrimSpace(s)
	sign := 1
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		// Overflow counts as unparsable
		if n > (1<<31)/10 {
			return 0
		}
		n = n*10 + int(s[i]-'0')
	}
	return sign * n
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := firstElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}
