package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms end a line when rendered, like <br>.
var blockAtoms = map[atom.Atom]struct{}{
	atom.Br:  {},
	atom.P:   {},
	atom.Div: {},
	atom.Li:  {},
	atom.Tr:  {},
}

// selectionText renders sel as normalized text: <br> and block elements
// break lines, each line is trimmed with inner whitespace collapsed, empty
// lines are dropped and the rest joined with "; ".
func selectionText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
		b.WriteByte('\n')
	}
	return Normalize(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	_, block := blockAtoms[n.DataAtom]
	if block && n.Type == html.ElementNode {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block && n.Type == html.ElementNode {
		b.WriteByte('\n')
	}
}

// Normalize trims every line of s, collapses runs of whitespace inside a
// line to one space, drops empty lines and joins the rest with "; ".
func Normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "; ")
}
