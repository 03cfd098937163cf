package storefront

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CleanHTML strips markup from a storefront text field. Every tag boundary
// becomes a space, entities are decoded, and runs of whitespace collapse to
// one space. Accents and other non-ASCII text are kept as-is.
func CleanHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	var buf bytes.Buffer
	for _, n := range doc.Nodes {
		writeText(n, &buf)
	}
	return collapse(buf.String())
}

func writeText(node *html.Node, buf *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buf.WriteString(node.Data)
		return
	}
	buf.WriteByte(' ')
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(child, buf)
	}
	buf.WriteByte(' ')
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
