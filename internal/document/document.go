// Package document wraps a parsed HTML page behind a small selector API so
// that site selectors stay opaque strings to the rest of the pipeline.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is anything that can answer a CSS selector query.
type Document interface {
	Select(selector string) []Node
}

// Node is a single matched element.
type Node struct {
	sel *goquery.Selection
}

// Text returns the combined text of the node and its descendants, trimmed.
func (n Node) Text() string {
	return strings.TrimSpace(n.sel.Text())
}

// Attr returns the attribute value and whether the node has it at all.
func (n Node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

// HTMLDocument is the goquery-backed Document.
type HTMLDocument struct {
	doc    *goquery.Document
	source []byte
}

// Parse читает тело ответа как UTF-8 (заявленная кодировка игнорируется)
func Parse(body []byte) (*HTMLDocument, error) {
	clean := []byte(strings.ToValidUTF8(string(body), "�"))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &HTMLDocument{doc: doc, source: clean}, nil
}

// ParseString is a convenience for tests and already-decoded HTML.
func ParseString(html string) (*HTMLDocument, error) {
	return Parse([]byte(html))
}

// Select returns every node matching the selector, in document order.
// An invalid selector matches nothing.
func (d *HTMLDocument) Select(selector string) []Node {
	var nodes []Node
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, Node{sel: s})
	})
	return nodes
}

// Source returns the UTF-8 HTML the document was parsed from.
func (d *HTMLDocument) Source() []byte {
	return d.source
}

// FirstText returns the text of the first match or "" when nothing matches.
func FirstText(doc Document, selector string) string {
	nodes := doc.Select(selector)
	if len(nodes) == 0 {
		return ""
	}
	return nodes[0].Text()
}
