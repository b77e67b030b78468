package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Matcher selects elements. Compiled CSS selectors satisfy it.
type Matcher = goquery.Matcher

// MustCompile compiles a CSS selector, panicking on syntax errors.
// Intended for package-level selector tables.
func MustCompile(selector string) Matcher {
	return cascadia.MustCompile(selector)
}

// Node is a single element of a parsed page.
type Node interface {
	// First returns the first descendant matching m in document order.
	First(m Matcher) (Node, bool)

	// All returns every descendant matching m in document order.
	All(m Matcher) []Node

	// Closest returns the nearest ancestor with the given tag name,
	// excluding the node itself.
	Closest(tag string) (Node, bool)

	// Text returns the node's text, each text fragment trimmed of
	// surrounding whitespace and the fragments joined without separator.
	Text() string

	// Attr returns the named attribute or fallback when it is missing or blank.
	Attr(name, fallback string) string
}

// Document is a parsed page. It belongs to a single pipeline run.
type Document interface {
	Node

	// Render serializes the whole tree back to HTML.
	Render(w io.Writer) error
}

// Parse builds a Document from UTF-8 HTML. Charset declarations in <meta>
// tags are rewritten to utf-8 so a rendered copy decodes the way it was parsed.
func Parse(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse document: %w", err)
	}
	declareUTF8(doc)
	return &document{node: node{sel: doc.Selection}, root: doc}, nil
}

var charsetParam = regexp.MustCompile(`(?i)charset\s*=\s*["']?[^;"'\s]*["']?`)

func declareUTF8(doc *goquery.Document) {
	doc.Find("meta[charset]").SetAttr("charset", "utf-8")
	doc.Find("meta[http-equiv][content]").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("http-equiv", "")), "content-type") {
			return
		}
		content := s.AttrOr("content", "")
		if charsetParam.MatchString(content) {
			s.SetAttr("content", charsetParam.ReplaceAllString(content, "charset=utf-8"))
		}
	})
}

// ParseString is Parse for an in-memory page.
func ParseString(s string) (Document, error) {
	return Parse(strings.NewReader(s))
}

// node adapts a single-element goquery selection to Node.
type node struct {
	sel *goquery.Selection
}

func (n node) First(m Matcher) (Node, bool) {
	found := n.sel.FindMatcher(m).First()
	if found.Length() == 0 {
		return nil, false
	}
	return node{sel: found}, true
}

func (n node) All(m Matcher) []Node {
	found := n.sel.FindMatcher(m)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, node{sel: s})
	})
	return nodes
}

func (n node) Closest(tag string) (Node, bool) {
	for p := n.sel.Parent(); p.Length() > 0; p = p.Parent() {
		if goquery.NodeName(p) == tag {
			return node{sel: p}, true
		}
	}
	return nil, false
}

func (n node) Text() string {
	var b strings.Builder
	for _, root := range n.sel.Nodes {
		appendText(&b, root)
	}
	return b.String()
}

func appendText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(strings.TrimSpace(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(b, c)
	}
}

func (n node) Attr(name, fallback string) string {
	v, ok := n.sel.Attr(name)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

type document struct {
	node
	root *goquery.Document
}

func (d *document) Render(w io.Writer) error {
	for _, n := range d.root.Nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("scraper: render document: %w", err)
		}
	}
	return nil
}
