package textnorm

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is the visible content of an HTML page.
type Document struct {
	// Title is the trimmed <title> text.
	Title string

	// Text is the visible text of the primary content region.
	// Block-level elements are separated by newlines.
	Text string
}

// boilerplateSelector lists elements that never carry primary content.
const boilerplateSelector = "script, style, noscript, template, svg, nav, footer, header, aside, form, iframe"

// contentRoots are tried in order; the first match wins.
var contentRoots = []string{"article", "main", "[role=main]", "body"}

// blockElements end a line of text.
var blockElements = map[string]bool{
	"address": true, "blockquote": true, "br": true, "dd": true, "div": true,
	"dl": true, "dt": true, "figcaption": true, "figure": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "hr": true,
	"li": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// ExtractHTML parses an HTML document and returns its title and the visible
// text of its primary content region.
func ExtractHTML(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(boilerplateSelector).Remove()

	var root *goquery.Selection
	for _, sel := range contentRoots {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			root = s
			break
		}
	}
	if root == nil {
		return Document{Title: title}, nil
	}

	var sb strings.Builder
	for _, n := range root.Nodes {
		writeText(&sb, n)
	}

	return Document{
		Title: title,
		Text:  tidyLines(sb.String()),
	}, nil
}

// writeText appends the text nodes below n, breaking lines at block elements.
func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte('\n')
	}
}

// tidyLines collapses whitespace inside lines and drops blank lines.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
