package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title and links of an HTML page.
// Visible text is extracted separately by textnorm.ExtractHTML; the parser
// only needs the link graph.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains the navigation data extracted from an HTML page.
type ParseResult struct {
	// Title is the page title from <title> tag.
	Title string

	// Links contains all resolved href targets of <a> elements.
	Links []string

	// InternalLinks are links to the same host as the page.
	InternalLinks []string

	// ExternalLinks are links to other hosts.
	ExternalLinks []string

	// Canonical is the resolved <link rel="canonical"> target, if any.
	Canonical string

	// NoFollow is set when <meta name="robots"> asks crawlers not to follow links.
	NoFollow bool
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts title and links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if strings.Contains(strings.ToLower(getAttr(n, "rel")), "nofollow") {
			return
		}
		if resolved := p.resolveURL(getAttr(n, "href")); resolved != "" {
			result.Links = append(result.Links, resolved)
			p.classifyLink(resolved, result)
		}

	case "link":
		if strings.EqualFold(getAttr(n, "rel"), "canonical") {
			result.Canonical = p.resolveURL(getAttr(n, "href"))
		}

	case "meta":
		if strings.EqualFold(getAttr(n, "name"), "robots") &&
			strings.Contains(strings.ToLower(getAttr(n, "content")), "nofollow") {
			result.NoFollow = true
		}
	}
}

// resolveURL resolves a relative URL against the base URL.
// Non-navigational schemes and bare fragments resolve to "".
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// classifyLink categorizes a link as internal or external.
func (p *Parser) classifyLink(link string, result *ParseResult) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}

	if strings.EqualFold(u.Host, p.baseURL.Host) {
		result.InternalLinks = append(result.InternalLinks, link)
		return
	}
	result.ExternalLinks = append(result.ExternalLinks, link)
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
