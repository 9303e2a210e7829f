package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Page represents a document collected during an audit.
// Pages come either from the crawler or from local files; in both cases
// Text holds the extracted (but not yet normalized) textual content.
type Page struct {
	// URL identifies the page. For local files this is the file path.
	// It is the key used by the content corpus.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code (0 for local files).
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the MIME type of the response or file.
	ContentType string `json:"content_type,omitempty"`

	// Title is the document title, if one could be extracted.
	Title string `json:"title,omitempty"`

	// Canonical is the page's declared canonical URL, if any.
	// Pages whose canonical points elsewhere are expected duplicates.
	Canonical string `json:"canonical,omitempty"`

	// Text is the extracted textual content of the page.
	// Limited to MaxTextSize bytes.
	Text string `json:"-"`

	// Depth is the crawl depth at which the page was discovered.
	Depth int `json:"depth,omitempty"`

	// Hash is the SHA-256 hash of the raw document bytes.
	// Used to spot byte-identical responses before any text analysis.
	Hash string `json:"hash,omitempty"`
}

// MaxTextSize is the maximum size of extracted text kept per page.
const MaxTextSize = 1024 * 1024 // 1 MB

// ComputeHash calculates and sets the SHA-256 hash of the raw document.
func (p *Page) ComputeHash(raw []byte) {
	if len(raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// IsHTML returns true if the page content type indicates HTML.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

// TruncateText ensures the text doesn't exceed MaxTextSize.
// The cut is moved back to a rune boundary so the text stays valid UTF-8.
func (p *Page) TruncateText() {
	if len(p.Text) <= MaxTextSize {
		return
	}
	cut := MaxTextSize
	for cut > 0 && !isRuneStart(p.Text[cut]) {
		cut--
	}
	p.Text = p.Text[:cut]
}

// isRuneStart reports whether b can begin a UTF-8 encoded rune.
func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// PageInput is the minimal unit handed to the engine: an identifier and
// already-extracted text.
type PageInput struct {
	ID   string
	Text string
}
