package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/dupescan/internal/model"
	"github.com/nao1215/dupescan/internal/textnorm"
)

// Spider crawls the pages of one site.
// It visits URLs breadth-first, stays on the start host, and respects depth,
// page and rate limits.
type Spider struct {
	// client is the HTTP client; proxying, cookies and headers are its concern.
	client *http.Client

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the total number of pages collected.
	maxPages int

	// limiter spaces requests to the site.
	limiter *rate.Limiter

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// ignorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only URLs matching these patterns are crawled.
	// Empty means all URLs are allowed (subject to ignorePatterns).
	followPatterns []string

	logger *slog.Logger

	// visited tracks URLs already visited to avoid duplicates.
	visited map[string]bool

	// mutex protects visited and pageCount.
	mutex sync.Mutex

	// pageCount tracks pages collected.
	pageCount int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to collect.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the minimum interval between requests.
// Zero disables rate limiting.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
// The start URL is always fetched.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithSpiderLogger sets the logger.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a new Spider with the given HTTP client.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		maxDepth:    3,
		maxPages:    200,
		limiter:     rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		maxBodySize: 5 * 1024 * 1024, // 5MB
		logger:      slog.Default(),
		visited:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// queueItem represents an item in the crawl queue.
type queueItem struct {
	url   string
	depth int
}

// Crawl starts crawling from the given URL and returns the pages whose text
// could be extracted, in visit order.
// On cancellation it returns the pages collected so far with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, startURL string) ([]*model.Page, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if start.Scheme == "" {
		start, err = url.Parse("https://" + startURL)
		if err != nil {
			return nil, fmt.Errorf("invalid start URL: %w", err)
		}
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, start.Scheme)
	}
	if start.Host == "" {
		return nil, fmt.Errorf("invalid start URL: missing host in %q", startURL)
	}

	pages := make([]*model.Page, 0)
	queue := []queueItem{{url: normalizeURL(start.String()), depth: 0}}

	for len(queue) > 0 && s.count() < s.maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		item := queue[0]
		queue = queue[1:]

		if !s.markVisited(item.url) {
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			return pages, err
		}

		page, links, err := s.fetchPage(ctx, item.url)
		if err != nil {
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			s.logger.Debug("skipping page", "url", item.url, "error", err)
			continue
		}
		page.Depth = item.depth
		if strings.TrimSpace(page.Text) != "" {
			pages = append(pages, page)
			s.increment()
		}

		if item.depth >= s.maxDepth {
			continue
		}
		for _, link := range links {
			link = normalizeURL(link)
			if !s.isVisited(link) && isSameHost(start.Host, link) && s.shouldCrawl(link) {
				queue = append(queue, queueItem{url: link, depth: item.depth + 1})
			}
		}
	}

	return pages, nil
}

// fetchPage fetches a single page and extracts its text and links.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (*model.Page, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, nil, err
	}

	page := &model.Page{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	page.ComputeHash(body)

	// Links are resolved against the final URL after redirects.
	base := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}

	var links []string
	switch {
	case page.IsHTML():
		doc, err := textnorm.ExtractHTML(bytes.NewReader(body))
		if err != nil {
			return nil, nil, err
		}
		page.Title = doc.Title
		page.Text = doc.Text

		parser, err := NewParser(base)
		if err != nil {
			return nil, nil, err
		}
		result, err := parser.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, nil, err
		}
		page.Canonical = result.Canonical
		if !result.NoFollow {
			links = result.InternalLinks
		}
	case isPlainText(page.ContentType):
		page.Text = string(body)
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, page.ContentType)
	}

	page.TruncateText()
	return page, links, nil
}

// isPlainText reports whether contentType is text/plain.
func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/plain"
}

// isVisited checks if a URL has been visited.
func (s *Spider) isVisited(pageURL string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.visited[pageURL]
}

// markVisited marks a URL as visited and reports whether it was new.
func (s *Spider) markVisited(pageURL string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.visited[pageURL] {
		return false
	}
	s.visited[pageURL] = true
	return true
}

func (s *Spider) count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.pageCount
}

func (s *Spider) increment() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.pageCount++
}

// normalizeURL normalizes a URL for deduplication. The result is also the
// page's identity in the corpus, so http://example.com and
// http://example.com/#top are the same page.
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// isSameHost checks if targetURL is on baseHost.
func isSameHost(baseHost, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, baseHost)
}

// Reset clears the spider's state, allowing it to be reused.
func (s *Spider) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]bool)
	s.pageCount = 0
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		PagesCollected: s.pageCount,
		URLsVisited:    len(s.visited),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesCollected is the number of pages with extractable text.
	PagesCollected int

	// URLsVisited is the number of unique URLs requested.
	URLsVisited int
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
// Ignore patterns win over follow patterns.
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
//   - "/blog/*" matches "/blog" and everything below it
//   - "*.pdf" matches any path ending in .pdf
//   - other patterns go through filepath.Match, against the full path and,
//     for patterns without a slash, against the last segment
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
