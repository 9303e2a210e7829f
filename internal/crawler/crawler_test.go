package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body)) //nolint:errcheck
	}
}

// TestParser tests HTML link parsing.
func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("https://example.com/page")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		result, err := parser.Parse(strings.NewReader(`<html><head><title> Test Page </title></head><body></body></html>`))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if result.Title != "Test Page" {
			t.Errorf("expected title 'Test Page', got %q", result.Title)
		}
	})

	t.Run("extracts links and classifies them", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
			<a href="/internal">Internal Link</a>
			<a href="https://example.com/same#section">Same Host</a>
			<a href="https://other.org/external">External</a>
			<a href="mailto:me@example.com">Mail</a>
			<a href="javascript:void(0)">JS</a>
			<a href="#top">Top</a>
			<a href="/sponsored" rel="nofollow sponsored">Ad</a>
		</body></html>`

		parser, err := NewParser("https://example.com/page")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(result.Links) != 3 {
			t.Errorf("expected 3 links, got %d: %v", len(result.Links), result.Links)
		}
		if len(result.InternalLinks) != 2 {
			t.Errorf("expected 2 internal links, got %v", result.InternalLinks)
		}
		if len(result.ExternalLinks) != 1 {
			t.Errorf("expected 1 external link, got %v", result.ExternalLinks)
		}
		for _, link := range result.Links {
			if strings.Contains(link, "#") {
				t.Errorf("fragment not stripped from %q", link)
			}
		}
	})

	t.Run("extracts canonical and robots nofollow", func(t *testing.T) {
		t.Parallel()

		html := `<html><head>
			<link rel="canonical" href="/original">
			<meta name="robots" content="noindex, nofollow">
		</head><body></body></html>`

		parser, err := NewParser("https://example.com/copy")
		if err != nil {
			t.Fatal(err)
		}
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatal(err)
		}
		if result.Canonical != "https://example.com/original" {
			t.Errorf("Canonical = %q", result.Canonical)
		}
		if !result.NoFollow {
			t.Error("expected NoFollow")
		}
	})

	t.Run("returns error for invalid base URL", func(t *testing.T) {
		t.Parallel()

		if _, err := NewParser("://bad"); err == nil {
			t.Error("expected error for invalid base URL")
		}
	})

	t.Run("handles case-insensitive host comparison", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("https://Example.COM/")
		if err != nil {
			t.Fatal(err)
		}
		result, err := parser.Parse(strings.NewReader(`<a href="https://example.com/a">a</a>`))
		if err != nil {
			t.Fatal(err)
		}
		if len(result.InternalLinks) != 1 {
			t.Errorf("expected internal link, got %+v", result)
		}
	})
}

// TestSpider tests crawling against local servers.
func TestSpider(t *testing.T) {
	t.Parallel()

	t.Run("crawls single page", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(htmlHandler(`<html><head><title>Test</title></head><body><nav>Menu</nav><p>Hello there.</p></body></html>`))
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(0), WithDelay(0))
		pages, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 1 {
			t.Fatalf("expected 1 page, got %d", len(pages))
		}

		page := pages[0]
		if page.Title != "Test" {
			t.Errorf("expected title 'Test', got %q", page.Title)
		}
		if page.Text != "Hello there." {
			t.Errorf("expected extracted text without navigation, got %q", page.Text)
		}
		if page.URL != server.URL+"/" {
			t.Errorf("expected normalized URL %q, got %q", server.URL+"/", page.URL)
		}
		if page.Hash == "" || page.StatusCode != http.StatusOK {
			t.Errorf("unexpected page metadata %+v", page)
		}
	})

	t.Run("follows links within depth limit", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", htmlHandler(`<html><body><p>Home</p><a href="/page1">Page 1</a><a href="/page2">Page 2</a></body></html>`))
		mux.HandleFunc("/page1", htmlHandler(`<html><body><p>Page 1</p><a href="/deep">Deep</a></body></html>`))
		mux.HandleFunc("/page2", htmlHandler(`<html><body><p>Page 2</p></body></html>`))
		mux.HandleFunc("/deep", htmlHandler(`<html><body><p>Too deep</p></body></html>`))

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(1), WithDelay(0))
		pages, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(pages))
		}
		if pages[1].Depth != 1 || pages[2].Depth != 1 {
			t.Errorf("expected linked pages at depth 1, got %d and %d", pages[1].Depth, pages[2].Depth)
		}
	})

	t.Run("respects max pages limit", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		var links strings.Builder
		for i := 1; i <= 5; i++ {
			fmt.Fprintf(&links, `<a href="/page%d">%d</a>`, i, i)
			mux.HandleFunc(fmt.Sprintf("/page%d", i), htmlHandler(`<html><body><p>Page</p></body></html>`))
		}
		mux.HandleFunc("/", htmlHandler(`<html><body><p>Index</p>`+links.String()+`</body></html>`))

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxPages(3), WithMaxDepth(1), WithDelay(0))
		pages, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 3 {
			t.Errorf("expected 3 pages, got %d", len(pages))
		}
	})

	t.Run("skips error responses and non-text content", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/{$}", htmlHandler(`<html><body><p>Home</p><a href="/missing">x</a><a href="/logo.png">y</a><a href="/notes.txt">z</a></body></html>`))
		mux.HandleFunc("/logo.png", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'}) //nolint:errcheck
		})
		mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("plain notes")) //nolint:errcheck
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(1), WithDelay(0))
		pages, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 2 {
			t.Fatalf("expected home and notes, got %d pages", len(pages))
		}
		if pages[1].Text != "plain notes" {
			t.Errorf("unexpected plain text %q", pages[1].Text)
		}
	})

	t.Run("stays on the start host", func(t *testing.T) {
		t.Parallel()

		var otherHits atomic.Int32
		other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			otherHits.Add(1)
			htmlHandler(`<p>other</p>`)(w, nil)
		}))
		defer other.Close()

		server := httptest.NewServer(htmlHandler(`<html><body><p>Home</p><a href="` + other.URL + `/x">elsewhere</a></body></html>`))
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(2), WithDelay(0))
		if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if otherHits.Load() != 0 {
			t.Errorf("crawler left the start host %d times", otherHits.Load())
		}
	})

	t.Run("respects robots nofollow", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/", htmlHandler(`<html><head><meta name="robots" content="nofollow"></head><body><p>Home</p><a href="/next">next</a></body></html>`))
		mux.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			htmlHandler(`<p>next</p>`)(w, r)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(2), WithDelay(0))
		if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hits.Load() != 0 {
			t.Error("followed a link on a nofollow page")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
			htmlHandler(`<p>Slow</p>`)(w, r)
		}))
		defer server.Close()

		spider := NewSpider(server.Client(), WithDelay(0))
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		pages, err := spider.Crawl(ctx, server.URL)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
		if len(pages) != 0 {
			t.Errorf("expected no pages, got %d", len(pages))
		}
	})

	t.Run("avoids duplicate visits", func(t *testing.T) {
		t.Parallel()

		var visitCount atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			visitCount.Add(1)
			htmlHandler(`<html><body><p>Self</p><a href="/">Self</a><a href="/#again">Self Again</a></body></html>`)(w, r)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(1), WithDelay(0))
		if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if visitCount.Load() != 1 {
			t.Errorf("expected 1 visit, got %d", visitCount.Load())
		}
	})

	t.Run("rejects unsupported scheme", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(http.DefaultClient)
		if _, err := spider.Crawl(context.Background(), "ftp://example.com/"); !errors.Is(err, ErrUnsupportedScheme) {
			t.Errorf("expected ErrUnsupportedScheme, got %v", err)
		}
	})
}

// TestSpiderOptions tests option application.
func TestSpiderOptions(t *testing.T) {
	t.Parallel()

	spider := NewSpider(http.DefaultClient,
		WithMaxDepth(7),
		WithMaxPages(11),
		WithMaxBodySize(1024),
		WithIgnorePatterns([]string{"/admin/*"}),
		WithFollowPatterns([]string{"/blog/*"}),
		WithDelay(0),
	)

	if spider.maxDepth != 7 || spider.maxPages != 11 || spider.maxBodySize != 1024 {
		t.Errorf("unexpected limits %d/%d/%d", spider.maxDepth, spider.maxPages, spider.maxBodySize)
	}
	if len(spider.ignorePatterns) != 1 || len(spider.followPatterns) != 1 {
		t.Error("patterns not applied")
	}
	if !spider.limiter.Allow() || !spider.limiter.Allow() {
		t.Error("zero delay should not rate limit")
	}
}

// TestMatchPattern tests glob matching of URL paths.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"prefix match", "/admin/*", "/admin/dashboard", true},
		{"prefix exact", "/admin/*", "/admin", true},
		{"prefix no match", "/admin/*", "/user/profile", false},
		{"prefix partial no match", "/admin/*", "/administrator", false},
		{"nested prefix", "/admin/*", "/admin/users/edit", true},
		{"pdf extension", "*.pdf", "/docs/file.pdf", true},
		{"pdf extension no match", "*.pdf", "/docs/file.txt", false},
		{"exact match", "/logout", "/logout", true},
		{"exact no match", "/logout", "/login", false},
		{"wildcard middle", "/api/v?/users", "/api/v1/users", true},
		{"wildcard middle no match", "/api/v?/users", "/api/v10/users", false},
		{"root path", "/", "/", true},
		{"root no match prefix", "/admin/*", "/", false},
		{"filename glob", "print-*", "/posts/print-42", true},
		{"malformed pattern", "[", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestShouldCrawl tests URL filtering based on patterns.
func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ignore []string
		follow []string
		url    string
		want   bool
	}{
		{"no patterns allows all", nil, nil, "https://example.com/any", true},
		{"ignored", []string{"/admin/*"}, nil, "https://example.com/admin/x", false},
		{"not ignored", []string{"/admin/*"}, nil, "https://example.com/blog", true},
		{"follow match", nil, []string{"/blog/*"}, "https://example.com/blog/post", true},
		{"follow miss", nil, []string{"/blog/*"}, "https://example.com/shop", false},
		{"ignore wins over follow", []string{"*.pdf"}, []string{"/blog/*"}, "https://example.com/blog/a.pdf", false},
		{"empty path is root", nil, []string{"/"}, "https://example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spider := NewSpider(http.DefaultClient, WithIgnorePatterns(tt.ignore), WithFollowPatterns(tt.follow))
			if got := spider.shouldCrawl(tt.url); got != tt.want {
				t.Errorf("shouldCrawl(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

// TestSpiderResetAndStats tests state bookkeeping across crawls.
func TestSpiderResetAndStats(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(htmlHandler(`<html><body><p>Only page</p></body></html>`))
	defer server.Close()

	spider := NewSpider(server.Client(), WithMaxDepth(0), WithDelay(0))
	if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
		t.Fatal(err)
	}

	stats := spider.Stats()
	if stats.PagesCollected != 1 || stats.URLsVisited != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	pages, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 0 {
		t.Errorf("expected visited URL to be skipped without Reset, got %d pages", len(pages))
	}

	spider.Reset()
	if stats := spider.Stats(); stats.PagesCollected != 0 || stats.URLsVisited != 0 {
		t.Errorf("Reset left state %+v", stats)
	}
	pages, err = spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Errorf("expected 1 page after Reset, got %d", len(pages))
	}
}

// TestNormalizeURL tests URL normalization.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.com", "https://example.com/"},
		{"HTTPS://example.com/a#frag", "https://example.com/a"},
		{"https://example.com/a?q=1", "https://example.com/a?q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := normalizeURL(tt.in); got != tt.want {
				t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
