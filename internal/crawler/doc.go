// Package crawler collects the pages of a single site for an audit.
//
// A Spider walks the site breadth-first from a start URL, follows only links
// on the same host, and stops at a depth or page limit. HTML responses go
// through textnorm.ExtractHTML so that navigation and other boilerplate does
// not take part in duplicate detection; text/plain responses are used as-is;
// everything else is skipped.
//
// Requests to the site are spaced by a token-bucket limiter
// (golang.org/x/time/rate). Proxying, cookies and headers are configured on
// the http.Client, see package transport.
//
// # Usage
//
//	spider := crawler.NewSpider(client, crawler.WithMaxDepth(3))
//	pages, err := spider.Crawl(ctx, "https://example.com/")
package crawler
