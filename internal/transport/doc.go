// Package transport builds the HTTP clients used by the crawler.
//
// A client can go out directly or through a SOCKS5 proxy, and can carry a
// per-site cookie, custom headers and a fixed User-Agent on every request,
// redirects included.
package transport
