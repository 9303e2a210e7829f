package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// maxRedirects stops redirect loops.
const maxRedirects = 10

// Options configures the HTTP client.
type Options struct {
	// ProxyAddress is a SOCKS5 proxy in "host:port" format. Empty means direct.
	ProxyAddress string

	// Timeout bounds a whole request, body included.
	Timeout time.Duration

	// UserAgent replaces Go's default User-Agent when set.
	UserAgent string

	// Cookie is a raw cookie string ("a=1; b=2") sent with every request.
	Cookie string

	// Headers are added to every request.
	Headers map[string]string
}

// NewHTTPClient creates an HTTP client from opts.
// The proxy is not contacted here; a dead proxy shows up on the first request.
func NewHTTPClient(opts Options) (*http.Client, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConns = 10
	base.MaxIdleConnsPerHost = 2
	base.IdleConnTimeout = 30 * time.Second

	if opts.ProxyAddress != "" {
		if !IsValidProxyAddress(opts.ProxyAddress) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, opts.ProxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		base.Proxy = nil
		base.DialContext = contextDialer(dialer)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = base
	if opts.Cookie != "" || len(opts.Headers) > 0 || opts.UserAgent != "" {
		rt = &headerInjectingTransport{
			base:      base,
			cookie:    opts.Cookie,
			headers:   opts.Headers,
			userAgent: opts.UserAgent,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// contextDialer adapts a proxy.Dialer to http.Transport.DialContext.
// The SOCKS5 dialer from x/net implements proxy.ContextDialer; other dialers
// fall back to a goroutine that is abandoned on cancellation.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case r := <-resultCh:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// IsValidProxyAddress reports whether address is "host:port" with a
// non-empty host and a port in 1-65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// headerInjectingTransport adds the configured cookie, headers and
// User-Agent to every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	cookie    string
	headers   map[string]string
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
