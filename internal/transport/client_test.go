package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:1080", true},
		{"[::1]:9050", true},
		{"localhost", false},
		{":9050", false},
		{"localhost:0", false},
		{"localhost:65536", false},
		{"localhost:abc", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := IsValidProxyAddress(tt.address); got != tt.want {
				t.Errorf("IsValidProxyAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("rejects malformed proxy", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPClient(Options{ProxyAddress: "no-port"})
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("accepts valid proxy without contacting it", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(Options{ProxyAddress: "127.0.0.1:1", Timeout: time.Second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != time.Second {
			t.Errorf("Timeout = %v", client.Timeout)
		}
	})

	t.Run("injects cookie headers and user agent", func(t *testing.T) {
		t.Parallel()

		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client, err := NewHTTPClient(Options{
			Timeout:   5 * time.Second,
			UserAgent: "dupescan-test",
			Cookie:    "session=abc",
			Headers:   map[string]string{"X-Audit": "1"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Cookie", "lang=en")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if ua := got.Get("User-Agent"); ua != "dupescan-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		if c := got.Get("Cookie"); c != "lang=en; session=abc" {
			t.Errorf("Cookie = %q", c)
		}
		if h := got.Get("X-Audit"); h != "1" {
			t.Errorf("X-Audit = %q", h)
		}
	})

	t.Run("stops after too many redirects", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/loop", http.StatusFound)
		}))
		defer server.Close()

		client, err := NewHTTPClient(Options{Timeout: 5 * time.Second})
		if err != nil {
			t.Fatal(err)
		}
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("expected last response, got error %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Errorf("StatusCode = %d, want 302", resp.StatusCode)
		}
	})
}
