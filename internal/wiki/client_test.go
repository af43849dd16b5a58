package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests client construction.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("rejects relative endpoint", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient("/w/api.php"); err == nil {
			t.Error("expected error for endpoint without scheme and host")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient(DefaultEndpoint, WithLimit(50), WithNamespace(4), WithMaxBodySize(1024), WithRateLimit(2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.limit != 50 || c.namespace != 4 || c.maxBodySize != 1024 {
			t.Errorf("options not applied: %+v", c)
		}
		if c.limiter == nil {
			t.Error("expected rate limiter")
		}
	})
}

// TestRequestURL tests query construction.
func TestRequestURL(t *testing.T) {
	t.Parallel()

	c, err := NewClient(DefaultEndpoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("first request has no continuation", func(t *testing.T) {
		t.Parallel()

		u, err := url.Parse(c.RequestURL("1095706", ""))
		if err != nil {
			t.Fatalf("invalid url: %v", err)
		}
		q := u.Query()
		if q.Get("pageids") != "1095706" || q.Get("prop") != "linkshere" || q.Get("lhprop") != "pageid" {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("lhlimit") != "500" || q.Get("lhnamespace") != "0" {
			t.Errorf("unexpected limits: %v", q)
		}
		if q.Has("lhcontinue") || q.Has("continue") {
			t.Errorf("first request must not continue: %v", q)
		}
	})

	t.Run("continuation carries token", func(t *testing.T) {
		t.Parallel()

		u, _ := url.Parse(c.RequestURL("1095706", "0|300"))
		q := u.Query()
		if q.Get("lhcontinue") != "0|300" || q.Get("continue") != "||" {
			t.Errorf("unexpected continuation query: %v", q)
		}
	})
}

// TestLinksHere tests requests against a local API server.
func TestLinksHere(t *testing.T) {
	t.Parallel()

	t.Run("follows pagination tokens", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("lhcontinue") {
			case "":
				fmt.Fprint(w, `{"continue": {"lhcontinue": "0|2"}, "query": {"pages": {"1": {"title": "One", "linkshere": [{"pageid": 2}]}}}}`)
			case "0|2":
				fmt.Fprint(w, `{"query": {"pages": {"1": {"title": "One", "linkshere": [{"pageid": 3}]}}}}`)
			default:
				http.Error(w, "bad token", http.StatusBadRequest)
			}
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		first, err := c.LinksHere(context.Background(), "1", "")
		if err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		if first.Continue != "0|2" {
			t.Fatalf("expected continuation, got %q", first.Continue)
		}

		second, err := c.LinksHere(context.Background(), "1", first.Continue)
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}
		if second.Continue != "" || second.Pages[0].LinksHere[0] != "3" {
			t.Errorf("unexpected second page: %+v", second)
		}
	})

	t.Run("non-2xx status is a transport error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c, _ := NewClient(srv.URL)
		_, err := c.LinksHere(context.Background(), "1", "")
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("malformed body is a decode error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `not json`)
		}))
		defer srv.Close()

		c, _ := NewClient(srv.URL)
		_, err := c.LinksHere(context.Background(), "1", "")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("unreachable server is a transport error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		endpoint := srv.URL
		srv.Close()

		c, _ := NewClient(endpoint)
		_, err := c.LinksHere(context.Background(), "1", "")
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("cancelled context while pacing is a transport error", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{"query": {"pages": {}}}`)
		}))
		defer srv.Close()

		c, _ := NewClient(srv.URL, WithRateLimit(0.001))
		if _, err := c.LinksHere(context.Background(), "1", ""); err != nil {
			t.Fatalf("first call failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if _, err := c.LinksHere(ctx, "1", ""); !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected a single request to reach the server, got %d", calls.Load())
		}
	})
}

// TestNewHTTPClient tests the HTTP client construction.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("injects user agent, bearer token and headers", func(t *testing.T) {
		t.Parallel()

		var got http.Header
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			fmt.Fprint(w, `{"query": {"pages": {}}}`)
		}))
		defer srv.Close()

		hc, err := NewHTTPClient(TransportOptions{
			Timeout:     5 * time.Second,
			UserAgent:   "linkcrawl-test/1.0",
			BearerToken: "secret-token",
			Headers:     map[string]string{"X-Trace": "abc"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c, _ := NewClient(srv.URL, WithHTTPClient(hc))
		if _, err := c.LinksHere(context.Background(), "1", ""); err != nil {
			t.Fatalf("request failed: %v", err)
		}

		if got.Get("User-Agent") != "linkcrawl-test/1.0" {
			t.Errorf("unexpected user agent %q", got.Get("User-Agent"))
		}
		if got.Get("Authorization") != "Bearer secret-token" {
			t.Errorf("unexpected authorization %q", got.Get("Authorization"))
		}
		if got.Get("X-Trace") != "abc" {
			t.Errorf("unexpected custom header %q", got.Get("X-Trace"))
		}
	})

	t.Run("validates proxy address", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			addr    string
			wantErr bool
		}{
			{addr: "127.0.0.1:9050", wantErr: false},
			{addr: "localhost:1080", wantErr: false},
			{addr: "127.0.0.1", wantErr: true},
			{addr: ":9050", wantErr: true},
			{addr: "127.0.0.1:0", wantErr: true},
			{addr: "127.0.0.1:70000", wantErr: true},
		}
		for _, tt := range tests {
			_, err := NewHTTPClient(TransportOptions{ProxyAddress: tt.addr})
			if (err != nil) != tt.wantErr {
				t.Errorf("%q: wantErr=%v, got %v", tt.addr, tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("%q: expected ErrInvalidProxyAddress, got %v", tt.addr, err)
			}
		}
	})
}
