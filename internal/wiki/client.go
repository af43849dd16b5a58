package wiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// Default client settings.
const (
	// DefaultEndpoint is the English Wikipedia action API.
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

	// DefaultLimit is the maximum number of linkshere entries per response
	// the API allows for regular clients.
	DefaultLimit = 500

	// DefaultNamespace restricts linking pages to articles.
	DefaultNamespace = 0

	// DefaultMaxBodySize bounds a single response body.
	DefaultMaxBodySize = 8 * 1024 * 1024
)

// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// Client queries the linkshere API.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	limiter     *rate.Limiter
	limit       int
	namespace   int
	maxBodySize int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithRateLimit paces requests to at most rps per second.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithLimit sets the number of entries requested per response.
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithNamespace sets the namespace of linking pages.
func WithNamespace(ns int) Option {
	return func(c *Client) {
		c.namespace = ns
	}
}

// WithMaxBodySize bounds the response body size.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// NewClient creates a client for the API at endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API endpoint %q", endpoint)
	}

	c := &Client{
		endpoint:    endpoint,
		httpClient:  http.DefaultClient,
		limit:       DefaultLimit,
		namespace:   DefaultNamespace,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// LinksHere fetches one result page of the pages linking to pageID.
// token is empty for the first call and the previous Result.Continue for
// each following call.
func (c *Client) LinksHere(ctx context.Context, pageID, token string) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(pageID, token), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodySize)) //nolint:errcheck // best effort
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}

	return DecodeReader(io.LimitReader(resp.Body, c.maxBodySize))
}

// RequestURL builds the query URL for pageID and an optional continuation.
func (c *Client) RequestURL(pageID, token string) string {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("prop", "linkshere")
	q.Set("pageids", pageID)
	q.Set("lhprop", "pageid")
	q.Set("lhlimit", strconv.Itoa(c.limit))
	q.Set("lhnamespace", strconv.Itoa(c.namespace))
	if token != "" {
		q.Set("lhcontinue", token)
		q.Set("continue", "||")
	}
	return c.endpoint + "?" + q.Encode()
}

// TransportOptions configures the HTTP client built by NewHTTPClient.
type TransportOptions struct {
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration

	// ProxyAddress routes requests through a SOCKS5 proxy at host:port.
	// Empty means direct connections.
	ProxyAddress string

	// UserAgent identifies the crawler to the API operator.
	UserAgent string

	// BearerToken is sent as an Authorization header when set.
	BearerToken string

	// Headers are extra headers added to every request.
	Headers map[string]string
}

// NewHTTPClient creates an HTTP client for the API.
func NewHTTPClient(opts TransportOptions) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if opts.ProxyAddress != "" {
		if !isValidProxyAddress(opts.ProxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	}

	headers := make(map[string]string, len(opts.Headers)+2)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}
	if opts.BearerToken != "" {
		headers["Authorization"] = "Bearer " + opts.BearerToken
	}

	return &http.Client{
		Transport: &headerInjectingTransport{
			base:    transport,
			headers: headers,
		},
		Timeout: opts.Timeout,
	}, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// headerInjectingTransport wraps an http.RoundTripper to set fixed headers
// on every request, including redirects.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
