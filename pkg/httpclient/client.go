package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ClientType represents the type of HTTP client configuration
type ClientType string

const (
	// BrowserClient uses browser-like headers to avoid 406 (Not Acceptable) errors
	BrowserClient ClientType = "browser"

	// CloudflareClient uses simple headers (like curl) to avoid 403 (Forbidden) errors
	// from Cloudflare-protected sites that block browser-like User-Agents
	CloudflareClient ClientType = "cloudflare"

	// DefaultClient keeps Go's default headers
	DefaultClient ClientType = "default"
)

// DefaultTimeout bounds a whole request when NewClient gets a zero timeout.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a page FetchString reads.
const maxBodyBytes = 10 << 20

// ParseClientType maps a config value to a ClientType. Unknown values fall back to DefaultClient.
func ParseClientType(s string) ClientType {
	switch ClientType(s) {
	case BrowserClient, CloudflareClient:
		return ClientType(s)
	default:
		return DefaultClient
	}
}

// HTTPClient wraps an http.Client whose transport sets the headers of its client type
type HTTPClient struct {
	client     *http.Client
	clientType ClientType
}

// NewClient creates a new HTTP client with the specified type
func NewClient(clientType ClientType, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: &headerTransport{base: http.DefaultTransport, clientType: clientType},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &HTTPClient{
		client:     client,
		clientType: clientType,
	}
}

// Type returns the header profile of the client.
func (c *HTTPClient) Type() ClientType {
	return c.clientType
}

// Client exposes the underlying http.Client for libraries that take one (gofeed).
// Requests made through it carry the same headers.
func (c *HTTPClient) Client() *http.Client {
	return c.client
}

// Do executes an HTTP request with the appropriate headers for the client type
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// Get is a convenience method for GET requests
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// FetchString GETs url and returns the body. Non-200 responses are errors.
func (c *HTTPClient) FetchString(ctx context.Context, url string) (string, error) {
	body, _, err := c.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Fetch GETs url and returns the body with its Content-Type. Non-200 responses are errors.
func (c *HTTPClient) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

type headerTransport struct {
	base       http.RoundTripper
	clientType ClientType
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	setHeaders(req, t.clientType)
	return t.base.RoundTrip(req)
}

// setHeaders sets the appropriate headers based on client type
func setHeaders(req *http.Request, clientType ClientType) {
	switch clientType {
	case BrowserClient:
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Upgrade-Insecure-Requests", "1")

	case CloudflareClient:
		req.Header.Set("User-Agent", "curl/8.7.1")
	}
}
