// Package webclient implements the cookie-backed HTTP client used to drive
// the generation, upscale, and mailbox providers.
//
// The providers are ordinary authenticated websites, not APIs, so the client
// has to behave like a browser: it persists cookies across requests, replays
// redirects manually, and strips credentials when a redirect crosses to an
// unrelated domain.
package webclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"wallgen/logging"
)

// RedirectMode controls what the client does with a 3xx response.
type RedirectMode int

const (
	// RedirectFollow replays redirects up to the configured cap.
	RedirectFollow RedirectMode = iota
	// RedirectManual returns the 3xx response to the caller untouched.
	RedirectManual
	// RedirectError treats any 3xx response as a failure.
	RedirectError
)

// DefaultMaxRedirects caps redirect chains when the caller does not
// override it.
const DefaultMaxRedirects = 20

// DefaultTimeout bounds a single HTTP exchange, not a redirect chain.
const DefaultTimeout = 30 * time.Second

// Options configure a Client.
type Options struct {
	// Timeout bounds each individual HTTP exchange. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// MaxRedirects caps a redirect chain. Zero means DefaultMaxRedirects.
	MaxRedirects int

	// Logger receives per-request debug entries. Nil disables logging.
	Logger *logging.Logger
}

// Client is a cookie-jar HTTP client with manual redirect handling.
//
// The underlying transport never follows redirects on its own; every hop is
// replayed by the client so it can resolve relative Location headers, strip
// credentials on cross-origin hops, and downgrade methods per the redirect
// status code. Cookies persist in an in-memory jar for the lifetime of the
// Client, which is exactly the lifetime of one provider session.
type Client struct {
	httpClient     *http.Client
	defaultHeaders http.Header
	maxRedirects   int
	logger         *logging.Logger
}

// NewClient creates a Client with a fresh, empty cookie jar.
func NewClient(opts Options) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("webclient: failed to create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	return &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		defaultHeaders: make(http.Header),
		maxRedirects:   maxRedirects,
		logger:         opts.Logger,
	}, nil
}

// SetDefaultHeader attaches a header to every subsequent request made by
// this Client. Used for bearer tokens scraped mid-session.
func (c *Client) SetDefaultHeader(key, value string) {
	c.defaultHeaders.Set(key, value)
}

// Request describes one outbound exchange.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// RedirectMode overrides the default RedirectFollow behavior.
	RedirectMode RedirectMode

	// ThrowOnFail turns any non-2xx, non-redirect response into a
	// RequestFailedError carrying the response body.
	ThrowOnFail bool
}

// Response is the final response of a (possibly redirected) exchange with
// the body fully read.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// URL is the address that produced this response, after redirects.
	URL *url.URL
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do performs the request, following redirects per the request's mode.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	origin, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("webclient: invalid url %q: %w", req.URL, err)
	}

	header := make(http.Header)
	for key, values := range c.defaultHeaders {
		header[key] = append([]string(nil), values...)
	}
	for key, values := range req.Header {
		header[key] = append([]string(nil), values...)
	}

	return c.do(ctx, req.Method, origin, origin, header, req.Body, req.RedirectMode, req.ThrowOnFail, 0)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, URL: rawURL, Header: header})
}

// Post performs a POST request with the given body.
func (c *Client) Post(ctx context.Context, rawURL string, header http.Header, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, URL: rawURL, Header: header, Body: body})
}

func (c *Client) do(ctx context.Context, method string, origin, target *url.URL, header http.Header, body []byte, mode RedirectMode, throwOnFail bool, redirects int) (*Response, error) {
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("webclient: failed to build request: %w", err)
	}
	for key, values := range header {
		httpReq.Header[key] = append([]string(nil), values...)
	}

	if c.logger != nil {
		c.logger.Debug("sending request",
			zap.String("method", method),
			zap.String("url", target.String()),
			zap.Int("redirects", redirects))
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("webclient: %s %s failed: %w", method, target, err)
	}
	respBody, err := io.ReadAll(httpResp.Body)
	closeErr := httpResp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("webclient: failed to read response body from %s: %w", target, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("webclient: failed to close response body from %s: %w", target, closeErr)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       respBody,
		URL:        target,
	}

	if !isRedirect(resp.StatusCode) {
		if throwOnFail && !resp.IsSuccess() {
			return nil, &RequestFailedError{
				Method:     method,
				URL:        target.String(),
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(respBody),
			}
		}
		return resp, nil
	}

	switch mode {
	case RedirectManual:
		return resp, nil
	case RedirectError:
		return nil, &RedirectModeError{
			URL:        target.String(),
			StatusCode: resp.StatusCode,
			Location:   resp.Header.Get("Location"),
		}
	}

	if redirects >= c.maxRedirects {
		return nil, &TooManyRedirectsError{URL: origin.String(), Limit: c.maxRedirects}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		// A 3xx without Location is a terminal response.
		return resp, nil
	}
	next, err := target.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("webclient: invalid redirect location %q: %w", location, err)
	}

	nextMethod, nextBody := redirectMethod(resp.StatusCode, method, body)
	nextHeader := header
	if !sameOrSubdomain(origin.Hostname(), next.Hostname()) {
		nextHeader = stripCredentials(header)
	}
	if nextBody == nil {
		nextHeader = withoutHeader(nextHeader, "Content-Type", "Content-Length")
	}

	if c.logger != nil {
		c.logger.Debug("following redirect",
			zap.Int("status", resp.StatusCode),
			zap.String("location", next.String()),
			zap.String("method", nextMethod))
	}

	return c.do(ctx, nextMethod, origin, next, nextHeader, nextBody, mode, throwOnFail, redirects+1)
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// redirectMethod applies the browser method-rewrite rules: 303 always
// downgrades to GET, and 301/302 downgrade a POST to GET. 307/308 preserve
// the method and body.
func redirectMethod(status int, method string, body []byte) (string, []byte) {
	switch status {
	case http.StatusSeeOther:
		return http.MethodGet, nil
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodPost {
			return http.MethodGet, nil
		}
	}
	return method, body
}

// sameOrSubdomain reports whether host is base itself or a subdomain of it.
// Hostname comparison is case-insensitive and ignores ports.
func sameOrSubdomain(base, host string) bool {
	base = strings.ToLower(base)
	host = strings.ToLower(host)
	return host == base || strings.HasSuffix(host, "."+base)
}

// credentialHeaders never survive a cross-origin redirect.
var credentialHeaders = []string{"Authorization", "Www-Authenticate", "Cookie", "Cookie2"}

func stripCredentials(header http.Header) http.Header {
	stripped := make(http.Header, len(header))
	for key, values := range header {
		stripped[key] = append([]string(nil), values...)
	}
	for _, key := range credentialHeaders {
		stripped.Del(key)
	}
	return stripped
}

func withoutHeader(header http.Header, keys ...string) http.Header {
	result := make(http.Header, len(header))
	for key, values := range header {
		result[key] = append([]string(nil), values...)
	}
	for _, key := range keys {
		result.Del(key)
	}
	return result
}
