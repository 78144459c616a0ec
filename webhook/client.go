package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 5

	// maxResponseBody caps how much of a downstream response is kept for diagnostics
	maxResponseBody = 1 << 20
)

// OutboundRequest describes one forward. Headers travel with the request:
// Forwarded are the inbound headers, Headers are explicit overrides.
type OutboundRequest struct {
	Method    string
	URL       string
	Body      []byte
	Forwarded http.Header
	Headers   http.Header
}

// Response is a downstream answer with a 2xx status
type Response struct {
	Status  int
	Body    []byte
	Headers http.Header
}

/* Client forwards requests to downstream targets
 * Uses pointer semantics as it's an API, not data
 * It is safe for concurrent use and holds no per-request state
 */
type Client struct {
	http         *http.Client
	timeout      time.Duration
	maxRedirects int
}

// ClientOption configures a Client
type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMaxRedirects(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithTransport replaces the underlying round tripper, mostly for tests
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// NewClient creates a forwarding client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:         &http.Client{},
		timeout:      DefaultTimeout,
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.Timeout = c.timeout
	c.http.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > c.maxRedirects {
			return ErrTooManyRedirects
		}
		return nil
	}
	return c
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Send performs one outbound request. Any non-2xx answer is returned as a
// *DownstreamError, a request that never got an answer as a *NetworkError.
func (c *Client) Send(ctx context.Context, out OutboundRequest) (Response, error) {
	method := strings.ToUpper(strings.TrimSpace(out.Method))
	if method == "" {
		method = http.MethodPost
	}

	target, err := url.Parse(out.URL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		if err == nil {
			err = fmt.Errorf("target must be an absolute http(s) URL")
		}
		return Response{}, &NetworkError{Kind: KindInvalidRequest, Method: method, URL: out.URL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(out.Body))
	if err != nil {
		return Response{}, &NetworkError{Kind: KindInvalidRequest, Method: method, URL: out.URL, Err: err}
	}
	req.Header = BuildHeaders(out.Forwarded, out.Headers)
	req.Host = target.Host

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, classify(method, out.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Response{}, classify(method, out.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &DownstreamError{
			URL:     out.URL,
			Status:  resp.StatusCode,
			Body:    body,
			Headers: resp.Header.Clone(),
		}
	}

	return Response{Status: resp.StatusCode, Body: body, Headers: resp.Header.Clone()}, nil
}
