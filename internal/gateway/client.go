package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// SessionCookieName is forwarded by WithSessionCookie
	SessionCookieName = "session"

	// maxBodySize bounds how much of a response body is read into memory
	maxBodySize = 10 << 20
)

// Client talks to the remote marketplace API
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the logger used for failed attempts
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a gateway client. An empty baseURL is allowed; calls with
// relative URLs then fail with ErrMissingBaseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Configured reports whether a base URL is set
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Request is one candidate call
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	err error
}

// RequestOption adjusts every candidate request of one operation
type RequestOption func(*Request)

// WithBearer sends the token as an Authorization header
func WithBearer(token string) RequestOption {
	return func(r *Request) {
		if token == "" {
			return
		}
		r.header().Set("Authorization", "Bearer "+token)
	}
}

// WithSessionCookie forwards the token as the session cookie
func WithSessionCookie(token string) RequestOption {
	return func(r *Request) {
		if token == "" {
			return
		}
		r.header().Add("Cookie", (&http.Cookie{Name: SessionCookieName, Value: token}).String())
	}
}

// WithJSONBody encodes v as the request body
func WithJSONBody(v any) RequestOption {
	return func(r *Request) {
		body, err := json.Marshal(v)
		if err != nil {
			r.err = fmt.Errorf("failed to encode request body: %w", err)
			return
		}
		r.Body = body
		r.header().Set("Content-Type", "application/json")
	}
}

func (r *Request) header() http.Header {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	return r.Header
}

// NewRequests builds one request per candidate URL, all with the same method
// and options
func NewRequests(method string, urls []string, opts ...RequestOption) []Request {
	reqs := make([]Request, 0, len(urls))
	for _, u := range urls {
		r := Request{Method: method, URL: u}
		for _, opt := range opts {
			opt(&r)
		}
		reqs = append(reqs, r)
	}
	return reqs
}

func (c *Client) resolve(raw string) (string, error) {
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		return raw, nil
	}
	if c.baseURL == "" {
		return "", ErrMissingBaseURL
	}
	return c.baseURL + "/" + strings.TrimLeft(raw, "/"), nil
}

// Do sends a single request and returns the response whatever its status.
// Errors are limited to configuration and transport failures.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	if req.err != nil {
		return nil, req.err
	}
	target, err := c.resolve(req.URL)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	return c.http.Do(httpReq)
}

// Attempt tries each request strictly in order, once, and returns the first
// response with a 2xx status. The body is not inspected. When every request
// fails the returned error is a *FallbackError that behaves as the most
// recent failure. The caller owns the returned response body.
func (c *Client) Attempt(ctx context.Context, reqs []Request) (*http.Response, error) {
	if len(reqs) == 0 {
		return nil, ErrNoCandidates
	}

	failures := make([]*AttemptError, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var last *AttemptError
		resp, err := c.Do(ctx, req)
		if err != nil {
			if errors.Is(err, ErrMissingBaseURL) {
				return nil, err
			}
			last = &AttemptError{Method: req.Method, URL: req.URL, Kind: KindNetwork, Err: err}
		} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		} else {
			last = failedResponse(req, resp)
		}
		failures = append(failures, last)

		c.logger.Debug("candidate endpoint failed",
			zap.Int("attempt", i+1),
			zap.Int("candidates", len(reqs)),
			zap.String("method", last.Method),
			zap.String("url", last.URL),
			zap.Int("status", last.Status),
			zap.String("kind", string(last.Kind)),
		)
	}

	return nil, &FallbackError{Attempts: failures}
}

// failedResponse records a non-2xx response and releases its body
func failedResponse(req Request, resp *http.Response) *AttemptError {
	defer resp.Body.Close()

	ae := &AttemptError{
		Method: req.Method,
		URL:    req.URL,
		Status: resp.StatusCode,
		Kind:   KindFromStatus(resp.StatusCode),
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		ae.Message = payload.Message
		if ae.Message == "" {
			ae.Message = payload.Error
		}
	}
	return ae
}

// Send issues the same request to each candidate URL in order
func (c *Client) Send(ctx context.Context, method string, urls []string, opts ...RequestOption) (*http.Response, error) {
	return c.Attempt(ctx, NewRequests(method, urls, opts...))
}

// FetchWithFallback is Send with GET
func (c *Client) FetchWithFallback(ctx context.Context, urls []string, opts ...RequestOption) (*http.Response, error) {
	return c.Send(ctx, http.MethodGet, urls, opts...)
}

// MutateSequential runs a state-changing call against each candidate in order.
// It reports true as soon as one candidate succeeds; on false, err carries the
// last failure.
func (c *Client) MutateSequential(ctx context.Context, method string, urls []string, opts ...RequestOption) (bool, error) {
	resp, err := c.Send(ctx, method, urls, opts...)
	if err != nil {
		return false, err
	}
	drain(resp)
	return true, nil
}

// FetchJSON runs Send and returns the body of the winning response
func (c *Client) FetchJSON(ctx context.Context, method string, urls []string, opts ...RequestOption) ([]byte, error) {
	resp, err := c.Send(ctx, method, urls, opts...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// FetchCollection reads a collection from the first candidate that answers.
// Any failure, transport or parse, yields an empty collection.
func (c *Client) FetchCollection(ctx context.Context, urls []string, opts ...RequestOption) []json.RawMessage {
	body, err := c.FetchJSON(ctx, http.MethodGet, urls, opts...)
	if err != nil {
		c.logger.Debug("collection unavailable", zap.Strings("candidates", urls), zap.Error(err))
		return []json.RawMessage{}
	}
	return UnwrapCollection(body)
}

// FetchInto reads a collection and decodes it into T. Undecodable elements
// are skipped.
func FetchInto[T any](ctx context.Context, c *Client, urls []string, opts ...RequestOption) []T {
	items := c.FetchCollection(ctx, urls, opts...)
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			c.logger.Warn("skipping undecodable collection element",
				zap.Strings("candidates", urls), zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	return out
}

// FetchObject reads a single resource, unwrapping the first of keys present.
// An unrecognizable payload is reported as ErrNotFound.
func (c *Client) FetchObject(ctx context.Context, urls []string, keys []string, opts ...RequestOption) (json.RawMessage, error) {
	body, err := c.FetchJSON(ctx, http.MethodGet, urls, opts...)
	if err != nil {
		return nil, err
	}
	obj, ok := UnwrapObject(body, keys...)
	if !ok {
		return nil, fmt.Errorf("unrecognized payload: %w", ErrNotFound)
	}
	return obj, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()
}
