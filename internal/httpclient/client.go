// Package httpclient is the single configured HTTP client every feature
// service goes through. It joins relative paths onto a base URL, sends and
// decodes JSON, and turns failures into APIError or TransportError. It never
// retries and sets no timeout of its own.
package httpclient

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

	"go.uber.org/zap"
)

// APIError is a non-2xx response. Body is the server payload, unchanged.
type APIError struct {
	Status  int
	Message string
	Code    string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// TransportError is a failure to reach the server or read its reply.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	headers http.Header
	http    *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client for baseURL. The path of baseURL acts as a prefix for
// every request path.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:    u,
		headers: http.Header{},
		http:    http.DefaultClient,
		logger:  zap.NewNop(),
	}
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.base.String() }

type requestConfig struct {
	token  string
	header http.Header
}

type RequestOption func(*requestConfig)

// WithBearer sets the Authorization header. An empty token sends none.
func WithBearer(token string) RequestOption {
	return func(rc *requestConfig) { rc.token = strings.TrimSpace(token) }
}

func WithRequestHeader(key, value string) RequestOption {
	return func(rc *requestConfig) { rc.header.Set(key, value) }
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends one request. body, when non-nil, is JSON encoded. out, when
// non-nil, receives the decoded 2xx body; an empty body leaves it untouched.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...RequestOption) error {
	_, err := c.do(ctx, method, path, query, body, out, opts)
	return err
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out, opts...)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out, opts...)
}

// Delete is Do with DELETE and no body.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil, opts...)
}

// Raw performs a GET and returns the undecoded 2xx body, e.g. for CSV.
func (c *Client) Raw(ctx context.Context, path string, query url.Values, opts ...RequestOption) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, nil, opts)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, opts []RequestOption) ([]byte, error) {
	rc := &requestConfig{header: http.Header{}}
	for _, opt := range opts {
		opt(rc)
	}
	target := c.resolve(path, query)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range rc.header {
		req.Header[k] = vs
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rc.token != "" {
		req.Header.Set("Authorization", "Bearer "+rc.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	c.logger.Debug("request done", zap.String("method", method), zap.String("url", target), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, payload)
	}
	if out != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return payload, nil
}

func newAPIError(status int, payload []byte) *APIError {
	ae := &APIError{Status: status, Body: payload}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		ae.Message = body.Error
		if ae.Message == "" {
			ae.Message = body.Message
		}
		ae.Code = body.Code
	}
	if ae.Message == "" {
		ae.Message = strings.TrimSpace(string(payload))
	}
	if ae.Message == "" {
		ae.Message = http.StatusText(status)
	}
	return ae
}
