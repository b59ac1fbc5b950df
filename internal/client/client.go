// Package client is the thin request wrapper used by the CLI and UI tests.
// It speaks to the console either over HTTP or by serving requests through the
// router in the same process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
)

// Response wraps the decoded body of a successful call
type Response[T any] struct {
	Status int
	Data   T
}

// Client issues requests against a base URL
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	userID  string
}

// Option configures a Client
type Option func(*Client)

// WithToken sends a bearer token with every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithUserID sets the acting user when authentication is disabled
func WithUserID(id string) Option {
	return func(c *Client) { c.userID = id }
}

// WithHTTPClient overrides the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for a console listening at baseURL. Requests carry no
// timeout of their own; deadlines come from the caller's context.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewInProcess creates a client that dispatches straight into handler
func NewInProcess(handler http.Handler, opts ...Option) *Client {
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: handlerTransport{handler}})}, opts...)
	return New("http://opsconsole.local", opts...)
}

// SetToken replaces the bearer token, e.g. after a login call
func (c *Client) SetToken(token string) {
	c.token = token
}

// handlerTransport serves requests through an http.Handler without a network hop
type handlerTransport struct {
	handler http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.RemoteAddr == "" {
		req.RemoteAddr = "127.0.0.1:0"
	}
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// Get issues a GET request and decodes the body into T
func Get[T any](ctx context.Context, c *Client, path string) (*Response[T], error) {
	return call[T](ctx, c, http.MethodGet, path, nil)
}

// Post issues a POST request with body encoded as JSON
func Post[T any](ctx context.Context, c *Client, path string, body interface{}) (*Response[T], error) {
	return call[T](ctx, c, http.MethodPost, path, body)
}

// Put issues a PUT request with body encoded as JSON
func Put[T any](ctx context.Context, c *Client, path string, body interface{}) (*Response[T], error) {
	return call[T](ctx, c, http.MethodPut, path, body)
}

// Patch issues a PATCH request with body encoded as JSON
func Patch[T any](ctx context.Context, c *Client, path string, body interface{}) (*Response[T], error) {
	return call[T](ctx, c, http.MethodPatch, path, body)
}

// Del issues a DELETE request
func Del[T any](ctx context.Context, c *Client, path string) (*Response[T], error) {
	return call[T](ctx, c, http.MethodDelete, path, nil)
}

func call[T any](ctx context.Context, c *Client, method, path string, body interface{}) (*Response[T], error) {
	raw, status, err := c.do(ctx, method, path, body)
	if err != nil {
		logrus.WithFields(logrus.Fields{"method": method, "path": path}).Errorf("API request failed: %v", err)
		return nil, err
	}

	resp := &Response[T]{Status: status}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(raw, &resp.Data); err != nil {
		return nil, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case []byte:
			reader = bytes.NewReader(b)
		case json.RawMessage:
			reader = bytes.NewReader(b)
		default:
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, 0, fmt.Errorf("encode request body: %w", err)
			}
			reader = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, resp.StatusCode, decodeError(resp.StatusCode, raw)
	}
	return raw, resp.StatusCode, nil
}

// decodeError turns an error body into *apierr.Error. Bodies that are not in
// the console's error shape keep the response status and their text.
func decodeError(status int, raw []byte) *apierr.Error {
	var e apierr.Error
	if err := json.Unmarshal(raw, &e); err == nil && e.Status != 0 {
		return &e
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &apierr.Error{Status: status, Message: msg}
}
