// Package testhelpers provides reusable testing utilities for the console.
//
// This package contains:
// - HTTP test helpers (requests against a handler, response assertions)
// - A seeded service graph over the in-memory store
// - Mock alert adapters and data builders
// - Assertion helpers
package testhelpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/seed"
	"github.com/akmatori/opsconsole/internal/services"
)

// ========================================
// HTTP Test Helpers
// ========================================

// HTTPTestContext holds components for HTTP handler testing
type HTTPTestContext struct {
	T        *testing.T
	Recorder *httptest.ResponseRecorder
	Request  *http.Request
}

// NewHTTPTestContext creates a new HTTP test context
func NewHTTPTestContext(t *testing.T, method, path string, body io.Reader) *HTTPTestContext {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	return &HTTPTestContext{
		T:        t,
		Recorder: httptest.NewRecorder(),
		Request:  req,
	}
}

// WithHeader adds a header to the request
func (ctx *HTTPTestContext) WithHeader(key, value string) *HTTPTestContext {
	ctx.Request.Header.Set(key, value)
	return ctx
}

// WithJSONBody sets JSON body on the request
func (ctx *HTTPTestContext) WithJSONBody(v interface{}) *HTTPTestContext {
	ctx.T.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		ctx.T.Fatalf("failed to marshal JSON body: %v", err)
	}
	header := ctx.Request.Header
	ctx.Request = httptest.NewRequest(ctx.Request.Method, ctx.Request.URL.String(), bytes.NewReader(body))
	ctx.Request.Header = header
	ctx.Request.Header.Set("Content-Type", "application/json")
	return ctx
}

// WithBearerToken adds Authorization Bearer header
func (ctx *HTTPTestContext) WithBearerToken(token string) *HTTPTestContext {
	return ctx.WithHeader("Authorization", "Bearer "+token)
}

// AsUser makes the request act as userID when authentication is disabled
func (ctx *HTTPTestContext) AsUser(userID string) *HTTPTestContext {
	return ctx.WithHeader("X-User-ID", userID)
}

// Execute runs the handler and returns the response
func (ctx *HTTPTestContext) Execute(handler http.Handler) *HTTPTestContext {
	handler.ServeHTTP(ctx.Recorder, ctx.Request)
	return ctx
}

// AssertStatus checks the response status code
func (ctx *HTTPTestContext) AssertStatus(expected int) *HTTPTestContext {
	ctx.T.Helper()
	if ctx.Recorder.Code != expected {
		ctx.T.Errorf("%s %s: expected status %d, got %d. Body: %s",
			ctx.Request.Method, ctx.Request.URL.Path, expected, ctx.Recorder.Code, ctx.Recorder.Body.String())
	}
	return ctx
}

// AssertBodyContains checks if response body contains substring
func (ctx *HTTPTestContext) AssertBodyContains(substr string) *HTTPTestContext {
	ctx.T.Helper()
	body := ctx.Recorder.Body.String()
	if !strings.Contains(body, substr) {
		ctx.T.Errorf("expected body to contain %q, got: %s", substr, body)
	}
	return ctx
}

// AssertHeader checks response header value
func (ctx *HTTPTestContext) AssertHeader(key, expected string) *HTTPTestContext {
	ctx.T.Helper()
	got := ctx.Recorder.Header().Get(key)
	if got != expected {
		ctx.T.Errorf("expected header %s=%q, got %q", key, expected, got)
	}
	return ctx
}

// DecodeJSON decodes response body as JSON
func (ctx *HTTPTestContext) DecodeJSON(v interface{}) *HTTPTestContext {
	ctx.T.Helper()
	if err := json.NewDecoder(ctx.Recorder.Body).Decode(v); err != nil {
		ctx.T.Fatalf("failed to decode JSON response: %v", err)
	}
	return ctx
}

// ========================================
// Seeded Services
// ========================================

// NewSeededServices returns the service graph over a freshly seeded in-memory
// store. Automation runs without step delay and is stopped when the test ends.
func NewSeededServices(t *testing.T, publisher events.Publisher) *services.Services {
	t.Helper()
	ds, err := seed.Load()
	if err != nil {
		t.Fatalf("seed.Load() error = %v", err)
	}
	backend := database.NewMemoryBackend()
	if err := seed.Apply(context.Background(), backend, ds); err != nil {
		t.Fatalf("seed.Apply() error = %v", err)
	}
	svc := services.New(services.NewStore(backend), services.Options{
		Catalog:      ds,
		Publisher:    publisher,
		AnalyticsTTL: time.Minute,
	})
	t.Cleanup(svc.Stop)
	return svc
}

// ========================================
// Mock Alert Adapter
// ========================================

// MockAlertAdapter implements alerts.Adapter for testing
type MockAlertAdapter struct {
	Source             string
	ParsedAlerts       []alerts.NormalizedAlert
	ParseError         error
	ParsePayloadCalled bool
	LastBody           []byte
}

// NewMockAlertAdapter creates a new mock adapter
func NewMockAlertAdapter(source string) *MockAlertAdapter {
	return &MockAlertAdapter{
		Source:       source,
		ParsedAlerts: []alerts.NormalizedAlert{},
	}
}

// SourceType returns the source type
func (m *MockAlertAdapter) SourceType() string {
	return m.Source
}

// ParsePayload records the body and returns the configured alerts
func (m *MockAlertAdapter) ParsePayload(body []byte) ([]alerts.NormalizedAlert, error) {
	m.ParsePayloadCalled = true
	m.LastBody = body
	if m.ParseError != nil {
		return nil, m.ParseError
	}
	return m.ParsedAlerts, nil
}

// WithAlerts configures alerts to return from ParsePayload
func (m *MockAlertAdapter) WithAlerts(alerts ...alerts.NormalizedAlert) *MockAlertAdapter {
	m.ParsedAlerts = alerts
	return m
}

// WithParseError configures ParsePayload to return an error
func (m *MockAlertAdapter) WithParseError(err error) *MockAlertAdapter {
	m.ParseError = err
	return m
}

// ========================================
// Assertion Helpers
// ========================================

// AssertEqual checks equality with a helpful error message
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertError checks that an error occurred
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}

// AssertNoError checks that no error occurred
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// ========================================
// Timing Helpers
// ========================================

// MustCompleteWithin fails the test if the function takes longer than the timeout
func MustCompleteWithin(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(timeout):
		t.Fatalf("function did not complete within %v", timeout)
	}
}

// Eventually polls cond until it holds or timeout passes
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
