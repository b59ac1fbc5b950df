package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newJWT(enabled bool) *JWTAuthMiddleware {
	return NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:       enabled,
		JWTSecret:     "test-secret",
		Expiry:        time.Hour,
		DefaultUserID: "usr-001",
		SkipPaths:     []string{"/health", "/auth/login", "/webhook/*"},
	})
}

func actingUser(t *testing.T, m *JWTAuthMiddleware, req *http.Request) (int, string) {
	t.Helper()
	var got string
	h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserFromContext(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code, got
}

func TestJWTAuth_TokenRoundTrip(t *testing.T) {
	m := newJWT(true)
	token, expires, err := m.GenerateToken("usr-003", "kenji")
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expires = %v", expires)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "usr-003" || claims.Username != "kenji" {
		t.Errorf("claims = %+v", claims)
	}

	other := NewJWTAuthMiddleware(&JWTAuthConfig{JWTSecret: "different", Expiry: time.Hour})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with another secret should be rejected")
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	m := NewJWTAuthMiddleware(&JWTAuthConfig{Enabled: true, JWTSecret: "s", Expiry: -time.Minute})
	token, _, err := m.GenerateToken("usr-001", "alex")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestJWTAuth_Wrap(t *testing.T) {
	enabled := newJWT(true)
	disabled := newJWT(false)
	token, _, _ := enabled.GenerateToken("usr-002", "maria")

	tests := []struct {
		name       string
		m          *JWTAuthMiddleware
		path       string
		header     map[string]string
		wantStatus int
		wantUser   string
	}{
		{"enabled with token", enabled, "/incidents", map[string]string{"Authorization": "Bearer " + token}, 200, "usr-002"},
		{"enabled without token", enabled, "/incidents", nil, 401, ""},
		{"enabled with garbage token", enabled, "/incidents", map[string]string{"Authorization": "Bearer nope"}, 401, ""},
		{"enabled skip path", enabled, "/health", nil, 200, ""},
		{"enabled prefix skip path", enabled, "/webhook/alert/grafana", nil, 200, ""},
		{"disabled default user", disabled, "/incidents", nil, 200, "usr-001"},
		{"disabled user header", disabled, "/incidents", map[string]string{UserHeader: "usr-005"}, 200, "usr-005"},
		{"disabled honours token", disabled, "/me", map[string]string{"Authorization": "Bearer " + token}, 200, "usr-002"},
		{"disabled ignores garbage token", disabled, "/me", map[string]string{"Authorization": "Bearer nope"}, 200, "usr-001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			status, user := actingUser(t, tt.m, req)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if user != tt.wantUser {
				t.Errorf("user = %q, want %q", user, tt.wantUser)
			}
		})
	}
}

func TestJWTAuth_QueryToken(t *testing.T) {
	m := newJWT(true)
	token, _, _ := m.GenerateToken("usr-001", "alex")
	req := httptest.NewRequest(http.MethodGet, "/ws/events?token="+token, nil)
	if status, user := actingUser(t, m, req); status != 200 || user != "usr-001" {
		t.Errorf("status = %d user = %q", status, user)
	}
}

func TestLatency(t *testing.T) {
	called := false
	h := Latency(5*time.Millisecond, 10*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	start := time.Now()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/incidents", nil))
	if !called {
		t.Fatal("handler not called")
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 5ms", elapsed)
	}
}

func TestLatency_Cancelled(t *testing.T) {
	called := false
	h := Latency(time.Second, 2*time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/incidents", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if called {
		t.Error("cancelled request must not be dispatched")
	}
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestLatency_Disabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Latency(0, 0)(next)
	if _, ok := h.(http.HandlerFunc); !ok {
		t.Error("zero latency should return the handler unchanged")
	}
}

func TestRandomBetween(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := randomBetween(100*time.Millisecond, 300*time.Millisecond)
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("randomBetween() = %v", d)
		}
	}
	if d := randomBetween(time.Second, time.Millisecond); d != time.Second {
		t.Errorf("inverted range = %v", d)
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantStatus int
		wantAllow  string
	}{
		{"allow all", nil, "http://console.local", http.MethodGet, http.StatusTeapot, "http://console.local"},
		{"star entry", []string{"*"}, "http://x", http.MethodGet, http.StatusTeapot, "http://x"},
		{"listed origin", []string{"http://a"}, "http://a", http.MethodGet, http.StatusTeapot, "http://a"},
		{"unlisted origin", []string{"http://a"}, "http://b", http.MethodGet, http.StatusTeapot, ""},
		{"preflight", nil, "http://a", http.MethodOptions, http.StatusNoContent, "http://a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/incidents", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", "PATCH")
			}
			w := httptest.NewRecorder()
			NewCORSMiddleware(tt.origins...).Wrap(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("allow origin = %q, want %q", got, tt.wantAllow)
			}
			if tt.wantAllow != "" && !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), UserHeader) {
				t.Error("acting user header should be allowed")
			}
		})
	}
}

func TestMetrics_RecordsPattern(t *testing.T) {
	mux := http.NewServeMux()
	var pattern string
	mux.HandleFunc("GET /incidents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		pattern = r.Pattern
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/incidents/inc-001", nil))
	if pattern != "GET /incidents/{id}" {
		t.Errorf("pattern = %q", pattern)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}
