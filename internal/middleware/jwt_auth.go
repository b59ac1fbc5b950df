package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/api"
)

const tokenIssuer = "opsconsole"

// UserHeader names the acting user while authentication is disabled
const UserHeader = "X-User-ID"

// UserClaims represents the JWT claims for a user. The subject is the user id.
type UserClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTAuthConfig holds JWT authentication configuration
type JWTAuthConfig struct {
	// Enabled determines if a token is required on every request
	Enabled bool

	// JWTSecret is the secret key for signing JWT tokens
	JWTSecret string

	// Expiry is the lifetime of issued tokens
	Expiry time.Duration

	// DefaultUserID is the acting user of unauthenticated requests when auth is disabled
	DefaultUserID string

	// SkipPaths are paths that don't require authentication; a trailing * matches a prefix
	SkipPaths []string
}

// JWTAuthMiddleware resolves the acting user of every request
type JWTAuthMiddleware struct {
	config  *JWTAuthConfig
	mu      sync.RWMutex
	skipMap map[string]bool
}

// ContextKey is a type for context keys
type ContextKey string

const (
	// UserContextKey is the context key for the acting user id
	UserContextKey ContextKey = "user"
)

// NewJWTAuthMiddleware creates a new JWT authentication middleware
func NewJWTAuthMiddleware(config *JWTAuthConfig) *JWTAuthMiddleware {
	m := &JWTAuthMiddleware{
		config:  config,
		skipMap: make(map[string]bool),
	}
	for _, path := range config.SkipPaths {
		m.skipMap[path] = true
	}
	return m
}

// GenerateToken signs a token for the user and returns it with its expiry
func (m *JWTAuthMiddleware) GenerateToken(userID, username string) (string, time.Time, error) {
	m.mu.RLock()
	secret := m.config.JWTSecret
	expiry := m.config.Expiry
	m.mu.RUnlock()

	now := time.Now()
	expiresAt := now.Add(expiry)
	claims := UserClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	return signed, expiresAt, err
}

// ValidateToken validates a JWT token and returns the claims
func (m *JWTAuthMiddleware) ValidateToken(tokenString string) (*UserClaims, error) {
	m.mu.RLock()
	secret := m.config.JWTSecret
	m.mu.RUnlock()

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Wrap resolves the acting user and stores its id in the request context.
// With auth enabled a valid bearer token is required outside the skip paths.
// With auth disabled a valid token is still honoured; otherwise the X-User-ID
// header or the default user acts.
func (m *JWTAuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		enabled := m.config.Enabled
		defaultUser := m.config.DefaultUserID
		m.mu.RUnlock()

		tokenString := extractToken(r)
		var userID string
		if tokenString != "" {
			claims, err := m.ValidateToken(tokenString)
			switch {
			case err == nil:
				userID = claims.Subject
			case enabled && !m.shouldSkipAuth(r.URL.Path):
				logrus.Warnf("Invalid token from %s: %v", r.RemoteAddr, err)
				m.unauthorized(w, "Invalid or expired token")
				return
			}
		}

		if userID == "" {
			switch {
			case !enabled:
				userID = r.Header.Get(UserHeader)
				if userID == "" {
					userID = defaultUser
				}
			case !m.shouldSkipAuth(r.URL.Path):
				m.unauthorized(w, "Missing authentication token")
				return
			}
		}

		ctx := WithUser(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// shouldSkipAuth checks if the path should skip authentication
func (m *JWTAuthMiddleware) shouldSkipAuth(path string) bool {
	if m.skipMap[path] {
		return true
	}
	for skipPath := range m.skipMap {
		if strings.HasSuffix(skipPath, "*") && strings.HasPrefix(path, strings.TrimSuffix(skipPath, "*")) {
			return true
		}
	}
	return false
}

// extractToken extracts the bearer token from the request. WebSocket clients
// cannot set headers, so the token query parameter is accepted too.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (m *JWTAuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer realm=\"API\"")
	api.RespondStatus(w, http.StatusUnauthorized, message)
}

// SetEnabled enables or disables authentication
func (m *JWTAuthMiddleware) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Enabled = enabled
}

// IsEnabled returns whether authentication is enabled
func (m *JWTAuthMiddleware) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Enabled
}

// WithUser returns a context carrying the acting user id
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserContextKey, userID)
}

// GetUserFromContext returns the acting user id from the request context
func GetUserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(UserContextKey).(string); ok {
		return user
	}
	return ""
}
