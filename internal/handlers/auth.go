package handlers

import (
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/middleware"
	"github.com/akmatori/opsconsole/internal/services"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	jwtAuth *middleware.JWTAuthMiddleware
	iam     *services.IAMService
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(jwtAuth *middleware.JWTAuthMiddleware, iam *services.IAMService) *AuthHandler {
	return &AuthHandler{
		jwtAuth: jwtAuth,
		iam:     iam,
	}
}

// SetupRoutes sets up authentication routes
func (h *AuthHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("GET /auth/verify", h.handleVerify)
}

// handleLogin handles POST /auth/login
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if !decode(w, r, &req) {
		return
	}

	user, err := h.iam.Authenticate(r.Context(), req, services.LoginMeta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		logrus.WithField("username", req.Username).Warnf("Failed login attempt from %s", r.RemoteAddr)
		api.RespondError(w, err)
		return
	}

	token, expiresAt, err := h.jwtAuth.GenerateToken(user.ID, user.Username)
	if err != nil {
		logrus.WithError(err).WithField("username", user.Username).Error("Failed to generate token")
		api.RespondStatus(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	logrus.WithField("username", user.Username).Infof("User logged in from %s", r.RemoteAddr)
	api.RespondJSON(w, http.StatusOK, api.NewLoginResponse(user, token, expiresAt))
}

// handleVerify handles GET /auth/verify - verifies the acting user is still active
func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	userID := actingUser(r)
	if userID == "" {
		api.RespondStatus(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.iam.ActiveUser(r.Context(), userID)
	if err != nil {
		api.RespondError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.VerifyResponse{Valid: true, User: user})
}

// clientIP strips the port from the remote address
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
