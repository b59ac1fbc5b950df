package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/middleware"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
)

// HTTPHandler serves the operational endpoints
type HTTPHandler struct {
	backend database.Backend
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(backend database.Backend) *HTTPHandler {
	return &HTTPHandler{backend: backend}
}

// SetupRoutes configures the operational routes
func (h *HTTPHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// handleHealth reports whether the store answers
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{Status: "ok", Store: "ok", Timestamp: time.Now().UTC()}
	if _, err := h.backend.Count(r.Context(), models.CollectionIncidents); err != nil {
		logrus.WithError(err).Error("Health check: store unavailable")
		resp.Status = "degraded"
		resp.Store = "unavailable"
		api.RespondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	api.RespondJSON(w, http.StatusOK, resp)
}

// RouterOptions carries everything the HTTP surface is built from
type RouterOptions struct {
	Services       *services.Services
	Hub            *events.Hub
	Auth           *middleware.JWTAuthMiddleware
	Alerts         *alerts.Registry
	WebhookSecret  string
	AllowedOrigins []string
	LatencyMin     time.Duration
	LatencyMax     time.Duration
}

// NewRouter registers every route on one ServeMux and wraps it in the
// middleware chain: request id, CORS, logging, authentication, simulated
// latency, then metrics around the mux itself.
func NewRouter(opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	NewHTTPHandler(opts.Services.Store.Backend).SetupRoutes(mux)
	NewAuthHandler(opts.Auth, opts.Services.IAM).SetupRoutes(mux)
	NewAlertHandler(opts.Alerts, opts.Services.Ingest, opts.WebhookSecret).SetupRoutes(mux)
	NewEventsWSHandler(opts.Hub).SetupRoutes(mux)
	NewAPIHandler(opts.Services).SetupRoutes(mux)

	var handler http.Handler = middleware.Metrics(mux)
	handler = middleware.Latency(opts.LatencyMin, opts.LatencyMax)(handler)
	handler = opts.Auth.Wrap(handler)
	handler = middleware.Logging(handler)
	handler = middleware.NewCORSMiddleware(opts.AllowedOrigins...).Wrap(handler)
	return middleware.RequestIDMiddleware(handler)
}

// AuthSkipPaths are reachable without a token when authentication is enabled
var AuthSkipPaths = []string{"/health", "/metrics", "/auth/login", "/webhook/*"}
