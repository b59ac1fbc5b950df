package handlers

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/services"
)

// AlertHandler handles webhook requests from the registered alert sources
type AlertHandler struct {
	registry *alerts.Registry
	ingest   *services.AlertIngestService
	secret   string
}

// NewAlertHandler creates a new alert handler. An empty secret accepts
// unauthenticated deliveries.
func NewAlertHandler(registry *alerts.Registry, ingest *services.AlertIngestService, secret string) *AlertHandler {
	return &AlertHandler{
		registry: registry,
		ingest:   ingest,
		secret:   secret,
	}
}

// SetupRoutes sets up webhook routes
func (h *AlertHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /webhook/sources", h.handleSources)
	mux.HandleFunc("POST /webhook/alert/{source}", h.HandleWebhook)
}

// HandleWebhook processes incoming webhook requests
// Route: POST /webhook/alert/{source}
func (h *AlertHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	log := logrus.WithField("source", source)

	adapter, ok := h.registry.Get(source)
	if !ok {
		api.RespondError(w, apierr.NotFound("Unknown alert source %q", source))
		return
	}

	if err := alerts.ValidateSecret(r, h.secret); err != nil {
		log.Warnf("Webhook secret validation failed from %s", r.RemoteAddr)
		api.RespondStatus(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, api.MaxBodySize))
	if err != nil {
		log.WithError(err).Warn("Error reading webhook body")
		api.RespondStatus(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	batch, err := adapter.ParsePayload(body)
	if err != nil {
		log.WithError(err).Warn("Error parsing webhook payload")
		api.RespondStatus(w, http.StatusBadRequest, "Invalid alert payload: "+err.Error())
		return
	}

	result, err := h.ingest.Ingest(r.Context(), source, batch)
	if err != nil {
		log.WithError(err).Error("Alert ingestion failed")
		api.RespondError(w, err)
		return
	}

	log.WithFields(logrus.Fields{
		"received":    result.Received,
		"created":     result.Created,
		"retriggered": result.Retriggered,
		"resolved":    result.Resolved,
		"silenced":    result.Silenced,
	}).Info("Processed alert webhook")
	api.RespondJSON(w, http.StatusOK, result)
}

// handleSources handles GET /webhook/sources
func (h *AlertHandler) handleSources(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.registry.Sources())
}
