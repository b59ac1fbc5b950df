package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupAnalyticsRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /analytics", h.handleListSnapshots)
	mux.HandleFunc("GET /analytics/overview", h.handleAnalyticsOverview)
	mux.HandleFunc("GET /analytics/{snapshot}", h.handleGetSnapshot)
	mux.HandleFunc("GET /audit-logs", h.handleListAuditLogs)
}

// handleAnalyticsOverview handles GET /analytics/overview
func (h *APIHandler) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Analytics.Overview(r.Context())
	respond(w, http.StatusOK, overview, err)
}

// handleListSnapshots handles GET /analytics
func (h *APIHandler) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.svc.Analytics.Snapshots(r.Context())
	respondList(w, r, snapshots, err)
}

// handleGetSnapshot handles GET /analytics/{snapshot}
func (h *APIHandler) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.Analytics.Snapshot(r.Context(), r.PathValue("snapshot"))
	respond(w, http.StatusOK, snapshot, err)
}

// handleListAuditLogs handles GET /audit-logs
func (h *APIHandler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logs, err := h.svc.Audit.List(r.Context(), services.AuditFilter{
		UserID:     q.Get("user_id"),
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	})
	respondList(w, r, logs, err)
}
