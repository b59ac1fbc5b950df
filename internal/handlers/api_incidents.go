package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupIncidentRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /incidents", h.handleListIncidents)
	mux.HandleFunc("POST /incidents", h.handleCreateIncident)
	mux.HandleFunc("GET /incidents/count", h.handleIncidentCounts)
	mux.HandleFunc("GET /incidents/options", h.handleIncidentOptions)
	mux.HandleFunc("POST /incidents/batch-actions", h.handleIncidentBatch)
	mux.HandleFunc("GET /incidents/{id}", h.handleGetIncident)
	mux.HandleFunc("PATCH /incidents/{id}", h.handleUpdateIncident)
	mux.HandleFunc("DELETE /incidents/{id}", h.handleDeleteIncident)
	mux.HandleFunc("POST /incidents/{id}/actions", h.handleIncidentAction)
}

// handleListIncidents handles GET /incidents
func (h *APIHandler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	incidents, err := h.svc.Incidents.List(r.Context(), services.IncidentFilter{
		Status:     q.Get("status"),
		Severity:   q.Get("severity"),
		Assignee:   q.Get("assignee"),
		ResourceID: q.Get("resource_id"),
		Keyword:    api.Keyword(r),
	})
	respondList(w, r, incidents, err)
}

// handleCreateIncident handles POST /incidents
func (h *APIHandler) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var req services.CreateIncidentInput
	if !decode(w, r, &req) {
		return
	}
	incident, err := h.svc.Incidents.Create(r.Context(), actingUser(r), req)
	respond(w, http.StatusCreated, incident, err)
}

// handleGetIncident handles GET /incidents/{id}
func (h *APIHandler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.svc.Incidents.Get(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, incident, err)
}

// handleUpdateIncident handles PATCH /incidents/{id}
func (h *APIHandler) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	incident, err := h.svc.Incidents.Update(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, incident, err)
}

// handleDeleteIncident handles DELETE /incidents/{id}
func (h *APIHandler) handleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Incidents.Delete(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleIncidentAction handles POST /incidents/{id}/actions
func (h *APIHandler) handleIncidentAction(w http.ResponseWriter, r *http.Request) {
	var req services.IncidentActionRequest
	if !decode(w, r, &req) {
		return
	}
	incident, err := h.svc.Incidents.Act(r.Context(), actingUser(r), r.PathValue("id"), req)
	respond(w, http.StatusOK, incident, err)
}

// handleIncidentBatch handles POST /incidents/batch-actions
func (h *APIHandler) handleIncidentBatch(w http.ResponseWriter, r *http.Request) {
	var req services.BatchRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Incidents.BatchAct(r.Context(), actingUser(r), req)
	respond(w, http.StatusOK, result, err)
}

// handleIncidentCounts handles GET /incidents/count
func (h *APIHandler) handleIncidentCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Incidents.Counts(r.Context())
	respond(w, http.StatusOK, counts, err)
}

// handleIncidentOptions handles GET /incidents/options
func (h *APIHandler) handleIncidentOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.svc.Incidents.Options(r.Context())
	respond(w, http.StatusOK, options, err)
}
