package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupSilenceRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /silence-rules", h.handleListSilences)
	mux.HandleFunc("POST /silence-rules", h.handleCreateSilence)
	mux.HandleFunc("POST /silence-rules/batch-actions", h.handleSilenceBatch)
	mux.HandleFunc("GET /silence-rules/{id}", h.handleGetSilence)
	mux.HandleFunc("PATCH /silence-rules/{id}", h.handleUpdateSilence)
	mux.HandleFunc("DELETE /silence-rules/{id}", h.handleDeleteSilence)
	mux.HandleFunc("GET /silence-rules/{id}/status", h.handleSilenceStatus)
}

// handleListSilences handles GET /silence-rules
func (h *APIHandler) handleListSilences(w http.ResponseWriter, r *http.Request) {
	enabled, ok := queryBool(w, r, "enabled")
	if !ok {
		return
	}
	active, ok := queryBool(w, r, "active")
	if !ok {
		return
	}
	filter := services.SilenceFilter{
		Enabled: enabled,
		Type:    r.URL.Query().Get("type"),
		Active:  active,
	}
	if raw := r.URL.Query().Get("matchers"); raw != "" {
		matchers, err := services.ParseMatchers(raw)
		if err != nil {
			api.RespondError(w, err)
			return
		}
		filter.Matchers = matchers
	}
	rules, err := h.svc.Silences.List(r.Context(), filter)
	respondList(w, r, rules, err)
}

// handleCreateSilence handles POST /silence-rules
func (h *APIHandler) handleCreateSilence(w http.ResponseWriter, r *http.Request) {
	var rule models.SilenceRule
	if !decode(w, r, &rule) {
		return
	}
	created, err := h.svc.Silences.Create(r.Context(), actingUser(r), &rule)
	respond(w, http.StatusCreated, created, err)
}

// handleGetSilence handles GET /silence-rules/{id}
func (h *APIHandler) handleGetSilence(w http.ResponseWriter, r *http.Request) {
	rule, err := h.svc.Silences.Get(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, rule, err)
}

// handleUpdateSilence handles PATCH /silence-rules/{id}
func (h *APIHandler) handleUpdateSilence(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	rule, err := h.svc.Silences.Update(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, rule, err)
}

// handleDeleteSilence handles DELETE /silence-rules/{id}
func (h *APIHandler) handleDeleteSilence(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Silences.Delete(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleSilenceBatch handles POST /silence-rules/batch-actions
func (h *APIHandler) handleSilenceBatch(w http.ResponseWriter, r *http.Request) {
	var req services.BatchRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Silences.BatchAct(r.Context(), actingUser(r), req)
	respond(w, http.StatusOK, result, err)
}

// handleSilenceStatus handles GET /silence-rules/{id}/status
func (h *APIHandler) handleSilenceStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Silences.Status(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, status, err)
}
