package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupAlertRuleRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /alert-rules", h.handleListAlertRules)
	mux.HandleFunc("POST /alert-rules", h.handleCreateAlertRule)
	mux.HandleFunc("GET /alert-rules/templates", h.handleAlertRuleTemplates)
	mux.HandleFunc("GET /alert-rules/count", h.handleAlertRuleCounts)
	mux.HandleFunc("POST /alert-rules/import", h.handleImportAlertRules)
	mux.HandleFunc("POST /alert-rules/batch-actions", h.handleAlertRuleBatch)
	mux.HandleFunc("GET /alert-rules/{id}", h.handleGetAlertRule)
	mux.HandleFunc("PATCH /alert-rules/{id}", h.handleUpdateAlertRule)
	mux.HandleFunc("PUT /alert-rules/{id}", h.handleReplaceAlertRule)
	mux.HandleFunc("DELETE /alert-rules/{id}", h.handleDeleteAlertRule)
	mux.HandleFunc("POST /alert-rules/{id}/test", h.handleTestAlertRule)
	mux.HandleFunc("GET /alert-rules/{id}/targets", h.handleAlertRuleTargets)
}

// handleListAlertRules handles GET /alert-rules
func (h *APIHandler) handleListAlertRules(w http.ResponseWriter, r *http.Request) {
	enabled, ok := queryBool(w, r, "enabled")
	if !ok {
		return
	}
	rules, err := h.svc.AlertRules.List(r.Context(), services.AlertRuleFilter{
		Enabled:  enabled,
		Severity: r.URL.Query().Get("severity"),
		Keyword:  api.Keyword(r),
	})
	respondList(w, r, rules, err)
}

// handleCreateAlertRule handles POST /alert-rules
func (h *APIHandler) handleCreateAlertRule(w http.ResponseWriter, r *http.Request) {
	var rule models.AlertRule
	if !decode(w, r, &rule) {
		return
	}
	created, err := h.svc.AlertRules.Create(r.Context(), actingUser(r), &rule)
	respond(w, http.StatusCreated, created, err)
}

// handleGetAlertRule handles GET /alert-rules/{id}
func (h *APIHandler) handleGetAlertRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.svc.AlertRules.Get(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, rule, err)
}

// handleUpdateAlertRule handles PATCH /alert-rules/{id}
func (h *APIHandler) handleUpdateAlertRule(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	rule, err := h.svc.AlertRules.Update(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, rule, err)
}

// handleReplaceAlertRule handles PUT /alert-rules/{id}
func (h *APIHandler) handleReplaceAlertRule(w http.ResponseWriter, r *http.Request) {
	var rule models.AlertRule
	if !decode(w, r, &rule) {
		return
	}
	replaced, err := h.svc.AlertRules.Replace(r.Context(), actingUser(r), r.PathValue("id"), &rule)
	respond(w, http.StatusOK, replaced, err)
}

// handleDeleteAlertRule handles DELETE /alert-rules/{id}
func (h *APIHandler) handleDeleteAlertRule(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.AlertRules.Delete(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleAlertRuleTemplates handles GET /alert-rules/templates
func (h *APIHandler) handleAlertRuleTemplates(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.AlertRules.Templates())
}

// handleAlertRuleCounts handles GET /alert-rules/count
func (h *APIHandler) handleAlertRuleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.AlertRules.Counts(r.Context())
	respond(w, http.StatusOK, counts, err)
}

// handleImportAlertRules handles POST /alert-rules/import
func (h *APIHandler) handleImportAlertRules(w http.ResponseWriter, r *http.Request) {
	var req api.ImportRulesRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.AlertRules.Import(r.Context(), actingUser(r), req.Rules)
	respond(w, http.StatusOK, result, err)
}

// handleAlertRuleBatch handles POST /alert-rules/batch-actions
func (h *APIHandler) handleAlertRuleBatch(w http.ResponseWriter, r *http.Request) {
	var req services.BatchRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.AlertRules.BatchAct(r.Context(), actingUser(r), req)
	respond(w, http.StatusOK, result, err)
}

// handleTestAlertRule handles POST /alert-rules/{id}/test
func (h *APIHandler) handleTestAlertRule(w http.ResponseWriter, r *http.Request) {
	var req services.RuleTestRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.AlertRules.Test(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, result, err)
}

// handleAlertRuleTargets handles GET /alert-rules/{id}/targets
func (h *APIHandler) handleAlertRuleTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.svc.AlertRules.Targets(r.Context(), r.PathValue("id"))
	respondList(w, r, targets, err)
}
