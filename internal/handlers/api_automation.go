package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupAutomationRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /automation/scripts", h.handleListScripts)
	mux.HandleFunc("POST /automation/scripts", h.handleCreateScript)
	mux.HandleFunc("GET /automation/scripts/{id}", h.handleGetScript)
	mux.HandleFunc("PATCH /automation/scripts/{id}", h.handleUpdateScript)
	mux.HandleFunc("DELETE /automation/scripts/{id}", h.handleDeleteScript)
	mux.HandleFunc("POST /automation/scripts/{id}/execute", h.handleExecuteScript)

	mux.HandleFunc("GET /automation/executions", h.handleListExecutions)
	mux.HandleFunc("GET /automation/executions/{id}", h.handleGetExecution)
	mux.HandleFunc("POST /automation/executions/{id}/retry", h.handleRetryExecution)
}

// handleListScripts handles GET /automation/scripts
func (h *APIHandler) handleListScripts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scripts, err := h.svc.Automation.ListScripts(r.Context(), services.ScriptFilter{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Keyword:  api.Keyword(r),
	})
	respondList(w, r, scripts, err)
}

// handleCreateScript handles POST /automation/scripts
func (h *APIHandler) handleCreateScript(w http.ResponseWriter, r *http.Request) {
	var script models.Playbook
	if !decode(w, r, &script) {
		return
	}
	created, err := h.svc.Automation.CreateScript(r.Context(), actingUser(r), &script)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetScript(w http.ResponseWriter, r *http.Request) {
	script, err := h.svc.Automation.GetScript(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, script, err)
}

func (h *APIHandler) handleUpdateScript(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	script, err := h.svc.Automation.UpdateScript(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, script, err)
}

func (h *APIHandler) handleDeleteScript(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Automation.DeleteScript(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleExecuteScript handles POST /automation/scripts/{id}/execute.
// The execution is returned queued; progress arrives over /ws/events.
func (h *APIHandler) handleExecuteScript(w http.ResponseWriter, r *http.Request) {
	var req services.ExecuteRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	execution, err := h.svc.Automation.Execute(r.Context(), actingUser(r), r.PathValue("id"), req)
	respond(w, http.StatusCreated, execution, err)
}

// handleListExecutions handles GET /automation/executions
func (h *APIHandler) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	executions, err := h.svc.Automation.ListExecutions(r.Context(), services.ExecutionFilter{
		ScriptID:   q.Get("script_id"),
		Status:     q.Get("status"),
		IncidentID: q.Get("incident_id"),
	})
	if err != nil {
		api.RespondError(w, err)
		return
	}
	api.RespondList(w, r, api.ExecutionsToListItems(executions))
}

// handleGetExecution handles GET /automation/executions/{id}
func (h *APIHandler) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	execution, err := h.svc.Automation.GetExecution(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, execution, err)
}

// handleRetryExecution handles POST /automation/executions/{id}/retry
func (h *APIHandler) handleRetryExecution(w http.ResponseWriter, r *http.Request) {
	execution, err := h.svc.Automation.Retry(r.Context(), actingUser(r), r.PathValue("id"))
	respond(w, http.StatusCreated, execution, err)
}
