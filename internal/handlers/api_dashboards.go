package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupDashboardRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboards", h.handleListDashboards)
	mux.HandleFunc("POST /dashboards", h.handleCreateDashboard)
	mux.HandleFunc("GET /dashboards/templates", h.handleDashboardTemplates)
	mux.HandleFunc("GET /dashboards/widgets", h.handleWidgetTypes)
	mux.HandleFunc("GET /dashboards/layouts", h.handleLayoutPresets)
	mux.HandleFunc("GET /dashboards/{id}", h.handleGetDashboard)
	mux.HandleFunc("PATCH /dashboards/{id}", h.handleUpdateDashboard)
	mux.HandleFunc("DELETE /dashboards/{id}", h.handleDeleteDashboard)
	mux.HandleFunc("PUT /dashboards/{id}/layout", h.handleUpdateLayout)
}

// handleListDashboards handles GET /dashboards
func (h *APIHandler) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dashboards, err := h.svc.Dashboards.List(r.Context(), q.Get("category"), q.Get("owner"))
	respondList(w, r, dashboards, err)
}

// handleCreateDashboard handles POST /dashboards
func (h *APIHandler) handleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var req services.CreateDashboardInput
	if !decode(w, r, &req) {
		return
	}
	dashboard, err := h.svc.Dashboards.Create(r.Context(), actingUser(r), req)
	respond(w, http.StatusCreated, dashboard, err)
}

func (h *APIHandler) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.svc.Dashboards.Get(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, dashboard, err)
}

func (h *APIHandler) handleUpdateDashboard(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	dashboard, err := h.svc.Dashboards.Update(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, dashboard, err)
}

func (h *APIHandler) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Dashboards.Delete(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleUpdateLayout handles PUT /dashboards/{id}/layout
func (h *APIHandler) handleUpdateLayout(w http.ResponseWriter, r *http.Request) {
	var req api.LayoutRequest
	if !decode(w, r, &req) {
		return
	}
	dashboard, err := h.svc.Dashboards.UpdateLayout(r.Context(), actingUser(r), r.PathValue("id"), req.Layout)
	respond(w, http.StatusOK, dashboard, err)
}

func (h *APIHandler) handleDashboardTemplates(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.Dashboards.Templates())
}

func (h *APIHandler) handleWidgetTypes(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.Dashboards.WidgetTypes())
}

func (h *APIHandler) handleLayoutPresets(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.Dashboards.Layouts())
}
