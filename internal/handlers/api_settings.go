package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/models"
)

func (h *APIHandler) setupSettingsRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /settings/tags", h.handleListTags)
	mux.HandleFunc("POST /settings/tags", h.handleCreateTag)
	mux.HandleFunc("GET /settings/tags/{id}", h.handleGetTag)
	mux.HandleFunc("PATCH /settings/tags/{id}", h.handleUpdateTag)
	mux.HandleFunc("DELETE /settings/tags/{id}", h.handleDeleteTag)

	mux.HandleFunc("GET /settings/column-config/{page}", h.handleGetColumnConfig)
	mux.HandleFunc("PUT /settings/column-config/{page}", h.handleSaveColumnConfig)

	mux.HandleFunc("GET /settings/{section}", h.handleGetSettings)
	mux.HandleFunc("PUT /settings/{section}", h.handleUpdateSettings)
}

// handleGetSettings handles GET /settings/{section}
func (h *APIHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	section, err := h.svc.Settings.GetSection(r.Context(), r.PathValue("section"))
	respond(w, http.StatusOK, section, err)
}

// handleUpdateSettings handles PUT /settings/{section}. The body holds the
// values to merge; keys not present keep their stored value.
func (h *APIHandler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var values database.JSONB
	if err := api.DecodeJSON(r, &values); err != nil {
		api.RespondError(w, err)
		return
	}
	section, err := h.svc.Settings.UpdateSection(r.Context(), actingUser(r), r.PathValue("section"), values)
	respond(w, http.StatusOK, section, err)
}

// ========== Tags ==========

// handleListTags handles GET /settings/tags
func (h *APIHandler) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Settings.ListTags(r.Context(), r.URL.Query().Get("category"))
	respondList(w, r, tags, err)
}

func (h *APIHandler) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var tag models.Tag
	if !decode(w, r, &tag) {
		return
	}
	created, err := h.svc.Settings.CreateTag(r.Context(), actingUser(r), &tag)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.svc.Settings.GetTag(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, tag, err)
}

func (h *APIHandler) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	tag, err := h.svc.Settings.UpdateTag(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, tag, err)
}

func (h *APIHandler) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Settings.DeleteTag(r.Context(), actingUser(r), r.PathValue("id")))
}

// ========== Column Config ==========

// handleGetColumnConfig handles GET /settings/column-config/{page}
func (h *APIHandler) handleGetColumnConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Settings.ColumnConfig(r.Context(), actingUser(r), r.PathValue("page"))
	respond(w, http.StatusOK, cfg, err)
}

// handleSaveColumnConfig handles PUT /settings/column-config/{page}
func (h *APIHandler) handleSaveColumnConfig(w http.ResponseWriter, r *http.Request) {
	var req api.ColumnConfigRequest
	if !decode(w, r, &req) {
		return
	}
	cfg, err := h.svc.Settings.SaveColumnConfig(r.Context(), actingUser(r), r.PathValue("page"), req.Columns)
	respond(w, http.StatusOK, cfg, err)
}
