package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
)

func (h *APIHandler) setupUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ui/metadata", h.handleUIMetadata)
	mux.HandleFunc("GET /ui/icons", h.handleUIIcons)
	mux.HandleFunc("GET /ui/themes", h.handleUIThemes)
	mux.HandleFunc("GET /ui/tabs/{page}", h.handleUITabs)
	mux.HandleFunc("GET /ui/content/{page}", h.handleUIContent)
	mux.HandleFunc("GET /ui/columns/{page}", h.handleUIColumns)
}

func (h *APIHandler) handleUIMetadata(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.UI.Metadata())
}

func (h *APIHandler) handleUIIcons(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.UI.Icons())
}

func (h *APIHandler) handleUIThemes(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.UI.Themes())
}

// handleUITabs handles GET /ui/tabs/{page}
func (h *APIHandler) handleUITabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := h.svc.UI.Tabs(r.PathValue("page"))
	respond(w, http.StatusOK, tabs, err)
}

// handleUIContent handles GET /ui/content/{page}
func (h *APIHandler) handleUIContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.svc.UI.Content(r.PathValue("page"))
	respond(w, http.StatusOK, content, err)
}

// handleUIColumns handles GET /ui/columns/{page}
func (h *APIHandler) handleUIColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := h.svc.UI.Columns(r.PathValue("page"))
	respond(w, http.StatusOK, columns, err)
}
