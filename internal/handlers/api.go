package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/middleware"
	"github.com/akmatori/opsconsole/internal/services"
)

// APIHandler serves the console REST surface over the entity services
type APIHandler struct {
	svc *services.Services
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(svc *services.Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// SetupRoutes registers the route table. Literal segments such as
// /incidents/count always win over /incidents/{id}; every request no route
// matches is answered by the catch-all with a 404.
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	h.setupIncidentRoutes(mux)
	h.setupAlertRuleRoutes(mux)
	h.setupSilenceRoutes(mux)
	h.setupResourceRoutes(mux)
	h.setupIAMRoutes(mux)
	h.setupAutomationRoutes(mux)
	h.setupNotificationRoutes(mux)
	h.setupDashboardRoutes(mux)
	h.setupSettingsRoutes(mux)
	h.setupUIRoutes(mux)
	h.setupAnalyticsRoutes(mux)

	mux.HandleFunc("/", handleNotFound)
}

// handleNotFound answers every unmatched method and path
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	api.RespondStatus(w, http.StatusNotFound, r.Method+" "+r.URL.Path+" Endpoint Not Found")
}

// actingUser returns the id of the user the request acts as
func actingUser(r *http.Request) string {
	return middleware.GetUserFromContext(r.Context())
}

// respond writes data with status, or err in the standard error shape
func respond(w http.ResponseWriter, status int, data interface{}, err error) {
	if err != nil {
		api.RespondError(w, err)
		return
	}
	api.RespondJSON(w, status, data)
}

// respondList writes a sorted, paginated list, or err
func respondList[T any](w http.ResponseWriter, r *http.Request, items []T, err error) {
	if err != nil {
		api.RespondError(w, err)
		return
	}
	api.RespondList(w, r, items)
}

// respondSuccess writes {"success": true}, or err
func respondSuccess(w http.ResponseWriter, err error) {
	if err != nil {
		api.RespondError(w, err)
		return
	}
	api.RespondSuccess(w)
}

// decode reads a validated body into dst, answering the request on failure
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := api.DecodeValid(r, dst); err != nil {
		api.RespondError(w, err)
		return false
	}
	return true
}

// decodePatch reads a shallow-merge body, answering the request on failure
func decodePatch(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, bool) {
	patch, err := api.DecodePatch(r)
	if err != nil {
		api.RespondError(w, err)
		return nil, false
	}
	return patch, true
}

// queryBool parses an optional boolean filter, answering the request on failure
func queryBool(w http.ResponseWriter, r *http.Request, key string) (*bool, bool) {
	b, err := api.QueryBool(r, key)
	if err != nil {
		api.RespondError(w, err)
		return nil, false
	}
	return b, true
}
