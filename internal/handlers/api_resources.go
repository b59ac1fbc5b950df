package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupResourceRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /resources", h.handleListResources)
	mux.HandleFunc("POST /resources", h.handleCreateResource)
	mux.HandleFunc("POST /resources/batch-actions", h.handleResourceBatch)
	mux.HandleFunc("POST /resources/import", h.handleImportResources)
	mux.HandleFunc("GET /resources/options", h.handleResourceOptions)
	mux.HandleFunc("GET /resources/overview", h.handleResourceOverview)
	mux.HandleFunc("GET /resources/topology", h.handleResourceTopology)
	mux.HandleFunc("GET /resources/count", h.handleResourceCount)
	mux.HandleFunc("GET /resources/resource-types", h.handleResourceTypes)
	mux.HandleFunc("GET /resources/exporter-types", h.handleExporterTypes)
	mux.HandleFunc("GET /resources/{id}", h.handleGetResource)
	mux.HandleFunc("PATCH /resources/{id}", h.handleUpdateResource)
	mux.HandleFunc("DELETE /resources/{id}", h.handleDeleteResource)
	// /resources/{id}/metrics shares its shape with /resources/datasources/{id},
	// so the sub-view is a wildcard the more specific literal routes win over.
	mux.HandleFunc("GET /resources/{id}/{view}", h.handleResourceView)

	mux.HandleFunc("GET /resources/datasources", h.handleListDatasources)
	mux.HandleFunc("POST /resources/datasources", h.handleCreateDatasource)
	mux.HandleFunc("GET /resources/datasources/{id}", h.handleGetDatasource)
	mux.HandleFunc("PATCH /resources/datasources/{id}", h.handleUpdateDatasource)
	mux.HandleFunc("DELETE /resources/datasources/{id}", h.handleDeleteDatasource)

	mux.HandleFunc("GET /resources/discovery-jobs", h.handleListDiscoveryJobs)
	mux.HandleFunc("POST /resources/discovery-jobs", h.handleCreateDiscoveryJob)
	mux.HandleFunc("GET /resources/discovery-jobs/{id}", h.handleGetDiscoveryJob)
	mux.HandleFunc("PATCH /resources/discovery-jobs/{id}", h.handleUpdateDiscoveryJob)
	mux.HandleFunc("DELETE /resources/discovery-jobs/{id}", h.handleDeleteDiscoveryJob)
	mux.HandleFunc("POST /resources/discovery-jobs/{id}/run", h.handleRunDiscoveryJob)

	mux.HandleFunc("GET /resource-groups", h.handleListGroups)
	mux.HandleFunc("POST /resource-groups", h.handleCreateGroup)
	mux.HandleFunc("GET /resource-groups/{id}", h.handleGetGroup)
	mux.HandleFunc("PATCH /resource-groups/{id}", h.handleUpdateGroup)
	mux.HandleFunc("DELETE /resource-groups/{id}", h.handleDeleteGroup)
}

func resourceFilter(r *http.Request) services.ResourceFilter {
	q := r.URL.Query()
	return services.ResourceFilter{
		Type:     q.Get("type"),
		Provider: q.Get("provider"),
		Region:   q.Get("region"),
		Status:   q.Get("status"),
		Owner:    q.Get("owner"),
		Tag:      q.Get("tag"),
		GroupID:  q.Get("group_id"),
		Keyword:  api.Keyword(r),
	}
}

// ========== Resources ==========

// handleListResources handles GET /resources
func (h *APIHandler) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.svc.Resources.List(r.Context(), resourceFilter(r))
	respondList(w, r, resources, err)
}

// handleCreateResource handles POST /resources
func (h *APIHandler) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var resource models.Resource
	if !decode(w, r, &resource) {
		return
	}
	created, err := h.svc.Resources.Create(r.Context(), actingUser(r), &resource)
	respond(w, http.StatusCreated, created, err)
}

// handleGetResource handles GET /resources/{id}
func (h *APIHandler) handleGetResource(w http.ResponseWriter, r *http.Request) {
	resource, err := h.svc.Resources.Get(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, resource, err)
}

// handleUpdateResource handles PATCH /resources/{id}
func (h *APIHandler) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	resource, err := h.svc.Resources.Update(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, resource, err)
}

// handleDeleteResource handles DELETE /resources/{id}
func (h *APIHandler) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Resources.Delete(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleResourceView handles GET /resources/{id}/metrics
func (h *APIHandler) handleResourceView(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("view") != "metrics" {
		handleNotFound(w, r)
		return
	}
	m, err := h.svc.Resources.Metrics(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, m, err)
}

// handleResourceBatch handles POST /resources/batch-actions
func (h *APIHandler) handleResourceBatch(w http.ResponseWriter, r *http.Request) {
	var req services.BatchRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Resources.BatchAct(r.Context(), actingUser(r), req)
	respond(w, http.StatusOK, result, err)
}

// handleImportResources handles POST /resources/import
func (h *APIHandler) handleImportResources(w http.ResponseWriter, r *http.Request) {
	var req api.ImportResourcesRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Resources.Import(r.Context(), actingUser(r), req.Resources)
	respond(w, http.StatusOK, result, err)
}

// handleResourceOptions handles GET /resources/options
func (h *APIHandler) handleResourceOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.svc.Resources.Options(r.Context())
	respond(w, http.StatusOK, options, err)
}

// handleResourceOverview handles GET /resources/overview
func (h *APIHandler) handleResourceOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Resources.Overview(r.Context())
	respond(w, http.StatusOK, overview, err)
}

// handleResourceTopology handles GET /resources/topology
func (h *APIHandler) handleResourceTopology(w http.ResponseWriter, r *http.Request) {
	topology, err := h.svc.Resources.Topology(r.Context())
	respond(w, http.StatusOK, topology, err)
}

// handleResourceCount handles GET /resources/count
func (h *APIHandler) handleResourceCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Resources.Count(r.Context(), resourceFilter(r))
	respond(w, http.StatusOK, api.CountResponse{Count: n}, err)
}

// handleResourceTypes handles GET /resources/resource-types
func (h *APIHandler) handleResourceTypes(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.Resources.ResourceTypes())
}

// handleExporterTypes handles GET /resources/exporter-types
func (h *APIHandler) handleExporterTypes(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.svc.Resources.ExporterTypes())
}

// ========== Datasources ==========

func (h *APIHandler) handleListDatasources(w http.ResponseWriter, r *http.Request) {
	datasources, err := h.svc.Resources.ListDatasources(r.Context())
	respondList(w, r, datasources, err)
}

func (h *APIHandler) handleCreateDatasource(w http.ResponseWriter, r *http.Request) {
	var ds models.Datasource
	if !decode(w, r, &ds) {
		return
	}
	created, err := h.svc.Resources.CreateDatasource(r.Context(), actingUser(r), &ds)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetDatasource(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.Resources.GetDatasource(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, ds, err)
}

func (h *APIHandler) handleUpdateDatasource(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	ds, err := h.svc.Resources.UpdateDatasource(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, ds, err)
}

func (h *APIHandler) handleDeleteDatasource(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Resources.DeleteDatasource(r.Context(), actingUser(r), r.PathValue("id")))
}

// ========== Discovery Jobs ==========

func (h *APIHandler) handleListDiscoveryJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.svc.Resources.ListDiscoveryJobs(r.Context())
	respondList(w, r, jobs, err)
}

func (h *APIHandler) handleCreateDiscoveryJob(w http.ResponseWriter, r *http.Request) {
	var job models.DiscoveryJob
	if !decode(w, r, &job) {
		return
	}
	created, err := h.svc.Resources.CreateDiscoveryJob(r.Context(), actingUser(r), &job)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetDiscoveryJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Resources.GetDiscoveryJob(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, job, err)
}

func (h *APIHandler) handleUpdateDiscoveryJob(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	job, err := h.svc.Resources.UpdateDiscoveryJob(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, job, err)
}

func (h *APIHandler) handleDeleteDiscoveryJob(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Resources.DeleteDiscoveryJob(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleRunDiscoveryJob handles POST /resources/discovery-jobs/{id}/run
func (h *APIHandler) handleRunDiscoveryJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Resources.RunDiscoveryJob(r.Context(), actingUser(r), r.PathValue("id"))
	respond(w, http.StatusOK, job, err)
}

// ========== Resource Groups ==========

func (h *APIHandler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Resources.ListGroups(r.Context())
	respondList(w, r, groups, err)
}

func (h *APIHandler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var group models.ResourceGroup
	if !decode(w, r, &group) {
		return
	}
	created, err := h.svc.Resources.CreateGroup(r.Context(), actingUser(r), &group)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.svc.Resources.GetGroup(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, group, err)
}

func (h *APIHandler) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	group, err := h.svc.Resources.UpdateGroup(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, group, err)
}

func (h *APIHandler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Resources.DeleteGroup(r.Context(), actingUser(r), r.PathValue("id")))
}
