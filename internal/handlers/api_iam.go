package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupIAMRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /users", h.handleListUsers)
	mux.HandleFunc("POST /users", h.handleCreateUser)
	mux.HandleFunc("GET /users/{id}", h.handleGetUser)
	mux.HandleFunc("PATCH /users/{id}", h.handleUpdateUser)
	mux.HandleFunc("DELETE /users/{id}", h.handleDeleteUser)

	mux.HandleFunc("GET /teams", h.handleListTeams)
	mux.HandleFunc("POST /teams", h.handleCreateTeam)
	mux.HandleFunc("GET /teams/{id}", h.handleGetTeam)
	mux.HandleFunc("PATCH /teams/{id}", h.handleUpdateTeam)
	mux.HandleFunc("DELETE /teams/{id}", h.handleDeleteTeam)

	mux.HandleFunc("GET /roles", h.handleListRoles)
	mux.HandleFunc("POST /roles", h.handleCreateRole)
	mux.HandleFunc("GET /roles/{id}", h.handleGetRole)
	mux.HandleFunc("PATCH /roles/{id}", h.handleUpdateRole)
	mux.HandleFunc("DELETE /roles/{id}", h.handleDeleteRole)

	mux.HandleFunc("GET /me", h.handleMe)
	mux.HandleFunc("GET /me/preferences", h.handleGetPreferences)
	mux.HandleFunc("PUT /me/preferences", h.handleUpdatePreferences)
	mux.HandleFunc("GET /me/login-history", h.handleLoginHistory)
	mux.HandleFunc("POST /me/change-password", h.handleChangePassword)
}

// ========== Users ==========

// handleListUsers handles GET /users
func (h *APIHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.svc.IAM.ListUsers(r.Context(), q.Get("role"), q.Get("team"), q.Get("status"), api.Keyword(r))
	respondList(w, r, users, err)
}

// handleCreateUser handles POST /users
func (h *APIHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.CreateUserInput
	if !decode(w, r, &req) {
		return
	}
	user, err := h.svc.IAM.CreateUser(r.Context(), actingUser(r), req)
	respond(w, http.StatusCreated, user, err)
}

func (h *APIHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.IAM.GetUser(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, user, err)
}

func (h *APIHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	user, err := h.svc.IAM.UpdateUser(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, user, err)
}

func (h *APIHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.IAM.DeleteUser(r.Context(), actingUser(r), r.PathValue("id")))
}

// ========== Teams ==========

func (h *APIHandler) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.IAM.ListTeams(r.Context())
	respondList(w, r, teams, err)
}

func (h *APIHandler) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var team models.Team
	if !decode(w, r, &team) {
		return
	}
	created, err := h.svc.IAM.CreateTeam(r.Context(), actingUser(r), &team)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.svc.IAM.GetTeam(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, team, err)
}

func (h *APIHandler) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	team, err := h.svc.IAM.UpdateTeam(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, team, err)
}

func (h *APIHandler) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.IAM.DeleteTeam(r.Context(), actingUser(r), r.PathValue("id")))
}

// ========== Roles ==========

func (h *APIHandler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.IAM.ListRoles(r.Context())
	respondList(w, r, roles, err)
}

func (h *APIHandler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var role models.Role
	if !decode(w, r, &role) {
		return
	}
	created, err := h.svc.IAM.CreateRole(r.Context(), actingUser(r), &role)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.svc.IAM.GetRole(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, role, err)
}

func (h *APIHandler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	role, err := h.svc.IAM.UpdateRole(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, role, err)
}

// handleDeleteRole handles DELETE /roles/{id}; built-in roles are refused
func (h *APIHandler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.IAM.DeleteRole(r.Context(), actingUser(r), r.PathValue("id")))
}

// ========== Current User ==========

// handleMe handles GET /me
func (h *APIHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.IAM.Me(r.Context(), actingUser(r))
	respond(w, http.StatusOK, user, err)
}

// handleGetPreferences handles GET /me/preferences
func (h *APIHandler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.IAM.Preferences(r.Context(), actingUser(r))
	respond(w, http.StatusOK, prefs, err)
}

// handleUpdatePreferences handles PUT /me/preferences. The body is merged
// into the stored preferences one top-level key at a time.
func (h *APIHandler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	prefs, err := h.svc.IAM.UpdatePreferences(r.Context(), actingUser(r), patch)
	respond(w, http.StatusOK, prefs, err)
}

// handleLoginHistory handles GET /me/login-history
func (h *APIHandler) handleLoginHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.IAM.LoginHistory(r.Context(), actingUser(r))
	respondList(w, r, history, err)
}

// handleChangePassword handles POST /me/change-password
func (h *APIHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req services.ChangePasswordInput
	if !decode(w, r, &req) {
		return
	}
	respondSuccess(w, h.svc.IAM.ChangePassword(r.Context(), actingUser(r), req))
}
