package handlers

import (
	"net/http"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
)

func (h *APIHandler) setupNotificationRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /notification-channels", h.handleListChannels)
	mux.HandleFunc("POST /notification-channels", h.handleCreateChannel)
	mux.HandleFunc("GET /notification-channels/{id}", h.handleGetChannel)
	mux.HandleFunc("PATCH /notification-channels/{id}", h.handleUpdateChannel)
	mux.HandleFunc("DELETE /notification-channels/{id}", h.handleDeleteChannel)
	mux.HandleFunc("POST /notification-channels/{id}/test", h.handleTestChannel)

	mux.HandleFunc("GET /notification-strategies", h.handleListStrategies)
	mux.HandleFunc("POST /notification-strategies", h.handleCreateStrategy)
	mux.HandleFunc("GET /notification-strategies/{id}", h.handleGetStrategy)
	mux.HandleFunc("PATCH /notification-strategies/{id}", h.handleUpdateStrategy)
	mux.HandleFunc("DELETE /notification-strategies/{id}", h.handleDeleteStrategy)

	mux.HandleFunc("GET /notification-history", h.handleNotificationHistory)

	mux.HandleFunc("GET /notifications", h.handleListNotifications)
	mux.HandleFunc("POST /notifications/read-all", h.handleMarkAllRead)
	mux.HandleFunc("POST /notifications/{id}/read", h.handleMarkRead)
}

// ========== Channels ==========

// handleListChannels handles GET /notification-channels
func (h *APIHandler) handleListChannels(w http.ResponseWriter, r *http.Request) {
	enabled, ok := queryBool(w, r, "enabled")
	if !ok {
		return
	}
	channels, err := h.svc.Notifications.ListChannels(r.Context(), r.URL.Query().Get("type"), enabled)
	respondList(w, r, channels, err)
}

func (h *APIHandler) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var channel models.NotificationChannel
	if !decode(w, r, &channel) {
		return
	}
	created, err := h.svc.Notifications.CreateChannel(r.Context(), actingUser(r), &channel)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	channel, err := h.svc.Notifications.GetChannel(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, channel, err)
}

func (h *APIHandler) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	channel, err := h.svc.Notifications.UpdateChannel(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, channel, err)
}

func (h *APIHandler) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Notifications.DeleteChannel(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleTestChannel handles POST /notification-channels/{id}/test
func (h *APIHandler) handleTestChannel(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Notifications.TestChannel(r.Context(), actingUser(r), r.PathValue("id"))
	respond(w, http.StatusOK, result, err)
}

// ========== Strategies ==========

func (h *APIHandler) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.svc.Notifications.ListStrategies(r.Context())
	respondList(w, r, strategies, err)
}

func (h *APIHandler) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var strategy models.NotificationStrategy
	if !decode(w, r, &strategy) {
		return
	}
	created, err := h.svc.Notifications.CreateStrategy(r.Context(), actingUser(r), &strategy)
	respond(w, http.StatusCreated, created, err)
}

func (h *APIHandler) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.svc.Notifications.GetStrategy(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, strategy, err)
}

func (h *APIHandler) handleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	strategy, err := h.svc.Notifications.UpdateStrategy(r.Context(), actingUser(r), r.PathValue("id"), patch)
	respond(w, http.StatusOK, strategy, err)
}

func (h *APIHandler) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.svc.Notifications.DeleteStrategy(r.Context(), actingUser(r), r.PathValue("id")))
}

// handleNotificationHistory handles GET /notification-history
func (h *APIHandler) handleNotificationHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := h.svc.Notifications.History(r.Context(), services.HistoryFilter{
		ChannelID:  q.Get("channel_id"),
		Status:     q.Get("status"),
		IncidentID: q.Get("incident_id"),
	})
	respondList(w, r, records, err)
}

// ========== In-app Notifications ==========

// handleListNotifications handles GET /notifications; ?unread=true narrows to unread
func (h *APIHandler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unread, ok := queryBool(w, r, "unread")
	if !ok {
		return
	}
	notifications, err := h.svc.Notifications.ListNotifications(r.Context(), unread != nil && *unread)
	respondList(w, r, notifications, err)
}

// handleMarkRead handles POST /notifications/{id}/read
func (h *APIHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.MarkRead(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, n, err)
}

// handleMarkAllRead handles POST /notifications/read-all
func (h *APIHandler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.Notifications.MarkAllRead(r.Context())
	respond(w, http.StatusOK, api.UpdatedResponse{Success: true, Updated: updated}, err)
}
