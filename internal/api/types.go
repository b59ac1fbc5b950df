package api

import (
	"time"

	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
)

// ========== Auth Types ==========

// LoginResponse is the response body for POST /auth/login.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// VerifyResponse is the response body for GET /auth/verify.
type VerifyResponse struct {
	Valid bool         `json:"valid"`
	User  *models.User `json:"user,omitempty"`
}

// ========== Import Types ==========

// ImportRulesRequest is the request body for POST /alert-rules/import.
type ImportRulesRequest struct {
	Rules []models.AlertRule `json:"rules" validate:"required,min=1"`
}

// ImportResourcesRequest is the request body for POST /resources/import.
type ImportResourcesRequest struct {
	Resources []models.Resource `json:"resources" validate:"required,min=1"`
}

// ========== Settings & Dashboard Types ==========

// ColumnConfigRequest is the request body for PUT /settings/column-config/{page}.
type ColumnConfigRequest struct {
	Columns []models.ColumnSetting `json:"columns" validate:"required,min=1"`
}

// LayoutRequest is the request body for PUT /dashboards/{id}/layout.
type LayoutRequest struct {
	Layout []services.LayoutUpdate `json:"layout" validate:"required,dive"`
}

// ========== Misc Response Types ==========

// CountResponse carries a single count.
type CountResponse struct {
	Count int `json:"count"`
}

// UpdatedResponse reports how many records a bulk mutation touched.
type UpdatedResponse struct {
	Success bool `json:"success"`
	Updated int  `json:"updated"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Timestamp time.Time `json:"timestamp"`
}

// ========== Mapper Output Types ==========

// ExecutionListItem is a compact representation of an execution for list views.
// It omits the captured output to keep list responses small.
type ExecutionListItem struct {
	ID            string                 `json:"id"`
	ScriptID      string                 `json:"script_id"`
	ScriptName    string                 `json:"script_name"`
	Status        models.ExecutionStatus `json:"status"`
	TriggerSource string                 `json:"trigger_source"`
	TriggeredBy   string                 `json:"triggered_by"`
	IncidentID    string                 `json:"incident_id,omitempty"`
	RuleID        string                 `json:"rule_id,omitempty"`
	RetryOf       string                 `json:"retry_of,omitempty"`
	ExitCode      *int                   `json:"exit_code,omitempty"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	FinishedAt    *time.Time             `json:"finished_at,omitempty"`
	DurationMs    int64                  `json:"duration_ms"`
	CreatedAt     time.Time              `json:"created_at"`
}
