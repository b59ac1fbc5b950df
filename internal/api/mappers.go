package api

import (
	"time"

	"github.com/akmatori/opsconsole/internal/models"
)

// ExecutionToListItem converts an execution to its compact list representation.
func ExecutionToListItem(e models.Execution) ExecutionListItem {
	return ExecutionListItem{
		ID:            e.ID,
		ScriptID:      e.ScriptID,
		ScriptName:    e.ScriptName,
		Status:        e.Status,
		TriggerSource: e.TriggerSource,
		TriggeredBy:   e.TriggeredBy,
		IncidentID:    e.IncidentID,
		RuleID:        e.RuleID,
		RetryOf:       e.RetryOf,
		ExitCode:      e.ExitCode,
		StartedAt:     e.StartedAt,
		FinishedAt:    e.FinishedAt,
		DurationMs:    e.DurationMs,
		CreatedAt:     e.CreatedAt,
	}
}

// ExecutionsToListItems converts a slice of executions to list items.
func ExecutionsToListItems(executions []models.Execution) []ExecutionListItem {
	items := make([]ExecutionListItem, len(executions))
	for i, e := range executions {
		items[i] = ExecutionToListItem(e)
	}
	return items
}

// NewLoginResponse pairs a signed token with the authenticated user.
func NewLoginResponse(user *models.User, token string, expiresAt time.Time) LoginResponse {
	return LoginResponse{Token: token, ExpiresAt: expiresAt.UTC(), User: user}
}
