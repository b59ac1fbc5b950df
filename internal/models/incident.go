package models

import "time"

// IncidentStatus represents the state of an incident
type IncidentStatus string

const (
	IncidentStatusNew          IncidentStatus = "new"
	IncidentStatusAcknowledged IncidentStatus = "acknowledged"
	IncidentStatusResolved     IncidentStatus = "resolved"
	IncidentStatusSilenced     IncidentStatus = "silenced"
)

// History actions written by incident operations
const (
	HistoryCreated        = "Created"
	HistoryAcknowledged   = "Acknowledged"
	HistoryResolved       = "Resolved"
	HistoryAssigned       = "Assigned"
	HistorySilenced       = "Silenced"
	HistoryNoteAdded      = "Note Added"
	HistoryNoteDeleted    = "Note Deleted"
	HistoryRetriggered    = "Re-triggered"
	HistorySilenceExpired = "Silence Expired"
)

// HistoryEntry is one append-only line of an incident's timeline
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
}

// IncidentNote is a free-text note attached to an incident
type IncidentNote struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Incident represents an alert-driven problem tracked by the console
type Incident struct {
	Base
	Summary        string            `json:"summary"`
	Description    string            `json:"description,omitempty"`
	ResourceID     string            `json:"resource_id"`
	ResourceName   string            `json:"resource_name"`
	RuleID         string            `json:"rule_id,omitempty"`
	RuleName       string            `json:"rule_name,omitempty"`
	Severity       Severity          `json:"severity"`
	Status         IncidentStatus    `json:"status"`
	PreviousStatus IncidentStatus    `json:"previous_status,omitempty"`
	Assignee       string            `json:"assignee"`
	Source         string            `json:"source,omitempty"`
	Fingerprint    string            `json:"fingerprint,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
	Notes          []IncidentNote    `json:"notes"`
	History        []HistoryEntry    `json:"history"`
	TriggeredAt    time.Time         `json:"triggered_at"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	SilencedUntil  *time.Time        `json:"silenced_until,omitempty"`
}

// Normalize keeps the list fields non-nil so they always encode as arrays
func (i *Incident) Normalize() {
	if i.Notes == nil {
		i.Notes = []IncidentNote{}
	}
	if i.History == nil {
		i.History = []HistoryEntry{}
	}
}

// AddHistory appends one timeline entry
func (i *Incident) AddHistory(now time.Time, user, action, details string) {
	i.History = append(i.History, HistoryEntry{
		Timestamp: now,
		User:      user,
		Action:    action,
		Details:   details,
	})
}

// IsOpen reports whether the incident has not been resolved yet
func (i *Incident) IsOpen() bool {
	return i.Status != IncidentStatusResolved
}
