package models

import (
	"time"

	"github.com/akmatori/opsconsole/internal/database"
)

// ParameterDef describes one input of a playbook
type ParameterDef struct {
	Name     string      `json:"name"`
	Label    string      `json:"label,omitempty"`
	Type     string      `json:"type"`
	Required bool        `json:"required"`
	Default  interface{} `json:"default,omitempty"`
	Options  []string    `json:"options,omitempty"`
}

// Playbook is an automation script that can be executed manually or by an alert rule
type Playbook struct {
	Base
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Type            string         `json:"type"`
	Category        string         `json:"category,omitempty"`
	Content         string         `json:"content"`
	Parameters      []ParameterDef `json:"parameters"`
	TimeoutSeconds  int            `json:"timeout_seconds,omitempty"`
	LastExecutionAt *time.Time     `json:"last_execution_at,omitempty"`
	CreatedBy       string         `json:"created_by,omitempty"`
}

// Normalize keeps parameters encoded as an array
func (p *Playbook) Normalize() {
	if p.Parameters == nil {
		p.Parameters = []ParameterDef{}
	}
}

// ExecutionStatus represents the lifecycle of a playbook run
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "pending"
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// IsFinished reports whether the execution reached a terminal state
func (s ExecutionStatus) IsFinished() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusFailed
}

// Execution trigger sources
const (
	TriggerManual    = "manual"
	TriggerAlertRule = "alert_rule"
	TriggerRetry     = "retry"
)

// Execution is one run of a playbook
type Execution struct {
	Base
	ScriptID      string          `json:"script_id"`
	ScriptName    string          `json:"script_name"`
	Status        ExecutionStatus `json:"status"`
	TriggerSource string          `json:"trigger_source"`
	TriggeredBy   string          `json:"triggered_by"`
	IncidentID    string          `json:"incident_id,omitempty"`
	RuleID        string          `json:"rule_id,omitempty"`
	RetryOf       string          `json:"retry_of,omitempty"`
	Parameters    database.JSONB  `json:"parameters"`
	Stdout        string          `json:"stdout"`
	Stderr        string          `json:"stderr"`
	ExitCode      *int            `json:"exit_code,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	DurationMs    int64           `json:"duration_ms"`
}
