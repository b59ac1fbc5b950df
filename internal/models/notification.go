package models

import (
	"time"

	"github.com/akmatori/opsconsole/internal/database"
)

// ChannelType is the delivery mechanism of a notification channel
type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelWebhook ChannelType = "webhook"
	ChannelSlack   ChannelType = "slack"
	ChannelLine    ChannelType = "line"
	ChannelSMS     ChannelType = "sms"
)

// ValidChannelType reports whether t is a supported channel type
func ValidChannelType(t ChannelType) bool {
	switch t {
	case ChannelEmail, ChannelWebhook, ChannelSlack, ChannelLine, ChannelSMS:
		return true
	}
	return false
}

// TestResult is the outcome of the last channel test
type TestResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	TestedAt time.Time `json:"tested_at"`
}

// NotificationChannel is a configured delivery target. Config keys depend on the type:
// email "recipients", webhook "url", slack "webhook_url" and "channel", line "token", sms "phone_numbers".
type NotificationChannel struct {
	Base
	Name           string         `json:"name"`
	Type           ChannelType    `json:"type"`
	Enabled        bool           `json:"enabled"`
	Description    string         `json:"description,omitempty"`
	Config         database.JSONB `json:"config"`
	LastTestResult *TestResult    `json:"last_test_result,omitempty"`
}

// ConfigString returns a string config value, or "" when absent
func (c *NotificationChannel) ConfigString(key string) string {
	if c.Config == nil {
		return ""
	}
	if v, ok := c.Config[key].(string); ok {
		return v
	}
	return ""
}

// NotificationStrategy routes incidents to channels
type NotificationStrategy struct {
	Base
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	Enabled          bool       `json:"enabled"`
	Priority         int        `json:"priority"`
	TriggerCondition string     `json:"trigger_condition"`
	Severities       []Severity `json:"severities,omitempty"`
	ChannelIDs       []string   `json:"channel_ids"`
	ResourceGroupIDs []string   `json:"resource_group_ids,omitempty"`
	RepeatMinutes    int        `json:"repeat_minutes,omitempty"`
}

// Normalize keeps channel_ids encoded as an array
func (s *NotificationStrategy) Normalize() {
	if s.ChannelIDs == nil {
		s.ChannelIDs = []string{}
	}
}

// AppliesTo reports whether the strategy routes incidents of the given severity
func (s *NotificationStrategy) AppliesTo(severity Severity) bool {
	if !s.Enabled {
		return false
	}
	if len(s.Severities) == 0 {
		return true
	}
	for _, sev := range s.Severities {
		if sev == severity {
			return true
		}
	}
	return false
}

// Delivery statuses recorded in notification history
const (
	DeliverySent      = "sent"
	DeliveryFailed    = "failed"
	DeliverySimulated = "simulated"
)

// NotificationRecord is one delivery attempt in the notification history
type NotificationRecord struct {
	Base
	ChannelID   string      `json:"channel_id"`
	ChannelName string      `json:"channel_name"`
	ChannelType ChannelType `json:"channel_type"`
	StrategyID  string      `json:"strategy_id,omitempty"`
	IncidentID  string      `json:"incident_id,omitempty"`
	Subject     string      `json:"subject"`
	Message     string      `json:"message"`
	Status      string      `json:"status"`
	Error       string      `json:"error,omitempty"`
	SentAt      time.Time   `json:"sent_at"`
}

// Notification is an in-app message shown in the console's notification center
type Notification struct {
	Base
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Level   string     `json:"level"`
	Link    string     `json:"link,omitempty"`
	Read    bool       `json:"read"`
	ReadAt  *time.Time `json:"read_at,omitempty"`
}
