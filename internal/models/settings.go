package models

import (
	"time"

	"github.com/akmatori/opsconsole/internal/database"
)

// Settings sections served by /settings/{section}
const (
	SettingsPlatform  = "platform"
	SettingsMail      = "mail"
	SettingsAuth      = "auth"
	SettingsRetention = "retention"
)

// SettingsSections lists every editable settings section
var SettingsSections = []string{SettingsPlatform, SettingsMail, SettingsAuth, SettingsRetention}

// SettingsSection stores the values of one section. The id is the section name.
type SettingsSection struct {
	Base
	Values database.JSONB `json:"values"`
}

// Tag is a reusable label definition managed in settings
type Tag struct {
	Base
	Key         string `json:"key"`
	Value       string `json:"value,omitempty"`
	Color       string `json:"color,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// ColumnSetting is the state of one table column
type ColumnSetting struct {
	Key     string `json:"key"`
	Label   string `json:"label,omitempty"`
	Visible bool   `json:"visible"`
	Width   int    `json:"width,omitempty"`
	Order   int    `json:"order"`
}

// ColumnConfig is a user's column arrangement for one page. The id is "<user id>:<page>".
type ColumnConfig struct {
	Base
	UserID  string          `json:"user_id"`
	Page    string          `json:"page"`
	Columns []ColumnSetting `json:"columns"`
}

// AnalyticsSnapshot is a precomputed chart dataset. The id is the snapshot name.
type AnalyticsSnapshot struct {
	Base
	Title       string      `json:"title"`
	Data        interface{} `json:"data"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// AuditLog records one significant mutation
type AuditLog struct {
	Base
	UserID     string      `json:"user_id"`
	UserName   string      `json:"user_name"`
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Details    interface{} `json:"details,omitempty"`
	IP         string      `json:"ip"`
	Timestamp  time.Time   `json:"timestamp"`
}
