package models

import (
	"time"

	"github.com/akmatori/opsconsole/internal/database"
)

// UserStatus is the account state of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInvited  UserStatus = "invited"
	UserStatusInactive UserStatus = "inactive"
)

// User is a console account
type User struct {
	Base
	Name        string     `json:"name"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Role        string     `json:"role"`
	Team        string     `json:"team"`
	Status      UserStatus `json:"status"`
	Avatar      string     `json:"avatar,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Credential holds the password hash of a user. Its id is the user id; it is never served.
type Credential struct {
	Base
	PasswordHash string `json:"password_hash"`
}

// Team groups users
type Team struct {
	Base
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	LeadID      string   `json:"lead_id,omitempty"`
	MemberIDs   []string `json:"member_ids"`
}

// Normalize keeps member_ids encoded as an array
func (t *Team) Normalize() {
	if t.MemberIDs == nil {
		t.MemberIDs = []string{}
	}
}

// Permission grants actions on one console module
type Permission struct {
	Module  string   `json:"module"`
	Actions []string `json:"actions"`
}

// Role is a named permission set
type Role struct {
	Base
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	BuiltIn     bool         `json:"built_in"`
	Permissions []Permission `json:"permissions"`
}

// Normalize keeps permissions encoded as an array
func (r *Role) Normalize() {
	if r.Permissions == nil {
		r.Permissions = []Permission{}
	}
}

// Allows reports whether the role grants action on module. "*" matches anything.
func (r *Role) Allows(module, action string) bool {
	for _, p := range r.Permissions {
		if p.Module != module && p.Module != "*" {
			continue
		}
		for _, a := range p.Actions {
			if a == action || a == "*" {
				return true
			}
		}
	}
	return false
}

// UserPreferences are per-user UI settings. The id is the user id.
type UserPreferences struct {
	Base
	Theme                string         `json:"theme"`
	Language             string         `json:"language"`
	Timezone             string         `json:"timezone"`
	DefaultPage          string         `json:"default_page,omitempty"`
	NotificationsEnabled bool           `json:"notifications_enabled"`
	Extra                database.JSONB `json:"extra,omitempty"`
}

// LoginRecord is one entry of a user's login history
type LoginRecord struct {
	Base
	UserID    string    `json:"user_id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}
