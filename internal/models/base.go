// Package models holds the entities served by the console API.
package models

import "time"

// Base carries the identity and bookkeeping fields shared by every stored entity
type Base struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (b *Base) GetID() string   { return b.ID }
func (b *Base) SetID(id string) { b.ID = id }

// Stamp resets the bookkeeping fields of a newly created entity
func (b *Base) Stamp(now time.Time) {
	b.CreatedAt = now
	b.UpdatedAt = now
	b.DeletedAt = nil
}

// Touch records a modification
func (b *Base) Touch(now time.Time) {
	b.UpdatedAt = now
}

// FillTimestamps sets the timestamps that are still zero
func (b *Base) FillTimestamps(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
}

// MarkDeleted sets the soft-delete timestamp
func (b *Base) MarkDeleted(now time.Time) {
	b.DeletedAt = &now
}

// Entity is implemented by pointers to every stored type
type Entity interface {
	GetID() string
	SetID(id string)
	Stamp(now time.Time)
	Touch(now time.Time)
	FillTimestamps(now time.Time)
	MarkDeleted(now time.Time)
}

// Normalizer is implemented by entities that keep derived fields in sync on every write
type Normalizer interface {
	Normalize()
}

// Severity is shared by incidents, alert rules and notification strategies
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities, most severe first
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 3
	default:
		return 4
	}
}
