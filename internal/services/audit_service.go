package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/models"
)

const (
	unknownUserName = "Unknown User"
	loopbackIP      = "127.0.0.1"
	systemUserName  = "System"
)

// AuditService appends audit trail entries
type AuditService struct {
	store *Store
	now   func() time.Time
}

// NewAuditService creates a new AuditService
func NewAuditService(store *Store) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// UserName resolves a user's display name, "Unknown User" when the id is not found
func (s *AuditService) UserName(ctx context.Context, userID string) string {
	return userName(ctx, s.store, userID)
}

func userName(ctx context.Context, store *Store, userID string) string {
	if userID == "" {
		return unknownUserName
	}
	user, err := store.Users.Get(ctx, userID)
	if err != nil {
		return unknownUserName
	}
	return user.Name
}

// Record prepends one audit entry. details is stored as given.
// A failed write is logged and does not fail the mutation it describes.
func (s *AuditService) Record(ctx context.Context, userID, action, entityType, entityID string, details interface{}) *models.AuditLog {
	entry := &models.AuditLog{
		UserID:     userID,
		UserName:   s.UserName(ctx, userID),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IP:         loopbackIP,
		Timestamp:  s.now().UTC(),
	}
	created, err := s.store.AuditLogs.Create(ctx, entry)
	if err != nil {
		logrus.Warnf("Failed to record audit log %s %s/%s: %v", action, entityType, entityID, err)
		return entry
	}
	return created
}

// AuditFilter narrows the audit log listing
type AuditFilter struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   string
}

// List returns audit entries matching filter, newest first
func (s *AuditService) List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error) {
	return s.store.AuditLogs.Filter(ctx, func(l *models.AuditLog) bool {
		return (filter.UserID == "" || l.UserID == filter.UserID) &&
			(filter.Action == "" || l.Action == filter.Action) &&
			(filter.EntityType == "" || l.EntityType == filter.EntityType) &&
			(filter.EntityID == "" || l.EntityID == filter.EntityID)
	})
}
