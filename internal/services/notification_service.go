package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/metrics"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/notify"
)

// HistoryFilter narrows the notification history
type HistoryFilter struct {
	ChannelID  string
	Status     string
	IncidentID string
}

// NotificationService manages channels, routing strategies, delivery history
// and the in-app notification center
type NotificationService struct {
	store   *Store
	sender  notify.Sender
	changes changes
	now     func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(store *Store, sender notify.Sender, audit *AuditService, publisher events.Publisher) *NotificationService {
	return &NotificationService{
		store:   store,
		sender:  sender,
		changes: changes{audit: audit, events: publisher},
		now:     time.Now,
	}
}

// ========== Channels ==========

// ListChannels returns channels, optionally narrowed by type
func (s *NotificationService) ListChannels(ctx context.Context, channelType string, enabled *bool) ([]models.NotificationChannel, error) {
	return s.store.NotificationChannels.Filter(ctx, func(c *models.NotificationChannel) bool {
		return (channelType == "" || string(c.Type) == channelType) && (enabled == nil || c.Enabled == *enabled)
	})
}

// GetChannel returns one channel
func (s *NotificationService) GetChannel(ctx context.Context, id string) (*models.NotificationChannel, error) {
	return s.store.NotificationChannels.Get(ctx, id)
}

func validateChannel(c *models.NotificationChannel) error {
	if strings.TrimSpace(c.Name) == "" {
		return apierr.BadRequest("name is required")
	}
	if !models.ValidChannelType(c.Type) {
		return apierr.BadRequest("Unsupported channel type: %s", c.Type)
	}
	if err := notify.ValidateConfig(c); err != nil {
		return apierr.BadRequest("%s", err.Error())
	}
	return nil
}

// CreateChannel stores a new channel
func (s *NotificationService) CreateChannel(ctx context.Context, userID string, channel *models.NotificationChannel) (*models.NotificationChannel, error) {
	channel.ID = ""
	channel.LastTestResult = nil
	if err := validateChannel(channel); err != nil {
		return nil, err
	}
	created, err := s.store.NotificationChannels.Create(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification channel: %w", err)
	}
	logrus.Infof("Created notification channel: %s (%s)", created.Name, created.Type)
	s.changes.record(ctx, userID, events.TypeCreated, "create", "notification_channel", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// UpdateChannel shallow-merges patch over the channel
func (s *NotificationService) UpdateChannel(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.NotificationChannel, error) {
	current, err := s.store.NotificationChannels.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	preview, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	if err := validateChannel(preview); err != nil {
		return nil, err
	}
	updated, err := s.store.NotificationChannels.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "notification_channel", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteChannel soft-deletes a channel. Strategies keep the id and skip it on delivery.
func (s *NotificationService) DeleteChannel(ctx context.Context, userID, id string) error {
	if err := s.store.NotificationChannels.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "notification_channel", id, nil, nil)
	return nil
}

// TestChannel sends a test message through the channel and stores the outcome
// as its last_test_result
func (s *NotificationService) TestChannel(ctx context.Context, userID, id string) (*models.TestResult, error) {
	channel, err := s.store.NotificationChannels.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	msg := notify.Message{
		Subject:  fmt.Sprintf("Test notification for %s", channel.Name),
		Text:     fmt.Sprintf("This is a test message sent by %s.", userName(ctx, s.store, userID)),
		Severity: models.SeverityInfo,
	}
	record := s.deliver(ctx, channel, "", "", msg)

	result := &models.TestResult{Success: record.Status != models.DeliveryFailed, TestedAt: s.now().UTC()}
	switch record.Status {
	case models.DeliverySent:
		result.Message = "Test message delivered"
	case models.DeliverySimulated:
		result.Message = "Test message simulated"
	default:
		result.Message = "Test failed: " + record.Error
	}

	if _, err := s.store.NotificationChannels.Mutate(ctx, id, func(c *models.NotificationChannel) error {
		c.LastTestResult = result
		return nil
	}); err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeAction, "test", "notification_channel", id, map[string]interface{}{"success": result.Success}, result)
	return result, nil
}

// deliver sends msg through channel and appends the attempt to the history
func (s *NotificationService) deliver(ctx context.Context, channel *models.NotificationChannel, strategyID, incidentID string, msg notify.Message) *models.NotificationRecord {
	status, err := s.sender.Send(ctx, channel, msg)
	record := &models.NotificationRecord{
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		ChannelType: channel.Type,
		StrategyID:  strategyID,
		IncidentID:  incidentID,
		Subject:     msg.Subject,
		Message:     msg.Text,
		Status:      status,
		SentAt:      s.now().UTC(),
	}
	if err != nil {
		record.Status = models.DeliveryFailed
		record.Error = err.Error()
	}
	metrics.NotificationsSentTotal.WithLabelValues(string(channel.Type), record.Status).Inc()

	if created, err := s.store.NotificationHistory.Create(ctx, record); err != nil {
		logrus.Warnf("Failed to record notification to %s: %v", channel.ID, err)
	} else {
		record = created
	}
	return record
}

// ========== Strategies ==========

// ListStrategies returns every active strategy
func (s *NotificationService) ListStrategies(ctx context.Context) ([]models.NotificationStrategy, error) {
	return s.store.NotificationStrategies.List(ctx)
}

// GetStrategy returns one strategy
func (s *NotificationService) GetStrategy(ctx context.Context, id string) (*models.NotificationStrategy, error) {
	return s.store.NotificationStrategies.Get(ctx, id)
}

func (s *NotificationService) validateStrategy(ctx context.Context, st *models.NotificationStrategy) error {
	if strings.TrimSpace(st.Name) == "" {
		return apierr.BadRequest("name is required")
	}
	for _, sev := range st.Severities {
		if sev.Rank() > 3 {
			return apierr.BadRequest("Unknown severity: %s", sev)
		}
	}
	for _, id := range st.ChannelIDs {
		ok, err := s.store.NotificationChannels.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.BadRequest("notification channel %s does not exist", id)
		}
	}
	return nil
}

// CreateStrategy stores a new strategy
func (s *NotificationService) CreateStrategy(ctx context.Context, userID string, st *models.NotificationStrategy) (*models.NotificationStrategy, error) {
	st.ID = ""
	if err := s.validateStrategy(ctx, st); err != nil {
		return nil, err
	}
	created, err := s.store.NotificationStrategies.Create(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification strategy: %w", err)
	}
	s.changes.record(ctx, userID, events.TypeCreated, "create", "notification_strategy", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// UpdateStrategy shallow-merges patch over the strategy
func (s *NotificationService) UpdateStrategy(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.NotificationStrategy, error) {
	current, err := s.store.NotificationStrategies.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	preview, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	if err := s.validateStrategy(ctx, preview); err != nil {
		return nil, err
	}
	updated, err := s.store.NotificationStrategies.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "notification_strategy", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteStrategy soft-deletes a strategy
func (s *NotificationService) DeleteStrategy(ctx context.Context, userID, id string) error {
	if err := s.store.NotificationStrategies.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "notification_strategy", id, nil, nil)
	return nil
}

// ========== Delivery ==========

// History returns delivery attempts, newest first
func (s *NotificationService) History(ctx context.Context, filter HistoryFilter) ([]models.NotificationRecord, error) {
	return s.store.NotificationHistory.Filter(ctx, func(r *models.NotificationRecord) bool {
		return (filter.ChannelID == "" || r.ChannelID == filter.ChannelID) &&
			(filter.Status == "" || r.Status == filter.Status) &&
			(filter.IncidentID == "" || r.IncidentID == filter.IncidentID)
	})
}

// NotifyIncident routes a new incident through every enabled strategy that applies
// to its severity and resource, and raises an in-app notification. It returns the
// number of channel deliveries attempted.
func (s *NotificationService) NotifyIncident(ctx context.Context, incident *models.Incident) (int, error) {
	strategies, err := s.store.NotificationStrategies.Filter(ctx, func(st *models.NotificationStrategy) bool {
		return st.AppliesTo(incident.Severity)
	})
	if err != nil {
		return 0, err
	}

	msg := notify.Message{
		Subject:  fmt.Sprintf("[%s] %s", strings.ToUpper(string(incident.Severity)), incident.Summary),
		Text:     incidentText(incident),
		Severity: incident.Severity,
		Link:     "/incidents/" + incident.ID,
	}

	sent := 0
	seen := map[string]bool{}
	for i := range strategies {
		st := &strategies[i]
		inScope, err := s.coversResource(ctx, st, incident.ResourceID)
		if err != nil {
			return sent, err
		}
		if !inScope {
			continue
		}
		for _, channelID := range st.ChannelIDs {
			if seen[channelID] {
				continue
			}
			channel, err := s.store.NotificationChannels.Get(ctx, channelID)
			if err != nil || !channel.Enabled {
				continue
			}
			seen[channelID] = true
			s.deliver(ctx, channel, st.ID, incident.ID, msg)
			sent++
		}
	}

	s.raise(ctx, msg.Subject, incident.Summary, levelFor(incident.Severity), msg.Link)
	return sent, nil
}

func (s *NotificationService) coversResource(ctx context.Context, st *models.NotificationStrategy, resourceID string) (bool, error) {
	if len(st.ResourceGroupIDs) == 0 {
		return true, nil
	}
	for _, gid := range st.ResourceGroupIDs {
		group, err := s.store.ResourceGroups.Get(ctx, gid)
		if apierr.IsNotFound(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		for _, m := range group.MemberIDs {
			if m == resourceID {
				return true, nil
			}
		}
	}
	return false, nil
}

func incidentText(incident *models.Incident) string {
	var b strings.Builder
	b.WriteString(incident.Summary)
	if incident.ResourceName != "" {
		fmt.Fprintf(&b, "\nResource: %s", incident.ResourceName)
	}
	if incident.RuleName != "" {
		fmt.Fprintf(&b, "\nRule: %s", incident.RuleName)
	}
	fmt.Fprintf(&b, "\nStatus: %s", incident.Status)
	return b.String()
}

func levelFor(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// ========== In-app Notifications ==========

// raise stores an unread in-app notification
func (s *NotificationService) raise(ctx context.Context, title, message, level, link string) {
	n, err := s.store.Notifications.Create(ctx, &models.Notification{Title: title, Message: message, Level: level, Link: link})
	if err != nil {
		logrus.Warnf("Failed to raise notification %q: %v", title, err)
		return
	}
	s.changes.events.Publish(events.Event{Type: events.TypeCreated, EntityType: "notification", EntityID: n.ID, Data: n})
}

// ListNotifications returns in-app notifications, newest first
func (s *NotificationService) ListNotifications(ctx context.Context, unreadOnly bool) ([]models.Notification, error) {
	return s.store.Notifications.Filter(ctx, func(n *models.Notification) bool {
		return !unreadOnly || !n.Read
	})
}

// MarkRead marks one notification read. Marking a read notification again keeps its read_at.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	now := s.now().UTC()
	return s.store.Notifications.Mutate(ctx, id, func(n *models.Notification) error {
		if !n.Read {
			n.Read = true
			n.ReadAt = &now
		}
		return nil
	})
}

// MarkAllRead marks every unread notification read and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context) (int, error) {
	unread, err := s.ListNotifications(ctx, true)
	if err != nil {
		return 0, err
	}
	for i := range unread {
		if _, err := s.MarkRead(ctx, unread[i].ID); err != nil {
			return i, err
		}
	}
	return len(unread), nil
}
