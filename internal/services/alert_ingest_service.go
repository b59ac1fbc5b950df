package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/metrics"
	"github.com/akmatori/opsconsole/internal/models"
)

// Ingest outcomes, also used as metric labels
const (
	outcomeCreated     = "created"
	outcomeRetriggered = "retriggered"
	outcomeResolved    = "resolved"
	outcomeSilenced    = "silenced"
	outcomeIgnored     = "ignored"
)

// errIncidentClosed aborts a mutation of an incident resolved since it was looked up
var errIncidentClosed = errors.New("incident is no longer open")

// IngestResult summarises one webhook delivery
type IngestResult struct {
	Received    int      `json:"received"`
	Created     int      `json:"created"`
	Retriggered int      `json:"retriggered"`
	Resolved    int      `json:"resolved"`
	Silenced    int      `json:"silenced"`
	Ignored     int      `json:"ignored"`
	IncidentIDs []string `json:"incident_ids"`
}

func (r *IngestResult) count(outcome, incidentID string) {
	switch outcome {
	case outcomeCreated:
		r.Created++
	case outcomeRetriggered:
		r.Retriggered++
	case outcomeResolved:
		r.Resolved++
	case outcomeSilenced:
		r.Silenced++
	default:
		r.Ignored++
	}
	if incidentID != "" {
		r.IncidentIDs = append(r.IncidentIDs, incidentID)
	}
}

// AlertIngestService turns normalized webhook alerts into incidents
type AlertIngestService struct {
	store         *Store
	silences      *SilenceService
	automation    *AutomationService
	notifications *NotificationService
	changes       changes
	now           func() time.Time
}

// NewAlertIngestService creates a new AlertIngestService
func NewAlertIngestService(store *Store, silences *SilenceService, automation *AutomationService, notifications *NotificationService, audit *AuditService, publisher events.Publisher) *AlertIngestService {
	return &AlertIngestService{
		store:         store,
		silences:      silences,
		automation:    automation,
		notifications: notifications,
		changes:       changes{audit: audit, events: publisher},
		now:           time.Now,
	}
}

// Ingest processes every alert of a webhook. Firing alerts open an incident, or
// re-trigger the open incident with the same fingerprint; resolved alerts resolve it.
// Alerts matched by an active silence rule open their incident silenced.
func (s *AlertIngestService) Ingest(ctx context.Context, source string, batch []alerts.NormalizedAlert) (*IngestResult, error) {
	result := &IngestResult{Received: len(batch), IncidentIDs: []string{}}
	for i := range batch {
		alert := &batch[i]
		var (
			outcome    string
			incidentID string
			err        error
		)
		if alert.Status == alerts.StatusResolved {
			outcome, incidentID, err = s.resolve(ctx, source, alert)
		} else {
			outcome, incidentID, err = s.fire(ctx, source, alert)
		}
		if err != nil {
			return result, fmt.Errorf("failed to ingest alert %s: %w", alert.AlertName, err)
		}
		metrics.AlertsReceivedTotal.WithLabelValues(source, outcome).Inc()
		result.count(outcome, incidentID)
	}
	logrus.Infof("Ingested %d %s alerts: %d created, %d re-triggered, %d resolved, %d silenced",
		result.Received, source, result.Created, result.Retriggered, result.Resolved, result.Silenced)
	return result, nil
}

func (s *AlertIngestService) openByFingerprint(ctx context.Context, fingerprint string) (*models.Incident, error) {
	if fingerprint == "" {
		return nil, nil
	}
	open, err := s.store.Incidents.Filter(ctx, func(i *models.Incident) bool {
		return i.IsOpen() && i.Fingerprint == fingerprint
	})
	if err != nil || len(open) == 0 {
		return nil, err
	}
	return &open[0], nil
}

func (s *AlertIngestService) fire(ctx context.Context, source string, alert *alerts.NormalizedAlert) (string, string, error) {
	now := s.now().UTC()
	existing, err := s.openByFingerprint(ctx, alert.Fingerprint)
	if err != nil {
		return "", "", err
	}
	if existing != nil {
		updated, err := s.store.Incidents.Mutate(ctx, existing.ID, func(i *models.Incident) error {
			if !i.IsOpen() {
				return errIncidentClosed
			}
			i.AddHistory(now, systemUserName, models.HistoryRetriggered, "Alert fired again via "+source)
			return nil
		})
		switch {
		case err == nil:
			s.changes.events.Publish(events.Event{Type: events.TypeUpdated, EntityType: "incident", EntityID: updated.ID, Data: updated})
			return outcomeRetriggered, updated.ID, nil
		case errors.Is(err, errIncidentClosed) || apierr.IsNotFound(err):
			// closed meanwhile, the alert opens a new incident
		default:
			return "", "", err
		}
	}

	incident := &models.Incident{
		Summary:     alert.Summary,
		Description: alert.Description,
		Severity:    alert.Severity,
		Status:      models.IncidentStatusNew,
		Source:      source,
		Fingerprint: alert.Fingerprint,
		Labels:      map[string]string{},
		TriggeredAt: now,
	}
	if alert.StartedAt != nil {
		incident.TriggeredAt = alert.StartedAt.UTC()
	}
	for k, v := range alert.Labels {
		incident.Labels[k] = v
	}

	resource, err := s.findResource(ctx, alert.TargetHost)
	if err != nil {
		return "", "", err
	}
	if resource != nil {
		incident.ResourceID = resource.ID
		incident.ResourceName = resource.Name
		for k, v := range resource.Labels() {
			if _, ok := incident.Labels[k]; !ok {
				incident.Labels[k] = v
			}
		}
	} else {
		incident.ResourceName = alert.TargetHost
	}

	rule, err := s.findRule(ctx, alert)
	if err != nil {
		return "", "", err
	}
	if rule != nil {
		incident.RuleID = rule.ID
		incident.RuleName = rule.Name
	}

	incident.AddHistory(now, systemUserName, models.HistoryCreated, "Raised by "+source)
	outcome := outcomeCreated
	silence, err := s.silences.Matching(ctx, incident.Labels, now)
	if err != nil {
		return "", "", err
	}
	if silence != nil {
		incident.PreviousStatus = models.IncidentStatusNew
		incident.Status = models.IncidentStatusSilenced
		if next := silence.NextChange(now); next != nil {
			until := next.UTC()
			incident.SilencedUntil = &until
		}
		incident.AddHistory(now, systemUserName, models.HistorySilenced, "Matched silence rule "+silence.Name)
		outcome = outcomeSilenced
	}

	created, err := s.store.Incidents.Create(ctx, incident)
	if err != nil {
		return "", "", err
	}
	s.changes.record(ctx, "", events.TypeCreated, "create", "incident", created.ID, map[string]interface{}{
		"source":      source,
		"fingerprint": created.Fingerprint,
	}, created)

	if outcome == outcomeCreated {
		if _, err := s.notifications.NotifyIncident(ctx, created); err != nil {
			logrus.Warnf("Failed to notify incident %s: %v", created.ID, err)
		}
		if rule != nil {
			if _, err := s.automation.ExecuteForRule(ctx, rule, created.ID); err != nil {
				logrus.Warnf("Failed to start automation of rule %s: %v", rule.ID, err)
			}
		}
	}
	return outcome, created.ID, nil
}

func (s *AlertIngestService) resolve(ctx context.Context, source string, alert *alerts.NormalizedAlert) (string, string, error) {
	incident, err := s.openByFingerprint(ctx, alert.Fingerprint)
	if err != nil {
		return "", "", err
	}
	if incident == nil {
		return outcomeIgnored, "", nil
	}

	now := s.now().UTC()
	resolvedAt := now
	if alert.EndedAt != nil {
		resolvedAt = alert.EndedAt.UTC()
	}
	updated, err := s.store.Incidents.Mutate(ctx, incident.ID, func(i *models.Incident) error {
		if !i.IsOpen() {
			return errIncidentClosed
		}
		i.Status = models.IncidentStatusResolved
		i.ResolvedAt = &resolvedAt
		i.SilencedUntil = nil
		i.AddHistory(now, systemUserName, models.HistoryResolved, "Resolved by "+source)
		return nil
	})
	if errors.Is(err, errIncidentClosed) || apierr.IsNotFound(err) {
		return outcomeIgnored, "", nil
	}
	if err != nil {
		return "", "", err
	}
	s.changes.record(ctx, "", events.TypeAction, ActionResolve, "incident", updated.ID, map[string]interface{}{"source": source}, updated)
	return outcomeResolved, updated.ID, nil
}

// findResource matches an alert target against resource names and addresses
func (s *AlertIngestService) findResource(ctx context.Context, host string) (*models.Resource, error) {
	if host == "" {
		return nil, nil
	}
	found, err := s.store.Resources.Filter(ctx, func(r *models.Resource) bool {
		return strings.EqualFold(r.Name, host) || r.IPAddress == host
	})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

// findRule matches an alert to an enabled rule by the rule_id label or the rule name
func (s *AlertIngestService) findRule(ctx context.Context, alert *alerts.NormalizedAlert) (*models.AlertRule, error) {
	ruleID := alert.Labels["rule_id"]
	found, err := s.store.AlertRules.Filter(ctx, func(r *models.AlertRule) bool {
		if !r.Enabled {
			return false
		}
		return (ruleID != "" && r.ID == ruleID) || strings.EqualFold(r.Name, alert.AlertName)
	})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}
