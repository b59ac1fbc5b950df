package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/models"
)

// Incident actions accepted by Act
const (
	ActionAcknowledge = "acknowledge"
	ActionResolve     = "resolve"
	ActionAssign      = "assign"
	ActionSilence     = "silence"
	ActionUnsilence   = "unsilence"
	ActionAddNote     = "add_note"
	ActionDeleteNote  = "delete_note"
)

// errSilenceChanged skips an incident whose silence was changed after the expiry scan
var errSilenceChanged = errors.New("silence changed")

// incidentManagedFields can only change through Act
var incidentManagedFields = []string{"status", "history", "notes", "previous_status"}

// IncidentFilter narrows an incident listing
type IncidentFilter struct {
	Status     string
	Severity   string
	Assignee   string
	ResourceID string
	Keyword    string
}

// CreateIncidentInput is the body of POST /incidents
type CreateIncidentInput struct {
	Summary      string            `json:"summary" validate:"required,max=512"`
	Description  string            `json:"description"`
	ResourceID   string            `json:"resource_id"`
	ResourceName string            `json:"resource_name"`
	RuleID       string            `json:"rule_id"`
	Severity     models.Severity   `json:"severity" validate:"required,oneof=critical high warning info"`
	Assignee     string            `json:"assignee"`
	Source       string            `json:"source"`
	Labels       map[string]string `json:"labels"`
}

// IncidentActionRequest is the body of POST /incidents/{id}/actions
type IncidentActionRequest struct {
	Action          string `json:"action" validate:"required"`
	Assignee        string `json:"assignee,omitempty"`
	Note            string `json:"note,omitempty"`
	NoteID          string `json:"note_id,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// IncidentCounts is the per-status breakdown served by /incidents/count
type IncidentCounts struct {
	Total        int `json:"total"`
	New          int `json:"new"`
	Acknowledged int `json:"acknowledged"`
	Resolved     int `json:"resolved"`
	Silenced     int `json:"silenced"`
	Open         int `json:"open"`
}

// IncidentOptions are the distinct filter values of the current incidents
type IncidentOptions struct {
	Statuses   []string      `json:"statuses"`
	Severities []string      `json:"severities"`
	Assignees  []string      `json:"assignees"`
	Resources  []OptionValue `json:"resources"`
	Sources    []string      `json:"sources"`
}

// OptionValue is one entry of a select box
type OptionValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// IncidentService manages incidents and their state machine
type IncidentService struct {
	store   *Store
	changes changes
	now     func() time.Time
}

// NewIncidentService creates a new IncidentService
func NewIncidentService(store *Store, audit *AuditService, publisher events.Publisher) *IncidentService {
	return &IncidentService{
		store:   store,
		changes: changes{audit: audit, events: publisher},
		now:     time.Now,
	}
}

// List returns incidents matching filter, newest first
func (s *IncidentService) List(ctx context.Context, filter IncidentFilter) ([]models.Incident, error) {
	keyword := strings.ToLower(filter.Keyword)
	return s.store.Incidents.Filter(ctx, func(i *models.Incident) bool {
		if filter.Status != "" && string(i.Status) != filter.Status {
			return false
		}
		if filter.Severity != "" && string(i.Severity) != filter.Severity {
			return false
		}
		if filter.Assignee != "" && i.Assignee != filter.Assignee {
			return false
		}
		if filter.ResourceID != "" && i.ResourceID != filter.ResourceID {
			return false
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(i.Summary), keyword) &&
			!strings.Contains(strings.ToLower(i.ResourceName), keyword) &&
			!strings.Contains(strings.ToLower(i.ID), keyword) {
			return false
		}
		return true
	})
}

// Get returns one incident
func (s *IncidentService) Get(ctx context.Context, id string) (*models.Incident, error) {
	return s.store.Incidents.Get(ctx, id)
}

// Create opens a new incident in status new
func (s *IncidentService) Create(ctx context.Context, userID string, input CreateIncidentInput) (*models.Incident, error) {
	now := s.now().UTC()
	incident := &models.Incident{
		Summary:      input.Summary,
		Description:  input.Description,
		ResourceID:   input.ResourceID,
		ResourceName: input.ResourceName,
		RuleID:       input.RuleID,
		Severity:     input.Severity,
		Status:       models.IncidentStatusNew,
		Assignee:     input.Assignee,
		Source:       input.Source,
		Labels:       input.Labels,
		TriggeredAt:  now,
	}
	if incident.Source == "" {
		incident.Source = "manual"
	}
	if incident.ResourceID != "" && incident.ResourceName == "" {
		if res, err := s.store.Resources.Get(ctx, incident.ResourceID); err == nil {
			incident.ResourceName = res.Name
		}
	}
	incident.AddHistory(now, userName(ctx, s.store, userID), models.HistoryCreated, "")

	created, err := s.store.Incidents.Create(ctx, incident)
	if err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}
	logrus.Infof("Created incident %s: %s", created.ID, created.Summary)
	s.changes.record(ctx, userID, events.TypeCreated, "create", "incident", created.ID, map[string]interface{}{"summary": created.Summary}, created)
	return created, nil
}

// Update shallow-merges patch. Status, history and notes change only through Act.
func (s *IncidentService) Update(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.Incident, error) {
	for _, field := range incidentManagedFields {
		if _, ok := patch[field]; ok {
			return nil, apierr.BadRequest("%s cannot be updated directly, use the actions endpoint", field)
		}
	}
	updated, err := s.store.Incidents.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "incident", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// Delete soft-deletes an incident
func (s *IncidentService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Incidents.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "incident", id, nil, nil)
	return nil
}

// Act applies one state machine action and appends exactly one history entry
func (s *IncidentService) Act(ctx context.Context, userID, id string, req IncidentActionRequest) (*models.Incident, error) {
	actor := userName(ctx, s.store, userID)
	updated, err := s.store.Incidents.Mutate(ctx, id, func(incident *models.Incident) error {
		return s.apply(incident, actor, req)
	})
	if err != nil {
		if _, ok := apierr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update incident %s: %w", id, err)
	}
	logrus.Infof("Incident %s: %s by %s", id, req.Action, actor)
	s.changes.record(ctx, userID, events.TypeAction, req.Action, "incident", id, actionDetails(req), updated)
	return updated, nil
}

func actionDetails(req IncidentActionRequest) map[string]interface{} {
	details := map[string]interface{}{}
	if req.Assignee != "" {
		details["assignee"] = req.Assignee
	}
	if req.NoteID != "" {
		details["note_id"] = req.NoteID
	}
	if req.DurationMinutes > 0 {
		details["duration_minutes"] = req.DurationMinutes
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// apply mutates incident in memory according to req
func (s *IncidentService) apply(incident *models.Incident, actor string, req IncidentActionRequest) error {
	now := s.now().UTC()
	status := incident.Status
	resolved := status == models.IncidentStatusResolved

	switch req.Action {
	case ActionAcknowledge:
		if status != models.IncidentStatusNew && status != models.IncidentStatusSilenced {
			return apierr.BadRequest("cannot acknowledge an incident in status %s", status)
		}
		incident.Status = models.IncidentStatusAcknowledged
		incident.PreviousStatus = ""
		incident.SilencedUntil = nil
		incident.Assignee = actor
		incident.AcknowledgedAt = &now
		incident.AddHistory(now, actor, models.HistoryAcknowledged, req.Comment)

	case ActionResolve:
		if resolved {
			return apierr.BadRequest("incident is already resolved")
		}
		incident.Status = models.IncidentStatusResolved
		incident.PreviousStatus = ""
		incident.SilencedUntil = nil
		incident.ResolvedAt = &now
		incident.AddHistory(now, actor, models.HistoryResolved, req.Comment)

	case ActionAssign:
		if req.Assignee == "" {
			return apierr.BadRequest("assignee is required")
		}
		if resolved {
			return apierr.BadRequest("cannot assign a resolved incident")
		}
		incident.Assignee = req.Assignee
		incident.AddHistory(now, actor, models.HistoryAssigned, "Assigned to "+req.Assignee)

	case ActionSilence:
		if status != models.IncidentStatusNew && status != models.IncidentStatusAcknowledged {
			return apierr.BadRequest("cannot silence an incident in status %s", status)
		}
		if req.DurationMinutes < 0 {
			return apierr.BadRequest("duration_minutes must not be negative")
		}
		incident.PreviousStatus = status
		incident.Status = models.IncidentStatusSilenced
		details := "Silenced until further notice"
		incident.SilencedUntil = nil
		if req.DurationMinutes > 0 {
			until := now.Add(time.Duration(req.DurationMinutes) * time.Minute)
			incident.SilencedUntil = &until
			details = fmt.Sprintf("Silenced for %d minutes", req.DurationMinutes)
		}
		incident.AddHistory(now, actor, models.HistorySilenced, details)

	case ActionUnsilence:
		if status != models.IncidentStatusSilenced {
			return apierr.BadRequest("incident is not silenced")
		}
		incident.Status = restoredStatus(incident)
		incident.PreviousStatus = ""
		incident.SilencedUntil = nil
		incident.AddHistory(now, actor, models.HistorySilenceExpired, "Silence removed")

	case ActionAddNote:
		if strings.TrimSpace(req.Note) == "" {
			return apierr.BadRequest("note is required")
		}
		note := models.IncidentNote{
			ID:        NewID(PrefixNote),
			Author:    actor,
			Content:   req.Note,
			CreatedAt: now,
		}
		incident.Notes = append(incident.Notes, note)
		incident.AddHistory(now, actor, models.HistoryNoteAdded, req.Note)

	case ActionDeleteNote:
		if req.NoteID == "" {
			return apierr.BadRequest("note_id is required")
		}
		idx := -1
		for i, n := range incident.Notes {
			if n.ID == req.NoteID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apierr.NotFound("Note %s not found", req.NoteID)
		}
		incident.Notes = append(incident.Notes[:idx], incident.Notes[idx+1:]...)
		incident.AddHistory(now, actor, models.HistoryNoteDeleted, req.NoteID)

	default:
		return apierr.BadRequest("Unknown action: %s", req.Action)
	}
	return nil
}

// restoredStatus is the status an incident returns to when its silence ends
func restoredStatus(incident *models.Incident) models.IncidentStatus {
	switch incident.PreviousStatus {
	case models.IncidentStatusNew, models.IncidentStatusAcknowledged:
		return incident.PreviousStatus
	default:
		return models.IncidentStatusNew
	}
}

// BatchAct applies an action to many incidents. Supported: acknowledge, resolve,
// assign, silence and delete. Ids that fail are reported, the rest are applied.
func (s *IncidentService) BatchAct(ctx context.Context, userID string, req BatchRequest) (*BatchResult, error) {
	switch req.Action {
	case ActionAcknowledge, ActionResolve, ActionAssign, ActionSilence, "delete":
	default:
		return nil, apierr.BadRequest("Unknown batch action: %s", req.Action)
	}

	result := newBatchResult()
	for _, id := range req.IDs {
		var err error
		if req.Action == "delete" {
			err = s.Delete(ctx, userID, id)
		} else {
			_, err = s.Act(ctx, userID, id, IncidentActionRequest{Action: req.Action, Assignee: req.Assignee})
		}
		if err != nil {
			result.fail(id, err)
			continue
		}
		result.Updated++
	}
	return result, nil
}

// Counts returns the number of incidents per status
func (s *IncidentService) Counts(ctx context.Context) (*IncidentCounts, error) {
	incidents, err := s.store.Incidents.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := &IncidentCounts{Total: len(incidents)}
	for _, i := range incidents {
		switch i.Status {
		case models.IncidentStatusNew:
			counts.New++
		case models.IncidentStatusAcknowledged:
			counts.Acknowledged++
		case models.IncidentStatusResolved:
			counts.Resolved++
		case models.IncidentStatusSilenced:
			counts.Silenced++
		}
		if i.IsOpen() {
			counts.Open++
		}
	}
	return counts, nil
}

// Options returns the distinct filter values of the active incidents
func (s *IncidentService) Options(ctx context.Context) (*IncidentOptions, error) {
	incidents, err := s.store.Incidents.List(ctx)
	if err != nil {
		return nil, err
	}

	assignees := map[string]bool{}
	sources := map[string]bool{}
	resources := map[string]string{}
	for _, i := range incidents {
		if i.Assignee != "" {
			assignees[i.Assignee] = true
		}
		if i.Source != "" {
			sources[i.Source] = true
		}
		if i.ResourceID != "" {
			resources[i.ResourceID] = i.ResourceName
		}
	}

	opts := &IncidentOptions{
		Statuses: []string{
			string(models.IncidentStatusNew),
			string(models.IncidentStatusAcknowledged),
			string(models.IncidentStatusSilenced),
			string(models.IncidentStatusResolved),
		},
		Severities: []string{
			string(models.SeverityCritical),
			string(models.SeverityHigh),
			string(models.SeverityWarning),
			string(models.SeverityInfo),
		},
		Assignees: sortedKeys(assignees),
		Sources:   sortedKeys(sources),
		Resources: make([]OptionValue, 0, len(resources)),
	}
	for id, name := range resources {
		opts.Resources = append(opts.Resources, OptionValue{Value: id, Label: name})
	}
	sort.Slice(opts.Resources, func(a, b int) bool { return opts.Resources[a].Label < opts.Resources[b].Label })
	return opts, nil
}

// ExpireSilences restores incidents whose silence ended before now
func (s *IncidentService) ExpireSilences(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.Incidents.Filter(ctx, func(i *models.Incident) bool {
		return i.Status == models.IncidentStatusSilenced && i.SilencedUntil != nil && !i.SilencedUntil.After(now)
	})
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, candidate := range expired {
		incident, err := s.store.Incidents.Mutate(ctx, candidate.ID, func(i *models.Incident) error {
			// an action may have changed the incident since the scan
			if i.Status != models.IncidentStatusSilenced || i.SilencedUntil == nil || i.SilencedUntil.After(now) {
				return errSilenceChanged
			}
			i.Status = restoredStatus(i)
			i.PreviousStatus = ""
			i.SilencedUntil = nil
			i.AddHistory(now.UTC(), systemUserName, models.HistorySilenceExpired, "Restored to "+string(i.Status))
			return nil
		})
		if errors.Is(err, errSilenceChanged) || apierr.IsNotFound(err) {
			continue
		}
		if err != nil {
			logrus.Warnf("Failed to expire silence of incident %s: %v", candidate.ID, err)
			continue
		}
		s.changes.events.Publish(events.Event{Type: events.TypeUpdated, EntityType: "incident", EntityID: incident.ID, Data: incident})
		restored++
	}
	return restored, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
