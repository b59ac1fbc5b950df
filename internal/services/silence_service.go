package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/models"
)

// SilenceFilter narrows a silence rule listing
type SilenceFilter struct {
	Enabled  *bool
	Type     string
	Active   *bool
	Matchers []models.Matcher
}

// SilenceStatus is served by /silence-rules/{id}/status
type SilenceStatus struct {
	ID         string     `json:"id"`
	Enabled    bool       `json:"enabled"`
	Active     bool       `json:"active"`
	NextChange *time.Time `json:"next_change,omitempty"`
	CheckedAt  time.Time  `json:"checked_at"`
}

// ParseMatchers decodes the JSON array used by the matchers list filter
func ParseMatchers(raw string) ([]models.Matcher, error) {
	var matchers []models.Matcher
	if err := json.Unmarshal([]byte(raw), &matchers); err != nil {
		return nil, apierr.BadRequest("matchers must be a JSON array of {key, operator, value}")
	}
	return matchers, nil
}

// SilenceService manages silence rules
type SilenceService struct {
	store   *Store
	changes changes
	now     func() time.Time
}

// NewSilenceService creates a new SilenceService
func NewSilenceService(store *Store, audit *AuditService, publisher events.Publisher) *SilenceService {
	return &SilenceService{
		store:   store,
		changes: changes{audit: audit, events: publisher},
		now:     time.Now,
	}
}

// List returns rules matching filter. A rule passes the matchers filter
// when it carries every requested matcher.
func (s *SilenceService) List(ctx context.Context, filter SilenceFilter) ([]models.SilenceRule, error) {
	now := s.now()
	return s.store.SilenceRules.Filter(ctx, func(r *models.SilenceRule) bool {
		if filter.Enabled != nil && r.Enabled != *filter.Enabled {
			return false
		}
		if filter.Type != "" && string(r.Type) != filter.Type {
			return false
		}
		if filter.Active != nil && r.ActiveAt(now) != *filter.Active {
			return false
		}
		for _, m := range filter.Matchers {
			if !r.HasMatcher(m) {
				return false
			}
		}
		return true
	})
}

// Get returns one rule
func (s *SilenceService) Get(ctx context.Context, id string) (*models.SilenceRule, error) {
	return s.store.SilenceRules.Get(ctx, id)
}

// Create stores a new rule
func (s *SilenceService) Create(ctx context.Context, userID string, rule *models.SilenceRule) (*models.SilenceRule, error) {
	rule.ID = ""
	if rule.Name == "" {
		return nil, apierr.BadRequest("name is required")
	}
	if err := rule.Validate(); err != nil {
		return nil, apierr.BadRequest("%v", err)
	}
	if rule.CreatedBy == "" {
		rule.CreatedBy = userName(ctx, s.store, userID)
	}
	created, err := s.store.SilenceRules.Create(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to create silence rule: %w", err)
	}
	logrus.Infof("Created silence rule: %s (%s)", created.Name, created.ID)
	s.changes.record(ctx, userID, events.TypeCreated, "create", "silence_rule", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// Update shallow-merges patch over the rule
func (s *SilenceService) Update(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.SilenceRule, error) {
	current, err := s.store.SilenceRules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	preview, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	if err := preview.Validate(); err != nil {
		return nil, apierr.BadRequest("%v", err)
	}

	updated, err := s.store.SilenceRules.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "silence_rule", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// Delete soft-deletes a rule
func (s *SilenceService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.SilenceRules.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "silence_rule", id, nil, nil)
	return nil
}

// BatchAct enables, disables or deletes many rules; other records are untouched
func (s *SilenceService) BatchAct(ctx context.Context, userID string, req BatchRequest) (*BatchResult, error) {
	return batchToggle(ctx, req, s.store.SilenceRules, func(r *models.SilenceRule, enabled bool) { r.Enabled = enabled },
		func(id, action string) {
			s.changes.record(ctx, userID, events.TypeUpdated, "batch_"+action, "silence_rule", id, nil, nil)
		})
}

// Status reports whether the rule is active now and when that changes
func (s *SilenceService) Status(ctx context.Context, id string) (*SilenceStatus, error) {
	rule, err := s.store.SilenceRules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &SilenceStatus{
		ID:         rule.ID,
		Enabled:    rule.Enabled,
		Active:     rule.ActiveAt(now),
		NextChange: rule.NextChange(now),
		CheckedAt:  now,
	}, nil
}

// Matching returns the first rule active at t whose matchers accept labels
func (s *SilenceService) Matching(ctx context.Context, labels map[string]string, t time.Time) (*models.SilenceRule, error) {
	rules, err := s.store.SilenceRules.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		if rules[i].ActiveAt(t) && rules[i].MatchesLabels(labels) {
			return &rules[i], nil
		}
	}
	return nil, nil
}
