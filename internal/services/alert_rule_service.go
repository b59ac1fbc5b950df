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
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/query"
)

// AlertRuleFilter narrows an alert rule listing
type AlertRuleFilter struct {
	Enabled  *bool
	Severity string
	Keyword  string
}

// RuleTestRequest is the body of POST /alert-rules/{id}/test
type RuleTestRequest struct {
	Metric string  `json:"metric" validate:"required"`
	Value  float64 `json:"value"`
}

// RuleCounts is served by /alert-rules/count
type RuleCounts struct {
	Total      int `json:"total"`
	Enabled    int `json:"enabled"`
	Disabled   int `json:"disabled"`
	Automation int `json:"automation"`
}

// ImportResult summarises an alert rule import
type ImportResult struct {
	Imported int            `json:"imported"`
	IDs      []string       `json:"ids"`
	Failed   []BatchFailure `json:"failed"`
}

// AlertRuleService manages alert rules
type AlertRuleService struct {
	store     *Store
	templates []models.AlertRuleTemplate
	changes   changes
	now       func() time.Time
}

// NewAlertRuleService creates a new AlertRuleService
func NewAlertRuleService(store *Store, templates []models.AlertRuleTemplate, audit *AuditService, publisher events.Publisher) *AlertRuleService {
	return &AlertRuleService{
		store:     store,
		templates: templates,
		changes:   changes{audit: audit, events: publisher},
		now:       time.Now,
	}
}

// List returns rules matching filter
func (s *AlertRuleService) List(ctx context.Context, filter AlertRuleFilter) ([]models.AlertRule, error) {
	keyword := strings.ToLower(filter.Keyword)
	return s.store.AlertRules.Filter(ctx, func(r *models.AlertRule) bool {
		if filter.Enabled != nil && r.Enabled != *filter.Enabled {
			return false
		}
		if filter.Severity != "" && !ruleHasSeverity(r, models.Severity(filter.Severity)) {
			return false
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(r.Name), keyword) &&
			!strings.Contains(strings.ToLower(r.Description), keyword) &&
			!strings.Contains(strings.ToLower(r.Target), keyword) {
			return false
		}
		return true
	})
}

func ruleHasSeverity(r *models.AlertRule, severity models.Severity) bool {
	for _, g := range r.ConditionGroups {
		if g.Severity == severity {
			return true
		}
	}
	return false
}

// Get returns one rule
func (s *AlertRuleService) Get(ctx context.Context, id string) (*models.AlertRule, error) {
	return s.store.AlertRules.Get(ctx, id)
}

// validate checks conditions, the target query and the automation binding
func (s *AlertRuleService) validate(ctx context.Context, rule *models.AlertRule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return apierr.BadRequest("name is required")
	}
	for gi, g := range rule.ConditionGroups {
		if len(g.Conditions) == 0 {
			return apierr.BadRequest("condition_groups[%d] has no conditions", gi)
		}
		for ci, c := range g.Conditions {
			if c.Metric == "" {
				return apierr.BadRequest("condition_groups[%d].conditions[%d].metric is required", gi, ci)
			}
			if !models.ValidOperator(c.Operator) {
				return apierr.BadRequest("condition_groups[%d].conditions[%d] has unsupported operator %q", gi, ci, c.Operator)
			}
		}
	}
	if _, err := query.Compile(rule.Target); err != nil {
		return apierr.BadRequest("%v", err)
	}
	if rule.Automation != nil && rule.Automation.ScriptID != "" {
		ok, err := s.store.Playbooks.Exists(ctx, rule.Automation.ScriptID)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.BadRequest("automation script %s does not exist", rule.Automation.ScriptID)
		}
	}
	return nil
}

// Create stores a new rule
func (s *AlertRuleService) Create(ctx context.Context, userID string, rule *models.AlertRule) (*models.AlertRule, error) {
	rule.ID = ""
	if err := s.validate(ctx, rule); err != nil {
		return nil, err
	}
	if rule.CreatedBy == "" {
		rule.CreatedBy = userName(ctx, s.store, userID)
	}
	created, err := s.store.AlertRules.Create(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert rule: %w", err)
	}
	logrus.Infof("Created alert rule: %s (%s)", created.Name, created.ID)
	s.changes.record(ctx, userID, events.TypeCreated, "create", "alert_rule", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// Update shallow-merges patch over the rule. Patching automation replaces it wholesale.
func (s *AlertRuleService) Update(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.AlertRule, error) {
	current, err := s.store.AlertRules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// validate the merged record before writing it
	preview, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, preview); err != nil {
		return nil, err
	}

	updated, err := s.store.AlertRules.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "alert_rule", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// Replace overwrites the whole rule (PUT)
func (s *AlertRuleService) Replace(ctx context.Context, userID, id string, rule *models.AlertRule) (*models.AlertRule, error) {
	current, err := s.store.AlertRules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rule.Base = current.Base
	if err := s.validate(ctx, rule); err != nil {
		return nil, err
	}
	updated, err := s.store.AlertRules.Replace(ctx, rule)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "replace", "alert_rule", id, nil, updated)
	return updated, nil
}

// Delete soft-deletes a rule
func (s *AlertRuleService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.AlertRules.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "alert_rule", id, nil, nil)
	return nil
}

// Templates returns the predefined rule templates
func (s *AlertRuleService) Templates() []models.AlertRuleTemplate {
	out := make([]models.AlertRuleTemplate, len(s.templates))
	copy(out, s.templates)
	return out
}

// Import creates every rule of the list; invalid rules are reported and skipped
func (s *AlertRuleService) Import(ctx context.Context, userID string, rules []models.AlertRule) (*ImportResult, error) {
	if len(rules) == 0 {
		return nil, apierr.BadRequest("rules is required")
	}
	result := &ImportResult{IDs: []string{}, Failed: []BatchFailure{}}
	for i := range rules {
		rule := rules[i]
		created, err := s.Create(ctx, userID, &rule)
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: rule.Name, Message: errorMessage(err)})
			continue
		}
		result.Imported++
		result.IDs = append(result.IDs, created.ID)
	}
	return result, nil
}

// BatchAct enables, disables or deletes many rules
func (s *AlertRuleService) BatchAct(ctx context.Context, userID string, req BatchRequest) (*BatchResult, error) {
	return batchToggle(ctx, req, s.store.AlertRules, func(r *models.AlertRule, enabled bool) { r.Enabled = enabled },
		func(id string, action string) {
			s.changes.record(ctx, userID, events.TypeUpdated, "batch_"+action, "alert_rule", id, nil, nil)
		})
}

// Counts returns the rule breakdown
func (s *AlertRuleService) Counts(ctx context.Context) (*RuleCounts, error) {
	rules, err := s.store.AlertRules.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := &RuleCounts{Total: len(rules)}
	for _, r := range rules {
		if r.Enabled {
			counts.Enabled++
		} else {
			counts.Disabled++
		}
		if r.AutomationEnabled {
			counts.Automation++
		}
	}
	return counts, nil
}

// Test evaluates the rule's first condition on req.Metric against req.Value
func (s *AlertRuleService) Test(ctx context.Context, id string, req RuleTestRequest) (*models.RuleTestResult, error) {
	rule, err := s.store.AlertRules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := rule.Test(req.Metric, req.Value)
	return &result, nil
}

// Targets returns the active resources selected by the rule's target filter
func (s *AlertRuleService) Targets(ctx context.Context, id string) ([]models.Resource, error) {
	rule, err := s.store.AlertRules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	filter, err := query.Compile(rule.Target)
	if err != nil {
		return nil, apierr.BadRequest("%v", err)
	}
	return s.store.Resources.Filter(ctx, func(r *models.Resource) bool {
		return filter.Match(r.Labels())
	})
}

// mergePreview applies patch to a copy of current without storing it
func mergePreview[T any](current *T, patch map[string]json.RawMessage) (*T, error) {
	if err := checkPatchKeys[T](patch); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k, v := range patch {
		if !immutableFields[k] {
			fields[k] = v
		}
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, invalidField(err)
	}
	return &out, nil
}

// batchToggle implements the enable/disable/delete batch actions shared by rule collections
func batchToggle[T any, PT interface {
	*T
	models.Entity
}](ctx context.Context, req BatchRequest, repo *Repository[T, PT], setEnabled func(PT, bool), recorded func(id, action string)) (*BatchResult, error) {
	switch req.Action {
	case "enable", "disable", "delete":
	default:
		return nil, apierr.BadRequest("Unknown batch action: %s", req.Action)
	}

	result := newBatchResult()
	for _, id := range req.IDs {
		var err error
		if req.Action == "delete" {
			err = repo.SoftDelete(ctx, id)
		} else {
			_, err = repo.Mutate(ctx, id, func(entity PT) error {
				setEnabled(entity, req.Action == "enable")
				return nil
			})
		}
		if err != nil {
			result.fail(id, err)
			continue
		}
		result.Updated++
		recorded(id, req.Action)
	}
	return result, nil
}
