package testhelpers

import (
	"time"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/models"
)

// ========================================
// Normalized Alert Builder
// ========================================

// NormalizedAlertBuilder builds NormalizedAlert instances for testing
type NormalizedAlertBuilder struct {
	alert alerts.NormalizedAlert
}

// NewAlertBuilder creates a new alert builder with defaults
func NewAlertBuilder() *NormalizedAlertBuilder {
	now := time.Now()
	return &NormalizedAlertBuilder{
		alert: alerts.NormalizedAlert{
			AlertName:   "TestAlert",
			Severity:    models.SeverityWarning,
			Status:      alerts.StatusFiring,
			Summary:     "Test alert summary",
			Description: "Test alert description",
			Labels:      map[string]string{},
			StartedAt:   &now,
		},
	}
}

// WithName sets the alert name
func (b *NormalizedAlertBuilder) WithName(name string) *NormalizedAlertBuilder {
	b.alert.AlertName = name
	return b
}

// WithSeverity sets the severity
func (b *NormalizedAlertBuilder) WithSeverity(severity models.Severity) *NormalizedAlertBuilder {
	b.alert.Severity = severity
	return b
}

// Resolved marks the alert resolved now
func (b *NormalizedAlertBuilder) Resolved() *NormalizedAlertBuilder {
	now := time.Now()
	b.alert.Status = alerts.StatusResolved
	b.alert.EndedAt = &now
	return b
}

// WithHost sets the target host
func (b *NormalizedAlertBuilder) WithHost(host string) *NormalizedAlertBuilder {
	b.alert.TargetHost = host
	return b
}

// WithLabel adds a label
func (b *NormalizedAlertBuilder) WithLabel(key, value string) *NormalizedAlertBuilder {
	if b.alert.Labels == nil {
		b.alert.Labels = map[string]string{}
	}
	b.alert.Labels[key] = value
	return b
}

// WithMetric sets the metric sample that fired
func (b *NormalizedAlertBuilder) WithMetric(name, value string) *NormalizedAlertBuilder {
	b.alert.MetricName = name
	b.alert.MetricValue = value
	return b
}

// WithFingerprint sets the fingerprint
func (b *NormalizedAlertBuilder) WithFingerprint(fp string) *NormalizedAlertBuilder {
	b.alert.Fingerprint = fp
	return b
}

// Build returns the constructed alert
func (b *NormalizedAlertBuilder) Build() alerts.NormalizedAlert {
	return b.alert
}

// ========================================
// Alert Rule Builder
// ========================================

// AlertRuleBuilder builds AlertRule instances for testing
type AlertRuleBuilder struct {
	rule models.AlertRule
}

// NewAlertRuleBuilder creates a rule with one warning condition on cpu_usage > 80
func NewAlertRuleBuilder() *AlertRuleBuilder {
	return &AlertRuleBuilder{
		rule: models.AlertRule{
			Name:    "Test rule",
			Target:  "type:host",
			Enabled: true,
			ConditionGroups: []models.ConditionGroup{{
				Severity: models.SeverityWarning,
				Conditions: []models.Condition{
					{Metric: "cpu_usage", Operator: models.OpGreater, Threshold: 80},
				},
			}},
		},
	}
}

// WithName sets the rule name
func (b *AlertRuleBuilder) WithName(name string) *AlertRuleBuilder {
	b.rule.Name = name
	return b
}

// WithTarget sets the target filter query
func (b *AlertRuleBuilder) WithTarget(target string) *AlertRuleBuilder {
	b.rule.Target = target
	return b
}

// WithGroup appends a condition group
func (b *AlertRuleBuilder) WithGroup(severity models.Severity, conditions ...models.Condition) *AlertRuleBuilder {
	b.rule.ConditionGroups = append(b.rule.ConditionGroups, models.ConditionGroup{
		Severity:   severity,
		Conditions: conditions,
	})
	return b
}

// Disabled sets the rule as disabled
func (b *AlertRuleBuilder) Disabled() *AlertRuleBuilder {
	b.rule.Enabled = false
	return b
}

// Build returns the constructed rule
func (b *AlertRuleBuilder) Build() models.AlertRule {
	return b.rule
}

// ========================================
// Silence Rule Builder
// ========================================

// SilenceRuleBuilder builds SilenceRule instances for testing
type SilenceRuleBuilder struct {
	rule models.SilenceRule
}

// NewSilenceRuleBuilder creates an enabled single-window rule active for the next hour
func NewSilenceRuleBuilder() *SilenceRuleBuilder {
	start := time.Now().Add(-time.Minute)
	end := time.Now().Add(time.Hour)
	return &SilenceRuleBuilder{
		rule: models.SilenceRule{
			Name:     "Test silence",
			Enabled:  true,
			Type:     models.SilenceTypeSingle,
			Matchers: []models.Matcher{},
			Schedule: models.SilenceSchedule{StartsAt: &start, EndsAt: &end},
		},
	}
}

// WithName sets the rule name
func (b *SilenceRuleBuilder) WithName(name string) *SilenceRuleBuilder {
	b.rule.Name = name
	return b
}

// WithMatcher appends a label matcher
func (b *SilenceRuleBuilder) WithMatcher(key, operator, value string) *SilenceRuleBuilder {
	b.rule.Matchers = append(b.rule.Matchers, models.Matcher{Key: key, Operator: operator, Value: value})
	return b
}

// Weekly replaces the schedule with a recurring window
func (b *SilenceRuleBuilder) Weekly(days []int, start, end string) *SilenceRuleBuilder {
	b.rule.Type = models.SilenceTypeRepeat
	b.rule.Schedule = models.SilenceSchedule{DaysOfWeek: days, StartTime: start, EndTime: end}
	return b
}

// Disabled sets the rule as disabled
func (b *SilenceRuleBuilder) Disabled() *SilenceRuleBuilder {
	b.rule.Enabled = false
	return b
}

// Build returns the constructed rule
func (b *SilenceRuleBuilder) Build() models.SilenceRule {
	return b.rule
}

// ========================================
// Resource Builder
// ========================================

// ResourceBuilder builds Resource instances for testing
type ResourceBuilder struct {
	resource models.Resource
}

// NewResourceBuilder creates a healthy aws host
func NewResourceBuilder() *ResourceBuilder {
	return &ResourceBuilder{
		resource: models.Resource{
			Name:     "test-host",
			Type:     "host",
			Provider: "aws",
			Region:   "us-east-1",
			Status:   models.ResourceStatusHealthy,
		},
	}
}

// WithName sets the resource name
func (b *ResourceBuilder) WithName(name string) *ResourceBuilder {
	b.resource.Name = name
	return b
}

// WithType sets the resource type
func (b *ResourceBuilder) WithType(typ string) *ResourceBuilder {
	b.resource.Type = typ
	return b
}

// WithOwner sets the owner
func (b *ResourceBuilder) WithOwner(owner string) *ResourceBuilder {
	b.resource.Owner = owner
	return b
}

// WithIP sets the IP address
func (b *ResourceBuilder) WithIP(ip string) *ResourceBuilder {
	b.resource.IPAddress = ip
	return b
}

// WithTag appends a key/value tag
func (b *ResourceBuilder) WithTag(key, value string) *ResourceBuilder {
	b.resource.Tags = append(b.resource.Tags, models.ResourceTag{Key: key, Value: value})
	return b
}

// Build returns the constructed resource
func (b *ResourceBuilder) Build() models.Resource {
	return b.resource
}
