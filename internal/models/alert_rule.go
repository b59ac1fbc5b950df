package models

import (
	"fmt"
	"strconv"

	"github.com/akmatori/opsconsole/internal/database"
)

// Comparison operators accepted in alert rule conditions
const (
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpEqual        = "=="
	OpNotEqual     = "!="
)

// Condition compares one metric against a threshold
type Condition struct {
	Metric    string  `json:"metric"`
	Operator  string  `json:"operator"`
	Threshold float64 `json:"threshold"`
	Duration  string  `json:"duration,omitempty"`
}

// Evaluate applies the operator to value. Unknown operators never match.
func (c Condition) Evaluate(value float64) bool {
	switch c.Operator {
	case OpGreater:
		return value > c.Threshold
	case OpGreaterEqual:
		return value >= c.Threshold
	case OpLess:
		return value < c.Threshold
	case OpLessEqual:
		return value <= c.Threshold
	case OpEqual:
		return value == c.Threshold
	case OpNotEqual:
		return value != c.Threshold
	default:
		return false
	}
}

// ValidOperator reports whether op is a supported comparison
func ValidOperator(op string) bool {
	switch op {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// ConditionGroup holds AND-combined conditions that raise the group's severity
type ConditionGroup struct {
	Severity   Severity    `json:"severity"`
	Conditions []Condition `json:"conditions"`
}

// RuleAutomation binds a playbook to run when the rule fires
type RuleAutomation struct {
	Enabled    bool           `json:"enabled"`
	ScriptID   string         `json:"script_id"`
	Parameters database.JSONB `json:"parameters,omitempty"`
}

// AlertRule evaluates metrics of the resources selected by Target.
// Condition groups are OR-combined.
type AlertRule struct {
	Base
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	Target               string            `json:"target"`
	ConditionGroups      []ConditionGroup  `json:"condition_groups"`
	Automation           *RuleAutomation   `json:"automation,omitempty"`
	AutomationEnabled    bool              `json:"automation_enabled"`
	Enabled              bool              `json:"enabled"`
	Labels               map[string]string `json:"labels,omitempty"`
	NotificationStrategy string            `json:"notification_strategy_id,omitempty"`
	CreatedBy            string            `json:"created_by,omitempty"`
}

// Normalize derives automation_enabled from the automation binding
func (r *AlertRule) Normalize() {
	r.AutomationEnabled = r.Automation != nil && r.Automation.Enabled
	if r.ConditionGroups == nil {
		r.ConditionGroups = []ConditionGroup{}
	}
}

// HighestSeverity returns the most severe severity among the condition groups
func (r *AlertRule) HighestSeverity() Severity {
	best := Severity("")
	for _, g := range r.ConditionGroups {
		if best == "" || g.Severity.Rank() < best.Rank() {
			best = g.Severity
		}
	}
	return best
}

// FirstCondition returns the first condition, in group order, that watches metric
func (r *AlertRule) FirstCondition(metric string) (Condition, Severity, bool) {
	for _, g := range r.ConditionGroups {
		for _, c := range g.Conditions {
			if c.Metric == metric {
				return c, g.Severity, true
			}
		}
	}
	return Condition{}, "", false
}

// RuleTestResult is the outcome of testing a rule against a sample value
type RuleTestResult struct {
	Matches  bool     `json:"matches"`
	Severity Severity `json:"severity,omitempty"`
	Preview  string   `json:"preview"`
}

// Test evaluates the first condition watching metric against value
func (r *AlertRule) Test(metric string, value float64) RuleTestResult {
	cond, severity, ok := r.FirstCondition(metric)
	if !ok {
		return RuleTestResult{
			Matches: false,
			Preview: fmt.Sprintf("%s = %s: no condition watches this metric", metric, formatNumber(value)),
		}
	}

	matches := cond.Evaluate(value)
	verdict := "does not trigger"
	if matches {
		verdict = "triggers"
	}
	return RuleTestResult{
		Matches:  matches,
		Severity: severity,
		Preview: fmt.Sprintf("%s = %s %s %s (%s): %s",
			metric, formatNumber(value), cond.Operator, formatNumber(cond.Threshold), severity, verdict),
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AlertRuleTemplate is a predefined rule users can start from
type AlertRuleTemplate struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	Target          string           `json:"target"`
	ConditionGroups []ConditionGroup `json:"condition_groups"`
}
