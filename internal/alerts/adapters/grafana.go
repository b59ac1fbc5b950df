package adapters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/models"
)

// GrafanaAdapter handles Grafana alerting webhooks
type GrafanaAdapter struct {
	alerts.BaseAdapter
}

// NewGrafanaAdapter creates a new Grafana adapter
func NewGrafanaAdapter() *GrafanaAdapter {
	return &GrafanaAdapter{
		BaseAdapter: alerts.BaseAdapter{Source: "grafana"},
	}
}

// GrafanaPayload represents the webhook payload from Grafana
// Supports both legacy alerting and Grafana Alerting (unified alerting)
type GrafanaPayload struct {
	// Unified Alerting format
	Receiver string         `json:"receiver"`
	Status   string         `json:"status"`
	Alerts   []GrafanaAlert `json:"alerts"`

	// Legacy alerting format
	RuleName    string `json:"ruleName"`
	State       string `json:"state"`
	Message     string `json:"message"`
	RuleURL     string `json:"ruleUrl"`
	RuleID      int    `json:"ruleId"`
	Title       string `json:"title"`
	OrgID       int    `json:"orgId"`
	DashboardID int    `json:"dashboardId"`
	PanelID     int    `json:"panelId"`
	EvalMatches []struct {
		Value  float64           `json:"value"`
		Metric string            `json:"metric"`
		Tags   map[string]string `json:"tags"`
	} `json:"evalMatches"`
}

// GrafanaAlert represents a single alert in unified alerting
type GrafanaAlert struct {
	Status       string             `json:"status"`
	Labels       map[string]string  `json:"labels"`
	Annotations  map[string]string  `json:"annotations"`
	StartsAt     string             `json:"startsAt"`
	EndsAt       string             `json:"endsAt"`
	Fingerprint  string             `json:"fingerprint"`
	GeneratorURL string             `json:"generatorURL"`
	Values       map[string]float64 `json:"values"`
}

// ParsePayload parses Grafana webhook payload into normalized alerts
func (a *GrafanaAdapter) ParsePayload(body []byte) ([]alerts.NormalizedAlert, error) {
	var payload GrafanaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse grafana payload: %w", err)
	}

	// Unified alerting carries an alerts array, legacy alerting a single rule
	if len(payload.Alerts) > 0 {
		normalized := make([]alerts.NormalizedAlert, 0, len(payload.Alerts))
		for _, alert := range payload.Alerts {
			normalized = append(normalized, a.parseUnifiedAlert(alert))
		}
		return normalized, nil
	}
	if payload.RuleName == "" && payload.Title == "" {
		return []alerts.NormalizedAlert{}, nil
	}
	return []alerts.NormalizedAlert{a.parseLegacyAlert(payload)}, nil
}

func (a *GrafanaAdapter) parseUnifiedAlert(alert GrafanaAlert) alerts.NormalizedAlert {
	alertName := alert.Labels["alertname"]
	if alertName == "" {
		alertName = "Grafana Alert"
	}
	summary := alert.Annotations["summary"]
	if summary == "" {
		summary = alertName
	}

	var metricName, value string
	// only a single-value evaluation identifies the metric
	if len(alert.Values) == 1 {
		for name, v := range alert.Values {
			metricName, value = name, fmt.Sprint(v)
		}
	}
	if m := alert.Labels["metric"]; m != "" {
		metricName = m
	}

	fingerprint := alert.Fingerprint
	if fingerprint == "" {
		fingerprint = alerts.Fingerprint(alertName, alert.Labels)
	}

	return alerts.NormalizedAlert{
		AlertName:     alertName,
		Severity:      alerts.NormalizeSeverity(alert.Labels["severity"]),
		Status:        alerts.NormalizeStatus(alert.Status),
		Summary:       summary,
		Description:   alert.Annotations["description"],
		TargetHost:    alerts.HostName(alert.Labels["instance"]),
		TargetService: alert.Labels["job"],
		Labels:        alert.Labels,
		MetricName:    metricName,
		MetricValue:   value,
		RunbookURL:    alert.Annotations["runbook_url"],
		StartedAt:     parseTime(alert.StartsAt),
		EndedAt:       parseTime(alert.EndsAt),
		Fingerprint:   fingerprint,
	}
}

func (a *GrafanaAdapter) parseLegacyAlert(payload GrafanaPayload) alerts.NormalizedAlert {
	status := alerts.StatusFiring
	switch strings.ToLower(payload.State) {
	case "ok", "no_data", "paused":
		status = alerts.StatusResolved
	}

	var targetHost, metricName, metricValue string
	labels := make(map[string]string)
	if len(payload.EvalMatches) > 0 {
		match := payload.EvalMatches[0]
		metricName = match.Metric
		metricValue = fmt.Sprintf("%v", match.Value)
		targetHost = alerts.HostName(match.Tags["instance"])
		for k, v := range match.Tags {
			labels[k] = v
		}
	}

	alertName := payload.RuleName
	if alertName == "" {
		alertName = payload.Title
	}
	labels["alertname"] = alertName

	return alerts.NormalizedAlert{
		AlertName:   alertName,
		Severity:    mapStateToSeverity(payload.State),
		Status:      status,
		Summary:     firstNonEmpty(payload.Title, alertName),
		Description: payload.Message,
		TargetHost:  targetHost,
		Labels:      labels,
		MetricName:  metricName,
		MetricValue: metricValue,
		RunbookURL:  payload.RuleURL,
		Fingerprint: fmt.Sprintf("%d-%d-%d", payload.OrgID, payload.DashboardID, payload.RuleID),
	}
}

// mapStateToSeverity maps Grafana state to normalized severity
func mapStateToSeverity(state string) models.Severity {
	switch strings.ToLower(state) {
	case "alerting":
		return models.SeverityCritical
	case "no_data", "ok", "paused":
		return models.SeverityInfo
	default:
		return models.SeverityWarning
	}
}

func parseTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.IsZero() || t.Year() <= 1 {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
