package adapters

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/akmatori/opsconsole/internal/alerts"
)

// AlertmanagerAdapter handles Prometheus Alertmanager webhooks
type AlertmanagerAdapter struct {
	alerts.BaseAdapter
}

// NewAlertmanagerAdapter creates a new Alertmanager adapter
func NewAlertmanagerAdapter() *AlertmanagerAdapter {
	return &AlertmanagerAdapter{
		BaseAdapter: alerts.BaseAdapter{Source: "alertmanager"},
	}
}

// AlertmanagerPayload represents the webhook payload from Alertmanager
type AlertmanagerPayload struct {
	Alerts            []AlertmanagerAlert `json:"alerts"`
	Status            string              `json:"status"`
	GroupLabels       map[string]string   `json:"groupLabels"`
	CommonLabels      map[string]string   `json:"commonLabels"`
	CommonAnnotations map[string]string   `json:"commonAnnotations"`
	ExternalURL       string              `json:"externalURL"`
	Version           string              `json:"version"`
	GroupKey          string              `json:"groupKey"`
}

// AlertmanagerAlert represents a single alert in the payload
type AlertmanagerAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     time.Time         `json:"startsAt"`
	EndsAt       time.Time         `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint"`
}

// ParsePayload parses Alertmanager webhook payload into normalized alerts.
// Common labels and annotations fill in what an alert leaves out.
func (a *AlertmanagerAdapter) ParsePayload(body []byte) ([]alerts.NormalizedAlert, error) {
	var payload AlertmanagerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse alertmanager payload: %w", err)
	}

	normalized := make([]alerts.NormalizedAlert, 0, len(payload.Alerts))
	for _, alert := range payload.Alerts {
		alert.Labels = withDefaults(alert.Labels, payload.CommonLabels)
		alert.Annotations = withDefaults(alert.Annotations, payload.CommonAnnotations)
		normalized = append(normalized, a.parseAlert(alert))
	}
	return normalized, nil
}

func (a *AlertmanagerAdapter) parseAlert(alert AlertmanagerAlert) alerts.NormalizedAlert {
	alertName := alert.Labels["alertname"]
	summary := alert.Annotations["summary"]
	if summary == "" {
		summary = alertName
	}

	var startedAt, endedAt *time.Time
	if !alert.StartsAt.IsZero() {
		startedAt = &alert.StartsAt
	}
	if !alert.EndsAt.IsZero() && alert.Status == "resolved" {
		endedAt = &alert.EndsAt
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
		MetricName:    alert.Labels["metric"],
		MetricValue:   metricValue(alert.Annotations["value"]),
		RunbookURL:    alert.Annotations["runbook_url"],
		StartedAt:     startedAt,
		EndedAt:       endedAt,
		Fingerprint:   fingerprint,
	}
}

// withDefaults returns m with the keys of defaults it lacks
func withDefaults(m, defaults map[string]string) map[string]string {
	out := make(map[string]string, len(m)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}

// metricValue keeps v only when it is numeric
func metricValue(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return ""
	}
	return v
}
