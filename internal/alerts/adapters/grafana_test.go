package adapters

import (
	"testing"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/models"
)

func TestNewGrafanaAdapter(t *testing.T) {
	adapter := NewGrafanaAdapter()
	if adapter.SourceType() != "grafana" {
		t.Errorf("Expected source type 'grafana', got '%s'", adapter.SourceType())
	}
}

func TestGrafanaAdapter_ParsePayload_UnifiedAlerting_Firing(t *testing.T) {
	payload := []byte(`{
		"receiver": "opsconsole",
		"status": "firing",
		"alerts": [
			{
				"status": "firing",
				"labels": {
					"alertname": "DiskSpaceLow",
					"severity": "warning",
					"instance": "storage-01:9100",
					"job": "node-exporter"
				},
				"annotations": {
					"summary": "Disk space is below 10%",
					"runbook_url": "https://runbooks.example.com/disk"
				},
				"values": {"disk_free_percent": 7.5},
				"startsAt": "2024-01-15T10:30:00Z",
				"endsAt": "0001-01-01T00:00:00Z",
				"fingerprint": "gra123"
			}
		]
	}`)

	parsed, err := NewGrafanaAdapter().ParsePayload(payload)
	if err != nil {
		t.Fatalf("ParsePayload returned error: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(parsed))
	}

	alert := parsed[0]
	if alert.AlertName != "DiskSpaceLow" {
		t.Errorf("Expected AlertName 'DiskSpaceLow', got '%s'", alert.AlertName)
	}
	if alert.Severity != models.SeverityWarning {
		t.Errorf("Expected Severity 'warning', got '%s'", alert.Severity)
	}
	if alert.Status != alerts.StatusFiring {
		t.Errorf("Expected Status 'firing', got '%s'", alert.Status)
	}
	if alert.TargetHost != "storage-01" {
		t.Errorf("Expected TargetHost 'storage-01', got '%s'", alert.TargetHost)
	}
	if alert.MetricName != "disk_free_percent" || alert.MetricValue != "7.5" {
		t.Errorf("Expected metric disk_free_percent=7.5, got %s=%s", alert.MetricName, alert.MetricValue)
	}
	if alert.StartedAt == nil {
		t.Error("Expected StartedAt to be set")
	}
	if alert.EndedAt != nil {
		t.Error("Expected zero endsAt to be dropped")
	}
	if alert.Fingerprint != "gra123" {
		t.Errorf("Expected Fingerprint 'gra123', got '%s'", alert.Fingerprint)
	}
}

func TestGrafanaAdapter_ParsePayload_UnifiedAlerting_MissingAlertname(t *testing.T) {
	payload := []byte(`{"alerts": [{"status": "resolved", "labels": {}, "annotations": {}}]}`)

	parsed, err := NewGrafanaAdapter().ParsePayload(payload)
	if err != nil {
		t.Fatalf("ParsePayload returned error: %v", err)
	}
	if parsed[0].AlertName != "Grafana Alert" {
		t.Errorf("Expected default alert name, got '%s'", parsed[0].AlertName)
	}
	if parsed[0].Status != alerts.StatusResolved {
		t.Errorf("Expected Status 'resolved', got '%s'", parsed[0].Status)
	}
}

func TestGrafanaAdapter_ParsePayload_LegacyAlerting(t *testing.T) {
	payload := []byte(`{
		"ruleName": "CPU Alert",
		"state": "alerting",
		"message": "CPU usage is high",
		"ruleUrl": "http://grafana:3000/d/abc123",
		"ruleId": 42,
		"title": "CPU Alert Title",
		"orgId": 1,
		"dashboardId": 10,
		"evalMatches": [
			{"value": 95.5, "metric": "cpu_usage", "tags": {"instance": "web-01:9100", "job": "node"}}
		]
	}`)

	parsed, err := NewGrafanaAdapter().ParsePayload(payload)
	if err != nil {
		t.Fatalf("ParsePayload returned error: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(parsed))
	}

	alert := parsed[0]
	if alert.AlertName != "CPU Alert" {
		t.Errorf("Expected AlertName 'CPU Alert', got '%s'", alert.AlertName)
	}
	if alert.Severity != models.SeverityCritical {
		t.Errorf("Expected Severity 'critical' for alerting state, got '%s'", alert.Severity)
	}
	if alert.TargetHost != "web-01" {
		t.Errorf("Expected TargetHost 'web-01', got '%s'", alert.TargetHost)
	}
	if alert.MetricName != "cpu_usage" || alert.MetricValue != "95.5" {
		t.Errorf("Expected metric cpu_usage=95.5, got %s=%s", alert.MetricName, alert.MetricValue)
	}
	if alert.Fingerprint != "1-10-42" {
		t.Errorf("Expected Fingerprint '1-10-42', got '%s'", alert.Fingerprint)
	}
	if alert.Labels["alertname"] != "CPU Alert" {
		t.Errorf("Expected alertname label, got %v", alert.Labels)
	}
}

func TestGrafanaAdapter_ParsePayload_LegacyAlerting_States(t *testing.T) {
	testCases := []struct {
		state            string
		expectedStatus   alerts.Status
		expectedSeverity models.Severity
	}{
		{"alerting", alerts.StatusFiring, models.SeverityCritical},
		{"pending", alerts.StatusFiring, models.SeverityWarning},
		{"ok", alerts.StatusResolved, models.SeverityInfo},
		{"no_data", alerts.StatusResolved, models.SeverityInfo},
		{"paused", alerts.StatusResolved, models.SeverityInfo},
	}

	adapter := NewGrafanaAdapter()
	for _, tc := range testCases {
		payload := []byte(`{"ruleName": "Test", "state": "` + tc.state + `", "ruleId": 1}`)

		parsed, err := adapter.ParsePayload(payload)
		if err != nil {
			t.Fatalf("ParsePayload returned error for state '%s': %v", tc.state, err)
		}
		if parsed[0].Status != tc.expectedStatus {
			t.Errorf("State '%s': expected status %s, got %s", tc.state, tc.expectedStatus, parsed[0].Status)
		}
		if parsed[0].Severity != tc.expectedSeverity {
			t.Errorf("State '%s': expected severity %s, got %s", tc.state, tc.expectedSeverity, parsed[0].Severity)
		}
	}
}

func TestGrafanaAdapter_ParsePayload_TitleFallback(t *testing.T) {
	parsed, err := NewGrafanaAdapter().ParsePayload([]byte(`{"title": "Only Title", "state": "alerting"}`))
	if err != nil {
		t.Fatalf("ParsePayload returned error: %v", err)
	}
	if parsed[0].AlertName != "Only Title" {
		t.Errorf("Expected AlertName from title, got '%s'", parsed[0].AlertName)
	}
}

func TestGrafanaAdapter_ParsePayload_Empty(t *testing.T) {
	parsed, err := NewGrafanaAdapter().ParsePayload([]byte(`{"receiver": "x", "alerts": []}`))
	if err != nil {
		t.Fatalf("ParsePayload returned error: %v", err)
	}
	if len(parsed) != 0 {
		t.Errorf("Expected 0 alerts, got %d", len(parsed))
	}
}

func TestGrafanaAdapter_ParsePayload_InvalidJSON(t *testing.T) {
	if _, err := NewGrafanaAdapter().ParsePayload([]byte(`{invalid}`)); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}
