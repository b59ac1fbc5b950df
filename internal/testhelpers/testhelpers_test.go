package testhelpers

import (
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/models"
)

func TestHTTPTestContext_JSONRoundTrip(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type not set on request")
		}
		w.Header().Set("X-Seen-User", r.Header.Get("X-User-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"inc-042","items":[{"n":1}]}`))
	})

	var body map[string]interface{}
	NewHTTPTestContext(t, http.MethodPost, "/incidents", nil).
		AsUser("usr-002").
		WithJSONBody(map[string]string{"summary": "disk full"}).
		Execute(handler).
		AssertStatus(http.StatusCreated).
		AssertHeader("X-Seen-User", "usr-002").
		AssertBodyContains("inc-042").
		DecodeJSON(&body)

	if body["id"] != "inc-042" {
		t.Errorf("id = %v", body["id"])
	}
}

func TestNewSeededServices(t *testing.T) {
	svc := NewSeededServices(t, nil)

	incidents, err := svc.Store.Incidents.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(incidents) == 0 {
		t.Error("expected seeded incidents")
	}
}

func TestMockAlertAdapter(t *testing.T) {
	alert := NewAlertBuilder().WithName("DiskFull").WithHost("db-01").Build()
	mock := NewMockAlertAdapter("custom").WithAlerts(alert)

	var _ alerts.Adapter = mock
	got, err := mock.ParsePayload([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if !mock.ParsePayloadCalled || string(mock.LastBody) != `{}` {
		t.Error("call not recorded")
	}
	if len(got) != 1 || got[0].AlertName != "DiskFull" {
		t.Errorf("got %+v", got)
	}

	mock.WithParseError(errors.New("bad"))
	if _, err := mock.ParsePayload(nil); err == nil {
		t.Error("expected configured error")
	}
}

func TestEventually(t *testing.T) {
	var n atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		n.Store(1)
	}()
	Eventually(t, time.Second, func() bool { return n.Load() == 1 }, "flag set")
}

func TestMustCompleteWithin(t *testing.T) {
	MustCompleteWithin(t, time.Second, func() {})
}

func TestJSONPath(t *testing.T) {
	doc := `{"page":1,"items":[{"id":"a"},{"id":"b","tags":{"env":"prod"}}]}`

	tests := []struct {
		path string
		want interface{}
	}{
		{"page", 1},
		{"items.0.id", "a"},
		{"items.1.tags.env", "prod"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			AssertJSONPath(t, doc, tt.path, tt.want)
		})
	}
}

func TestJSONPath_Missing(t *testing.T) {
	doc := map[string]interface{}{"items": []interface{}{"x"}}
	for _, path := range []string{"nope", "items.3", "items.x", "items.0.id"} {
		if _, ok := JSONPath(doc, path); ok {
			t.Errorf("JSONPath(%q) found a value", path)
		}
	}
}

func TestConcurrentTest(t *testing.T) {
	var count atomic.Int32
	ConcurrentTest(t, 8, func(int) { count.Add(1) })
	if count.Load() != 8 {
		t.Errorf("ran %d workers, want 8", count.Load())
	}
}

func TestBuilders(t *testing.T) {
	rule := NewAlertRuleBuilder().
		WithName("Memory").
		WithTarget("provider:aws").
		WithGroup(models.SeverityCritical, models.Condition{Metric: "mem", Operator: ">", Threshold: 95}).
		Build()
	if rule.Name != "Memory" || rule.Target != "provider:aws" || len(rule.ConditionGroups) != 2 {
		t.Errorf("rule = %+v", rule)
	}

	silence := NewSilenceRuleBuilder().WithMatcher("env", "=", "lab").Build()
	if !silence.Enabled || len(silence.Matchers) != 1 || silence.Schedule.EndsAt == nil {
		t.Errorf("silence = %+v", silence)
	}
	weekly := NewSilenceRuleBuilder().Weekly([]int{6, 0}, "00:00", "06:00").Disabled().Build()
	if weekly.Type != models.SilenceTypeRepeat || weekly.Enabled {
		t.Errorf("weekly = %+v", weekly)
	}

	res := NewResourceBuilder().WithName("db-09").WithTag("env", "prod").WithIP("10.0.0.9").Build()
	if res.Name != "db-09" || len(res.Tags) != 1 || res.IPAddress != "10.0.0.9" {
		t.Errorf("resource = %+v", res)
	}

	resolved := NewAlertBuilder().Resolved().Build()
	if resolved.Status != alerts.StatusResolved || resolved.EndedAt == nil {
		t.Errorf("resolved alert = %+v", resolved)
	}
	if NewAlertBuilder().WithLabel("env", "prod").Build().Labels["env"] != "prod" {
		t.Error("label not set")
	}
}
