package services

import (
	"context"
	"testing"
	"time"

	"github.com/akmatori/opsconsole/internal/models"
)

func TestParseMatchers(t *testing.T) {
	got, err := ParseMatchers(`[{"key":"env","operator":"=","value":"staging"}]`)
	if err != nil {
		t.Fatalf("ParseMatchers() error = %v", err)
	}
	if len(got) != 1 || got[0].Value != "staging" {
		t.Errorf("ParseMatchers() = %+v", got)
	}

	for _, raw := range []string{`not json`, `{"key":"env"}`, `[`} {
		_, err := ParseMatchers(raw)
		assertStatus(t, err, 400)
	}
}

func TestSilenceService_ListFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	enabled := true
	got, _ := svc.Silences.List(ctx, SilenceFilter{Enabled: &enabled})
	if len(got) != 2 {
		t.Errorf("enabled filter = %d, want 2", len(got))
	}

	got, _ = svc.Silences.List(ctx, SilenceFilter{Type: "single"})
	if len(got) != 2 {
		t.Errorf("type filter = %d, want 2", len(got))
	}

	got, _ = svc.Silences.List(ctx, SilenceFilter{Matchers: []models.Matcher{{Key: "service", Operator: "=", Value: "orders-db"}}})
	if len(got) != 1 || got[0].ID != "sil-002" {
		t.Errorf("matchers filter = %+v", got)
	}

	got, _ = svc.Silences.List(ctx, SilenceFilter{Matchers: []models.Matcher{
		{Key: "service", Operator: "=", Value: "orders-db"},
		{Key: "env", Operator: "=", Value: "staging"},
	}})
	if len(got) != 0 {
		t.Errorf("a rule must carry every requested matcher, got %d", len(got))
	}
}

func TestSilenceService_BatchDisableLeavesOthers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	result, err := svc.Silences.BatchAct(ctx, "usr-001", BatchRequest{Action: "disable", IDs: []string{"sil-001"}})
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 {
		t.Errorf("Updated = %d", result.Updated)
	}

	one, _ := svc.Silences.Get(ctx, "sil-001")
	two, _ := svc.Silences.Get(ctx, "sil-002")
	if one.Enabled || !two.Enabled {
		t.Errorf("sil-001 enabled=%v sil-002 enabled=%v", one.Enabled, two.Enabled)
	}
}

func TestSilenceService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	tests := []struct {
		name string
		rule models.SilenceRule
	}{
		{"no name", models.SilenceRule{Type: models.SilenceTypeSingle}},
		{"bad type", models.SilenceRule{Name: "x", Type: "sometimes"}},
		{"bad regex", models.SilenceRule{Name: "x", Type: models.SilenceTypeSingle,
			Matchers: []models.Matcher{{Key: "a", Operator: "=~", Value: "("}}}},
		{"bad clock", models.SilenceRule{Name: "x", Type: models.SilenceTypeRepeat,
			Schedule: models.SilenceSchedule{StartTime: "25:00", EndTime: "01:00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			_, err := svc.Silences.Create(ctx, "usr-001", &rule)
			assertStatus(t, err, 400)
		})
	}
}

func TestSilenceService_StatusAndMatching(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)
	rule, err := svc.Silences.Create(ctx, "usr-001", &models.SilenceRule{
		Name:     "Now",
		Enabled:  true,
		Type:     models.SilenceTypeSingle,
		Matchers: []models.Matcher{{Key: "env", Operator: "=", Value: "lab"}},
		Schedule: models.SilenceSchedule{StartsAt: &start, EndsAt: &end},
	})
	if err != nil {
		t.Fatal(err)
	}

	status, err := svc.Silences.Status(ctx, rule.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Active || status.NextChange == nil || !status.NextChange.Equal(end) {
		t.Errorf("Status() = %+v", status)
	}

	match, _ := svc.Silences.Matching(ctx, map[string]string{"env": "lab"}, time.Now())
	if match == nil || match.ID != rule.ID {
		t.Errorf("Matching() = %v", match)
	}
	match, _ = svc.Silences.Matching(ctx, map[string]string{"env": "prod"}, time.Now())
	if match != nil {
		t.Errorf("Matching() = %v, want nil", match.ID)
	}

	past, _ := svc.Silences.Status(ctx, "sil-002")
	if past.Active || past.NextChange != nil {
		t.Errorf("expired window: %+v", past)
	}
}
