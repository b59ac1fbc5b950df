package services

import (
	"context"
	"testing"
	"time"
)

func TestAnalyticsService_Overview(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	ov, err := svc.Analytics.Overview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Incidents.Total != 5 || ov.Incidents.Open != 4 || ov.Incidents.BySeverity["warning"] != 2 {
		t.Errorf("incidents = %+v", ov.Incidents)
	}
	if ov.MTTAMinutes != 4 || ov.MTTRMinutes != 40 {
		t.Errorf("mtta = %v mttr = %v", ov.MTTAMinutes, ov.MTTRMinutes)
	}
	if ov.EnabledRules != 4 || ov.ExecutionSuccessRate != 50 {
		t.Errorf("rules = %d success rate = %v", ov.EnabledRules, ov.ExecutionSuccessRate)
	}
	if len(ov.TopResources) != 5 || ov.TopResources[0].Incidents != 1 {
		t.Errorf("top resources = %+v", ov.TopResources)
	}
}

func TestAnalyticsService_Cache(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	first, _ := svc.Analytics.Overview(ctx)
	if _, err := svc.Incidents.Act(ctx, "usr-001", "inc-001", IncidentActionRequest{Action: ActionResolve}); err != nil {
		t.Fatal(err)
	}

	cached, _ := svc.Analytics.Overview(ctx)
	if cached != first {
		t.Error("second call within the TTL should return the cached overview")
	}

	svc.Analytics.Invalidate()
	fresh, _ := svc.Analytics.Overview(ctx)
	if fresh.Incidents.Open != first.Incidents.Open-1 {
		t.Errorf("open = %d after invalidation, want %d", fresh.Incidents.Open, first.Incidents.Open-1)
	}
}

func TestAnalyticsService_NoCache(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)
	uncached := NewAnalyticsService(svc.Store, 0)

	a, _ := uncached.Overview(ctx)
	time.Sleep(time.Millisecond)
	b, _ := uncached.Overview(ctx)
	if a == b || !b.GeneratedAt.After(a.GeneratedAt) {
		t.Error("without a TTL every call recomputes")
	}
}

func TestAnalyticsService_Snapshot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	snap, err := svc.Analytics.Snapshot(ctx, "mttr")
	if err != nil {
		t.Fatal(err)
	}
	if snap.ID != "mttr" {
		t.Errorf("Snapshot() = %+v", snap)
	}
	_, err = svc.Analytics.Snapshot(ctx, "nope")
	assertStatus(t, err, 404)
}
