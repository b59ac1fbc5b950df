package services

import (
	"context"
	"testing"

	"github.com/akmatori/opsconsole/internal/models"
)

func TestResourceService_ListFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	tests := []struct {
		name   string
		filter ResourceFilter
		want   int
	}{
		{"all", ResourceFilter{}, 7},
		{"type", ResourceFilter{Type: "host"}, 3},
		{"provider", ResourceFilter{Provider: "aws"}, 4},
		{"tag key and value", ResourceFilter{Tag: "env:staging"}, 1},
		{"keyword", ResourceFilter{Keyword: "WEB"}, 3},
		{"group", ResourceFilter{GroupID: "grp-002"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Resources.List(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("List() = %d resources, want %d", len(got), tt.want)
			}
		})
	}
}

func TestResourceService_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	_, err := svc.Resources.Create(ctx, "usr-001", &models.Resource{Name: "x"})
	assertStatus(t, err, 400)

	created, err := svc.Resources.Create(ctx, "usr-001", &models.Resource{Name: "batch-01", Type: "host"})
	if err != nil {
		t.Fatal(err)
	}
	if created.Status != models.ResourceStatusUnknown {
		t.Errorf("Status = %q, want unknown", created.Status)
	}
}

func TestResourceService_BatchAct(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	result, err := svc.Resources.BatchAct(ctx, "usr-001", BatchRequest{Action: "add_tag", IDs: []string{"res-001", "res-009"}, TagKey: "tier", TagValue: "gold"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 || len(result.Failed) != 1 {
		t.Errorf("add_tag = %+v", result)
	}
	res, _ := svc.Resources.Get(ctx, "res-001")
	if !res.HasTag("tier:gold") {
		t.Errorf("tags = %+v", res.Tags)
	}

	if _, err := svc.Resources.BatchAct(ctx, "usr-001", BatchRequest{Action: "set_owner", IDs: []string{"res-001"}, Owner: "Platform"}); err != nil {
		t.Fatal(err)
	}
	res, _ = svc.Resources.Get(ctx, "res-001")
	if res.Owner != "Platform" {
		t.Errorf("Owner = %q", res.Owner)
	}

	for _, req := range []BatchRequest{
		{Action: "set_owner", IDs: []string{"res-001"}},
		{Action: "add_tag", IDs: []string{"res-001"}},
		{Action: "reboot", IDs: []string{"res-001"}},
	} {
		_, err := svc.Resources.BatchAct(ctx, "usr-001", req)
		assertStatus(t, err, 400)
	}
}

func TestResourceService_DeleteDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	if err := svc.Resources.Delete(ctx, "usr-001", "res-003"); err != nil {
		t.Fatal(err)
	}
	group, _ := svc.Resources.GetGroup(ctx, "grp-002")
	if len(group.MemberIDs) != 2 {
		t.Errorf("group members = %v, deletion must not cascade", group.MemberIDs)
	}
	incidents, _ := svc.Incidents.List(ctx, IncidentFilter{ResourceID: "res-003"})
	if len(incidents) != 1 {
		t.Errorf("incidents of deleted resource = %d, want 1", len(incidents))
	}
}

func TestResourceService_MetricsDeterministic(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	first, err := svc.Resources.Metrics(ctx, "res-001")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := svc.Resources.Metrics(ctx, "res-001")
	if len(first.Metrics) == 0 {
		t.Fatal("no series")
	}
	for i := range first.Metrics {
		a, b := first.Metrics[i], second.Metrics[i]
		if a.Name != b.Name || a.Current != b.Current || len(a.Points) != 24 {
			t.Fatalf("series %d differs between calls", i)
		}
		for j := range a.Points {
			if a.Points[j].Value != b.Points[j].Value {
				t.Fatalf("point %d of %s differs", j, a.Name)
			}
		}
	}

	_, err = svc.Resources.Metrics(ctx, "res-404")
	assertStatus(t, err, 404)
}

func TestResourceService_TopologyAndOverview(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	topo, err := svc.Resources.Topology(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(topo.Nodes) != 7 || len(topo.Edges) != 2 {
		t.Errorf("Topology() = %d nodes / %d edges", len(topo.Nodes), len(topo.Edges))
	}

	overview, _ := svc.Resources.Overview(ctx)
	if overview.Total != 7 || overview.ByType["host"] != 3 {
		t.Errorf("Overview() = %+v", overview)
	}
}

func TestResourceService_DiscoveryJob(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	_, err := svc.Resources.CreateDiscoveryJob(ctx, "usr-001", &models.DiscoveryJob{Name: "x", Kind: "prometheus", DatasourceID: "ds-404"})
	assertStatus(t, err, 400)

	job, err := svc.Resources.CreateDiscoveryJob(ctx, "usr-001", &models.DiscoveryJob{Name: "Tokyo scan", Kind: "prometheus", DatasourceID: "ds-001", Enabled: true})
	if err != nil {
		t.Fatal(err)
	}
	ran, err := svc.Resources.RunDiscoveryJob(ctx, "usr-001", job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ran.DiscoveredCount != 3 || ran.LastRunAt == nil {
		t.Errorf("RunDiscoveryJob() = %+v", ran)
	}
}
