package services

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/models"
)

// ResourceFilter narrows a resource listing
type ResourceFilter struct {
	Type     string
	Provider string
	Region   string
	Status   string
	Owner    string
	Tag      string
	GroupID  string
	Keyword  string
}

// ResourceOptions are the distinct filter values of the inventory
type ResourceOptions struct {
	Types     []string `json:"types"`
	Providers []string `json:"providers"`
	Regions   []string `json:"regions"`
	Owners    []string `json:"owners"`
	Statuses  []string `json:"statuses"`
	TagKeys   []string `json:"tag_keys"`
}

// ResourceOverview summarises the inventory
type ResourceOverview struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByType     map[string]int `json:"by_type"`
	ByProvider map[string]int `json:"by_provider"`
	Groups     int            `json:"groups"`
	Unhealthy  int            `json:"unhealthy"`
}

// TopologyNode is one resource in the dependency graph
type TopologyNode struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// TopologyEdge links two resources
type TopologyEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// Topology is the dependency graph served by /resources/topology
type Topology struct {
	Nodes []TopologyNode `json:"nodes"`
	Edges []TopologyEdge `json:"edges"`
}

// MetricPoint is one sample of a metric series
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricSeries is one synthetic metric of a resource
type MetricSeries struct {
	Name    string        `json:"name"`
	Current float64       `json:"current"`
	Points  []MetricPoint `json:"points"`
}

// ResourceMetrics is served by /resources/{id}/metrics
type ResourceMetrics struct {
	ResourceID string         `json:"resource_id"`
	Metrics    []MetricSeries `json:"metrics"`
}

// ResourceService manages the inventory: resources, groups, datasources and discovery jobs
type ResourceService struct {
	store         *Store
	resourceTypes []models.ResourceType
	exporterTypes []models.ExporterType
	changes       changes
	now           func() time.Time
}

// NewResourceService creates a new ResourceService
func NewResourceService(store *Store, resourceTypes []models.ResourceType, exporterTypes []models.ExporterType, audit *AuditService, publisher events.Publisher) *ResourceService {
	return &ResourceService{
		store:         store,
		resourceTypes: resourceTypes,
		exporterTypes: exporterTypes,
		changes:       changes{audit: audit, events: publisher},
		now:           time.Now,
	}
}

// ========== Resources ==========

// List returns resources matching filter
func (s *ResourceService) List(ctx context.Context, filter ResourceFilter) ([]models.Resource, error) {
	var members map[string]bool
	if filter.GroupID != "" {
		group, err := s.store.ResourceGroups.Get(ctx, filter.GroupID)
		if err != nil {
			return nil, err
		}
		members = make(map[string]bool, len(group.MemberIDs))
		for _, id := range group.MemberIDs {
			members[id] = true
		}
	}

	keyword := strings.ToLower(filter.Keyword)
	return s.store.Resources.Filter(ctx, func(r *models.Resource) bool {
		switch {
		case filter.Type != "" && r.Type != filter.Type,
			filter.Provider != "" && r.Provider != filter.Provider,
			filter.Region != "" && r.Region != filter.Region,
			filter.Status != "" && string(r.Status) != filter.Status,
			filter.Owner != "" && r.Owner != filter.Owner,
			filter.Tag != "" && !r.HasTag(filter.Tag),
			members != nil && !members[r.ID]:
			return false
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(r.Name), keyword) &&
			!strings.Contains(strings.ToLower(r.IPAddress), keyword) &&
			!strings.Contains(strings.ToLower(r.ID), keyword) {
			return false
		}
		return true
	})
}

// Get returns one resource
func (s *ResourceService) Get(ctx context.Context, id string) (*models.Resource, error) {
	return s.store.Resources.Get(ctx, id)
}

func validateResource(r *models.Resource) error {
	if strings.TrimSpace(r.Name) == "" {
		return apierr.BadRequest("name is required")
	}
	if r.Type == "" {
		return apierr.BadRequest("type is required")
	}
	if r.Status == "" {
		r.Status = models.ResourceStatusUnknown
	}
	return nil
}

// Create stores a new resource
func (s *ResourceService) Create(ctx context.Context, userID string, resource *models.Resource) (*models.Resource, error) {
	resource.ID = ""
	if err := validateResource(resource); err != nil {
		return nil, err
	}
	created, err := s.store.Resources.Create(ctx, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	logrus.Infof("Created resource: %s (%s)", created.Name, created.ID)
	s.changes.record(ctx, userID, events.TypeCreated, "create", "resource", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// Update shallow-merges patch over the resource
func (s *ResourceService) Update(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.Resource, error) {
	updated, err := s.store.Resources.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "resource", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// Delete soft-deletes a resource. Groups keep referencing it.
func (s *ResourceService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Resources.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "resource", id, nil, nil)
	return nil
}

// BatchAct supports delete, set_owner (owner) and add_tag (tag_key, tag_value)
func (s *ResourceService) BatchAct(ctx context.Context, userID string, req BatchRequest) (*BatchResult, error) {
	switch req.Action {
	case "delete":
	case "set_owner":
		if req.Owner == "" {
			return nil, apierr.BadRequest("owner is required")
		}
	case "add_tag":
		if req.TagKey == "" {
			return nil, apierr.BadRequest("tag_key is required")
		}
	default:
		return nil, apierr.BadRequest("Unknown batch action: %s", req.Action)
	}

	result := newBatchResult()
	for _, id := range req.IDs {
		var err error
		if req.Action == "delete" {
			err = s.store.Resources.SoftDelete(ctx, id)
		} else {
			_, err = s.store.Resources.Mutate(ctx, id, func(res *models.Resource) error {
				if req.Action == "set_owner" {
					res.Owner = req.Owner
				} else {
					res.AddTag(req.TagKey, req.TagValue)
				}
				return nil
			})
		}
		if err != nil {
			result.fail(id, err)
			continue
		}
		result.Updated++
		s.changes.record(ctx, userID, events.TypeUpdated, "batch_"+req.Action, "resource", id, nil, nil)
	}
	return result, nil
}

// Import creates every resource of the list; invalid entries are reported and skipped
func (s *ResourceService) Import(ctx context.Context, userID string, resources []models.Resource) (*ImportResult, error) {
	if len(resources) == 0 {
		return nil, apierr.BadRequest("resources is required")
	}
	result := &ImportResult{IDs: []string{}, Failed: []BatchFailure{}}
	for i := range resources {
		res := resources[i]
		created, err := s.Create(ctx, userID, &res)
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: res.Name, Message: errorMessage(err)})
			continue
		}
		result.Imported++
		result.IDs = append(result.IDs, created.ID)
	}
	return result, nil
}

// Options returns the distinct filter values of the active resources
func (s *ResourceService) Options(ctx context.Context) (*ResourceOptions, error) {
	resources, err := s.store.Resources.List(ctx)
	if err != nil {
		return nil, err
	}
	types, providers, regions, owners, tagKeys := map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, r := range resources {
		types[r.Type] = r.Type != ""
		providers[r.Provider] = r.Provider != ""
		regions[r.Region] = r.Region != ""
		owners[r.Owner] = r.Owner != ""
		for _, t := range r.Tags {
			tagKeys[t.Key] = true
		}
	}
	return &ResourceOptions{
		Types:     trueKeys(types),
		Providers: trueKeys(providers),
		Regions:   trueKeys(regions),
		Owners:    trueKeys(owners),
		TagKeys:   trueKeys(tagKeys),
		Statuses: []string{
			string(models.ResourceStatusHealthy),
			string(models.ResourceStatusWarning),
			string(models.ResourceStatusCritical),
			string(models.ResourceStatusUnknown),
		},
	}, nil
}

func trueKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Overview counts resources by status, type and provider
func (s *ResourceService) Overview(ctx context.Context) (*ResourceOverview, error) {
	resources, err := s.store.Resources.List(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.ResourceGroups.Count(ctx)
	if err != nil {
		return nil, err
	}
	ov := &ResourceOverview{
		Total:      len(resources),
		ByStatus:   map[string]int{},
		ByType:     map[string]int{},
		ByProvider: map[string]int{},
		Groups:     groups,
	}
	for _, r := range resources {
		ov.ByStatus[string(r.Status)]++
		ov.ByType[r.Type]++
		ov.ByProvider[r.Provider]++
		if r.Status == models.ResourceStatusWarning || r.Status == models.ResourceStatusCritical {
			ov.Unhealthy++
		}
	}
	return ov, nil
}

// Topology builds the dependency graph of the active resources. Edges to
// deleted or unknown resources are dropped.
func (s *ResourceService) Topology(ctx context.Context) (*Topology, error) {
	resources, err := s.store.Resources.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(resources))
	topo := &Topology{Nodes: make([]TopologyNode, 0, len(resources)), Edges: []TopologyEdge{}}
	for _, r := range resources {
		known[r.ID] = true
		topo.Nodes = append(topo.Nodes, TopologyNode{ID: r.ID, Name: r.Name, Type: r.Type, Status: string(r.Status)})
	}
	for _, r := range resources {
		for _, dep := range r.DependsOn {
			if known[dep] {
				topo.Edges = append(topo.Edges, TopologyEdge{Source: r.ID, Target: dep, Kind: "depends_on"})
			}
		}
	}
	return topo, nil
}

// Count returns the number of active resources matching filter
func (s *ResourceService) Count(ctx context.Context, filter ResourceFilter) (int, error) {
	resources, err := s.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(resources), nil
}

// ResourceTypes returns the resource type catalog
func (s *ResourceService) ResourceTypes() []models.ResourceType {
	return append([]models.ResourceType(nil), s.resourceTypes...)
}

// ExporterTypes returns the exporter catalog
func (s *ResourceService) ExporterTypes() []models.ExporterType {
	return append([]models.ExporterType(nil), s.exporterTypes...)
}

// Metrics returns synthetic series for the resource. Values depend only on the
// resource id, so repeated calls return the same numbers.
func (s *ResourceService) Metrics(ctx context.Context, id string) (*ResourceMetrics, error) {
	res, err := s.store.Resources.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	names := []string{"cpu_usage_percent", "memory_usage_percent"}
	for _, t := range s.resourceTypes {
		if t.ID == res.Type && len(t.Metrics) > 0 {
			names = t.Metrics
		}
	}

	end := s.now().UTC().Truncate(time.Hour)
	out := &ResourceMetrics{ResourceID: res.ID, Metrics: make([]MetricSeries, 0, len(names))}
	for _, name := range names {
		h := fnv.New64a()
		h.Write([]byte(res.ID + "/" + name))
		rng := rand.New(rand.NewPCG(h.Sum64(), 0))

		base := 20 + rng.Float64()*60
		series := MetricSeries{Name: name, Points: make([]MetricPoint, 24)}
		for i := range series.Points {
			v := base + 10*math.Sin(float64(i)/4) + rng.Float64()*5
			series.Points[i] = MetricPoint{
				Timestamp: end.Add(time.Duration(i-23) * time.Hour),
				Value:     math.Round(v*100) / 100,
			}
		}
		series.Current = series.Points[len(series.Points)-1].Value
		out.Metrics = append(out.Metrics, series)
	}
	return out, nil
}

// ========== Resource Groups ==========

// ListGroups returns every active group
func (s *ResourceService) ListGroups(ctx context.Context) ([]models.ResourceGroup, error) {
	return s.store.ResourceGroups.List(ctx)
}

// GetGroup returns one group
func (s *ResourceService) GetGroup(ctx context.Context, id string) (*models.ResourceGroup, error) {
	return s.store.ResourceGroups.Get(ctx, id)
}

// CreateGroup stores a new group. Member ids are not validated.
func (s *ResourceService) CreateGroup(ctx context.Context, userID string, group *models.ResourceGroup) (*models.ResourceGroup, error) {
	group.ID = ""
	if strings.TrimSpace(group.Name) == "" {
		return nil, apierr.BadRequest("name is required")
	}
	created, err := s.store.ResourceGroups.Create(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource group: %w", err)
	}
	s.changes.record(ctx, userID, events.TypeCreated, "create", "resource_group", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// UpdateGroup shallow-merges patch over the group
func (s *ResourceService) UpdateGroup(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.ResourceGroup, error) {
	updated, err := s.store.ResourceGroups.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "resource_group", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteGroup soft-deletes a group
func (s *ResourceService) DeleteGroup(ctx context.Context, userID, id string) error {
	if err := s.store.ResourceGroups.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "resource_group", id, nil, nil)
	return nil
}

// ========== Datasources ==========

// ListDatasources returns every active datasource
func (s *ResourceService) ListDatasources(ctx context.Context) ([]models.Datasource, error) {
	return s.store.Datasources.List(ctx)
}

// GetDatasource returns one datasource
func (s *ResourceService) GetDatasource(ctx context.Context, id string) (*models.Datasource, error) {
	return s.store.Datasources.Get(ctx, id)
}

// CreateDatasource stores a new datasource
func (s *ResourceService) CreateDatasource(ctx context.Context, userID string, ds *models.Datasource) (*models.Datasource, error) {
	ds.ID = ""
	if ds.Name == "" || ds.Type == "" {
		return nil, apierr.BadRequest("name and type are required")
	}
	if ds.Status == "" {
		ds.Status = "pending"
	}
	created, err := s.store.Datasources.Create(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to create datasource: %w", err)
	}
	s.changes.record(ctx, userID, events.TypeCreated, "create", "datasource", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// UpdateDatasource shallow-merges patch over the datasource
func (s *ResourceService) UpdateDatasource(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.Datasource, error) {
	updated, err := s.store.Datasources.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "datasource", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteDatasource soft-deletes a datasource
func (s *ResourceService) DeleteDatasource(ctx context.Context, userID, id string) error {
	if err := s.store.Datasources.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "datasource", id, nil, nil)
	return nil
}

// ========== Discovery Jobs ==========

// ListDiscoveryJobs returns every active discovery job
func (s *ResourceService) ListDiscoveryJobs(ctx context.Context) ([]models.DiscoveryJob, error) {
	return s.store.DiscoveryJobs.List(ctx)
}

// GetDiscoveryJob returns one job
func (s *ResourceService) GetDiscoveryJob(ctx context.Context, id string) (*models.DiscoveryJob, error) {
	return s.store.DiscoveryJobs.Get(ctx, id)
}

// CreateDiscoveryJob stores a new job
func (s *ResourceService) CreateDiscoveryJob(ctx context.Context, userID string, job *models.DiscoveryJob) (*models.DiscoveryJob, error) {
	job.ID = ""
	if job.Name == "" || job.Kind == "" {
		return nil, apierr.BadRequest("name and kind are required")
	}
	if job.DatasourceID != "" {
		ok, err := s.store.Datasources.Exists(ctx, job.DatasourceID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apierr.BadRequest("datasource %s does not exist", job.DatasourceID)
		}
	}
	created, err := s.store.DiscoveryJobs.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery job: %w", err)
	}
	s.changes.record(ctx, userID, events.TypeCreated, "create", "discovery_job", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// UpdateDiscoveryJob shallow-merges patch over the job
func (s *ResourceService) UpdateDiscoveryJob(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.DiscoveryJob, error) {
	updated, err := s.store.DiscoveryJobs.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "discovery_job", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteDiscoveryJob soft-deletes a job
func (s *ResourceService) DeleteDiscoveryJob(ctx context.Context, userID, id string) error {
	if err := s.store.DiscoveryJobs.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "discovery_job", id, nil, nil)
	return nil
}

// RunDiscoveryJob simulates one run: it counts the resources already attached to
// the job's datasource and records the outcome. Nothing is contacted.
func (s *ResourceService) RunDiscoveryJob(ctx context.Context, userID, id string) (*models.DiscoveryJob, error) {
	job, err := s.store.DiscoveryJobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Enabled {
		return nil, apierr.BadRequest("discovery job %s is disabled", id)
	}

	found, err := s.store.Resources.Filter(ctx, func(r *models.Resource) bool {
		return job.DatasourceID != "" && r.DatasourceID == job.DatasourceID
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updated, err := s.store.DiscoveryJobs.Mutate(ctx, id, func(j *models.DiscoveryJob) error {
		j.LastRunAt = &now
		j.LastStatus = "success"
		j.DiscoveredCount = len(found)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.Infof("Discovery job %s found %d resources", id, len(found))
	s.changes.record(ctx, userID, events.TypeAction, "run", "discovery_job", id, map[string]interface{}{"discovered": len(found)}, updated)
	return updated, nil
}
