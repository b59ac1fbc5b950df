package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/akmatori/opsconsole/internal/metrics"
	"github.com/akmatori/opsconsole/internal/models"
)

const overviewCacheKey = "overview"

// ResourceIncidentCount is one row of the top noisy resources
type ResourceIncidentCount struct {
	ResourceID   string `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	Incidents    int    `json:"incidents"`
}

// AnalyticsOverview is computed from the live incidents, resources, rules and executions
type AnalyticsOverview struct {
	Incidents struct {
		Total      int            `json:"total"`
		Open       int            `json:"open"`
		ByStatus   map[string]int `json:"by_status"`
		BySeverity map[string]int `json:"by_severity"`
	} `json:"incidents"`
	MTTAMinutes          float64                 `json:"mtta_minutes"`
	MTTRMinutes          float64                 `json:"mttr_minutes"`
	ResourcesByStatus    map[string]int          `json:"resources_by_status"`
	EnabledRules         int                     `json:"enabled_rules"`
	ExecutionSuccessRate float64                 `json:"execution_success_rate"`
	TopResources         []ResourceIncidentCount `json:"top_resources"`
	GeneratedAt          time.Time               `json:"generated_at"`
}

// AnalyticsService computes the analytics overview and serves seeded snapshots.
// The overview is cached for the configured TTL.
type AnalyticsService struct {
	store *Store
	cache *ttlcache.Cache[string, *AnalyticsOverview]
	now   func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService; ttl <= 0 disables caching
func NewAnalyticsService(store *Store, ttl time.Duration) *AnalyticsService {
	var cache *ttlcache.Cache[string, *AnalyticsOverview]
	if ttl > 0 {
		cache = ttlcache.New(ttlcache.WithTTL[string, *AnalyticsOverview](ttl))
	}
	return &AnalyticsService{store: store, cache: cache, now: time.Now}
}

// Invalidate drops the cached overview
func (s *AnalyticsService) Invalidate() {
	if s.cache != nil {
		s.cache.Delete(overviewCacheKey)
	}
}

// Overview returns the analytics overview, from cache while it is fresh
func (s *AnalyticsService) Overview(ctx context.Context) (*AnalyticsOverview, error) {
	if s.cache != nil {
		if item := s.cache.Get(overviewCacheKey); item != nil {
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return item.Value(), nil
		}
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	ov, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(overviewCacheKey, ov, ttlcache.DefaultTTL)
	}
	return ov, nil
}

func (s *AnalyticsService) compute(ctx context.Context) (*AnalyticsOverview, error) {
	incidents, err := s.store.Incidents.List(ctx)
	if err != nil {
		return nil, err
	}
	resources, err := s.store.Resources.List(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.AlertRules.List(ctx)
	if err != nil {
		return nil, err
	}
	executions, err := s.store.Executions.List(ctx)
	if err != nil {
		return nil, err
	}

	ov := &AnalyticsOverview{
		ResourcesByStatus: map[string]int{},
		TopResources:      []ResourceIncidentCount{},
		GeneratedAt:       s.now().UTC(),
	}
	ov.Incidents.ByStatus = map[string]int{}
	ov.Incidents.BySeverity = map[string]int{}

	var ackTotal, resolveTotal time.Duration
	var acked, resolved int
	perResource := map[string]*ResourceIncidentCount{}
	for i := range incidents {
		inc := &incidents[i]
		ov.Incidents.Total++
		ov.Incidents.ByStatus[string(inc.Status)]++
		ov.Incidents.BySeverity[string(inc.Severity)]++
		if inc.IsOpen() {
			ov.Incidents.Open++
		}
		if inc.AcknowledgedAt != nil && inc.AcknowledgedAt.After(inc.TriggeredAt) {
			ackTotal += inc.AcknowledgedAt.Sub(inc.TriggeredAt)
			acked++
		}
		if inc.ResolvedAt != nil && inc.ResolvedAt.After(inc.TriggeredAt) {
			resolveTotal += inc.ResolvedAt.Sub(inc.TriggeredAt)
			resolved++
		}
		if inc.ResourceID != "" {
			row, ok := perResource[inc.ResourceID]
			if !ok {
				row = &ResourceIncidentCount{ResourceID: inc.ResourceID, ResourceName: inc.ResourceName}
				perResource[inc.ResourceID] = row
			}
			row.Incidents++
		}
	}
	ov.MTTAMinutes = averageMinutes(ackTotal, acked)
	ov.MTTRMinutes = averageMinutes(resolveTotal, resolved)

	for _, r := range resources {
		ov.ResourcesByStatus[string(r.Status)]++
	}
	for _, r := range rules {
		if r.Enabled {
			ov.EnabledRules++
		}
	}

	var finished, succeeded int
	for _, e := range executions {
		if e.Status.IsFinished() {
			finished++
			if e.Status == models.ExecutionStatusSuccess {
				succeeded++
			}
		}
	}
	if finished > 0 {
		ov.ExecutionSuccessRate = math.Round(float64(succeeded)/float64(finished)*1000) / 10
	}

	for _, row := range perResource {
		ov.TopResources = append(ov.TopResources, *row)
	}
	sort.Slice(ov.TopResources, func(i, j int) bool {
		if ov.TopResources[i].Incidents != ov.TopResources[j].Incidents {
			return ov.TopResources[i].Incidents > ov.TopResources[j].Incidents
		}
		return ov.TopResources[i].ResourceID < ov.TopResources[j].ResourceID
	})
	if len(ov.TopResources) > 5 {
		ov.TopResources = ov.TopResources[:5]
	}
	return ov, nil
}

func averageMinutes(total time.Duration, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(total.Minutes()/float64(n)*10) / 10
}

// Snapshots lists the seeded analytics datasets
func (s *AnalyticsService) Snapshots(ctx context.Context) ([]models.AnalyticsSnapshot, error) {
	return s.store.Analytics.List(ctx)
}

// Snapshot returns one seeded dataset by name
func (s *AnalyticsService) Snapshot(ctx context.Context, name string) (*models.AnalyticsSnapshot, error) {
	return s.store.Analytics.Get(ctx, name)
}
