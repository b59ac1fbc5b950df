package models

import (
	"strings"
	"time"

	"github.com/akmatori/opsconsole/internal/database"
)

// ResourceStatus is the health of a monitored resource
type ResourceStatus string

const (
	ResourceStatusHealthy  ResourceStatus = "healthy"
	ResourceStatusWarning  ResourceStatus = "warning"
	ResourceStatusCritical ResourceStatus = "critical"
	ResourceStatusUnknown  ResourceStatus = "unknown"
)

// ResourceTag is a key/value label attached to a resource
type ResourceTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Resource is one monitored host, service, database or device
type Resource struct {
	Base
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Provider     string         `json:"provider"`
	Region       string         `json:"region"`
	Owner        string         `json:"owner"`
	Status       ResourceStatus `json:"status"`
	IPAddress    string         `json:"ip_address,omitempty"`
	ExporterType string         `json:"exporter_type,omitempty"`
	DatasourceID string         `json:"datasource_id,omitempty"`
	DependsOn    []string       `json:"depends_on,omitempty"`
	Tags         []ResourceTag  `json:"tags,omitempty"`
	Metadata     database.JSONB `json:"metadata,omitempty"`
	LastSeenAt   *time.Time     `json:"last_seen_at,omitempty"`
}

// Labels flattens the resource into the label set used by filters and silence matchers
func (r *Resource) Labels() map[string]string {
	labels := map[string]string{
		"id":       r.ID,
		"name":     r.Name,
		"type":     r.Type,
		"provider": r.Provider,
		"region":   r.Region,
		"owner":    r.Owner,
		"status":   string(r.Status),
	}
	if r.IPAddress != "" {
		labels["ip_address"] = r.IPAddress
	}
	for _, t := range r.Tags {
		labels[t.Key] = t.Value
	}
	return labels
}

// HasTag reports whether the resource carries the tag. filter is "key" or "key:value".
func (r *Resource) HasTag(filter string) bool {
	key, value, withValue := strings.Cut(filter, ":")
	for _, t := range r.Tags {
		if !strings.EqualFold(t.Key, key) {
			continue
		}
		if !withValue || strings.EqualFold(t.Value, value) {
			return true
		}
	}
	return false
}

// AddTag sets key to value, replacing an existing tag with the same key
func (r *Resource) AddTag(key, value string) {
	for i, t := range r.Tags {
		if t.Key == key {
			r.Tags[i].Value = value
			return
		}
	}
	r.Tags = append(r.Tags, ResourceTag{Key: key, Value: value})
}

// ResourceGroup is a named set of resource ids. Membership is not validated.
type ResourceGroup struct {
	Base
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	OwnerTeam   string   `json:"owner_team,omitempty"`
	MemberIDs   []string `json:"member_ids"`
}

// Normalize keeps member_ids encoded as an array
func (g *ResourceGroup) Normalize() {
	if g.MemberIDs == nil {
		g.MemberIDs = []string{}
	}
}

// Datasource is a metrics or inventory backend resources are discovered from
type Datasource struct {
	Base
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	URL     string         `json:"url"`
	Status  string         `json:"status"`
	Enabled bool           `json:"enabled"`
	Config  database.JSONB `json:"config,omitempty"`
}

// DiscoveryJob periodically imports resources from a datasource
type DiscoveryJob struct {
	Base
	Name            string         `json:"name"`
	Kind            string         `json:"kind"`
	DatasourceID    string         `json:"datasource_id,omitempty"`
	Schedule        string         `json:"schedule"`
	Enabled         bool           `json:"enabled"`
	Config          database.JSONB `json:"config,omitempty"`
	LastRunAt       *time.Time     `json:"last_run_at,omitempty"`
	LastStatus      string         `json:"last_status,omitempty"`
	DiscoveredCount int            `json:"discovered_count"`
}

// ResourceType describes a kind of resource the inventory knows about
type ResourceType struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Icon     string   `json:"icon"`
	Metrics  []string `json:"metrics"`
}

// ExporterType describes a metrics exporter that can be attached to a resource
type ExporterType struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DefaultPort int      `json:"default_port"`
	Supports    []string `json:"supports"`
}
