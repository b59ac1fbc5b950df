// Package seed holds the demo dataset the console starts with.
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/models"
)

//go:embed data/*.yaml
var dataFS embed.FS

// passwordCost keeps seeding fast; passwords set through the API use bcrypt.DefaultCost.
const passwordCost = bcrypt.MinCost

// SeedCredential is a demo account password, hashed when applied
type SeedCredential struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// UICatalog is the static data behind the /ui routes
type UICatalog struct {
	Metadata models.UIMetadata                 `json:"metadata"`
	Tabs     map[string][]models.UITab         `json:"tabs"`
	Icons    []models.UIIcon                   `json:"icons"`
	Themes   []models.UITheme                  `json:"themes"`
	Content  map[string]map[string]interface{} `json:"content"`
	Columns  map[string][]models.UIColumn      `json:"columns"`
}

// Dataset is every seeded record plus the read-only catalogs
type Dataset struct {
	Incidents              []models.Incident             `json:"incidents"`
	AlertRules             []models.AlertRule            `json:"alert_rules"`
	SilenceRules           []models.SilenceRule          `json:"silence_rules"`
	Resources              []models.Resource             `json:"resources"`
	ResourceGroups         []models.ResourceGroup        `json:"resource_groups"`
	Datasources            []models.Datasource           `json:"datasources"`
	DiscoveryJobs          []models.DiscoveryJob         `json:"discovery_jobs"`
	Users                  []models.User                 `json:"users"`
	Credentials            []SeedCredential              `json:"credentials"`
	Teams                  []models.Team                 `json:"teams"`
	Roles                  []models.Role                 `json:"roles"`
	Preferences            []models.UserPreferences      `json:"preferences"`
	LoginHistory           []models.LoginRecord          `json:"login_history"`
	Playbooks              []models.Playbook             `json:"playbooks"`
	Executions             []models.Execution            `json:"executions"`
	NotificationChannels   []models.NotificationChannel  `json:"notification_channels"`
	NotificationStrategies []models.NotificationStrategy `json:"notification_strategies"`
	NotificationHistory    []models.NotificationRecord   `json:"notification_history"`
	Notifications          []models.Notification         `json:"notifications"`
	Settings               []models.SettingsSection      `json:"settings"`
	Tags                   []models.Tag                  `json:"tags"`
	Dashboards             []models.Dashboard            `json:"dashboards"`
	Analytics              []models.AnalyticsSnapshot    `json:"analytics"`
	AuditLogs              []models.AuditLog             `json:"audit_logs"`

	AlertRuleTemplates []models.AlertRuleTemplate `json:"alert_rule_templates"`
	ResourceTypes      []models.ResourceType      `json:"resource_types"`
	ExporterTypes      []models.ExporterType      `json:"exporter_types"`
	DashboardTemplates []models.DashboardTemplate `json:"dashboard_templates"`
	WidgetTypes        []models.WidgetType        `json:"widget_types"`
	LayoutPresets      []models.LayoutPreset      `json:"layout_presets"`
	UI                 UICatalog                  `json:"ui"`
}

// Load decodes the embedded seed files. Every call returns freshly allocated values.
func Load() (*Dataset, error) {
	return LoadFS(dataFS, "data")
}

// LoadFS decodes every *.yaml file of dir. A top-level key may appear in one file only.
func LoadFS(fsys fs.FS, dir string) (*Dataset, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory: %w", err)
	}

	merged := make(map[string]interface{})
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		var doc map[string]interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		for key, value := range doc {
			if _, exists := merged[key]; exists {
				return nil, fmt.Errorf("seed key %q defined twice (%s)", key, entry.Name())
			}
			merged[key] = value
		}
	}

	// YAML and the entity structs meet through their json tags.
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode seed data: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(encoded, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}
	return &ds, nil
}

// Apply inserts the dataset into every empty collection of backend.
// Records are listed newest first in the seed files and inserted oldest first,
// so the stored order equals the file order.
func Apply(ctx context.Context, backend database.Backend, ds *Dataset) error {
	credentials, err := hashCredentials(ds.Credentials)
	if err != nil {
		return err
	}

	steps := []func() error{
		func() error { return insertAll(ctx, backend, models.CollectionIncidents, ds.Incidents) },
		func() error { return insertAll(ctx, backend, models.CollectionAlertRules, ds.AlertRules) },
		func() error { return insertAll(ctx, backend, models.CollectionSilenceRules, ds.SilenceRules) },
		func() error { return insertAll(ctx, backend, models.CollectionResources, ds.Resources) },
		func() error { return insertAll(ctx, backend, models.CollectionResourceGroups, ds.ResourceGroups) },
		func() error { return insertAll(ctx, backend, models.CollectionDatasources, ds.Datasources) },
		func() error { return insertAll(ctx, backend, models.CollectionDiscoveryJobs, ds.DiscoveryJobs) },
		func() error { return insertAll(ctx, backend, models.CollectionUsers, ds.Users) },
		func() error { return insertAll(ctx, backend, models.CollectionCredentials, credentials) },
		func() error { return insertAll(ctx, backend, models.CollectionTeams, ds.Teams) },
		func() error { return insertAll(ctx, backend, models.CollectionRoles, ds.Roles) },
		func() error { return insertAll(ctx, backend, models.CollectionPreferences, ds.Preferences) },
		func() error { return insertAll(ctx, backend, models.CollectionLoginHistory, ds.LoginHistory) },
		func() error { return insertAll(ctx, backend, models.CollectionPlaybooks, ds.Playbooks) },
		func() error { return insertAll(ctx, backend, models.CollectionExecutions, ds.Executions) },
		func() error {
			return insertAll(ctx, backend, models.CollectionNotificationChannels, ds.NotificationChannels)
		},
		func() error {
			return insertAll(ctx, backend, models.CollectionNotificationStrategies, ds.NotificationStrategies)
		},
		func() error {
			return insertAll(ctx, backend, models.CollectionNotificationHistory, ds.NotificationHistory)
		},
		func() error { return insertAll(ctx, backend, models.CollectionNotifications, ds.Notifications) },
		func() error { return insertAll(ctx, backend, models.CollectionSettings, ds.Settings) },
		func() error { return insertAll(ctx, backend, models.CollectionTags, ds.Tags) },
		func() error { return insertAll(ctx, backend, models.CollectionDashboards, ds.Dashboards) },
		func() error { return insertAll(ctx, backend, models.CollectionAnalytics, ds.Analytics) },
		func() error { return insertAll(ctx, backend, models.CollectionAuditLogs, ds.AuditLogs) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func hashCredentials(seeded []SeedCredential) ([]models.Credential, error) {
	out := make([]models.Credential, 0, len(seeded))
	for _, c := range seeded {
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), passwordCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash seed password for %s: %w", c.ID, err)
		}
		cred := models.Credential{PasswordHash: string(hash)}
		cred.ID = c.ID
		out = append(out, cred)
	}
	return out, nil
}

func insertAll[T any, PT interface {
	*T
	models.Entity
}](ctx context.Context, backend database.Backend, collection string, items []T) error {
	count, err := backend.Count(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to count %s: %w", collection, err)
	}
	if count > 0 {
		logrus.Debugf("Skipping seed for %s: %d documents present", collection, count)
		return nil
	}

	now := time.Now()
	for _, item := range slices.Backward(items) {
		entity := PT(&item)
		if entity.GetID() == "" {
			return fmt.Errorf("seed record in %s has no id", collection)
		}
		entity.FillTimestamps(now)
		if n, ok := any(entity).(models.Normalizer); ok {
			n.Normalize()
		}
		data, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("failed to encode seed record %s/%s: %w", collection, entity.GetID(), err)
		}
		if _, err := backend.Insert(ctx, collection, database.Document{ID: entity.GetID(), Data: data}); err != nil {
			return fmt.Errorf("failed to insert seed record %s/%s: %w", collection, entity.GetID(), err)
		}
	}
	logrus.Infof("Seeded %d %s", len(items), collection)
	return nil
}
