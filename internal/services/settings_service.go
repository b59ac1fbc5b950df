package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/models"
)

// SettingsService manages settings sections, tag definitions and per-user column layouts
type SettingsService struct {
	store          *Store
	defaultColumns map[string][]models.UIColumn
	changes        changes
	now            func() time.Time
}

// NewSettingsService creates a new SettingsService. defaultColumns seeds
// column configs of users who never saved one.
func NewSettingsService(store *Store, defaultColumns map[string][]models.UIColumn, audit *AuditService, publisher events.Publisher) *SettingsService {
	return &SettingsService{
		store:          store,
		defaultColumns: defaultColumns,
		changes:        changes{audit: audit, events: publisher},
		now:            time.Now,
	}
}

// ========== Sections ==========

func checkSection(section string) error {
	if !slices.Contains(models.SettingsSections, section) {
		return apierr.NotFound("Settings section %s not found", section)
	}
	return nil
}

// GetSection returns the values of a settings section
func (s *SettingsService) GetSection(ctx context.Context, section string) (*models.SettingsSection, error) {
	if err := checkSection(section); err != nil {
		return nil, err
	}
	stored, err := s.store.Settings.Get(ctx, section)
	if apierr.IsNotFound(err) {
		empty := &models.SettingsSection{Values: database.JSONB{}}
		empty.ID = section
		return empty, nil
	}
	return stored, err
}

// UpdateSection shallow-merges values into the section: every given key replaces
// the stored value wholesale
func (s *SettingsService) UpdateSection(ctx context.Context, userID, section string, values database.JSONB) (*models.SettingsSection, error) {
	if len(values) == 0 {
		return nil, apierr.BadRequest("no settings values given")
	}
	current, err := s.GetSection(ctx, section)
	if err != nil {
		return nil, err
	}
	if current.Values == nil {
		current.Values = database.JSONB{}
	}
	keys := make([]string, 0, len(values))
	for k, v := range values {
		current.Values[k] = v
		keys = append(keys, k)
	}
	slices.Sort(keys)

	saved, err := s.store.Settings.Upsert(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s settings: %w", section, err)
	}
	logrus.Infof("Updated %s settings: %s", section, strings.Join(keys, ", "))
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "settings", section, map[string]interface{}{"fields": keys}, saved)
	return saved, nil
}

// ========== Tags ==========

// ListTags returns tag definitions, optionally narrowed by category
func (s *SettingsService) ListTags(ctx context.Context, category string) ([]models.Tag, error) {
	return s.store.Tags.Filter(ctx, func(t *models.Tag) bool {
		return category == "" || t.Category == category
	})
}

// GetTag returns one tag definition
func (s *SettingsService) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	return s.store.Tags.Get(ctx, id)
}

func (s *SettingsService) checkTagUnique(ctx context.Context, tag *models.Tag) error {
	clash, err := s.store.Tags.Filter(ctx, func(t *models.Tag) bool {
		return t.ID != tag.ID && strings.EqualFold(t.Key, tag.Key) && t.Value == tag.Value
	})
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		return apierr.Conflict("tag %s:%s already exists", tag.Key, tag.Value)
	}
	return nil
}

// CreateTag stores a new tag definition; key and value pairs are unique
func (s *SettingsService) CreateTag(ctx context.Context, userID string, tag *models.Tag) (*models.Tag, error) {
	tag.ID = ""
	if strings.TrimSpace(tag.Key) == "" {
		return nil, apierr.BadRequest("key is required")
	}
	if err := s.checkTagUnique(ctx, tag); err != nil {
		return nil, err
	}
	created, err := s.store.Tags.Create(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	s.changes.record(ctx, userID, events.TypeCreated, "create", "tag", created.ID, map[string]interface{}{"key": created.Key}, created)
	return created, nil
}

// UpdateTag shallow-merges patch over the tag definition
func (s *SettingsService) UpdateTag(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.Tag, error) {
	current, err := s.store.Tags.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	preview, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(preview.Key) == "" {
		return nil, apierr.BadRequest("key is required")
	}
	if err := s.checkTagUnique(ctx, preview); err != nil {
		return nil, err
	}
	updated, err := s.store.Tags.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "tag", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteTag soft-deletes a tag definition. Resources keep their tags.
func (s *SettingsService) DeleteTag(ctx context.Context, userID, id string) error {
	if err := s.store.Tags.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "tag", id, nil, nil)
	return nil
}

// ========== Column Config ==========

func columnConfigID(userID, page string) string {
	return userID + ":" + page
}

// ColumnConfig returns the user's columns for page, the page defaults when none are saved
func (s *SettingsService) ColumnConfig(ctx context.Context, userID, page string) (*models.ColumnConfig, error) {
	stored, err := s.store.ColumnConfigs.Get(ctx, columnConfigID(userID, page))
	if err == nil {
		return stored, nil
	}
	if !apierr.IsNotFound(err) {
		return nil, err
	}

	defaults, ok := s.defaultColumns[page]
	if !ok {
		return nil, apierr.NotFound("No columns defined for page %s", page)
	}
	cfg := &models.ColumnConfig{UserID: userID, Page: page, Columns: make([]models.ColumnSetting, len(defaults))}
	cfg.ID = columnConfigID(userID, page)
	for i, c := range defaults {
		cfg.Columns[i] = models.ColumnSetting{Key: c.Key, Label: c.Label, Visible: c.Visible, Width: c.Width, Order: i}
	}
	return cfg, nil
}

// SaveColumnConfig stores the user's columns for page. Unknown column keys are rejected.
func (s *SettingsService) SaveColumnConfig(ctx context.Context, userID, page string, columns []models.ColumnSetting) (*models.ColumnConfig, error) {
	defaults, ok := s.defaultColumns[page]
	if !ok {
		return nil, apierr.NotFound("No columns defined for page %s", page)
	}
	if len(columns) == 0 {
		return nil, apierr.BadRequest("columns is required")
	}
	known := make(map[string]bool, len(defaults))
	for _, c := range defaults {
		known[c.Key] = true
	}
	for _, c := range columns {
		if !known[c.Key] {
			return nil, apierr.BadRequest("Unknown column %s for page %s", c.Key, page)
		}
	}

	cfg := &models.ColumnConfig{UserID: userID, Page: page, Columns: columns}
	cfg.ID = columnConfigID(userID, page)
	saved, err := s.store.ColumnConfigs.Upsert(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to save column config: %w", err)
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "column_config", saved.ID, map[string]interface{}{"page": page}, saved)
	return saved, nil
}
