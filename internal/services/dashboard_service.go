package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/models"
)

// DashboardCatalog holds the read-only dashboard building blocks
type DashboardCatalog struct {
	Templates   []models.DashboardTemplate
	WidgetTypes []models.WidgetType
	Layouts     []models.LayoutPreset
}

// CreateDashboardInput is the body of POST /dashboards. A template id copies
// the template's widgets when no widgets are given.
type CreateDashboardInput struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	IsDefault   bool            `json:"is_default"`
	TemplateID  string          `json:"template_id,omitempty"`
	Widgets     []models.Widget `json:"widgets"`
}

// LayoutUpdate is one widget position of PUT /dashboards/{id}/layout
type LayoutUpdate struct {
	ID string `json:"id" validate:"required"`
	models.WidgetLayout
}

// DashboardService manages dashboards and serves the widget catalogs
type DashboardService struct {
	store   *Store
	catalog DashboardCatalog
	changes changes
	now     func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(store *Store, catalog DashboardCatalog, audit *AuditService, publisher events.Publisher) *DashboardService {
	return &DashboardService{
		store:   store,
		catalog: catalog,
		changes: changes{audit: audit, events: publisher},
		now:     time.Now,
	}
}

// List returns dashboards, optionally narrowed by category and owner
func (s *DashboardService) List(ctx context.Context, category, owner string) ([]models.Dashboard, error) {
	return s.store.Dashboards.Filter(ctx, func(d *models.Dashboard) bool {
		return (category == "" || d.Category == category) && (owner == "" || d.Owner == owner)
	})
}

// Get returns one dashboard
func (s *DashboardService) Get(ctx context.Context, id string) (*models.Dashboard, error) {
	return s.store.Dashboards.Get(ctx, id)
}

func (s *DashboardService) template(id string) (*models.DashboardTemplate, bool) {
	for i := range s.catalog.Templates {
		if s.catalog.Templates[i].ID == id {
			return &s.catalog.Templates[i], true
		}
	}
	return nil, false
}

func (s *DashboardService) checkWidgets(widgets []models.Widget) error {
	known := make(map[string]bool, len(s.catalog.WidgetTypes))
	for _, wt := range s.catalog.WidgetTypes {
		known[wt.Type] = true
	}
	for i := range widgets {
		if !known[widgets[i].Type] {
			return apierr.BadRequest("Unknown widget type: %s", widgets[i].Type)
		}
		if widgets[i].ID == "" {
			widgets[i].ID = NewID(PrefixWidget)
		}
	}
	return nil
}

// Create stores a new dashboard owned by the acting user
func (s *DashboardService) Create(ctx context.Context, userID string, input CreateDashboardInput) (*models.Dashboard, error) {
	widgets := input.Widgets
	if input.TemplateID != "" && len(widgets) == 0 {
		tpl, ok := s.template(input.TemplateID)
		if !ok {
			return nil, apierr.BadRequest("dashboard template %s does not exist", input.TemplateID)
		}
		widgets = make([]models.Widget, len(tpl.Widgets))
		copy(widgets, tpl.Widgets)
		for i := range widgets {
			widgets[i].ID = ""
		}
		if input.Category == "" {
			input.Category = tpl.Category
		}
	}
	if err := s.checkWidgets(widgets); err != nil {
		return nil, err
	}

	dash := &models.Dashboard{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    input.Category,
		Owner:       userName(ctx, s.store, userID),
		IsDefault:   input.IsDefault,
		Widgets:     widgets,
	}
	if dash.Name == "" {
		return nil, apierr.BadRequest("name is required")
	}
	created, err := s.store.Dashboards.Create(ctx, dash)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard: %w", err)
	}
	if created.IsDefault {
		s.clearOtherDefaults(ctx, created.ID)
	}
	logrus.Infof("Created dashboard: %s (%d widgets)", created.Name, len(created.Widgets))
	s.changes.record(ctx, userID, events.TypeCreated, "create", "dashboard", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// Update shallow-merges patch over the dashboard
func (s *DashboardService) Update(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.Dashboard, error) {
	current, err := s.store.Dashboards.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	preview, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	if err := s.checkWidgets(preview.Widgets); err != nil {
		return nil, err
	}
	if _, ok := patch["widgets"]; ok {
		// generated widget ids must reach the stored record
		raw, err := json.Marshal(preview.Widgets)
		if err != nil {
			return nil, err
		}
		patch["widgets"] = raw
	}

	updated, err := s.store.Dashboards.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated.IsDefault && !current.IsDefault {
		s.clearOtherDefaults(ctx, id)
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "dashboard", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// clearOtherDefaults keeps at most one default dashboard
func (s *DashboardService) clearOtherDefaults(ctx context.Context, keepID string) {
	others, err := s.store.Dashboards.Filter(ctx, func(d *models.Dashboard) bool {
		return d.IsDefault && d.ID != keepID
	})
	if err != nil {
		logrus.Warnf("Failed to list default dashboards: %v", err)
		return
	}
	for i := range others {
		if _, err := s.store.Dashboards.Mutate(ctx, others[i].ID, func(d *models.Dashboard) error {
			d.IsDefault = false
			return nil
		}); err != nil {
			logrus.Warnf("Failed to clear default flag of %s: %v", others[i].ID, err)
		}
	}
}

// Delete soft-deletes a dashboard
func (s *DashboardService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Dashboards.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "dashboard", id, nil, nil)
	return nil
}

// UpdateLayout moves the listed widgets; ids not on the dashboard are ignored
func (s *DashboardService) UpdateLayout(ctx context.Context, userID, id string, layout []LayoutUpdate) (*models.Dashboard, error) {
	positions := make(map[string]models.WidgetLayout, len(layout))
	for _, l := range layout {
		if l.W <= 0 || l.H <= 0 || l.X < 0 || l.Y < 0 {
			return nil, apierr.BadRequest("invalid layout for widget %s", l.ID)
		}
		positions[l.ID] = l.WidgetLayout
	}

	moved := 0
	updated, err := s.store.Dashboards.Mutate(ctx, id, func(d *models.Dashboard) error {
		moved = d.ApplyLayout(positions)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update_layout", "dashboard", id, map[string]interface{}{"moved": moved}, updated)
	return updated, nil
}

// Templates returns the dashboard templates
func (s *DashboardService) Templates() []models.DashboardTemplate {
	return s.catalog.Templates
}

// WidgetTypes returns the widgets users can add
func (s *DashboardService) WidgetTypes() []models.WidgetType {
	return s.catalog.WidgetTypes
}

// Layouts returns the grid presets
func (s *DashboardService) Layouts() []models.LayoutPreset {
	return s.catalog.Layouts
}
