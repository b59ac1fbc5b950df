package services

import (
	"time"

	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/executor"
	"github.com/akmatori/opsconsole/internal/notify"
	"github.com/akmatori/opsconsole/internal/seed"
)

// Options carries what the services need beyond the store
type Options struct {
	Catalog      *seed.Dataset
	Publisher    events.Publisher
	Sender       notify.Sender
	StepDelay    time.Duration
	AnalyticsTTL time.Duration
}

// Services groups every domain service over one store
type Services struct {
	Store         *Store
	Audit         *AuditService
	Incidents     *IncidentService
	AlertRules    *AlertRuleService
	Silences      *SilenceService
	Resources     *ResourceService
	IAM           *IAMService
	Automation    *AutomationService
	Notifications *NotificationService
	Dashboards    *DashboardService
	Settings      *SettingsService
	UI            *UIService
	Analytics     *AnalyticsService
	Ingest        *AlertIngestService
}

// New wires all services. Catalog supplies the read-only reference data
// (templates, resource types, UI metadata); nil means empty catalogs.
func New(store *Store, opts Options) *Services {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = &seed.Dataset{}
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.Discard{}
	}
	sender := opts.Sender
	if sender == nil {
		sender = notify.New(notify.ModeSimulate)
	}

	audit := NewAuditService(store)
	s := &Services{
		Store:         store,
		Audit:         audit,
		Incidents:     NewIncidentService(store, audit, publisher),
		AlertRules:    NewAlertRuleService(store, catalog.AlertRuleTemplates, audit, publisher),
		Silences:      NewSilenceService(store, audit, publisher),
		Resources:     NewResourceService(store, catalog.ResourceTypes, catalog.ExporterTypes, audit, publisher),
		IAM:           NewIAMService(store, audit, publisher),
		Automation:    NewAutomationService(store, executor.NewExecutor(opts.StepDelay), audit, publisher),
		Notifications: NewNotificationService(store, sender, audit, publisher),
		Dashboards: NewDashboardService(store, DashboardCatalog{
			Templates:   catalog.DashboardTemplates,
			WidgetTypes: catalog.WidgetTypes,
			Layouts:     catalog.LayoutPresets,
		}, audit, publisher),
		Settings:  NewSettingsService(store, catalog.UI.Columns, audit, publisher),
		UI:        NewUIService(catalog.UI),
		Analytics: NewAnalyticsService(store, opts.AnalyticsTTL),
	}
	s.Ingest = NewAlertIngestService(store, s.Silences, s.Automation, s.Notifications, audit, publisher)
	return s
}

// Stop cancels running automation and waits for it to finish
func (s *Services) Stop() {
	s.Automation.Stop()
}
