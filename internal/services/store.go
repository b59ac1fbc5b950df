package services

import (
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/models"
)

// Store owns one typed repository per collection
type Store struct {
	Backend database.Backend

	Incidents              *Repository[models.Incident, *models.Incident]
	AlertRules             *Repository[models.AlertRule, *models.AlertRule]
	SilenceRules           *Repository[models.SilenceRule, *models.SilenceRule]
	Resources              *Repository[models.Resource, *models.Resource]
	ResourceGroups         *Repository[models.ResourceGroup, *models.ResourceGroup]
	Datasources            *Repository[models.Datasource, *models.Datasource]
	DiscoveryJobs          *Repository[models.DiscoveryJob, *models.DiscoveryJob]
	Users                  *Repository[models.User, *models.User]
	Credentials            *Repository[models.Credential, *models.Credential]
	Teams                  *Repository[models.Team, *models.Team]
	Roles                  *Repository[models.Role, *models.Role]
	Preferences            *Repository[models.UserPreferences, *models.UserPreferences]
	LoginHistory           *Repository[models.LoginRecord, *models.LoginRecord]
	Playbooks              *Repository[models.Playbook, *models.Playbook]
	Executions             *Repository[models.Execution, *models.Execution]
	NotificationChannels   *Repository[models.NotificationChannel, *models.NotificationChannel]
	NotificationStrategies *Repository[models.NotificationStrategy, *models.NotificationStrategy]
	NotificationHistory    *Repository[models.NotificationRecord, *models.NotificationRecord]
	Notifications          *Repository[models.Notification, *models.Notification]
	Settings               *Repository[models.SettingsSection, *models.SettingsSection]
	Tags                   *Repository[models.Tag, *models.Tag]
	ColumnConfigs          *Repository[models.ColumnConfig, *models.ColumnConfig]
	Dashboards             *Repository[models.Dashboard, *models.Dashboard]
	Analytics              *Repository[models.AnalyticsSnapshot, *models.AnalyticsSnapshot]
	AuditLogs              *Repository[models.AuditLog, *models.AuditLog]
}

// NewStore wires the repositories over backend
func NewStore(backend database.Backend) *Store {
	return &Store{
		Backend: backend,

		Incidents:              NewRepository[models.Incident](backend, models.CollectionIncidents, PrefixIncident, "Incident"),
		AlertRules:             NewRepository[models.AlertRule](backend, models.CollectionAlertRules, PrefixAlertRule, "Alert rule"),
		SilenceRules:           NewRepository[models.SilenceRule](backend, models.CollectionSilenceRules, PrefixSilenceRule, "Silence rule"),
		Resources:              NewRepository[models.Resource](backend, models.CollectionResources, PrefixResource, "Resource"),
		ResourceGroups:         NewRepository[models.ResourceGroup](backend, models.CollectionResourceGroups, PrefixGroup, "Resource group"),
		Datasources:            NewRepository[models.Datasource](backend, models.CollectionDatasources, PrefixDatasource, "Datasource"),
		DiscoveryJobs:          NewRepository[models.DiscoveryJob](backend, models.CollectionDiscoveryJobs, PrefixDiscoveryJob, "Discovery job"),
		Users:                  NewRepository[models.User](backend, models.CollectionUsers, PrefixUser, "User"),
		Credentials:            NewRepository[models.Credential](backend, models.CollectionCredentials, PrefixUser, "Credential"),
		Teams:                  NewRepository[models.Team](backend, models.CollectionTeams, PrefixTeam, "Team"),
		Roles:                  NewRepository[models.Role](backend, models.CollectionRoles, PrefixRole, "Role"),
		Preferences:            NewRepository[models.UserPreferences](backend, models.CollectionPreferences, PrefixUser, "Preferences"),
		LoginHistory:           NewRepository[models.LoginRecord](backend, models.CollectionLoginHistory, PrefixLogin, "Login record"),
		Playbooks:              NewRepository[models.Playbook](backend, models.CollectionPlaybooks, PrefixPlaybook, "Script"),
		Executions:             NewRepository[models.Execution](backend, models.CollectionExecutions, PrefixExecution, "Execution"),
		NotificationChannels:   NewRepository[models.NotificationChannel](backend, models.CollectionNotificationChannels, PrefixChannel, "Notification channel"),
		NotificationStrategies: NewRepository[models.NotificationStrategy](backend, models.CollectionNotificationStrategies, PrefixStrategy, "Notification strategy"),
		NotificationHistory:    NewRepository[models.NotificationRecord](backend, models.CollectionNotificationHistory, PrefixHistory, "Notification record"),
		Notifications:          NewRepository[models.Notification](backend, models.CollectionNotifications, PrefixNotification, "Notification"),
		Settings:               NewRepository[models.SettingsSection](backend, models.CollectionSettings, "settings", "Settings section"),
		Tags:                   NewRepository[models.Tag](backend, models.CollectionTags, PrefixTag, "Tag"),
		ColumnConfigs:          NewRepository[models.ColumnConfig](backend, models.CollectionColumnConfigs, "cols", "Column config"),
		Dashboards:             NewRepository[models.Dashboard](backend, models.CollectionDashboards, PrefixDashboard, "Dashboard"),
		Analytics:              NewRepository[models.AnalyticsSnapshot](backend, models.CollectionAnalytics, "snapshot", "Analytics snapshot"),
		AuditLogs:              NewRepository[models.AuditLog](backend, models.CollectionAuditLogs, PrefixAuditLog, "Audit log"),
	}
}
