package models

// Collection names used by the store
const (
	CollectionIncidents              = "incidents"
	CollectionAlertRules             = "alert_rules"
	CollectionSilenceRules           = "silence_rules"
	CollectionResources              = "resources"
	CollectionResourceGroups         = "resource_groups"
	CollectionDatasources            = "datasources"
	CollectionDiscoveryJobs          = "discovery_jobs"
	CollectionUsers                  = "users"
	CollectionCredentials            = "credentials"
	CollectionTeams                  = "teams"
	CollectionRoles                  = "roles"
	CollectionPreferences            = "preferences"
	CollectionLoginHistory           = "login_history"
	CollectionPlaybooks              = "playbooks"
	CollectionExecutions             = "executions"
	CollectionNotificationChannels   = "notification_channels"
	CollectionNotificationStrategies = "notification_strategies"
	CollectionNotificationHistory    = "notification_history"
	CollectionNotifications          = "notifications"
	CollectionSettings               = "settings"
	CollectionTags                   = "tags"
	CollectionColumnConfigs          = "column_configs"
	CollectionDashboards             = "dashboards"
	CollectionAnalytics              = "analytics"
	CollectionAuditLogs              = "audit_logs"
)
