package services

import "github.com/google/uuid"

// Id prefixes per collection
const (
	PrefixIncident     = "inc"
	PrefixAlertRule    = "rule"
	PrefixSilenceRule  = "sil"
	PrefixResource     = "res"
	PrefixGroup        = "grp"
	PrefixUser         = "usr"
	PrefixTeam         = "team"
	PrefixRole         = "role"
	PrefixPlaybook     = "pb"
	PrefixExecution    = "exec"
	PrefixChannel      = "ch"
	PrefixStrategy     = "strat"
	PrefixHistory      = "nh"
	PrefixNotification = "ntf"
	PrefixDashboard    = "dash"
	PrefixTag          = "tag"
	PrefixDatasource   = "ds"
	PrefixDiscoveryJob = "job"
	PrefixAuditLog     = "log"
	PrefixLogin        = "login"
	PrefixNote         = "note"
	PrefixWidget       = "w"
)

// NewID returns "<prefix>-<uuid>"
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
