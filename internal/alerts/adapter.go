// Package alerts normalizes monitoring webhooks into a common alert shape.
package alerts

import (
	"crypto/subtle"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/akmatori/opsconsole/internal/models"
)

// Status of an incoming alert
type Status string

const (
	StatusFiring   Status = "firing"
	StatusResolved Status = "resolved"
)

// NormalizedAlert is the common alert format all adapters produce
type NormalizedAlert struct {
	AlertName   string
	Severity    models.Severity
	Status      Status
	Summary     string
	Description string

	TargetHost    string
	TargetService string
	Labels        map[string]string

	MetricName  string
	MetricValue string

	RunbookURL string

	StartedAt *time.Time
	EndedAt   *time.Time

	Fingerprint string
}

// Adapter parses the webhook payload of one monitoring source
type Adapter interface {
	// SourceType returns the source name used in /webhook/alert/{source}
	SourceType() string

	// ParsePayload parses the raw request body into normalized alerts.
	// A single webhook can contain multiple alerts.
	ParsePayload(body []byte) ([]NormalizedAlert, error)
}

// BaseAdapter provides common functionality for all adapters
type BaseAdapter struct {
	Source string
}

// SourceType returns the source type name
func (b *BaseAdapter) SourceType() string {
	return b.Source
}

// Registry looks adapters up by source type
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry registers adapters under their source type
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.SourceType()] = a
	}
	return r
}

// Get returns the adapter for source
func (r *Registry) Get(source string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(source)]
	return a, ok
}

// Sources returns the registered source types, sorted
func (r *Registry) Sources() []string {
	out := make([]string, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ValidateSecret checks the shared webhook secret carried in the
// X-Webhook-Secret header or as a bearer token. An empty secret allows every request.
func ValidateSecret(r *http.Request, secret string) error {
	if secret == "" {
		return nil
	}
	got := r.Header.Get("X-Webhook-Secret")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		return fmt.Errorf("invalid webhook secret")
	}
	return nil
}

// Fingerprint returns a stable identity for an alert without one: a hash of
// the alert name and its sorted labels
func Fingerprint(alertName string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	h.Write([]byte(alertName))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k + "=" + labels[k]))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// HostName strips the port from an instance label ("web-01:9100" -> "web-01")
func HostName(instance string) string {
	if host, _, err := net.SplitHostPort(instance); err == nil {
		return host
	}
	return instance
}

// NormalizeSeverity normalizes severity strings to standard values
func NormalizeSeverity(severity string) models.Severity {
	severity = strings.ToLower(strings.TrimSpace(severity))
	for normalized, aliases := range DefaultSeverityMapping {
		for _, alias := range aliases {
			if alias == severity {
				return normalized
			}
		}
	}
	// Default to warning if unknown
	return models.SeverityWarning
}

// NormalizeStatus normalizes status strings to standard values
func NormalizeStatus(status string) Status {
	switch strings.ToLower(status) {
	case "resolved", "ok", "recovery", "inactive", "normal":
		return StatusResolved
	default:
		return StatusFiring
	}
}

// DefaultSeverityMapping maps common severity values to console severities
var DefaultSeverityMapping = map[models.Severity][]string{
	models.SeverityCritical: {"critical", "disaster", "p1", "5", "emergency", "fatal"},
	models.SeverityHigh:     {"high", "major", "p2", "4", "error", "severe"},
	models.SeverityWarning:  {"warning", "minor", "p3", "3", "average", "warn"},
	models.SeverityInfo:     {"info", "informational", "p4", "1", "2", "low", "notice", "debug"},
}
