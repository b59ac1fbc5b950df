package services

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/events"
)

// changes records an audit entry and publishes the matching realtime event
type changes struct {
	audit  *AuditService
	events events.Publisher
}

func (c changes) record(ctx context.Context, userID string, kind events.Type, action, entityType, entityID string, details, data interface{}) {
	c.audit.Record(ctx, userID, action, entityType, entityID, details)
	c.events.Publish(events.Event{
		Type:       kind,
		EntityType: entityType,
		EntityID:   entityID,
		Data:       data,
	})
}

// patchKeys returns the sorted top-level keys of a patch body
func patchKeys(patch map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BatchRequest applies one action to many records
type BatchRequest struct {
	Action   string   `json:"action" validate:"required"`
	IDs      []string `json:"ids" validate:"required,min=1"`
	Assignee string   `json:"assignee,omitempty"`
	Owner    string   `json:"owner,omitempty"`
	TagKey   string   `json:"tag_key,omitempty"`
	TagValue string   `json:"tag_value,omitempty"`
}

// BatchFailure explains why one id of a batch was skipped
type BatchFailure struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// BatchResult summarises a batch action
type BatchResult struct {
	Success bool           `json:"success"`
	Updated int            `json:"updated"`
	Failed  []BatchFailure `json:"failed"`
}

func newBatchResult() *BatchResult {
	return &BatchResult{Success: true, Failed: []BatchFailure{}}
}

func (b *BatchResult) fail(id string, err error) {
	b.Failed = append(b.Failed, BatchFailure{ID: id, Message: errorMessage(err)})
}

func errorMessage(err error) string {
	if e, ok := apierr.As(err); ok {
		return e.Message
	}
	return err.Error()
}
