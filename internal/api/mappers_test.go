package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/akmatori/opsconsole/internal/models"
)

func TestExecutionToListItem(t *testing.T) {
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	exec := models.Execution{
		Base:       models.Base{ID: "exec-001", CreatedAt: started},
		ScriptID:   "pb-001",
		ScriptName: "Collect top processes",
		Status:     models.ExecutionStatusSuccess,
		Stdout:     strings.Repeat("line\n", 100),
		Stderr:     "warning",
		StartedAt:  &started,
		DurationMs: 1500,
	}

	item := ExecutionToListItem(exec)
	if item.ID != "exec-001" || item.ScriptID != "pb-001" || item.DurationMs != 1500 {
		t.Errorf("item = %+v", item)
	}
	if !item.CreatedAt.Equal(started) {
		t.Errorf("created_at = %v", item.CreatedAt)
	}

	raw, _ := json.Marshal(item)
	if strings.Contains(string(raw), "stdout") || strings.Contains(string(raw), "stderr") {
		t.Errorf("list item should omit captured output: %s", raw)
	}
}

func TestExecutionsToListItems(t *testing.T) {
	items := ExecutionsToListItems([]models.Execution{
		{Base: models.Base{ID: "exec-002"}},
		{Base: models.Base{ID: "exec-001"}},
	})
	if len(items) != 2 || items[0].ID != "exec-002" {
		t.Errorf("items = %+v", items)
	}
	if got := ExecutionsToListItems(nil); got == nil || len(got) != 0 {
		t.Errorf("nil input should map to an empty list, got %v", got)
	}
}

func TestNewLoginResponse(t *testing.T) {
	expires := time.Date(2024, 3, 2, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	resp := NewLoginResponse(&models.User{Name: "Alex Chen"}, "tok", expires)
	if resp.Token != "tok" || resp.User.Name != "Alex Chen" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.ExpiresAt.Location() != time.UTC || !resp.ExpiresAt.Equal(expires) {
		t.Errorf("expires_at = %v", resp.ExpiresAt)
	}
}
