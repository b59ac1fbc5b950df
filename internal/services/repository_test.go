package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/models"
)

func newTagRepo() *Repository[models.Tag, *models.Tag] {
	return NewRepository[models.Tag](database.NewMemoryBackend(), models.CollectionTags, PrefixTag, "Tag")
}

func TestRepository_CreatePrependsAndGeneratesID(t *testing.T) {
	ctx := context.Background()
	repo := newTagRepo()

	first, err := repo.Create(ctx, &models.Tag{Key: "env", Value: "prod"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Errorf("Create() did not stamp id/created_at: %+v", first)
	}
	if _, err := repo.Create(ctx, &models.Tag{Base: models.Base{ID: "tag-fixed"}, Key: "env", Value: "dev"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != "tag-fixed" {
		t.Errorf("List() = %v, want newest first", all)
	}
}

func TestRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newTagRepo()
	tag := &models.Tag{Base: models.Base{ID: "tag-1"}, Key: "a"}
	if _, err := repo.Create(ctx, tag); err != nil {
		t.Fatal(err)
	}
	_, err := repo.Create(ctx, &models.Tag{Base: models.Base{ID: "tag-1"}, Key: "b"})
	assertStatus(t, err, 409)
}

func TestRepository_PatchIsShallow(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[models.Resource](database.NewMemoryBackend(), models.CollectionResources, PrefixResource, "Resource")

	created, err := repo.Create(ctx, &models.Resource{
		Name: "web-01",
		Type: "host",
		Metadata: database.JSONB{"os": "linux", "cpus": 4},
	})
	if err != nil {
		t.Fatal(err)
	}

	patched, err := repo.Patch(ctx, created.ID, patchOf(t, map[string]interface{}{
		"metadata":   map[string]interface{}{"os": "bsd"},
		"id":         "res-hijack",
		"created_at": "1999-01-01T00:00:00Z",
	}))
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if len(patched.Metadata) != 1 || patched.Metadata["os"] != "bsd" {
		t.Errorf("nested object should be replaced wholesale, got %v", patched.Metadata)
	}
	if patched.Name != "web-01" {
		t.Errorf("absent key changed: name = %q", patched.Name)
	}
	if patched.ID != created.ID {
		t.Errorf("id changed to %q", patched.ID)
	}
	if !patched.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at changed to %v", patched.CreatedAt)
	}
}

func TestRepository_PatchInvalidType(t *testing.T) {
	ctx := context.Background()
	repo := newTagRepo()
	tag, _ := repo.Create(ctx, &models.Tag{Key: "a"})

	_, err := repo.Patch(ctx, tag.ID, map[string]json.RawMessage{"key": json.RawMessage(`42`)})
	assertStatus(t, err, 400)
}

func TestRepository_PatchRejectsUnknownFields(t *testing.T) {
	ctx := context.Background()
	repo := newTagRepo()
	tag, _ := repo.Create(ctx, &models.Tag{Key: "env", Value: "prod"})

	tests := []struct {
		name  string
		patch map[string]interface{}
		want  int
	}{
		{"known field", map[string]interface{}{"value": "dev"}, 0},
		{"embedded base field", map[string]interface{}{"updated_at": "2024-01-01T00:00:00Z"}, 0},
		{"unknown field", map[string]interface{}{"colour": "red"}, 400},
		{"known and unknown", map[string]interface{}{"value": "qa", "bogus": 1}, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Patch(ctx, tag.ID, patchOf(t, tt.patch))
			if tt.want == 0 {
				if err != nil {
					t.Fatalf("Patch() error = %v", err)
				}
				return
			}
			assertStatus(t, err, tt.want)
		})
	}

	stored, _ := repo.Get(ctx, tag.ID)
	if stored.Value != "dev" {
		t.Errorf("rejected patch must not be written, value = %q", stored.Value)
	}
}

func TestRepository_MutateSerializesWriters(t *testing.T) {
	ctx := context.Background()
	repo := newTagRepo()
	tag, _ := repo.Create(ctx, &models.Tag{Key: "counter"})

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Mutate(ctx, tag.ID, func(tg *models.Tag) error {
				tg.Description += "x"
				return nil
			}); err != nil {
				t.Errorf("Mutate() error = %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := repo.Get(ctx, tag.ID)
	if got := strings.Count(stored.Description, "x"); got != writers {
		t.Errorf("applied mutations = %d, want %d", got, writers)
	}
}

func TestRepository_MutateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	repo := newTagRepo()
	tag, _ := repo.Create(ctx, &models.Tag{Key: "env", Value: "prod"})

	stop := errors.New("stop")
	_, err := repo.Mutate(ctx, tag.ID, func(tg *models.Tag) error {
		tg.Value = "changed"
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Mutate() error = %v, want the callback's error", err)
	}
	stored, _ := repo.Get(ctx, tag.ID)
	if stored.Value != "prod" {
		t.Errorf("aborted mutation was written: value = %q", stored.Value)
	}

	_, err = repo.Mutate(ctx, "tag-404", func(*models.Tag) error { return nil })
	assertStatus(t, err, 404)
}

func TestRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTagRepo()
	tag, _ := repo.Create(ctx, &models.Tag{Key: "a"})

	if err := repo.SoftDelete(ctx, tag.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	_, err := repo.Get(ctx, tag.ID)
	assertStatus(t, err, 404)
	assertStatus(t, repo.SoftDelete(ctx, tag.ID), 404)

	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
	all, _ := repo.ListWithDeleted(ctx)
	if len(all) != 1 || all[0].DeletedAt == nil {
		t.Errorf("ListWithDeleted() = %+v, want the deleted record", all)
	}
	if ok, _ := repo.Exists(ctx, tag.ID); ok {
		t.Error("Exists() = true for a deleted record")
	}
}

func TestRepository_UpsertRevivesDeleted(t *testing.T) {
	ctx := context.Background()
	repo := newTagRepo()
	tag, _ := repo.Create(ctx, &models.Tag{Base: models.Base{ID: "tag-x"}, Key: "a"})
	_ = repo.SoftDelete(ctx, tag.ID)

	if _, err := repo.Upsert(ctx, &models.Tag{Base: models.Base{ID: "tag-x"}, Key: "b"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, err := repo.Get(ctx, "tag-x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Key != "b" || got.DeletedAt != nil {
		t.Errorf("Upsert() = %+v", got)
	}
}

func TestRepository_GetMissingMessage(t *testing.T) {
	_, err := newTagRepo().Get(context.Background(), "tag-nope")
	assertStatus(t, err, 404)
	if e, _ := apierr.As(err); e.Message != "Tag tag-nope not found" {
		t.Errorf("message = %q", e.Message)
	}
}
