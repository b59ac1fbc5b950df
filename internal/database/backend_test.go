package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

func setupBackends(t *testing.T) map[string]Backend {
	t.Helper()

	gormBackend, err := Connect(sqlite.Open(":memory:"), logger.Silent)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { gormBackend.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"gorm":   gormBackend,
	}
}

func TestBackend_InsertPrependsAndAssignsSeq(t *testing.T) {
	ctx := context.Background()
	for name, b := range setupBackends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := b.Insert(ctx, "incidents", Document{ID: "inc-1", Data: RawJSON(`{"id":"inc-1"}`)})
			if err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			second, err := b.Insert(ctx, "incidents", Document{ID: "inc-2", Data: RawJSON(`{"id":"inc-2"}`)})
			if err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			if second.Seq <= first.Seq {
				t.Errorf("seq not increasing: first=%d second=%d", first.Seq, second.Seq)
			}

			docs, err := b.List(ctx, "incidents")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(docs) != 2 {
				t.Fatalf("len(docs) = %d, want 2", len(docs))
			}
			if docs[0].ID != "inc-2" {
				t.Errorf("docs[0].ID = %q, want newest first", docs[0].ID)
			}
		})
	}
}

func TestBackend_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	for name, b := range setupBackends(t) {
		t.Run(name, func(t *testing.T) {
			b.Insert(ctx, "users", Document{ID: "x", Data: RawJSON(`{}`)})
			if _, err := b.Insert(ctx, "teams", Document{ID: "x", Data: RawJSON(`{}`)}); err != nil {
				t.Fatalf("same id in another collection should be allowed: %v", err)
			}
			if _, err := b.Insert(ctx, "users", Document{ID: "x", Data: RawJSON(`{}`)}); !errors.Is(err, ErrDuplicate) {
				t.Errorf("duplicate insert error = %v, want ErrDuplicate", err)
			}
			count, _ := b.Count(ctx, "users")
			if count != 1 {
				t.Errorf("Count(users) = %d, want 1", count)
			}
		})
	}
}

func TestBackend_UpdateAndSoftDeleteMarker(t *testing.T) {
	ctx := context.Background()
	for name, b := range setupBackends(t) {
		t.Run(name, func(t *testing.T) {
			b.Insert(ctx, "resources", Document{ID: "res-1", Data: RawJSON(`{"name":"a"}`)})

			now := time.Now()
			if err := b.Update(ctx, "resources", Document{ID: "res-1", Data: RawJSON(`{"name":"b"}`), DeletedAt: &now}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			doc, err := b.Get(ctx, "resources", "res-1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(doc.Data) != `{"name":"b"}` {
				t.Errorf("Data = %s", doc.Data)
			}
			if !doc.IsDeleted() {
				t.Error("expected document to carry deleted_at")
			}

			if err := b.Update(ctx, "resources", Document{ID: "missing"}); !errors.Is(err, ErrNotFound) {
				t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestBackend_DeleteAndGetMissing(t *testing.T) {
	ctx := context.Background()
	for name, b := range setupBackends(t) {
		t.Run(name, func(t *testing.T) {
			b.Insert(ctx, "tags", Document{ID: "tag-1", Data: RawJSON(`{}`)})
			if err := b.Delete(ctx, "tags", "tag-1"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := b.Get(ctx, "tags", "tag-1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
			}
			if err := b.Delete(ctx, "tags", "tag-1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Delete() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemoryBackend_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	b.Insert(ctx, "roles", Document{ID: "role-1", Data: RawJSON(`{"name":"admin"}`)})

	doc, _ := b.Get(ctx, "roles", "role-1")
	doc.Data[2] = 'X'

	again, _ := b.Get(ctx, "roles", "role-1")
	if string(again.Data) != `{"name":"admin"}` {
		t.Errorf("stored data was mutated through a returned copy: %s", again.Data)
	}
}

func TestOpen_SelectsBackend(t *testing.T) {
	b, err := Open("", logger.Silent)
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if _, ok := b.(*MemoryBackend); !ok {
		t.Errorf("Open(\"\") = %T, want *MemoryBackend", b)
	}

	b, err = Open("sqlite://:memory:", logger.Silent)
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	defer b.Close()
	if _, ok := b.(*GormBackend); !ok {
		t.Errorf("Open(sqlite) = %T, want *GormBackend", b)
	}

	if _, err := Open("mysql://x", logger.Silent); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestRawJSON_ScanAndValue(t *testing.T) {
	var r RawJSON
	if err := r.Scan(`{"a":1}`); err != nil {
		t.Fatalf("Scan(string) error = %v", err)
	}
	if string(r) != `{"a":1}` {
		t.Errorf("r = %s", r)
	}
	if err := r.Scan([]byte(`{"b":2}`)); err != nil {
		t.Fatalf("Scan([]byte) error = %v", err)
	}
	v, _ := r.Value()
	if v != `{"b":2}` {
		t.Errorf("Value() = %v", v)
	}
	if err := r.Scan(42); err == nil {
		t.Error("expected error for unsupported type")
	}
}
