package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/models"
)

// immutableFields cannot be changed through Patch
var immutableFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"deleted_at": true,
}

// Repository is the typed view of one collection. Reads hide soft-deleted
// records; writes encode the whole entity as one document. Read-modify-write
// operations of one repository are serialized by mu; the lock is in-process.
type Repository[T any, PT interface {
	*T
	models.Entity
}] struct {
	backend    database.Backend
	collection string
	prefix     string
	name       string
	now        func() time.Time

	mu *sync.Mutex
}

// NewRepository creates a repository over collection. New ids are "<prefix>-<uuid>";
// name is used in error messages.
func NewRepository[T any, PT interface {
	*T
	models.Entity
}](backend database.Backend, collection, prefix, name string) *Repository[T, PT] {
	return &Repository[T, PT]{
		backend:    backend,
		collection: collection,
		prefix:     prefix,
		name:       name,
		now:        time.Now,
		mu:         &sync.Mutex{},
	}
}

// Collection returns the collection name
func (r *Repository[T, PT]) Collection() string {
	return r.collection
}

func (r *Repository[T, PT]) decode(doc *database.Document) (PT, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", r.collection, doc.ID, err)
	}
	return PT(&v), nil
}

func (r *Repository[T, PT]) encode(entity PT) ([]byte, error) {
	if n, ok := any(entity).(models.Normalizer); ok {
		n.Normalize()
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s/%s: %w", r.collection, entity.GetID(), err)
	}
	return data, nil
}

func (r *Repository[T, PT]) notFound(id string) error {
	return apierr.NotFound("%s %s not found", r.name, id)
}

// getDoc returns the live document for id
func (r *Repository[T, PT]) getDoc(ctx context.Context, id string) (*database.Document, error) {
	doc, err := r.backend.Get(ctx, r.collection, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, r.notFound(id)
	}
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted() {
		return nil, r.notFound(id)
	}
	return doc, nil
}

// List returns active records, newest first
func (r *Repository[T, PT]) List(ctx context.Context) ([]T, error) {
	return r.list(ctx, false)
}

// ListWithDeleted returns every record, soft-deleted ones included
func (r *Repository[T, PT]) ListWithDeleted(ctx context.Context) ([]T, error) {
	return r.list(ctx, true)
}

func (r *Repository[T, PT]) list(ctx context.Context, withDeleted bool) ([]T, error) {
	docs, err := r.backend.List(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for i := range docs {
		if docs[i].IsDeleted() && !withDeleted {
			continue
		}
		v, err := r.decode(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Filter returns the active records accepted by keep
func (r *Repository[T, PT]) Filter(ctx context.Context, keep func(PT) bool) ([]T, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for i := range all {
		if keep(PT(&all[i])) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Count returns the number of active records
func (r *Repository[T, PT]) Count(ctx context.Context) (int, error) {
	all, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Get returns one active record; a missing or soft-deleted id is a 404
func (r *Repository[T, PT]) Get(ctx context.Context, id string) (PT, error) {
	doc, err := r.getDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.decode(doc)
}

// Exists reports whether an active record with id exists
func (r *Repository[T, PT]) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.getDoc(ctx, id)
	if apierr.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Create stores a new record at the front of the collection. An empty id is generated.
func (r *Repository[T, PT]) Create(ctx context.Context, entity PT) (PT, error) {
	if entity.GetID() == "" {
		entity.SetID(NewID(r.prefix))
	}
	entity.Stamp(r.now().UTC())

	data, err := r.encode(entity)
	if err != nil {
		return nil, err
	}
	_, err = r.backend.Insert(ctx, r.collection, database.Document{ID: entity.GetID(), Data: data})
	if errors.Is(err, database.ErrDuplicate) {
		return nil, apierr.Conflict("%s %s already exists", r.name, entity.GetID())
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Patch shallow-merges patch over the stored record: every top-level key
// replaces the stored value wholesale, absent keys are kept.
func (r *Repository[T, PT]) Patch(ctx context.Context, id string, patch map[string]json.RawMessage) (PT, error) {
	if err := checkPatchKeys[T](patch); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.getDoc(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc.Data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", r.collection, id, err)
	}
	for key, value := range patch {
		if immutableFields[key] {
			continue
		}
		fields[key] = value
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s/%s: %w", r.collection, id, err)
	}
	var v T
	if err := json.Unmarshal(merged, &v); err != nil {
		return nil, invalidField(err)
	}
	entity := PT(&v)
	entity.Touch(r.now().UTC())

	if err := r.write(ctx, doc, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Replace writes the whole entity over its active record. Callers that derive
// entity from a previous Get should use Mutate instead.
func (r *Repository[T, PT]) Replace(ctx context.Context, entity PT) (PT, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.getDoc(ctx, entity.GetID())
	if err != nil {
		return nil, err
	}
	entity.Touch(r.now().UTC())
	if err := r.write(ctx, doc, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Mutate loads the active record, applies fn and writes the result while
// holding the repository lock, so concurrent mutations never overwrite each
// other. An error from fn aborts the write and is returned unchanged.
func (r *Repository[T, PT]) Mutate(ctx context.Context, id string, fn func(PT) error) (PT, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.getDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	entity, err := r.decode(doc)
	if err != nil {
		return nil, err
	}
	if err := fn(entity); err != nil {
		return nil, err
	}
	entity.Touch(r.now().UTC())
	if err := r.write(ctx, doc, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Upsert replaces the record with the entity's id, creating it when missing or deleted
func (r *Repository[T, PT]) Upsert(ctx context.Context, entity PT) (PT, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.backend.Get(ctx, r.collection, entity.GetID())
	if errors.Is(err, database.ErrNotFound) {
		return r.Create(ctx, entity)
	}
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted() {
		entity.Stamp(r.now().UTC())
		doc.DeletedAt = nil
	} else {
		entity.Touch(r.now().UTC())
	}
	if err := r.write(ctx, doc, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// SoftDelete marks the record deleted. It stays in the raw collection.
func (r *Repository[T, PT]) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.getDoc(ctx, id)
	if err != nil {
		return err
	}
	entity, err := r.decode(doc)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	entity.MarkDeleted(now)
	doc.DeletedAt = &now
	return r.write(ctx, doc, entity)
}

func (r *Repository[T, PT]) write(ctx context.Context, doc *database.Document, entity PT) error {
	data, err := r.encode(entity)
	if err != nil {
		return err
	}
	doc.Data = data
	if err := r.backend.Update(ctx, r.collection, *doc); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return r.notFound(doc.ID)
		}
		return err
	}
	return nil
}

// invalidField turns a decode failure of merged fields into a 400
func invalidField(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apierr.BadRequest("invalid value for field %q: expected %s", typeErr.Field, typeErr.Type)
	}
	return apierr.BadRequest("invalid JSON in request body")
}

var fieldSets sync.Map

// jsonFields returns the top-level json keys that decode into t
func jsonFields(t reflect.Type) map[string]bool {
	if cached, ok := fieldSets.Load(t); ok {
		return cached.(map[string]bool)
	}
	fields := map[string]bool{}
	collectJSONFields(t, fields)
	fieldSets.Store(t, fields)
	return fields
}

func collectJSONFields(t reflect.Type, fields map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectJSONFields(ft, fields)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = true
	}
}

// checkPatchKeys rejects patch keys that are not fields of T
func checkPatchKeys[T any](patch map[string]json.RawMessage) error {
	fields := jsonFields(reflect.TypeFor[T]())
	for key := range patch {
		if !fields[key] {
			return apierr.BadRequest("unknown field %q", key)
		}
	}
	return nil
}
