package database

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps every collection in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string][]Document
	seq         map[string]int64
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string][]Document),
		seq:         make(map[string]int64),
	}
}

// List returns copies of all documents, newest first
func (m *MemoryBackend) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.clone()
	}
	return out, nil
}

// Get returns a copy of one document
func (m *MemoryBackend) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.indexOf(collection, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	doc := m.collections[collection][idx].clone()
	return &doc, nil
}

// Insert prepends doc to the collection
func (m *MemoryBackend) Insert(ctx context.Context, collection string, doc Document) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(collection, doc.ID) >= 0 {
		return nil, ErrDuplicate
	}

	now := time.Now()
	m.seq[collection]++
	doc.Collection = collection
	doc.Seq = m.seq[collection]
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	stored := doc.clone()
	m.collections[collection] = append([]Document{stored}, m.collections[collection]...)

	out := stored.clone()
	return &out, nil
}

// Update replaces the data and deletion marker of an existing document
func (m *MemoryBackend) Update(ctx context.Context, collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(collection, doc.ID)
	if idx < 0 {
		return ErrNotFound
	}

	existing := &m.collections[collection][idx]
	updated := doc.clone()
	existing.Data = updated.Data
	existing.DeletedAt = updated.DeletedAt
	existing.UpdatedAt = time.Now()
	return nil
}

// Delete physically removes a document
func (m *MemoryBackend) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(collection, id)
	if idx < 0 {
		return ErrNotFound
	}
	docs := m.collections[collection]
	m.collections[collection] = append(docs[:idx:idx], docs[idx+1:]...)
	return nil
}

// Count returns the number of stored documents, deleted ones included
func (m *MemoryBackend) Count(ctx context.Context, collection string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.collections[collection])), nil
}

// Close is a no-op for the memory backend
func (m *MemoryBackend) Close() error {
	return nil
}

// indexOf must be called with the lock held
func (m *MemoryBackend) indexOf(collection, id string) int {
	for i, d := range m.collections[collection] {
		if d.ID == id {
			return i
		}
	}
	return -1
}
