package database

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist in a collection.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate is returned when inserting a document whose id is already taken.
	ErrDuplicate = errors.New("document already exists")
)

// JSONB is a free-form JSON object used by entities for type-specific configuration
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// RawJSON holds an encoded entity. It is stored as text so the same column works on sqlite and postgres.
type RawJSON []byte

// Scan implements the sql.Scanner interface
func (r *RawJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append((*r)[:0], v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("unsupported type %T for RawJSON", value)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (r RawJSON) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return string(r), nil
}

// MarshalJSON keeps the encoded entity inline.
func (r RawJSON) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r, nil
}

// Document is one stored record of one collection.
type Document struct {
	Collection string     `gorm:"primaryKey;size:64" json:"collection"`
	ID         string     `gorm:"primaryKey;size:128" json:"id"`
	Seq        int64      `gorm:"not null;index" json:"seq"`
	Data       RawJSON    `gorm:"type:text" json:"data"`
	DeletedAt  *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// IsDeleted reports whether the document has been soft-deleted.
func (d *Document) IsDeleted() bool {
	return d.DeletedAt != nil
}

// clone returns a copy that shares no memory with d.
func (d Document) clone() Document {
	c := d
	if d.Data != nil {
		c.Data = append(RawJSON(nil), d.Data...)
	}
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		c.DeletedAt = &t
	}
	return c
}

// Backend stores documents grouped by collection. List order is newest insertion first.
type Backend interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	Insert(ctx context.Context, collection string, doc Document) (*Document, error)
	Update(ctx context.Context, collection string, doc Document) error
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string) (int64, error)
	Close() error
}
