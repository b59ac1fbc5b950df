package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns the backend selected by databaseURL:
//
//	"" or "memory://"           in-process memory (default)
//	"sqlite://<path>"           sqlite file, ":memory:" allowed
//	"postgres://..."            PostgreSQL
func Open(databaseURL string, logLevel logger.LogLevel) (Backend, error) {
	switch {
	case databaseURL == "" || strings.HasPrefix(databaseURL, "memory://"):
		logrus.Info("Using in-memory store")
		return NewMemoryBackend(), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return Connect(sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://")), logLevel)
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return Connect(postgres.Open(databaseURL), logLevel)
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", databaseURL)
	}
}

// Connect opens a gorm connection and migrates the documents table
func Connect(dialector gorm.Dialector, logLevel logger.LogLevel) (*GormBackend, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logrus.Infof("Database connection established (%s)", dialector.Name())

	// Every sqlite connection to ":memory:" is a separate database.
	if dialector.Name() == "sqlite" {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	backend := NewGormBackend(db)
	if err := backend.AutoMigrate(); err != nil {
		return nil, err
	}
	return backend, nil
}

// GormBackend stores documents in a single SQL table through gorm
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend wraps an open gorm connection
func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

// AutoMigrate runs database migrations
func (g *GormBackend) AutoMigrate() error {
	logrus.Info("Running database migrations...")
	if err := g.db.AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logrus.Info("Database migrations completed successfully")
	return nil
}

// List returns every document of the collection, newest first
func (g *GormBackend) List(ctx context.Context, collection string) ([]Document, error) {
	var docs []Document
	if err := g.db.WithContext(ctx).Where("collection = ?", collection).Order("seq DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return docs, nil
}

// Get returns one document
func (g *GormBackend) Get(ctx context.Context, collection, id string) (*Document, error) {
	var doc Document
	err := g.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

// Insert stores doc with the next sequence number of its collection
func (g *GormBackend) Insert(ctx context.Context, collection string, doc Document) (*Document, error) {
	doc.Collection = collection
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Document{}).Where("collection = ? AND id = ?", collection, doc.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}

		var maxSeq int64
		if err := tx.Model(&Document{}).Where("collection = ?", collection).
			Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return err
		}
		doc.Seq = maxSeq + 1
		return tx.Create(&doc).Error
	})
	if errors.Is(err, ErrDuplicate) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return &doc, nil
}

// Update replaces the data and deletion marker of an existing document
func (g *GormBackend) Update(ctx context.Context, collection string, doc Document) error {
	result := g.db.WithContext(ctx).Model(&Document{}).
		Where("collection = ? AND id = ?", collection, doc.ID).
		Updates(map[string]interface{}{
			"data":       doc.Data,
			"deleted_at": doc.DeletedAt,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, doc.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete physically removes a document
func (g *GormBackend) Delete(ctx context.Context, collection, id string) error {
	result := g.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).Delete(&Document{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored documents, deleted ones included
func (g *GormBackend) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&Document{}).Where("collection = ?", collection).Count(&count).Error
	return count, err
}

// Close closes the underlying connection pool
func (g *GormBackend) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
