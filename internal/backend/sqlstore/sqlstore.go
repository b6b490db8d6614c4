// Package sqlstore is an alternative cache backend on SQLite, using gorm
// with the pure-Go glebarez driver (no CGO required). All namespaces share
// one database file; records are rows in a single entries table.
package sqlstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/recallhq/recall/internal/backend"
)

// entry is the gorm model for one cache record.
type entry struct {
	ID        uint       `gorm:"primaryKey"`
	Namespace string     `gorm:"column:namespace;uniqueIndex:idx_ns_key;not null"`
	Key       string     `gorm:"column:key;uniqueIndex:idx_ns_key;not null"`
	Value     []byte     `gorm:"column:value"`
	CreatedAt *time.Time `gorm:"column:created_at"`
}

func (entry) TableName() string { return "entries" }

// SQLStore implements backend.Backend over a SQLite database.
type SQLStore struct {
	db   *gorm.DB
	path string

	mu          sync.Mutex
	provisioned map[string]bool
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("database path cannot be empty")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if migrateErr := db.AutoMigrate(&entry{}); migrateErr != nil {
		return nil, fmt.Errorf("failed to migrate cache schema: %w", migrateErr)
	}
	return &SQLStore{
		db:          db,
		path:        path,
		provisioned: make(map[string]bool),
	}, nil
}

// Provision marks the namespace as known. The schema is shared, so this
// only tracks first use per process.
func (s *SQLStore) Provision(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provisioned[name] {
		return false, nil
	}
	// A namespace that already holds rows was provisioned by an earlier
	// process.
	var n int64
	if err := s.db.Model(&entry{}).Where("namespace = ?", name).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to probe namespace: %w", err)
	}
	s.provisioned[name] = true
	return n == 0, nil
}

// List returns every record in the namespace.
func (s *SQLStore) List(name string) ([]backend.Record, error) {
	var rows []entry
	if err := s.db.Where("namespace = ?", name).Order("key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list namespace: %w", err)
	}
	records := make([]backend.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

// Put writes a record, overwriting any row under the same key.
func (s *SQLStore) Put(name, key string, value []byte, meta backend.Metadata) error {
	row := entry{Namespace: name, Key: key, Value: value}
	if !meta.CreatedAt.IsZero() {
		created := meta.CreatedAt.UTC()
		row.CreatedAt = &created
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if delErr := tx.Where("namespace = ? AND key = ?", name, key).Delete(&entry{}).Error; delErr != nil {
			return delErr
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("failed to write cache record: %w", err)
	}
	return nil
}

// Get returns the record under key, or backend.ErrNoRecord if absent.
func (s *SQLStore) Get(name, key string) (backend.Record, error) {
	var row entry
	err := s.db.Where("namespace = ? AND key = ?", name, key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return backend.Record{}, backend.ErrNoRecord
	}
	if err != nil {
		return backend.Record{}, fmt.Errorf("failed to read cache record: %w", err)
	}
	return toRecord(row), nil
}

// Delete removes the record under key. No-op if absent.
func (s *SQLStore) Delete(name, key string) error {
	if err := s.db.Where("namespace = ? AND key = ?", name, key).Delete(&entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete cache record: %w", err)
	}
	return nil
}

// Deregister forgets the in-process provisioning mark. Rows are kept.
func (s *SQLStore) Deregister(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.provisioned, name)
	return nil
}

// Path reports the database file location; namespaces share it.
func (s *SQLStore) Path(string) string {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return s.path
	}
	return abs
}

func toRecord(row entry) backend.Record {
	rec := backend.Record{Key: row.Key, Value: row.Value}
	if row.CreatedAt != nil {
		rec.Meta.CreatedAt = *row.CreatedAt
	}
	return rec
}
