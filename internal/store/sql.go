package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kvEntry is one row of the kv_store table. The value column is text so
// SQLite keeps numeric JSON such as 42 as written instead of coercing it.
type kvEntry struct {
	Key   string         `gorm:"column:key;primaryKey"`
	Value datatypes.JSON `gorm:"column:value;type:text;not null"`
}

// TableName specifies the table name for kvEntry
func (kvEntry) TableName() string {
	return "kv_store"
}

// SQLStore keeps key/value pairs in a single gorm-managed table
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the kv_store table if needed
func (s *SQLStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&kvEntry{}); err != nil {
		return fmt.Errorf("failed to migrate kv_store: %w", err)
	}
	return nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	entry := &kvEntry{Key: key, Value: datatypes.JSON(value)}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(entry).Error
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).Where(&kvEntry{Key: key}).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(entry.Value), nil
}

func (s *SQLStore) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	var entries []kvEntry
	err := s.db.WithContext(ctx).
		Where(clause.Like{Column: clause.Column{Name: "key"}, Value: prefix + "%"}).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	values := make([][]byte, 0, len(entries))
	for _, e := range entries {
		// LIKE treats _ and % in the prefix as wildcards.
		if !strings.HasPrefix(e.Key, prefix) {
			continue
		}
		values = append(values, []byte(e.Value))
	}
	return values, nil
}

func (s *SQLStore) Del(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&kvEntry{Key: key}).Error
}
