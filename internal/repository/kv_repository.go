package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntryModel is the GORM model for the kv_entries table.
type KVEntryModel struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (KVEntryModel) TableName() string {
	return "kv_entries"
}

// GormKVStore is the PostgreSQL-backed key-value store for the booking ledger.
type GormKVStore struct {
	db *gorm.DB
}

// NewGormKVStore creates a new GormKVStore.
func NewGormKVStore(db *gorm.DB) *GormKVStore {
	return &GormKVStore{db: db}
}

// Get retrieves the value stored under key.
func (s *GormKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var model KVEntryModel
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get kv entry: %w", err)
	}
	return model.Value, true, nil
}

// Set upserts value under key.
func (s *GormKVStore) Set(ctx context.Context, key, value string) error {
	model := KVEntryModel{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to set kv entry: %w", err)
	}
	return nil
}

// Remove deletes key; deleting an absent key succeeds.
func (s *GormKVStore) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&KVEntryModel{}).Error; err != nil {
		return fmt.Errorf("failed to remove kv entry: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *GormKVStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
