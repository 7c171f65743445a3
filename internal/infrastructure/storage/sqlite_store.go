package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/ratelink/domain"
)

// SQLiteStoreImpl implements domain.SessionStore on a local sqlite file
// using GORM. This is the default on-device plain tier.
type SQLiteStoreImpl struct {
	db *gorm.DB
}

// DBEntry is the database model for one persisted key
type DBEntry struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBEntry) TableName() string {
	return "session_entries"
}

// OpenSQLite opens (and migrates) the sqlite-backed store at path
func OpenSQLite(path string) (*SQLiteStoreImpl, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&DBEntry{}); err != nil {
		return nil, err
	}
	return &SQLiteStoreImpl{db: db}, nil
}

// NewSQLiteStore wraps an already opened GORM handle (used by tests)
func NewSQLiteStore(db *gorm.DB) (*SQLiteStoreImpl, error) {
	if err := db.AutoMigrate(&DBEntry{}); err != nil {
		return nil, err
	}
	return &SQLiteStoreImpl{db: db}, nil
}

// Get implements domain.SessionStore
func (s *SQLiteStoreImpl) Get(ctx context.Context, key string) (string, error) {
	var entry DBEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrKeyNotFound
		}
		return "", err
	}
	return entry.Value, nil
}

// Set implements domain.SessionStore
func (s *SQLiteStoreImpl) Set(ctx context.Context, key, value string) error {
	entry := DBEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Save(&entry).Error
}

// SaveSession implements domain.SessionStore. All five session keys are
// written in one transaction so a crash cannot leave a half-written session.
func (s *SQLiteStoreImpl) SaveSession(ctx context.Context, session *domain.Session) error {
	kv, err := encodeSession(session)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range kv {
			entry := DBEntry{Key: key, Value: value, UpdatedAt: time.Now()}
			if err := tx.Save(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSession implements domain.SessionStore
func (s *SQLiteStoreImpl) LoadSession(ctx context.Context) (*domain.Session, error) {
	var entries []DBEntry
	if err := s.db.WithContext(ctx).Where("key IN ?", sessionKeys).Find(&entries).Error; err != nil {
		return nil, err
	}
	kv := make(map[string]string, len(entries))
	for _, e := range entries {
		kv[e.Key] = e.Value
	}
	return decodeSession(func(key string) (string, bool) {
		v, ok := kv[key]
		return v, ok
	})
}

// ClearSession implements domain.SessionStore
func (s *SQLiteStoreImpl) ClearSession(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("key IN ?", sessionKeys).Delete(&DBEntry{}).Error
}

// Close releases the underlying database handle
func (s *SQLiteStoreImpl) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Compile-time interface compliance verification
var _ domain.SessionStore = (*SQLiteStoreImpl)(nil)
