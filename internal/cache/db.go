package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gen3d-backend/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore keeps cache entries in the relational database, matching the
// model_cache table the system had before an external cache was introduced.
// TTL is enforced on read against the entry's creation time.
type DBStore struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ Store = (*DBStore)(nil)

func NewDBStore(db *gorm.DB, ttl time.Duration) *DBStore {
	return &DBStore{db: db, ttl: ttl}
}

func (s *DBStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry database.CacheEntry
	if err := s.db.WithContext(ctx).First(&entry, "cache_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if s.ttl > 0 && time.Since(entry.CreationTime) > s.ttl {
		return nil, false, nil
	}

	return entry.ModelData, true, nil
}

func (s *DBStore) Put(ctx context.Context, key string, data []byte) error {
	entry := database.CacheEntry{
		CacheKey:     key,
		ModelData:    data,
		CreationTime: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		UpdateAll: true,
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}
