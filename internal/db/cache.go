package db

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timereport/internal/source"
)

// Cache is the api_cache table used by the cache-through entry source.
type Cache struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCache(db *gorm.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e CacheEntry
	err := c.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, c.now()).
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, false, err
	}
	if e.Key == "" {
		return nil, false, nil
	}
	return e.Data, true, nil
}

func (c *Cache) Set(ctx context.Context, key, accountID string, data []byte, ttl time.Duration) error {
	endpoint := key
	if parts := strings.SplitN(key, ":", 3); len(parts) >= 2 {
		endpoint = parts[1]
	}
	e := CacheEntry{
		Key:       key,
		AccountID: accountID,
		Endpoint:  endpoint,
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "endpoint", "data", "expires_at"}),
	}).Create(&e).Error
}

var _ source.Cache = (*Cache)(nil)
