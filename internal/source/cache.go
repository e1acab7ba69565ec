package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"timereport/internal/model"
)

// Cache stores upstream payloads by key until they expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key, accountID string, data []byte, ttl time.Duration) error
}

type cachedSource struct {
	next  EntrySource
	cache Cache
	ttl   time.Duration
	log   *zap.SugaredLogger
}

// Cached wraps src so that listings and identities are read from cache when
// present and stored after a successful fetch. Cache failures never fail the
// call; the wrapped source is used instead.
func Cached(src EntrySource, cache Cache, ttl time.Duration, log *zap.SugaredLogger) EntrySource {
	return &cachedSource{next: src, cache: cache, ttl: ttl, log: log.Named("cache")}
}

func (c *cachedSource) ListEntries(ctx context.Context, cred Credential, f Filter) ([]model.TimeEntry, error) {
	key := CacheKey(cred.AccountID, "time_entries", f.params())

	var entries []model.TimeEntry
	if c.load(ctx, key, &entries) {
		return entries, nil
	}

	entries, err := c.next.ListEntries(ctx, cred, f)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, cred.AccountID, entries)
	return entries, nil
}

func (c *cachedSource) ResolveIdentity(ctx context.Context, cred Credential) (Identity, error) {
	key := CacheKey(cred.AccountID, "me")

	var id Identity
	if c.load(ctx, key, &id) {
		return id, nil
	}

	id, err := c.next.ResolveIdentity(ctx, cred)
	if err != nil {
		return Identity{}, err
	}
	c.store(ctx, key, cred.AccountID, id)
	return id, nil
}

func (c *cachedSource) load(ctx context.Context, key string, dst any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warnw("cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warnw("cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *cachedSource) store(ctx context.Context, key, accountID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warnw("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, accountID, data, c.ttl); err != nil {
		c.log.Warnw("cache write failed", "key", key, "error", err)
	}
}

// CacheKey joins an account id, an endpoint name and optional parameters.
func CacheKey(accountID, endpoint string, params ...string) string {
	parts := append([]string{accountID, endpoint}, params...)
	return strings.Join(parts, ":")
}

func (f Filter) params() string {
	id := func(p *int64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprint(*p)
	}
	day := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.DateOnly)
	}
	return strings.Join([]string{
		id(f.WorkspaceID), id(f.ClientID), id(f.ProjectID), id(f.TagID), day(f.Start), day(f.End),
	}, ",")
}
