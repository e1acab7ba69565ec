package db

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// purgeCacheOnce deletes every cache row whose ExpiresAt is in the past.
func purgeCacheOnce(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&CacheEntry{})
	return res.RowsAffected, res.Error
}

// StartCachePurgeWorker launches a background goroutine that purges expired
// cache rows once at startup and then on every tick of every, until ctx is
// cancelled.
func StartCachePurgeWorker(ctx context.Context, db *gorm.DB, every time.Duration, log *zap.SugaredLogger) {
	log = log.Named("retention")
	go func() {
		if _, err := purgeCacheOnce(ctx, db, time.Now()); err != nil {
			log.Errorw("cache purge failed (startup)", "error", err)
		}

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				n, err := purgeCacheOnce(ctx, db, t)
				if err != nil {
					log.Errorw("cache purge failed", "error", err)
					continue
				}
				if n > 0 {
					log.Debugw("expired cache rows purged", "rows", n)
				}
			}
		}
	}()
}
