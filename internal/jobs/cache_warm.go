package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/cache"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/store"
)

// CacheWarm re-serializes recently updated entities into the cache so the
// re-fetch that follows every client mutation stays hot.
type CacheWarm struct {
	store store.Store
	cache cache.EntityCache
	cron  string
}

func NewCacheWarm(store store.Store, cache cache.EntityCache) *CacheWarm {
	return &CacheWarm{
		store: store,
		cache: cache,
		cron:  "@every 1m",
	}
}

func (c *CacheWarm) Schedule() string {
	return c.cron
}

func (c *CacheWarm) Run() {
	ctx := context.Background()

	entities, err := c.store.ListRecentlyUpdated(ctx, time.Now().Add(-5*time.Minute))
	if err != nil {
		logrus.Errorf("cache warm failed to list entities: %v", err)
		return
	}

	for _, entity := range entities {
		if entity.Deleted {
			continue
		}
		if err := c.cache.SetEntity(ctx, entity); err != nil {
			logrus.Warnf("cache warm failed for entity %s: %v", entity.ID, err)
		}
	}
}
