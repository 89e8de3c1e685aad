package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orwatch/orwatch/internal/core"
	"github.com/orwatch/orwatch/internal/logging"
)

// activityTTL is the freshness window for cached activity records.
const activityTTL = 60 * time.Second

// ActivityCache is the single-slot cache in front of the activity resource.
// It bounds the request rate to one live fetch per TTL window; the lock is
// held across the fetch so overlapping cycles coalesce onto one request.
// A failed fetch surfaces the error without evicting the previous entry.
type ActivityCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	records   []core.Activity
	fetchedAt time.Time
	now       func() time.Time
	log       zerolog.Logger
}

func NewActivityCache() *ActivityCache {
	return &ActivityCache{
		ttl: activityTTL,
		now: time.Now,
		log: logging.Component("activity-cache"),
	}
}

// Get returns the cached records while they are fresh and non-empty,
// otherwise performs a live fetch and replaces the slot.
func (c *ActivityCache) Get(ctx context.Context, fetch func(context.Context) ([]core.Activity, error)) ([]core.Activity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.records) > 0 && now.Sub(c.fetchedAt) < c.ttl {
		c.log.Debug().Time("fetched_at", c.fetchedAt).Msg("cache_hit")
		return copyActivity(c.records), nil
	}

	records, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.records = records
	c.fetchedAt = now
	return copyActivity(records), nil
}

func copyActivity(in []core.Activity) []core.Activity {
	out := make([]core.Activity, len(in))
	copy(out, in)
	return out
}
