package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StatusCache keeps resolved statuses in redis so list views do not re-read
// period state on every request. Entries are invalidated after every
// transition, so staleness is bounded by the TTL only when invalidation is
// missed (e.g. redis was briefly down).
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewStatusCache constructs a cache. A nil client disables caching.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatusCache{client: client, ttl: ttl}
}

func statusKey(id uuid.UUID) string {
	return "roster:status:" + id.String()
}

// Resolve returns the cached status or computes it via fn, collapsing
// concurrent lookups for the same entity into one computation.
func (c *StatusCache) Resolve(ctx context.Context, id uuid.UUID, fn func(context.Context) (Status, error)) (Status, error) {
	if c == nil || c.client == nil {
		return fn(ctx)
	}
	if cached, err := c.client.Get(ctx, statusKey(id)).Result(); err == nil && cached != "" {
		return Status(cached), nil
	}
	v, err, _ := c.group.Do(statusKey(id), func() (any, error) {
		status, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, statusKey(id), string(status), c.ttl).Err(); err != nil {
			return status, fmt.Errorf("cache status: %w", err)
		}
		return status, nil
	})
	if status, ok := v.(Status); ok {
		// A failed cache write still yields a usable status.
		return status, nil
	}
	if err != nil {
		return "", err
	}
	return v.(Status), nil
}

// Invalidate drops the cached status for an entity.
func (c *StatusCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, statusKey(id)).Err()
}
