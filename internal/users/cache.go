package users

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

// Cached decorates a Lookup with a redis cache. Misses and redis failures
// fall through to the inner lookup; unresolved users are not cached so a
// freshly registered user becomes visible immediately.
type Cached struct {
	inner Lookup
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCached(inner Lookup, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(userID string) string { return "user:minimal:" + userID }

func (c *Cached) MinimalUser(ctx context.Context, userID string) (*models.MinimalUser, error) {
	// a miss or a redis failure both fall through to the user service
	if raw, err := c.rdb.Get(ctx, cacheKey(userID)).Result(); err == nil {
		var u models.MinimalUser
		if json.Unmarshal([]byte(raw), &u) == nil {
			return &u, nil
		}
	}

	u, err := c.inner.MinimalUser(ctx, userID)
	if err != nil || u == nil {
		return u, err
	}
	if b, err := json.Marshal(u); err == nil {
		_ = c.rdb.Set(ctx, cacheKey(userID), b, c.ttl).Err()
	}
	return u, nil
}
