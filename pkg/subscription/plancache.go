package subscription

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	planCacheKey = "billing:plans"
	planCacheTTL = 5 * time.Minute
)

// RedisPlanCache caches the public plan listing in Redis. All failures
// are treated as cache misses; the listing falls through to the store.
type RedisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPlanCache creates a plan cache with the default TTL.
func NewRedisPlanCache(client *redis.Client) *RedisPlanCache {
	return &RedisPlanCache{client: client, ttl: planCacheTTL}
}

var _ PlanCache = (*RedisPlanCache)(nil)

func (c *RedisPlanCache) Get(ctx context.Context) ([]Plan, bool) {
	raw, err := c.client.Get(ctx, planCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var plans []Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, false
	}
	return plans, true
}

func (c *RedisPlanCache) Set(ctx context.Context, plans []Plan) {
	raw, err := json.Marshal(plans)
	if err != nil {
		return
	}
	c.client.Set(ctx, planCacheKey, raw, c.ttl)
}

func (c *RedisPlanCache) Invalidate(ctx context.Context) {
	c.client.Del(ctx, planCacheKey)
}
