package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps freshly computed summaries for a short window so a reloading
// dashboard does not hammer the upstream analytics endpoint. All cache
// failures are non-fatal; a miss just recomputes.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(principalID int64) string {
	return fmt.Sprintf("dashboard:summary:%d", principalID)
}

// Get loads a cached summary; ok is false on miss or any error.
func (c *Cache) Get(ctx context.Context, principalID int64) (*Summary, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(principalID)).Bytes()
	if err != nil {
		return nil, false
	}
	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

// Set stores a summary, ignoring marshalling or transport errors.
func (c *Cache) Set(ctx context.Context, principalID int64, summary *Summary) {
	if c == nil || c.client == nil || summary == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(principalID), raw, c.ttl).Err()
}

// Invalidate drops the cached summary for one principal.
func (c *Cache) Invalidate(ctx context.Context, principalID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, cacheKey(principalID)).Err()
}
