package blob

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// URLCache holds resolved blob URLs in Redis with a TTL so list queries do
// not pay one presign round-trip per image on every request. A nil cache is
// valid and disables caching.
type URLCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewURLCache creates a cache on an existing Redis client.
func NewURLCache(client *redis.Client, ttl time.Duration) *URLCache {
	return &URLCache{client: client, ttl: ttl, prefix: "imgurl:"}
}

func (c *URLCache) Get(ctx context.Context, storageID string) (string, bool) {
	if c == nil {
		return "", false
	}
	value, err := c.client.Get(ctx, c.prefix+storageID).Result()
	if err != nil {
		return "", false
	}
	return value, true
}

func (c *URLCache) Set(ctx context.Context, storageID, url string) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, c.prefix+storageID, url, c.ttl).Err()
}

func (c *URLCache) Invalidate(ctx context.Context, storageID string) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, c.prefix+storageID).Err()
}
