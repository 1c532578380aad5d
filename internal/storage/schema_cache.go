package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/form-autopilot/internal/models"
)

// SchemaCache caches detected form schemas in Redis so repeat applications
// to the same URL skip a full browser detection pass. Entries expire after
// the configured TTL; forms do change, and a stale schema fails loudly at
// fill time anyway.
type SchemaCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewSchemaCache creates a new schema cache
func NewSchemaCache(redis *RedisCache, ttl time.Duration) *SchemaCache {
	return &SchemaCache{
		redis: redis,
		ttl:   ttl,
	}
}

// Key generates the cache key for a form URL.
// Format: schema:<lowercased-url>
func (c *SchemaCache) Key(url string) string {
	return "schema:" + strings.ToLower(url)
}

// Set stores a schema under its URL with the configured TTL
func (c *SchemaCache) Set(ctx context.Context, schema *models.FormSchema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	return c.redis.Set(ctx, c.Key(schema.URL), data, c.ttl)
}

// Get retrieves a cached schema for a URL. A cache miss returns (nil, false, nil).
func (c *SchemaCache) Get(ctx context.Context, url string) (*models.FormSchema, bool, error) {
	data, err := c.redis.Get(ctx, c.Key(url))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}

	var schema models.FormSchema
	if err := json.Unmarshal([]byte(data), &schema); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached schema: %w", err)
	}
	return &schema, true, nil
}

// Invalidate removes the cached schema for a URL
func (c *SchemaCache) Invalidate(ctx context.Context, url string) error {
	return c.redis.Del(ctx, c.Key(url))
}
