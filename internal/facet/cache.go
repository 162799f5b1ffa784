package facet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CatalogGo/internal/domain"
)

const keyPrefix = "catalog:facets:"

// RedisCache keeps facets in Redis for a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed facet cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns cached facets for key.
func (c *RedisCache) Get(ctx context.Context, key string) (domain.Facets, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get facets: %w", err)
	}

	var facets domain.Facets
	if err := json.Unmarshal(data, &facets); err != nil {
		return nil, false, fmt.Errorf("unmarshal facets: %w", err)
	}
	return facets, true, nil
}

// Set stores facets under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, facets domain.Facets) error {
	data, err := json.Marshal(facets)
	if err != nil {
		return fmt.Errorf("marshal facets: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set facets: %w", err)
	}
	return nil
}

func cacheKey(text string, fields []string, maxValues int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(text)))
	return fmt.Sprintf("%s%s:%s:%d", keyPrefix, hex.EncodeToString(sum[:8]), strings.Join(fields, ","), maxValues)
}
