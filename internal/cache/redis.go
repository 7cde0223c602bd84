// Package cache stores remote API responses in Redis, grouped by the
// collection they belong to so a whole collection can be dropped at once.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 5 * time.Minute

var ErrCacheMiss = errors.New("cache miss")

// markStaleScript deletes entries listed in the tag sets, which are not
// passed in KEYS. Every key shares the keyHashTag so the script stays on a
// single Redis Cluster slot.
var markStaleScript = redis.NewScript(`
    -- KEYS = tag set keys (e.g., {api_cache}:tags:purchases)

    for i=1, #KEYS do
        local members = redis.call("SMEMBERS", KEYS[i])
        for _, key in ipairs(members) do
            redis.call("DEL", key)
        end
        redis.call("DEL", KEYS[i])
    end

    return "OK"
`)

type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return data, nil
}

// Set stores value under key and records it in the tag set of every given
// collection.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, tags ...domain.Collection) error {
	pipe := c.client.TxPipeline()

	pipe.Set(ctx, entryKey(key), value, c.ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagKey(tag), entryKey(key))
		pipe.Expire(ctx, tagKey(tag), c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// MarkStale drops every cached entry of the given collections.
func (c *RedisCache) MarkStale(ctx context.Context, collections ...domain.Collection) error {
	if len(collections) == 0 {
		return nil
	}

	keys := make([]string, len(collections))
	for i, collection := range collections {
		keys[i] = tagKey(collection)
	}

	if err := markStaleScript.Run(ctx, c.client, keys).Err(); err != nil {
		return fmt.Errorf("failed to mark %v stale: %w", collections, err)
	}

	return nil
}

const keyHashTag = "{api_cache}"

func entryKey(key string) string {
	return fmt.Sprintf("%s:%s", keyHashTag, key)
}

func tagKey(collection domain.Collection) string {
	return fmt.Sprintf("%s:tags:%s", keyHashTag, collection)
}
