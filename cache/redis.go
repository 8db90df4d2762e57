package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on top of a go-redis client
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisCacheFromAddr dials the given address with default options
func NewRedisCacheFromAddr(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, errors.CategoryOperation, "cache get failed").
			WithMetadata(map[string]any{"key": key})
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "cache set failed").
			WithMetadata(map[string]any{"key": key})
	}
	return nil
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "cache del failed")
	}
	return nil
}

// IncrWithTTL uses INCR and arms EXPIRE only on the first increment so
// the window does not slide on every request.
func (c *RedisCache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryOperation, "cache incr failed").
			WithMetadata(map[string]any{"key": key})
	}

	if count == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, errors.Wrap(err, errors.CategoryOperation, "cache expire failed").
				WithMetadata(map[string]any{"key": key})
		}
	}

	return count, nil
}

// Ping verifies connectivity, used at startup to log cache availability
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

var _ Cache = (*RedisCache)(nil)
