package tokencache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "auth:jwt:"

// RedisCache shares metadata between the issuer and downstream verifiers.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Remember(ctx context.Context, jti string, md Metadata) error {
	raw, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("tokencache: marshal: %w", err)
	}

	ttl := ttlUntil(md.ExpiresAt, time.Now())
	if err := c.client.Set(ctx, redisKeyPrefix+jti, raw, ttl).Err(); err != nil {
		return fmt.Errorf("tokencache: redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Lookup(ctx context.Context, jti string) (Metadata, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+jti).Bytes()
	if errors.Is(err, redis.Nil) {
		return Metadata{}, ErrNotFound
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("tokencache: redis get: %w", err)
	}

	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, fmt.Errorf("tokencache: unmarshal: %w", err)
	}
	return md, nil
}

func (c *RedisCache) Forget(ctx context.Context, jti string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+jti).Err(); err != nil {
		return fmt.Errorf("tokencache: redis del: %w", err)
	}
	return nil
}
