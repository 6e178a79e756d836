package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store with a fixed-window counter per key.
// Every consume increments the window counter; the first hit in a
// window arms its expiry. Shared across instances, unlike MemoryStore.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. The prefix namespaces
// limiter keys away from other users of the same database.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (rs *RedisStore) key(key string) string {
	return rs.prefix + ":" + key
}

func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error) {
	redisKey := rs.key(key)

	count, err := rs.client.IncrBy(ctx, redisKey, int64(tokens)).Result()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}

	ttl, err := rs.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}

	// A key without expiry starts a fresh window.
	if ttl < 0 {
		ttl = config.RefillInterval
		if err := rs.client.Expire(ctx, redisKey, ttl).Err(); err != nil {
			return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
		}
	}

	remaining = config.Capacity - int(count)
	resetAt = time.Now().Add(ttl)

	return remaining, resetAt, nil
}

func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.key(key)).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
