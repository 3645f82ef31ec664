package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore backed by Redis, so the
// limit holds across multiple server instances. Fixed window counters via
// INCR with a TTL set on the first request of each window.
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		client: client,
		prefix: "ratelimit:",
	}
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface. Fails open: if Redis is
// unreachable the request is allowed rather than erroring every caller.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	redisKey := s.prefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, 0
	}

	if count == 1 {
		// First request in this window, start the clock
		s.client.Expire(ctx, redisKey, config.WindowDuration)
	}

	if count <= int64(config.RequestsPerWindow) {
		return true, 0
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		return false, int(config.WindowDuration / time.Second)
	}
	retryAfter := int(ttl / time.Second)
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, retryAfter
}
