package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyTTL keeps a window's key alive just past the end of its second.
const redisKeyTTL = 2 * time.Second

// RedisCounter is a Counter shared by every replica through Redis.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter constructs a RedisCounter writing keys under prefix.
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

// Incr bumps and expires the window key in one MULTI/EXEC round trip.
func (r *RedisCounter) Incr(ctx context.Context, key string, window int64) (int64, error) {
	windowKey := r.prefix + ":" + key + ":" + strconv.FormatInt(window, 10)
	var hits *redis.IntCmd
	_, errExec := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, redisKeyTTL)
		return nil
	})
	if errExec != nil {
		return 0, fmt.Errorf("rate limit redis: %w", errExec)
	}
	return hits.Val(), nil
}

// Close releases the Redis connection pool.
func (r *RedisCounter) Close() error {
	return r.client.Close()
}
