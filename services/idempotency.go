package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyGuard remembers submission keys so a retried POST /orders with
// the same Idempotency-Key is refused instead of placing a second order.
type IdempotencyGuard interface {
	// Reserve returns false when key is already held.
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyGuard(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyGuard {
	return &RedisIdempotencyGuard{rdb: rdb, ttl: ttl, prefix: "bulk-orders:idempotency:"}
}

func (g *RedisIdempotencyGuard) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, g.prefix+key, time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

func (g *RedisIdempotencyGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// NopIdempotencyGuard accepts every key. Used when no Redis is configured.
type NopIdempotencyGuard struct{}

func (NopIdempotencyGuard) Reserve(context.Context, string) (bool, error) { return true, nil }
func (NopIdempotencyGuard) Release(context.Context, string) error { return nil }

func scopedKey(buyerID int64, key string) string {
	return fmt.Sprintf("%d:%s", buyerID, key)
}
