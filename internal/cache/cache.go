// Package cache stores per-user dashboard results. Redis is optional; with
// no address configured a Nop cache is used and every call hits the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vanelang/review-flow/internal/observability"
)

type Cache interface {
	// Get decodes the cached value into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// StatsKey is the cache key of a user's dashboard stats.
func StatsKey(userID string) string {
	return "reviewflow:stats:" + userID
}

type Redis struct {
	c       *redis.Client
	metrics *observability.Metrics
}

func NewRedis(addr, pass string, db int, m *observability.Metrics) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), m)
}

func NewRedisFromClient(c *redis.Client, m *observability.Metrics) *Redis {
	return &Redis{c: c, metrics: m}
}

func (r *Redis) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Redis) Close() error { return r.c.Close() }

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.ObserveCache("miss")
		return false, nil
	}
	if err != nil {
		r.metrics.ObserveCache("error")
		return false, err
	}
	if err := json.Unmarshal(v, dst); err != nil {
		r.metrics.ObserveCache("error")
		return false, err
	}
	r.metrics.ObserveCache("hit")
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.metrics.ObserveCache("set")
	return r.c.Set(ctx, key, b, ttl).Err()
}

func (r *Redis) Del(ctx context.Context, key string) error {
	r.metrics.ObserveCache("del")
	return r.c.Del(ctx, key).Err()
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Del(context.Context, string) error { return nil }
