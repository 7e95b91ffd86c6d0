// internal/kv/redis.go
//
// Redis-backed Store implementation (go-redis v9).
//
// Context
// -------
// When several Rebound replicas sit behind one load balancer, a shared
// cache means one rule mutation invalidates everywhere at once instead
// of waiting out each replica's TTL.  Values are opaque []byte; the
// rule cache handles its own JSON encoding.
package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis adapts a go-redis client to the Store interface.
type Redis struct {
	cli *redis.Client
}

// NewRedis connects to addr and verifies the connection with a Ping so
// a bad address fails at bootstrap, not on the first request.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{cli: cli}, nil
}

// Get returns the value for key; redis.Nil maps to a plain miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.cli.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores val under key for ttl.
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.cli.Set(ctx, key, val, ttl).Err()
}

// Delete removes the given keys.  Absent keys are ignored.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.cli.Del(ctx, keys...).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.cli.Close() }
