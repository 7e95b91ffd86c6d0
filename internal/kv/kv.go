// internal/kv/kv.go
//
// Pluggable key-value store behind the rule cache.
//
// Context
// -------
// The rule cache needs only three operations: get, set-with-TTL, and
// delete.  A single-process deployment uses the in-memory store; a
// multi-replica deployment points the same interface at Redis so every
// replica sees one shared cache and one invalidation.
//
// Failure contract
// ----------------
// Store errors are advisory.  Callers treat a failed Get as a miss and a
// failed Set as a skipped write, degrading to a direct database read;
// they never surface kv errors to the request path.
package kv

import (
	"context"
	"time"
)

// Store is the minimal contract shared by the memory and redis backends.
// Get reports ok == false on a miss; err is reserved for backend faults.
type Store interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
