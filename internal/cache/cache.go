// Package cache provides the key-value cache with expiry backing upload
// sessions and metadata read caching. The KV interface keeps callers
// decoupled from the Redis client so tests can use an in-memory fake.
package cache

import (
	"context"
	"time"
)

// KV is the subset of key-value operations the services need.
//
// String keys hold JSON blobs; hash keys hold independent field writes
// (one field per chunk index, so concurrent writers never clobber each
// other). Missing keys yield ErrMiss.
type KV interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error

	HSet(ctx context.Context, key, field string, value string) error
	HLen(ctx context.Context, key string) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Expire refreshes the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
