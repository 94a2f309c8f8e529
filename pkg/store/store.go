// Package store provides a minimal key-value store adapter with the
// atomic primitives the session and rate-limiting layers are built on.
//
// Three backends share the same contract: Redis for production (every
// check-and-mutate sequence runs as a single server-side script),
// Memory for local development and tests, and Disabled for running
// without any store at all.
package store

import (
	"context"
	"time"
)

// CASResult is the outcome of a CompareAndSwap call.
type CASResult int

const (
	// CASSwapped means the stored value matched and was replaced.
	CASSwapped CASResult = iota
	// CASMismatch means the key exists but holds a different value.
	CASMismatch
	// CASAbsent means the key does not exist (or its TTL elapsed).
	CASAbsent
)

// Store is the set of atomic operations higher layers depend on.
// Implementations must guarantee per-key atomicity: concurrent calls
// against the same key are serialized, never interleaved.
type Store interface {
	// IncrWindow atomically increments the counter at key, setting its
	// expiry to window if (and only if) the increment created it.
	// It returns the new count and the counter's remaining lifetime.
	IncrWindow(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)

	// CreateIfAbsent sets key to value with the given TTL iff no live
	// entry exists. TTL expiry is the sole sign that a key is free
	// again. Returns false when a live entry blocked the write.
	CreateIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// CompareAndSwap replaces the value at key with next iff the stored
	// value equals old, renewing the TTL in the same operation.
	CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) (CASResult, error)

	// Touch renews the TTL of an existing key without changing its
	// value. Returns false when the key is absent.
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Get returns the value at key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
}
