// Package statestore defines the key-value backend that holds the
// bounded-lifetime state of job-chain runs: run contexts, dispatched flags,
// responses, error records and completion latches.
//
// The engine never reads-then-writes a flag. Every at-most-once transition
// goes through CompareAndSet, so implementations MUST make it atomic across
// all processes that share the backend.
//
// Keys are produced by internal/runkey; values are opaque bytes.
package statestore

import (
	"context"
	"time"
)

// Store is a key-value store with per-entry time-to-live.
//
// A ttl of zero or less means the entry never expires. Expired entries must
// behave exactly like absent ones for every method.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key, replacing any existing entry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Has reports whether a live entry exists under key.
	Has(ctx context.Context, key string) (bool, error)

	// CompareAndSet stores value under key only when the current entry
	// matches expected. A nil expected matches an absent or expired entry.
	// It reports whether the swap happened.
	CompareAndSet(ctx context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error)
}
