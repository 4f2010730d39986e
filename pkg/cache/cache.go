// Package cache stores analysis results, layouts and rendered artifacts.
//
// Backends share the [Cache] interface:
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [LRUCache]: bounded in-process cache, the server default
//   - [RedisCache]: shared cache for multi-instance deployments
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that every entry point derives the same
// key for the same inputs.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Entry lifetimes per stage.
const (
	// TTLAnalysis is short: a repository changes with every commit, and the
	// key already includes HEAD for local repositories.
	TTLAnalysis = 24 * time.Hour

	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)
