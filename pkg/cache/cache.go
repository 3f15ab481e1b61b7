// Package cache provides a byte-oriented artifact cache used by the CLI
// pipeline to avoid re-rendering unchanged graphs. Three backends implement
// the same contract: a file cache for local CLI runs, a redis cache for
// shared deployments, and a null cache that disables caching entirely.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte blobs under string keys with optional expiry.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present; an absent key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
