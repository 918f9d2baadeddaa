// Package cache provides the read-through TTL cache used by the provider
// clients. Entries expire; there is no invalidation API.
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a byte-oriented TTL cache keyed by deterministic request
// parameters. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds a cache key from deterministic parts, e.g.
// Key("metadata", "details", "3498") -> "metadata:details:3498".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
