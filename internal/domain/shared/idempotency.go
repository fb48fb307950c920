package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so webhook replays turn
// into no-ops. Entries expire after their TTL.
type IdempotencyStore interface {
	// IsProcessed reports whether the event ID was recorded within its TTL.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed records the event ID and reports whether it was new.
	// A false result means the event was already handled within the TTL.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// Close releases store resources.
	Close() error
}

// RateCounter counts attempts per key inside a rolling window.
// Multi-instance deployments must back this with a shared store.
type RateCounter interface {
	// Increment records one attempt for key and returns the attempt count
	// observed within the window ending now.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// Close closes the counter and releases resources
	Close() error
}
