// Package cache defines the key-value contract used for intent
// parses, policy answers, trip-plan results, and per-user conversation
// context. A cache failure is always treated as a miss by callers —
// the cache never blocks a request path.
package cache

import (
	"context"
	"time"
)

// Cache is the contract consumed by IntentParser, the policy-answer
// layer, and TripPlanner result memoization.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
