package cache

import (
	"context"
	"time"
)

// KeyPrefix namespaces every key this service writes to a shared backend.
const KeyPrefix = "booking-service::"

// Store is a byte-oriented cache with TTLs and scope-wide invalidation. Keys
// take the form "<scope>::<rest>"; InvalidateAll drops every key of a scope.
// Implementations never return errors: a failing backend behaves as a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration)
	InvalidateAll(ctx context.Context, scope string)
}

func scopePrefix(scope string) string {
	return KeyPrefix + scope + "::"
}
