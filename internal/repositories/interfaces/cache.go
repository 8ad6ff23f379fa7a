package interfaces

import (
	"context"
	"time"
)

// Cache is the subset of the Redis cache the repositories use for read-through values.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
