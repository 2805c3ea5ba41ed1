package port

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for caching generated reports and limit-change lookups
type Cache interface {
	// Get decodes the cached value into dest or returns ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value with the default TTL
	Set(ctx context.Context, key string, value interface{}) error

	// SetWithTTL stores a value with an explicit TTL
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// DeletePattern removes all keys matching pattern
	DeletePattern(ctx context.Context, pattern string) error

	Close() error
}
