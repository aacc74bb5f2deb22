package cache

import (
	"context"
	"time"
)

// CacheInterface stores rendered responses keyed by dataset generation.
type CacheInterface interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Health(ctx context.Context) map[string]any
	Close() error
}
