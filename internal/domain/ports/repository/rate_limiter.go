package repository

import (
	"context"
	"time"
)

// RateLimiter counts events per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
