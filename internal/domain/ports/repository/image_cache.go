package repository

import (
	"context"
	"time"
)

// ImageCache holds encoded QR images, which never change after issuance.
// Get returns domain.ErrNotFound on a miss.
type ImageCache interface {
	Get(ctx context.Context, id string) (img []byte, format string, err error)
	Set(ctx context.Context, id string, img []byte, format string, ttl time.Duration) error
}
