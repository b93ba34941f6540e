package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/ports/repository"
	"qr-ticket-system/internal/infra/metrics"
)

var _ repository.ImageCache = (*ImageCache)(nil)

// ImageCache keeps rendered QR images keyed by credential id. Images never
// change after issuance, so entries only leave by TTL.
type ImageCache struct {
	cli *redis.Client
}

func NewImageCache(c *Client) *ImageCache {
	return &ImageCache{cli: c.cli}
}

func imageKey(id string) string { return fmt.Sprintf("qr:image:%s", id) }

func (c *ImageCache) Get(ctx context.Context, id string) ([]byte, string, error) {
	vals, err := c.cli.HMGet(ctx, imageKey(id), "format", "data").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		metrics.IncImageCache("error")
		return nil, "", err
	}
	var format, data string
	if len(vals) == 2 {
		format, _ = vals[0].(string)
		data, _ = vals[1].(string)
	}
	if format == "" || data == "" {
		metrics.IncImageCache("miss")
		return nil, "", domain.ErrNotFound
	}
	metrics.IncImageCache("hit")
	return []byte(data), format, nil
}

func (c *ImageCache) Set(ctx context.Context, id string, img []byte, format string, ttl time.Duration) error {
	key := imageKey(id)
	_, err := c.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, "format", format, "data", img)
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err == nil {
		metrics.ObserveImageCached(len(img))
	}
	return err
}
