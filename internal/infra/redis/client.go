package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"qr-ticket-system/internal/config"
)

// Client owns the go-redis connection shared by the store, cache and limiter.
type Client struct {
	cli *redis.Client
}

// NewClient accepts either a host:port address or a redis:// URL.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	var opts *redis.Options
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
	} else {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: c}, nil
}

// PoolStats reports connection pool counters for the stats sampler.
func (c *Client) PoolStats() *redis.PoolStats { return c.cli.PoolStats() }

func (c *Client) Close() error { return c.cli.Close() }
