//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"qr-ticket-system/internal/domain"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// stubEncoder returns the text itself as the "image".
type stubEncoder struct {
	mu    sync.Mutex
	calls int
}

func (e *stubEncoder) Encode(text string, width, height int, format string) ([]byte, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return []byte("img:" + text), nil
}

type failingEncoder struct{}

func (failingEncoder) Encode(string, int, int, string) ([]byte, error) {
	return nil, &domain.EncodingError{Op: "qr", Err: errors.New("data too long")}
}

// memImageCache is an in-memory ImageCache that counts hits and misses.
type memImageCache struct {
	mu           sync.Mutex
	items        map[string][]byte
	formats      map[string]string
	hits, misses int
	getErr       error
}

func newMemImageCache() *memImageCache {
	return &memImageCache{items: map[string][]byte{}, formats: map[string]string{}}
}

func (c *memImageCache) Get(_ context.Context, id string) ([]byte, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, "", c.getErr
	}
	img, ok := c.items[id]
	if !ok {
		c.misses++
		return nil, "", domain.ErrNotFound
	}
	c.hits++
	return img, c.formats[id], nil
}

func (c *memImageCache) Set(_ context.Context, id string, img []byte, format string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = img
	c.formats[id] = format
	return nil
}

// countingLimiter allows the first `limit` calls per key.
type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.counts[key]++
	return l.counts[key] <= limit, nil
}
