package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"qr-ticket-system/internal/domain/ports/repository"
)

var _ repository.RateLimiter = (*RateLimiter)(nil)

// KEYS[1] counter, ARGV[1] window in ms. The first hit in a window sets the
// expiry in the same script, so a counter is never left without a TTL.
var luaHit = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	cli *redis.Client
}

func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{cli: c.cli}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, err := luaHit.Run(ctx, r.cli, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return count <= int64(limit), nil
}

// VerifyKey scopes the verify budget to one staff account.
func VerifyKey(username string) string {
	return fmt.Sprintf("rate_limit:verify:%s", username)
}
