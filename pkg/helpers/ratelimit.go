package helpers

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script: atomic INCR + set EXPIRE when the key is new
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateResult describes one limiter decision.
type RateResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// RedisLimiter is a fixed-window counter shared by the webhook middleware
// and the per-user update limiter.
type RedisLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: max, window: window}
}

// Allow counts one hit for key. A nil client or a disabled limit always
// allows; Redis errors are returned with Allowed=true so callers fail open.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (RateResult, error) {
	if l == nil || l.rdb == nil || l.max <= 0 || l.window <= 0 {
		return RateResult{Allowed: true}, nil
	}
	countI, err := incrExpireScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Result()
	if err != nil {
		return RateResult{Allowed: true, Limit: l.max}, err
	}
	count := toInt(countI)
	ttl, _ := l.rdb.PTTL(ctx, key).Result()
	if ttl < 0 {
		ttl = 0
	}
	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{Allowed: count <= l.max, Limit: l.max, Remaining: remaining, Reset: ttl}, nil
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int:
		return x
	case string:
		i, _ := strconv.Atoi(x)
		return i
	}
	return 0
}
