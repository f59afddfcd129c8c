package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces the sorted sets used by RedisWindow.
const KeyPrefix = "justcall:ratelimit:"

// slidingWindowScript admits one request into the sorted set at KEYS[1].
// ARGV: now (ms), window (ms), limit, member.
// Returns 0 when admitted, otherwise the milliseconds until the oldest entry expires.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return 0
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = tonumber(oldest[2]) + window - now
if wait < 1 then
	wait = 1
end
return wait
`)

// RedisWindow is a sliding-window Admitter whose state lives in a Redis sorted
// set, so several processes sharing one API key also share one budget.
type RedisWindow struct {
	redis    *redis.Client
	key      string
	limit    int
	interval time.Duration
}

// NewRedisWindow creates a Redis-backed sliding-window gate. Clients created
// with the same key share a budget; an empty key gets a random one.
func NewRedisWindow(redisClient *redis.Client, key string, limit int, interval time.Duration) (*RedisWindow, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0 (got %d)", ErrInvalidConfig, limit)
	}
	if interval < time.Millisecond {
		return nil, fmt.Errorf("%w: interval must be >= 1ms (got %s)", ErrInvalidConfig, interval)
	}
	if key == "" {
		key = uuid.NewString()
	}
	return &RedisWindow{
		redis:    redisClient,
		key:      KeyPrefix + key,
		limit:    limit,
		interval: interval,
	}, nil
}

// Key returns the Redis key holding the window.
func (w *RedisWindow) Key() string { return w.key }

// Admit blocks until the shared window has room, then records the request.
func (w *RedisWindow) Admit(ctx context.Context) error {
	start := time.Now()

	for {
		now := time.Now().UnixMilli()
		wait, err := slidingWindowScript.Run(ctx, w.redis, []string{w.key},
			now, w.interval.Milliseconds(), w.limit, uuid.NewString()).Int64()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("redis rate window: %w", err)
		}

		if wait == 0 {
			gateWaitSeconds.WithLabelValues("redis_window").Observe(time.Since(start).Seconds())
			gateAdmissionsTotal.WithLabelValues("redis_window").Inc()
			return nil
		}

		timer := time.NewTimer(time.Duration(wait) * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InFlight returns the number of admissions inside the current window.
func (w *RedisWindow) InFlight(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-w.interval).UnixMilli()
	return w.redis.ZCount(ctx, w.key, fmt.Sprintf("(%d", cutoff), "+inf").Result()
}
