package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KEYS[1] bucket, ARGV: rate per second, burst, now in ms.
// Returns 1 when a token was taken.
var tokenBucket = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(bucket[1])
local ts = tonumber(bucket[2])
if tokens == nil then
  tokens = burst
  ts = now
end

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], math.ceil(burst / rate * 1000) + 1000)
return allowed
`)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a token bucket per key, shared by every server process
// talking to the same redis.
type RedisLimiter struct {
	rdb    redis.Scripter
	rate   int
	burst  int
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb redis.Scripter, ratePerSecond, burst int) *RedisLimiter {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RedisLimiter{rdb: rdb, rate: ratePerSecond, burst: burst, prefix: "ratelimit:", now: time.Now}
}

// Allow fails open: a redis error lets the request through and is returned
// for logging.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := tokenBucket.Run(ctx, l.rdb, []string{l.prefix + key}, l.rate, l.burst, l.now().UnixMilli()).Int()
	if err != nil {
		return true, err
	}
	return res == 1, nil
}

// RateLimit rejects requests over the client IP's budget with 429.
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			return
		}
		c.Next()
	}
}
