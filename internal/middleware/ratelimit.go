package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// loginBucketScript implements a token bucket in Redis. KEYS[1] is the
// bucket, ARGV are capacity, refill-per-second, now (unix millis) and
// key TTL seconds. It returns {allowed, remaining, retry_after_ms}.
const loginBucketScript = `
local key      = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill   = tonumber(ARGV[2])
local now      = tonumber(ARGV[3])
local ttl      = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(bucket[1])
local ts     = tonumber(bucket[2])
if tokens == nil then
  tokens = capacity
  ts = now
end

local elapsed = math.max(0, now - ts) / 1000.0
tokens = math.min(capacity, tokens + elapsed * refill)

local allowed = 0
local retry_ms = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.ceil((1 - tokens) / refill * 1000)
end

redis.call('HMSET', key, 'tokens', tokens, 'ts', now)
redis.call('EXPIRE', key, ttl)
return {allowed, math.floor(tokens), retry_ms}
`

// LoginLimiterConfig tunes the per-client throttle on the credential
// endpoints.
type LoginLimiterConfig struct {
	Enabled  bool
	Capacity int     // burst size
	Refill   float64 // tokens per second
	TTL      time.Duration
}

// LoginLimiter throttles brute-force attempts per client IP. With a nil
// Redis client or Enabled=false it passes every request through, so a
// missing Redis never blocks logins.
func LoginLimiter(rdb *redis.Client, cfg LoginLimiterConfig) echo.MiddlewareFunc {
	script := redis.NewScript(loginBucketScript)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil || !cfg.Enabled {
				return next(c)
			}

			key := "ratelimit:login:" + c.RealIP()
			now := time.Now().UnixMilli()
			res, err := script.Run(c.Request().Context(), rdb, []string{key},
				cfg.Capacity, cfg.Refill, now, int(cfg.TTL.Seconds())).Slice()
			if err != nil || len(res) != 3 {
				// fail open, the credential check still guards the account
				return next(c)
			}

			allowed := asInt64(res[0])
			remaining := asInt64(res[1])
			retryMs := asInt64(res[2])

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if allowed != 1 {
				retryAfter := (retryMs + 999) / 1000
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many attempts, slow down"})
			}
			return next(c)
		}
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}
