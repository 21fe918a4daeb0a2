package middlewares

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/sirupsen/logrus"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit Rate) (bool, RateLimitInfo)
	Reset(ctx context.Context, key string) error
}

// Rate allows Requests per sliding Window.
type Rate struct {
	Requests int
	Window   time.Duration
}

type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

var (
	PublicAPILimit = Rate{Requests: 30, Window: time.Minute}

	// CheckoutLimit guards the endpoints that move money.
	CheckoutLimit = Rate{Requests: 10, Window: time.Minute}

	WebhookLimit = Rate{Requests: 120, Window: time.Minute}
)

// slidingWindowScript records a hit only while the window has room.
// Returns {allowed, count}.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])
local allowed = 0
if count < limit then
	redis.call("ZADD", KEYS[1], now, ARGV[4])
	count = count + 1
	allowed = 1
end
redis.call("PEXPIRE", KEYS[1], window)
return {allowed, count}
`)

// RedisRateLimiter keeps one sorted set of hit timestamps per key.
type RedisRateLimiter struct {
	redis     *redis.Client
	keyPrefix string
}

func NewRedisRateLimiter(redis *redis.Client, keyPrefix string) *RedisRateLimiter {
	return &RedisRateLimiter{
		redis:     redis,
		keyPrefix: keyPrefix,
	}
}

func (l *RedisRateLimiter) key(key string) string {
	return l.keyPrefix + ":ratelimit:" + key
}

// Allow fails open when redis is unreachable.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit Rate) (bool, RateLimitInfo) {
	now := time.Now()
	info := RateLimitInfo{Limit: limit.Requests, Reset: now.Add(limit.Window)}

	result, err := slidingWindowScript.Run(ctx, l.redis, []string{l.key(key)},
		now.UnixMilli(), limit.Window.Milliseconds(), limit.Requests, uuid.NewString()).Int64Slice()
	if err != nil || len(result) != 2 {
		logrus.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
		return true, info
	}

	info.Remaining = limit.Requests - int(result[1])
	return result[0] == 1, info
}

func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, l.key(key)).Err()
}

type RateLimitMiddleware struct {
	limiter RateLimiter
}

func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

func (m *RateLimitMiddleware) LimitByIP(limit Rate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return m.limit(c, "ip:"+clientIP(c), limit)
	}
}

// LimitByUser keys on the authenticated user and falls back to the client IP.
func (m *RateLimitMiddleware) LimitByUser(limit Rate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		connectUser := CurrentUser(c)
		if connectUser == nil {
			return m.limit(c, "ip:"+clientIP(c), limit)
		}
		return m.limit(c, "user:"+connectUser.ID.String(), limit)
	}
}

func (m *RateLimitMiddleware) limit(c *fiber.Ctx, key string, limit Rate) error {
	allowed, info := m.limiter.Allow(c.UserContext(), key, limit)
	setRateLimitHeaders(c, info)
	if !allowed {
		return tooManyRequests(c, info)
	}
	return c.Next()
}

func setRateLimitHeaders(c *fiber.Ctx, info RateLimitInfo) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(max(info.Remaining, 0)))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))
}

func tooManyRequests(c *fiber.Ctx, info RateLimitInfo) error {
	return pkg.ErrorResponse(c, errors.NewTooManyRequestsError("Rate limit exceeded", info.Limit, info.Reset.Unix()))
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
