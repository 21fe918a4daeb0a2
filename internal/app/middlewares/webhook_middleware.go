package middlewares

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
)

// WebhookMiddleware authenticates gateway callbacks with a shared token and rate limits them.
type WebhookMiddleware struct {
	token       string
	rateLimiter RateLimiter
}

func NewWebhookMiddleware(token string, rateLimiter RateLimiter) *WebhookMiddleware {
	return &WebhookMiddleware{
		token:       token,
		rateLimiter: rateLimiter,
	}
}

func (m *WebhookMiddleware) AuthWebhook(c *fiber.Ctx) error {
	if m.token == "" {
		return pkg.ErrorResponse(c, errors.NewForbiddenError("Webhooks are disabled"))
	}

	key := c.Get("X-Webhook-Token")
	if subtle.ConstantTimeCompare([]byte(key), []byte(m.token)) != 1 {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("Invalid webhook token"))
	}

	allowed, info := m.rateLimiter.Allow(c.UserContext(), "webhook:"+clientIP(c), WebhookLimit)
	setRateLimitHeaders(c, info)
	if !allowed {
		return tooManyRequests(c, info)
	}

	return c.Next()
}
