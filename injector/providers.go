package injector

import (
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
)

// provideWebhookMiddleware keeps the webhook token off the string provider used for the rate-limit prefix.
func provideWebhookMiddleware(rateLimiter middlewares.RateLimiter) *middlewares.WebhookMiddleware {
	return middlewares.NewWebhookMiddleware(infrastructures.Config.WEBHOOK_TOKEN, rateLimiter)
}
