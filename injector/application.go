package injector

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/deliveries"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
)

// Application represents the main application container for gsalt-checkout
type Application struct {
	HealthHandler       *deliveries.HealthHandler
	CatalogHandler      *deliveries.CatalogHandler
	CheckoutHandler     *deliveries.CheckoutHandler
	WalletHandler       *deliveries.WalletHandler
	WebhookHandler      *deliveries.WebhookHandler
	ReceiptHandler      *deliveries.ReceiptHandler
	VoucherHandler      *deliveries.VoucherHandler
	SubscriptionHandler *deliveries.SubscriptionHandler
	RateLimitMiddleware *middlewares.RateLimitMiddleware
	OutboxRelay         *services.OutboxRelay
}

// RegisterRoutes registers all application routes using a Fiber router
func (app *Application) RegisterRoutes(router fiber.Router) {
	// Health and metrics stay outside the public limit so probes never get throttled
	app.HealthHandler.RegisterRoutes(router)
	app.WebhookHandler.RegisterRoutes(router)

	router.Use(app.RateLimitMiddleware.LimitByIP(middlewares.PublicAPILimit))

	app.CatalogHandler.RegisterRoutes(router)
	app.CheckoutHandler.RegisterRoutes(router)
	app.WalletHandler.RegisterRoutes(router)
	app.ReceiptHandler.RegisterRoutes(router)
	app.VoucherHandler.RegisterRoutes(router)
	app.SubscriptionHandler.RegisterRoutes(router)
}
