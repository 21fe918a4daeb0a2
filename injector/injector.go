//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/safatanc/gsalt-checkout/internal/app/deliveries"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
)

// Infrastructure providers
var infrastructureSet = wire.NewSet(
	infrastructures.NewDatabase,
	infrastructures.NewRedisClient,
	infrastructures.NewValidator,
	infrastructures.NewMetrics,
	infrastructures.NewKafkaProducer,
	infrastructures.NewPaypalClient,
	infrastructures.NewNetsClient,
	infrastructures.ProvideCheckoutConfig,
	infrastructures.ProvidePaymentConfig,
	infrastructures.ProvidePaypalConfig,
	infrastructures.ProvideNetsConfig,
	infrastructures.ProvideKafkaConfig,
	pkg.SystemClock,
	wire.Value("gsalt"),
	wire.Bind(new(middlewares.RateLimiter), new(*middlewares.RedisRateLimiter)),
	middlewares.NewRedisRateLimiter,
)

// Service providers
var serviceSet = wire.NewSet(
	services.NewConnectService,
	services.NewAuditService,
	services.NewOutboxService,
	services.NewOutboxRelay,
	services.NewCatalogService,
	services.NewCartService,
	services.NewVoucherService,
	services.NewDiscountService,
	services.NewPricingService,
	services.NewWalletService,
	services.NewSubscriptionService,
	services.NewLoyaltyService,
	services.NewCheckoutLock,
	services.NewPendingPaymentStore,
	services.NewPaymentReferenceService,
	services.NewCheckoutService,
	services.NewTopUpService,
	services.NewPaypalAPI,
	services.NewNetsAPI,
	services.NewPaypalService,
	services.NewNetsService,
	services.NewReconcilerService,
	services.NewReceiptService,
	wire.Bind(new(services.VoucherLedger), new(*services.VoucherService)),
	wire.Bind(new(services.SubscriptionLookup), new(*services.SubscriptionService)),
	wire.Bind(new(services.PaypalGateway), new(*services.PaypalAPI)),
	wire.Bind(new(services.NetsGateway), new(*services.NetsAPI)),
)

// Middleware providers
var middlewareSet = wire.NewSet(
	middlewares.NewAuthMiddleware,
	middlewares.NewRateLimitMiddleware,
	provideWebhookMiddleware,
	wire.Bind(new(middlewares.UserResolver), new(*services.ConnectService)),
)

// Handler providers
var handlerSet = wire.NewSet(
	deliveries.NewHealthHandler,
	deliveries.NewCatalogHandler,
	deliveries.NewCheckoutHandler,
	deliveries.NewWalletHandler,
	deliveries.NewWebhookHandler,
	deliveries.NewReceiptHandler,
	deliveries.NewVoucherHandler,
	deliveries.NewSubscriptionHandler,
	wire.Bind(new(deliveries.RequestValidator), new(*infrastructures.Validator)),
	wire.Struct(new(Application), "*"),
)

// InitializeApplication initializes the application with all its dependencies
func InitializeApplication() (*Application, error) {
	wire.Build(
		infrastructureSet,
		serviceSet,
		middlewareSet,
		handlerSet,
	)
	return &Application{}, nil
}
