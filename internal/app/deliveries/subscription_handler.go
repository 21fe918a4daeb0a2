package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
	loyaltyService      *services.LoyaltyService
	authMiddleware      *middlewares.AuthMiddleware
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService, loyaltyService *services.LoyaltyService, authMiddleware *middlewares.AuthMiddleware) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		loyaltyService:      loyaltyService,
		authMiddleware:      authMiddleware,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(router fiber.Router) {
	subscriptionGroup := router.Group("/subscription", h.authMiddleware.AuthConnect)
	subscriptionGroup.Get("/", h.GetSubscription)
	subscriptionGroup.Post("/", h.Subscribe)
	subscriptionGroup.Post("/coupons/:templateId", h.ClaimCoupon)

	loyaltyGroup := router.Group("/loyalty", h.authMiddleware.AuthConnect)
	loyaltyGroup.Get("/", h.GetLoyalty)
	loyaltyGroup.Post("/redeem/:templateId", h.RedeemVoucher)
}

func (h *SubscriptionHandler) GetSubscription(c *fiber.Ctx) error {
	status, err := h.subscriptionService.Status(c.UserContext(), middlewares.CurrentUser(c).ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, status)
}

func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	subscription, err := h.subscriptionService.SubscribeWithWallet(c.UserContext(), middlewares.CurrentUser(c).ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, subscription)
}

func (h *SubscriptionHandler) ClaimCoupon(c *fiber.Ctx) error {
	voucher, err := h.subscriptionService.ClaimCoupon(c.UserContext(), middlewares.CurrentUser(c).ID, c.Params("templateId"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, voucher)
}

func (h *SubscriptionHandler) GetLoyalty(c *fiber.Ctx) error {
	account, err := h.loyaltyService.GetBalance(c.UserContext(), middlewares.CurrentUser(c).ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, account)
}

func (h *SubscriptionHandler) RedeemVoucher(c *fiber.Ctx) error {
	result, err := h.loyaltyService.RedeemTemplate(c.UserContext(), middlewares.CurrentUser(c).ID, c.Params("templateId"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, result)
}
