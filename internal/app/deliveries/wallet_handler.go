package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
)

type WalletHandler struct {
	walletService       *services.WalletService
	paypalService       *services.PaypalService
	netsService         *services.NetsService
	authMiddleware      *middlewares.AuthMiddleware
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

func NewWalletHandler(
	walletService *services.WalletService,
	paypalService *services.PaypalService,
	netsService *services.NetsService,
	authMiddleware *middlewares.AuthMiddleware,
	rateLimitMiddleware *middlewares.RateLimitMiddleware,
) *WalletHandler {
	return &WalletHandler{
		walletService:       walletService,
		paypalService:       paypalService,
		netsService:         netsService,
		authMiddleware:      authMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *WalletHandler) RegisterRoutes(router fiber.Router) {
	walletGroup := router.Group("/wallet", h.authMiddleware.AuthConnect)
	walletGroup.Get("/", h.GetBalance)
	walletGroup.Get("/ledger", h.GetLedger)

	limited := h.rateLimitMiddleware.LimitByUser(middlewares.CheckoutLimit)
	walletGroup.Post("/topup/paypal", limited, h.StartPaypalTopUp)
	walletGroup.Post("/topup/paypal/:orderId/capture", limited, h.CapturePaypalTopUp)
	walletGroup.Post("/topup/nets", limited, h.StartNetsTopUp)
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	balance, err := h.walletService.GetBalance(c.UserContext(), connectUser.ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, models.WalletBalanceResponse{UserID: connectUser.ID, Balance: balance})
}

func (h *WalletHandler) GetLedger(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	var pagination models.PaginationRequest
	if err := c.QueryParser(&pagination); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid query parameters"))
	}

	ledger, err := h.walletService.ListLedger(c.UserContext(), connectUser.ID, &pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, ledger)
}

func (h *WalletHandler) parseTopUp(c *fiber.Ctx) (*models.TopUpRequest, error) {
	var req models.TopUpRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.NewBadRequestError("Invalid request body")
	}
	return &req, nil
}

func (h *WalletHandler) StartPaypalTopUp(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	req, err := h.parseTopUp(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	order, err := h.paypalService.StartTopUp(c.UserContext(), connectUser.ID, req.Amount)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, order)
}

func (h *WalletHandler) CapturePaypalTopUp(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	outcome, err := h.paypalService.CompleteTopUp(c.UserContext(), connectUser.ID, c.Params("orderId"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, outcome)
}

func (h *WalletHandler) StartNetsTopUp(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	req, err := h.parseTopUp(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	challenge, err := h.netsService.StartTopUp(c.UserContext(), connectUser.ID, req.Amount)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, challenge)
}
