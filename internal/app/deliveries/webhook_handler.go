package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
)

type WebhookHandler struct {
	reconcilerService *services.ReconcilerService
	validator         RequestValidator
	webhookMiddleware *middlewares.WebhookMiddleware
}

func NewWebhookHandler(reconcilerService *services.ReconcilerService, validator RequestValidator, webhookMiddleware *middlewares.WebhookMiddleware) *WebhookHandler {
	return &WebhookHandler{
		reconcilerService: reconcilerService,
		validator:         validator,
		webhookMiddleware: webhookMiddleware,
	}
}

func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	webhookGroup := router.Group("/webhooks", h.webhookMiddleware.AuthWebhook)
	webhookGroup.Post("/nets", h.HandleNets)
}

// HandleNets answers 200 whether or not the payment settled yet; NETS retries on errors only.
func (h *WebhookHandler) HandleNets(c *fiber.Ctx) error {
	var req models.NetsWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
	}
	if err := h.validator.Validate(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	outcome, err := h.reconcilerService.Resolve(c.UserContext(), req.Reference)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, fiber.Map{
		"reference": req.Reference,
		"resolved":  outcome != nil,
		"outcome":   outcome,
	})
}
