package deliveries

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type CheckoutHandler struct {
	checkoutService     *services.CheckoutService
	paypalService       *services.PaypalService
	netsService         *services.NetsService
	watcher             PaymentWatcher
	validator           RequestValidator
	authMiddleware      *middlewares.AuthMiddleware
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

// PaymentWatcher streams the progress of one pending external payment.
type PaymentWatcher interface {
	Watch(ctx context.Context, reference string, userID uuid.UUID, emit services.EmitFunc) (*models.PaymentOutcome, error)
}

// RequestValidator validates decoded request bodies.
type RequestValidator interface {
	Validate(i interface{}) error
}

func NewCheckoutHandler(
	checkoutService *services.CheckoutService,
	paypalService *services.PaypalService,
	netsService *services.NetsService,
	reconcilerService *services.ReconcilerService,
	validator RequestValidator,
	authMiddleware *middlewares.AuthMiddleware,
	rateLimitMiddleware *middlewares.RateLimitMiddleware,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService:     checkoutService,
		paypalService:       paypalService,
		netsService:         netsService,
		watcher:             reconcilerService,
		validator:           validator,
		authMiddleware:      authMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutGroup := router.Group("/checkout", h.authMiddleware.AuthConnect)
	checkoutGroup.Post("/quote", h.Quote)

	// Endpoints that move money share a tighter per-user limit
	limited := h.rateLimitMiddleware.LimitByUser(middlewares.CheckoutLimit)
	checkoutGroup.Post("/wallet", limited, h.CheckoutWithWallet)
	checkoutGroup.Post("/paypal", limited, h.StartPaypal)
	checkoutGroup.Post("/paypal/:orderId/capture", limited, h.CapturePaypal)
	checkoutGroup.Post("/nets", limited, h.StartNets)
	checkoutGroup.Get("/nets/:ref/stream", h.StreamNets)
}

func (h *CheckoutHandler) parseCodes(c *fiber.Ctx) ([]string, error) {
	var req models.CheckoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return nil, errors.NewBadRequestError("Invalid request body")
		}
	}
	if err := h.validator.Validate(&req); err != nil {
		return nil, err
	}
	return req.Codes, nil
}

func (h *CheckoutHandler) Quote(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	codes, err := h.parseCodes(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	quote, err := h.checkoutService.Quote(c.UserContext(), connectUser.ID, codes)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, quote)
}

func (h *CheckoutHandler) CheckoutWithWallet(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	codes, err := h.parseCodes(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	receipt, err := h.checkoutService.CheckoutWithWallet(c.UserContext(), connectUser.ID, codes)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, receipt)
}

func (h *CheckoutHandler) StartPaypal(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	codes, err := h.parseCodes(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	order, err := h.paypalService.StartCheckout(c.UserContext(), connectUser.ID, codes)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, order)
}

func (h *CheckoutHandler) CapturePaypal(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	outcome, err := h.paypalService.CompleteCheckout(c.UserContext(), connectUser.ID, c.Params("orderId"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, outcome)
}

func (h *CheckoutHandler) StartNets(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	codes, err := h.parseCodes(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	challenge, err := h.netsService.StartCheckout(c.UserContext(), connectUser.ID, codes)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, challenge)
}

// StreamNets pushes reconciler progress as server-sent events until the reference
// resolves or the client goes away.
func (h *CheckoutHandler) StreamNets(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)
	// the writer outlives the handler, so the param must not alias the request buffer
	reference := utils.CopyString(c.Params("ref"))

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		emit := func(event models.PaymentEvent) error {
			if err := writeEvent(w, string(event.Type), event); err != nil {
				cancel()
				return err
			}
			return nil
		}

		_, err := h.watcher.Watch(ctx, reference, connectUser.ID, emit)
		if err != nil && ctx.Err() == nil {
			_ = writeEvent(w, string(models.PaymentEventError), models.WebResponse[any]{
				Success: false,
				Code:    errors.CodeOf(err),
				Message: err.Error(),
			})
			logrus.WithError(err).WithField("reference", reference).Debug("payment watch ended with error")
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}
