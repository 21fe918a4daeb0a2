package deliveries

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
)

type VoucherHandler struct {
	voucherService *services.VoucherService
	authMiddleware *middlewares.AuthMiddleware
}

func NewVoucherHandler(voucherService *services.VoucherService, authMiddleware *middlewares.AuthMiddleware) *VoucherHandler {
	return &VoucherHandler{
		voucherService: voucherService,
		authMiddleware: authMiddleware,
	}
}

func (h *VoucherHandler) RegisterRoutes(router fiber.Router) {
	// Vouchers issued to the current user
	router.Get("/vouchers/mine", h.authMiddleware.AuthConnect, h.GetMyVouchers)

	adminGroup := router.Group("/admin/vouchers", h.authMiddleware.AuthConnect, h.authMiddleware.AuthAdmin)
	adminGroup.Get("/", h.GetTemplates)
	adminGroup.Post("/", h.CreateTemplate)
	adminGroup.Get("/code/:code", h.GetVoucherByCode)
	adminGroup.Get("/:id", h.GetVoucher)
	adminGroup.Patch("/:id", h.UpdateTemplate)
	adminGroup.Delete("/:id", h.DeleteTemplate)
	adminGroup.Post("/:id/active", h.SetTemplateActive)
}

func (h *VoucherHandler) CreateTemplate(c *fiber.Ctx) error {
	var req models.VoucherTemplateCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
	}

	createdBy := middlewares.CurrentUser(c).ID
	voucher, err := h.voucherService.CreateTemplate(&req, &createdBy)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, voucher)
}

func (h *VoucherHandler) GetVoucher(c *fiber.Ctx) error {
	voucher, err := h.voucherService.GetVoucher(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, voucher)
}

func (h *VoucherHandler) GetVoucherByCode(c *fiber.Ctx) error {
	voucher, err := h.voucherService.GetVoucherByCode(c.Params("code"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, voucher)
}

func (h *VoucherHandler) GetTemplates(c *fiber.Ctx) error {
	var pagination models.PaginationRequest
	if err := c.QueryParser(&pagination); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid query parameters"))
	}

	var active *bool
	if activeStr := c.Query("active"); activeStr != "" {
		value, err := strconv.ParseBool(activeStr)
		if err != nil {
			return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid active filter"))
		}
		active = &value
	}

	vouchers, err := h.voucherService.ListTemplates(&pagination, active)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, vouchers)
}

func (h *VoucherHandler) GetMyVouchers(c *fiber.Ctx) error {
	vouchers, err := h.voucherService.ListUserVouchers(middlewares.CurrentUser(c).ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, vouchers)
}

func (h *VoucherHandler) UpdateTemplate(c *fiber.Ctx) error {
	var req models.VoucherTemplateUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
	}

	changedBy := middlewares.CurrentUser(c).ID
	voucher, err := h.voucherService.UpdateTemplate(c.Params("id"), &req, &changedBy)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, voucher)
}

func (h *VoucherHandler) SetTemplateActive(c *fiber.Ctx) error {
	var req models.VoucherActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
	}

	changedBy := middlewares.CurrentUser(c).ID
	voucher, err := h.voucherService.SetTemplateActive(c.Params("id"), req.IsActive, &changedBy)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, voucher)
}

func (h *VoucherHandler) DeleteTemplate(c *fiber.Ctx) error {
	changedBy := middlewares.CurrentUser(c).ID
	if err := h.voucherService.DeleteTemplate(c.Params("id"), &changedBy); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse[any](c, nil)
}
