package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
)

type ReceiptHandler struct {
	receiptService *services.ReceiptService
	auditService   *services.AuditService
	authMiddleware *middlewares.AuthMiddleware
}

func NewReceiptHandler(receiptService *services.ReceiptService, auditService *services.AuditService, authMiddleware *middlewares.AuthMiddleware) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		auditService:   auditService,
		authMiddleware: authMiddleware,
	}
}

func (h *ReceiptHandler) RegisterRoutes(router fiber.Router) {
	receiptGroup := router.Group("/receipts", h.authMiddleware.AuthConnect)
	receiptGroup.Get("/", h.GetReceipts)
	receiptGroup.Get("/:id", h.GetReceipt)
	receiptGroup.Post("/:id/refund-requests", h.RequestRefund)

	adminReceipts := router.Group("/admin/receipts", h.authMiddleware.AuthConnect, h.authMiddleware.AuthAdmin)
	adminReceipts.Post("/:id/deliver", h.MarkDelivered)
	adminReceipts.Post("/:id/complete", h.MarkCompleted)
	adminReceipts.Post("/:id/refund", h.Refund)
	adminReceipts.Get("/:id/history", h.GetStatusHistory)

	adminRefunds := router.Group("/admin/refund-requests", h.authMiddleware.AuthConnect, h.authMiddleware.AuthAdmin)
	adminRefunds.Get("/", h.GetRefundRequests)
	adminRefunds.Post("/:id/approve", h.ApproveRefund)
	adminRefunds.Post("/:id/reject", h.RejectRefund)

	router.Get("/admin/audit-logs", h.authMiddleware.AuthConnect, h.authMiddleware.AuthAdmin, h.GetAuditLogs)
}

func (h *ReceiptHandler) GetReceipts(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	var pagination models.PaginationRequest
	if err := c.QueryParser(&pagination); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid query parameters"))
	}

	receipts, err := h.receiptService.ListReceipts(c.UserContext(), connectUser.ID, &pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, receipts)
}

func (h *ReceiptHandler) GetReceipt(c *fiber.Ctx) error {
	receipt, err := h.receiptService.GetReceipt(c.UserContext(), c.Params("id"), middlewares.CurrentUser(c))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, receipt)
}

func (h *ReceiptHandler) RequestRefund(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	var req models.RefundRequestCreateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
		}
	}

	request, err := h.receiptService.RequestRefund(c.UserContext(), connectUser.ID, c.Params("id"), &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, request)
}

func (h *ReceiptHandler) MarkDelivered(c *fiber.Ctx) error {
	receipt, err := h.receiptService.MarkDelivered(c.UserContext(), c.Params("id"), middlewares.CurrentUser(c).ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, receipt)
}

func (h *ReceiptHandler) MarkCompleted(c *fiber.Ctx) error {
	receipt, err := h.receiptService.MarkCompleted(c.UserContext(), c.Params("id"), middlewares.CurrentUser(c).ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, receipt)
}

func (h *ReceiptHandler) Refund(c *fiber.Ctx) error {
	receipt, err := h.receiptService.RefundToWallet(c.UserContext(), c.Params("id"), middlewares.CurrentUser(c).ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, receipt)
}

func (h *ReceiptHandler) GetStatusHistory(c *fiber.Ctx) error {
	receiptID, err := uuidParam(c, "id")
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	history, err := h.auditService.GetReceiptStatusHistory(receiptID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, history)
}

func (h *ReceiptHandler) GetRefundRequests(c *fiber.Ctx) error {
	var status *models.RefundRequestStatus
	if statusStr := c.Query("status"); statusStr != "" {
		refundStatus := models.RefundRequestStatus(statusStr)
		status = &refundStatus
	}

	requests, err := h.receiptService.ListRefundRequests(c.UserContext(), status)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, requests)
}

func (h *ReceiptHandler) parseDecision(c *fiber.Ctx) (*models.RefundDecisionRequest, error) {
	var req models.RefundDecisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return nil, errors.NewBadRequestError("Invalid request body")
		}
	}
	return &req, nil
}

func (h *ReceiptHandler) ApproveRefund(c *fiber.Ctx) error {
	req, err := h.parseDecision(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	request, err := h.receiptService.ApproveRefund(c.UserContext(), c.Params("id"), middlewares.CurrentUser(c).ID, req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, request)
}

func (h *ReceiptHandler) RejectRefund(c *fiber.Ctx) error {
	req, err := h.parseDecision(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	request, err := h.receiptService.RejectRefund(c.UserContext(), c.Params("id"), middlewares.CurrentUser(c).ID, req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, request)
}

func (h *ReceiptHandler) GetAuditLogs(c *fiber.Ctx) error {
	var pagination models.PaginationRequest
	if err := c.QueryParser(&pagination); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid query parameters"))
	}

	logs, err := h.auditService.GetAuditLogs(&pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, logs)
}
