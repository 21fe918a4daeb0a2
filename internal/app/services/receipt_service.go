package services

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// receiptTransitions lists the only allowed status moves.
var receiptTransitions = map[models.ReceiptStatus]models.ReceiptStatus{
	models.ReceiptStatusProcessing: models.ReceiptStatusDelivered,
	models.ReceiptStatusDelivered:  models.ReceiptStatusCompleted,
}

type ReceiptService struct {
	db            *gorm.DB
	validator     *infrastructures.Validator
	walletService *WalletService
	outboxService *OutboxService
	auditService  *AuditService
	clock         pkg.Clock
}

func NewReceiptService(
	db *gorm.DB,
	validator *infrastructures.Validator,
	walletService *WalletService,
	outboxService *OutboxService,
	auditService *AuditService,
	clock pkg.Clock,
) *ReceiptService {
	return &ReceiptService{
		db:            db,
		validator:     validator,
		walletService: walletService,
		outboxService: outboxService,
		auditService:  auditService,
		clock:         clock,
	}
}

func parseReceiptID(receiptId string) (uuid.UUID, error) {
	id, err := uuid.Parse(receiptId)
	if err != nil {
		return uuid.Nil, errors.NewBadRequestError("Invalid receipt ID format")
	}
	return id, nil
}

// GetReceipt returns the receipt with items and discounts. Only its owner or an admin may read it.
func (s *ReceiptService) GetReceipt(ctx context.Context, receiptId string, viewer *models.ConnectUser) (*models.Receipt, error) {
	id, err := parseReceiptID(receiptId)
	if err != nil {
		return nil, err
	}

	var receipt models.Receipt
	err = s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Discounts").
		Where("id = ?", id).
		First(&receipt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Receipt not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get receipt")
	}

	if !viewer.Owns(receipt.UserID) {
		return nil, errors.NewForbiddenError("Access denied")
	}

	return &receipt, nil
}

func (s *ReceiptService) ListReceipts(ctx context.Context, userID uuid.UUID, pagination *models.PaginationRequest) (*models.Pagination[[]models.Receipt], error) {
	pagination.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Receipt{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to count receipts")
	}

	var receipts []models.Receipt
	if err := query.Order("created_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset()).
		Find(&receipts).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get receipts")
	}

	return models.NewPagination(pagination, totalItems, receipts), nil
}

func (s *ReceiptService) MarkDelivered(ctx context.Context, receiptId string, adminID uuid.UUID) (*models.Receipt, error) {
	return s.transition(ctx, receiptId, models.ReceiptStatusDelivered, adminID)
}

func (s *ReceiptService) MarkCompleted(ctx context.Context, receiptId string, adminID uuid.UUID) (*models.Receipt, error) {
	return s.transition(ctx, receiptId, models.ReceiptStatusCompleted, adminID)
}

func (s *ReceiptService) transition(ctx context.Context, receiptId string, to models.ReceiptStatus, adminID uuid.UUID) (*models.Receipt, error) {
	id, err := parseReceiptID(receiptId)
	if err != nil {
		return nil, err
	}

	var receipt models.Receipt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockReceiptTx(tx, id)
		if err != nil {
			return err
		}
		receipt = *locked

		from := receipt.Status
		if receiptTransitions[from] != to {
			return errors.NewConflictError(errors.CodeInvalidStatusTransition,
				"Cannot move receipt from "+string(from)+" to "+string(to))
		}

		now := s.clock()
		updates := map[string]interface{}{"status": to}
		if to == models.ReceiptStatusDelivered {
			updates["delivered_at"] = now
			receipt.DeliveredAt = &now
		} else {
			updates["completed_at"] = now
			receipt.CompletedAt = &now
		}
		if err := tx.Model(&models.Receipt{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update receipt status")
		}
		receipt.Status = to

		if err := s.auditService.LogReceiptStatusChangeTx(tx, id, &from, to, "Admin update", &adminID); err != nil {
			return err
		}
		return s.auditService.LogAuditTx(tx, "receipts", id.String(), models.AuditActionStatusChange,
			map[string]interface{}{"status": from}, map[string]interface{}{"status": to}, &adminID)
	})
	if err != nil {
		return nil, err
	}

	return &receipt, nil
}

func (s *ReceiptService) lockReceiptTx(tx *gorm.DB, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := pkg.ForUpdate(tx).Where("id = ?", id).First(&receipt).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Receipt not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to lock receipt")
	}
	return &receipt, nil
}

// RefundToWallet credits the receipt's final total back to its owner, at most once.
func (s *ReceiptService) RefundToWallet(ctx context.Context, receiptId string, adminID uuid.UUID) (*models.Receipt, error) {
	id, err := parseReceiptID(receiptId)
	if err != nil {
		return nil, err
	}

	var receipt *models.Receipt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		receipt, err = s.refundTx(tx, id, nil, adminID, "Admin refund")
		return err
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

func (s *ReceiptService) refundTx(tx *gorm.DB, id uuid.UUID, request *models.RefundRequest, adminID uuid.UUID, note string) (*models.Receipt, error) {
	receipt, err := s.lockReceiptTx(tx, id)
	if err != nil {
		return nil, err
	}
	if receipt.IsRefunded() {
		return nil, errors.NewConflictError(errors.CodeAlreadyRefunded, "Receipt already refunded")
	}

	refund := receipt.FinalTotal
	if request != nil && request.Amount.IsPositive() {
		refund = pkg.MinMoney(request.Amount, receipt.FinalTotal)
	}

	if refund.IsPositive() {
		_, err = s.walletService.CreditTx(tx, receipt.UserID, refund, models.LedgerMeta{
			Type:          models.LedgerEntryRefund,
			ReferenceType: "receipt_refund",
			ReferenceID:   id.String(),
			Note:          note,
		})
		if err != nil {
			return nil, err
		}
	}

	now := s.clock()
	result := tx.Model(&models.Receipt{}).
		Where("id = ? AND refunded_at IS NULL", id).
		Updates(map[string]interface{}{
			"refunded_amount": refund,
			"refunded_at":     now,
			"refunded_by":     adminID,
		})
	if result.Error != nil {
		return nil, errors.NewInternalServerError(result.Error, "Failed to mark receipt refunded")
	}
	if result.RowsAffected == 0 {
		return nil, errors.NewConflictError(errors.CodeAlreadyRefunded, "Receipt already refunded")
	}
	receipt.RefundedAmount = &refund
	receipt.RefundedAt = &now
	receipt.RefundedBy = &adminID

	if err := s.auditService.LogAuditTx(tx, "receipts", id.String(), models.AuditActionRefund, nil,
		map[string]interface{}{"refunded_amount": refund}, &adminID); err != nil {
		return nil, err
	}
	if err := s.outboxService.EnqueueTx(tx, models.EventReceiptRefunded, id.String(), receipt); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"receipt_id": id,
		"user_id":    receipt.UserID,
		"amount":     refund.StringFixed(2),
	}).Info("receipt refunded to wallet")

	return receipt, nil
}

// RequestRefund files the owner's refund request for a completed receipt.
func (s *ReceiptService) RequestRefund(ctx context.Context, userID uuid.UUID, receiptId string, req *models.RefundRequestCreateRequest) (*models.RefundRequest, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	id, err := parseReceiptID(receiptId)
	if err != nil {
		return nil, err
	}

	reason := req.Reason
	if reason == "" {
		reason = "Refund requested"
	}

	var request *models.RefundRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		receipt, err := s.lockReceiptTx(tx, id)
		if err != nil {
			return err
		}
		if receipt.UserID != userID {
			return errors.NewForbiddenError("Access denied")
		}
		if receipt.IsRefunded() {
			return errors.NewConflictError(errors.CodeAlreadyRefunded, "Receipt already refunded")
		}
		if receipt.Status != models.ReceiptStatusCompleted {
			return errors.NewBadRequestError("Refunds are available only after order completion.")
		}

		request = &models.RefundRequest{
			ReceiptID: id,
			UserID:    userID,
			Amount:    receipt.FinalTotal,
			Reason:    reason,
			Status:    models.RefundRequestPending,
		}
		created, err := pkg.InsertIgnore(tx, request)
		if err != nil {
			return errors.NewInternalServerError(err, "Failed to create refund request")
		}
		if !created {
			return errors.NewBadRequestError("Refund request already submitted.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

func (s *ReceiptService) ListRefundRequests(ctx context.Context, status *models.RefundRequestStatus) ([]models.RefundRequest, error) {
	query := s.db.WithContext(ctx).Model(&models.RefundRequest{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var requests []models.RefundRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get refund requests")
	}
	return requests, nil
}

// ApproveRefund refunds the receipt and closes the request in one transaction.
func (s *ReceiptService) ApproveRefund(ctx context.Context, requestId string, adminID uuid.UUID, req *models.RefundDecisionRequest) (*models.RefundRequest, error) {
	return s.decide(ctx, requestId, adminID, req, models.RefundRequestApproved)
}

func (s *ReceiptService) RejectRefund(ctx context.Context, requestId string, adminID uuid.UUID, req *models.RefundDecisionRequest) (*models.RefundRequest, error) {
	return s.decide(ctx, requestId, adminID, req, models.RefundRequestRejected)
}

func (s *ReceiptService) decide(ctx context.Context, requestId string, adminID uuid.UUID, req *models.RefundDecisionRequest, status models.RefundRequestStatus) (*models.RefundRequest, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(requestId, 10, 64)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid refund request ID format")
	}

	var request models.RefundRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pkg.ForUpdate(tx).Where("id = ?", id).First(&request).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NewNotFoundError("Refund request not found")
			}
			return errors.NewInternalServerError(err, "Failed to get refund request")
		}
		if request.Status != models.RefundRequestPending {
			return errors.NewBadRequestError("Refund request not available.")
		}

		if status == models.RefundRequestApproved {
			if _, err := s.refundTx(tx, request.ReceiptID, &request, adminID, "Admin approved refund"); err != nil {
				return err
			}
		}

		note := req.Note
		if note == nil && status == models.RefundRequestRejected {
			rejected := "Refund rejected"
			note = &rejected
		}
		now := s.clock()
		if err := tx.Model(&models.RefundRequest{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":     status,
			"admin_note": note,
			"decided_by": adminID,
			"decided_at": now,
		}).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update refund request")
		}
		request.Status = status
		request.AdminNote = note
		request.DecidedBy = &adminID
		request.DecidedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &request, nil
}
