package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LoyaltyService struct {
	db             *gorm.DB
	voucherService *VoucherService
	pointValue     decimal.Decimal
}

func NewLoyaltyService(db *gorm.DB, voucherService *VoucherService, cfg infrastructures.CheckoutConfig) *LoyaltyService {
	return &LoyaltyService{
		db:             db,
		voucherService: voucherService,
		pointValue:     cfg.LoyaltyPointValue,
	}
}

// RedemptionResult is the voucher bought with points and what it cost.
type RedemptionResult struct {
	Voucher     *models.Voucher `json:"voucher"`
	PointsCost  int64           `json:"points_cost"`
	PointsAfter int64           `json:"points_after"`
}

// PointsForPurchase converts a discounted items total into whole points.
func PointsForPurchase(itemsTotal decimal.Decimal) int64 {
	if !itemsTotal.IsPositive() {
		return 0
	}
	return itemsTotal.Floor().IntPart()
}

// PointsCost is ceil(value / pointValue), never less than one point.
func PointsCost(value, pointValue decimal.Decimal) int64 {
	if !pointValue.IsPositive() {
		pointValue = decimal.RequireFromString("0.01")
	}
	cost := decimal.Max(decimal.Zero, value).Div(pointValue).Ceil().IntPart()
	if cost < 1 {
		return 1
	}
	return cost
}

func (s *LoyaltyService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &models.LoyaltyAccount{UserID: userID}, nil
		}
		return nil, errors.NewInternalServerError(err, "Failed to get loyalty account")
	}
	return &account, nil
}

// CreditTx adds whole points; non-positive amounts are ignored.
func (s *LoyaltyService) CreditTx(tx *gorm.DB, userID uuid.UUID, points int64, receiptID *uuid.UUID, note string) (int64, error) {
	if points <= 0 {
		return 0, nil
	}

	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return 0, err
	}

	next := account.Points + points
	if err := tx.Model(&models.LoyaltyAccount{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"points":          next,
		"lifetime_earned": account.LifetimeEarned + points,
	}).Error; err != nil {
		return 0, errors.NewInternalServerError(err, "Failed to credit points")
	}

	entry := &models.LoyaltyLedgerEntry{UserID: userID, Points: points, PointsAfter: next, ReceiptID: receiptID, Note: note}
	if err := tx.Create(entry).Error; err != nil {
		return 0, errors.NewInternalServerError(err, "Failed to write loyalty ledger")
	}

	return next, nil
}

func (s *LoyaltyService) debitTx(tx *gorm.DB, userID uuid.UUID, points int64, voucherID *uint, note string) (int64, error) {
	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return 0, err
	}
	if account.Points < points {
		return 0, errors.NewConflictError(errors.CodeInsufficientPoints, "Not enough points to redeem this voucher.")
	}

	next := account.Points - points
	if err := tx.Model(&models.LoyaltyAccount{}).Where("user_id = ?", userID).Update("points", next).Error; err != nil {
		return 0, errors.NewInternalServerError(err, "Failed to debit points")
	}

	entry := &models.LoyaltyLedgerEntry{UserID: userID, Points: -points, PointsAfter: next, VoucherID: voucherID, Note: note}
	if err := tx.Create(entry).Error; err != nil {
		return 0, errors.NewInternalServerError(err, "Failed to write loyalty ledger")
	}

	return next, nil
}

func (s *LoyaltyService) lockAccount(tx *gorm.DB, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	if _, err := pkg.InsertIgnore(tx, &models.LoyaltyAccount{UserID: userID}); err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to open loyalty account")
	}

	var account models.LoyaltyAccount
	if err := pkg.ForUpdate(tx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to lock loyalty account")
	}
	return &account, nil
}

// RedeemTemplate exchanges points for a personal instance of a fixed-amount template.
func (s *LoyaltyService) RedeemTemplate(ctx context.Context, userID uuid.UUID, templateId string) (*RedemptionResult, error) {
	id, err := strconv.ParseUint(templateId, 10, 64)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid voucher ID format")
	}

	result := &RedemptionResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		template, err := s.voucherService.GetTemplateTx(tx, uint(id))
		if err != nil {
			return errors.NewBadRequestError("Voucher is not available.")
		}
		if template.DiscountType != models.DiscountTypeFixed {
			return errors.NewBadRequestError("Only fixed-amount vouchers can be redeemed.")
		}

		result.PointsCost = PointsCost(template.DiscountValue, s.pointValue)
		result.Voucher, err = s.voucherService.IssueFromTemplateTx(tx, template, userID, loyaltyCodePrefix)
		if err != nil {
			return err
		}

		result.PointsAfter, err = s.debitTx(tx, userID, result.PointsCost, &result.Voucher.ID,
			fmt.Sprintf("Redeemed %s", result.Voucher.Code))
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
