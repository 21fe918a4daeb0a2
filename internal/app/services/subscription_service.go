package services

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"gorm.io/gorm"
)

type SubscriptionService struct {
	db             *gorm.DB
	walletService  *WalletService
	voucherService *VoucherService
	auditService   *AuditService
	cfg            infrastructures.CheckoutConfig
	clock          pkg.Clock
}

func NewSubscriptionService(
	db *gorm.DB,
	walletService *WalletService,
	voucherService *VoucherService,
	auditService *AuditService,
	cfg infrastructures.CheckoutConfig,
	clock pkg.Clock,
) *SubscriptionService {
	return &SubscriptionService{
		db:             db,
		walletService:  walletService,
		voucherService: voucherService,
		auditService:   auditService,
		cfg:            cfg,
		clock:          clock,
	}
}

func (s *SubscriptionService) Status(ctx context.Context, userID uuid.UUID) (models.SubscriptionStatus, error) {
	return s.StatusTx(s.db.WithContext(ctx), userID)
}

// StatusTx reads the subscription through tx. An expired subscription reads as inactive.
func (s *SubscriptionService) StatusTx(tx *gorm.DB, userID uuid.UUID) (models.SubscriptionStatus, error) {
	var subscription models.Subscription
	err := tx.Where("user_id = ?", userID).First(&subscription).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.SubscriptionStatus{}, nil
		}
		return models.SubscriptionStatus{}, errors.NewInternalServerError(err, "Failed to get subscription")
	}

	return s.statusOf(&subscription), nil
}

func (s *SubscriptionService) statusOf(subscription *models.Subscription) models.SubscriptionStatus {
	active := subscription.IsActive
	if subscription.ExpiresAt != nil && !subscription.ExpiresAt.After(s.clock()) {
		active = false
	}
	return models.SubscriptionStatus{
		Active:            active,
		FirstDeliveryUsed: subscription.FirstDeliveryUsed,
		ExpiresAt:         subscription.ExpiresAt,
	}
}

// MarkFirstDeliveryUsedTx consumes the new-subscriber benefit. It reports false if it was already used.
func (s *SubscriptionService) MarkFirstDeliveryUsedTx(tx *gorm.DB, userID uuid.UUID) (bool, error) {
	result := tx.Model(&models.Subscription{}).
		Where("user_id = ? AND first_delivery_used = ?", userID, false).
		Update("first_delivery_used", true)
	if result.Error != nil {
		return false, errors.NewInternalServerError(result.Error, "Failed to update subscription")
	}
	return result.RowsAffected == 1, nil
}

// SubscribeWithWallet charges the subscription price to the wallet and activates the plan.
func (s *SubscriptionService) SubscribeWithWallet(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status, err := s.StatusTx(tx, userID)
		if err != nil {
			return err
		}
		if status.Active {
			return errors.NewBadRequestError("Subscription already active.")
		}

		_, err = s.walletService.DebitTx(tx, userID, s.cfg.SubscriptionPrice, models.LedgerMeta{
			Type:          models.LedgerEntrySubscription,
			ReferenceType: "subscription",
			Note:          "Subscription purchase",
		})
		if err != nil {
			return err
		}

		var existing models.Subscription
		found := true
		if err := pkg.ForUpdate(tx).Where("user_id = ?", userID).First(&existing).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return errors.NewInternalServerError(err, "Failed to get subscription")
			}
			found = false
		}

		now := s.clock()
		expiresAt := now.Add(s.cfg.SubscriptionPeriod)
		subscription = models.Subscription{
			UserID:    userID,
			IsActive:  true,
			StartedAt: &now,
			ExpiresAt: &expiresAt,
		}
		// A lapsed subscriber keeps the first-delivery benefit state of the earlier plan.
		if found {
			subscription.FirstDeliveryUsed = existing.FirstDeliveryUsed
			subscription.CreatedAt = existing.CreatedAt
			if existing.StartedAt != nil {
				subscription.StartedAt = existing.StartedAt
			}
		}
		if err := tx.Save(&subscription).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to activate subscription")
		}

		return s.auditService.LogAuditTx(tx, "subscriptions", userID.String(), models.AuditActionCreate, nil, subscription, &userID)
	})
	if err != nil {
		return nil, err
	}

	return &subscription, nil
}

// ClaimCoupon issues the subscriber a personal copy of an active template, once per template.
func (s *SubscriptionService) ClaimCoupon(ctx context.Context, userID uuid.UUID, templateId string) (*models.Voucher, error) {
	id, err := strconv.ParseUint(templateId, 10, 64)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid voucher ID format")
	}

	var voucher *models.Voucher
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status, err := s.StatusTx(tx, userID)
		if err != nil {
			return err
		}
		if !status.Active {
			return errors.NewForbiddenError("Subscription required to claim coupons.")
		}

		template, err := s.voucherService.GetTemplateTx(tx, uint(id))
		if err != nil {
			return errors.NewBadRequestError("Coupon is not available.")
		}

		claimed, err := s.voucherService.HasIssuedTx(tx, template.ID, userID)
		if err != nil {
			return err
		}
		if claimed {
			return errors.NewBadRequestError("You already claimed this coupon.")
		}

		voucher, err = s.voucherService.IssueFromTemplateTx(tx, template, userID, couponCodePrefix)
		return err
	})
	if err != nil {
		return nil, err
	}

	return voucher, nil
}
