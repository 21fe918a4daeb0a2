package services

import (
	"context"
	"fmt"

	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TopUpService credits wallet top-ups paid through a gateway, once per reference.
type TopUpService struct {
	db               *gorm.DB
	walletService    *WalletService
	referenceService *PaymentReferenceService
	metrics          *infrastructures.Metrics
}

func NewTopUpService(db *gorm.DB, walletService *WalletService, referenceService *PaymentReferenceService, metrics *infrastructures.Metrics) *TopUpService {
	return &TopUpService{
		db:               db,
		walletService:    walletService,
		referenceService: referenceService,
		metrics:          metrics,
	}
}

func topUpReferenceType(provider models.PaymentProvider) string {
	if provider == models.PaymentProviderNets {
		return "wallet_topup_nets"
	}
	return "wallet_topup_paypal"
}

// Settle claims the reference and credits the wallet in one transaction.
func (s *TopUpService) Settle(ctx context.Context, payment *models.PendingPayment) (*models.PaymentOutcome, error) {
	var outcome *models.PaymentOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, existing, err := s.referenceService.ClaimTx(tx, &models.ProcessedPaymentReference{
			Reference: payment.Reference,
			Provider:  payment.Provider,
			Purpose:   models.PaymentPurposeWalletTopUp,
			UserID:    payment.UserID,
			Status:    models.PaymentResolutionConfirmed,
			Amount:    payment.Amount,
		})
		if err != nil {
			return err
		}
		if !claimed {
			outcome = existing.Outcome(true)
			return nil
		}

		_, err = s.walletService.CreditTx(tx, payment.UserID, payment.Amount, models.LedgerMeta{
			Type:          models.LedgerEntryTopUp,
			ReferenceType: topUpReferenceType(payment.Provider),
			ReferenceID:   payment.Reference,
			Note:          fmt.Sprintf("Wallet top-up via %s", payment.Provider),
		})
		if err != nil {
			return err
		}

		outcome = existing.Outcome(false)
		return nil
	})

	result := "success"
	switch {
	case err != nil:
		result = "error"
	case outcome.Replayed:
		result = "replayed"
	}
	s.metrics.Settlements.WithLabelValues("wallet_topup", result).Inc()

	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"reference": payment.Reference,
		"user_id":   payment.UserID,
		"amount":    payment.Amount.StringFixed(2),
		"replayed":  outcome.Replayed,
	}).Info("wallet top-up settled")

	return outcome, nil
}
