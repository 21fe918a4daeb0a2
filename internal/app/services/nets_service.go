package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/shopspring/decimal"
)

// NetsService issues NETS QR challenges. Confirmation is the reconciler's job.
type NetsService struct {
	gateway         NetsGateway
	reconciler      *ReconcilerService
	checkoutService *CheckoutService
	clock           pkg.Clock
}

func NewNetsService(gateway NetsGateway, reconciler *ReconcilerService, checkoutService *CheckoutService, clock pkg.Clock) *NetsService {
	return &NetsService{
		gateway:         gateway,
		reconciler:      reconciler,
		checkoutService: checkoutService,
		clock:           clock,
	}
}

func (s *NetsService) StartCheckout(ctx context.Context, userID uuid.UUID, codes []string) (*models.NetsChallengeResponse, error) {
	quote, err := s.checkoutService.Quote(ctx, userID, codes)
	if err != nil {
		return nil, err
	}
	if len(quote.Discount.Errors) > 0 {
		return nil, errors.NewBadRequestError(strings.Join(quote.Discount.Errors, " "))
	}
	if !quote.Totals.FinalTotal.IsPositive() {
		return nil, errors.NewBadRequestError("Nothing to pay. Use wallet checkout for a zero total.")
	}

	return s.challenge(ctx, userID, models.PaymentPurposeCheckout, quote.Totals.FinalTotal, quote.Discount.NormalizedCodes)
}

func (s *NetsService) StartTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.NetsChallengeResponse, error) {
	amount = pkg.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, errors.NewBadRequestError("Invalid amount for top-up")
	}

	return s.challenge(ctx, userID, models.PaymentPurposeWalletTopUp, amount, nil)
}

func (s *NetsService) challenge(ctx context.Context, userID uuid.UUID, purpose models.PaymentPurpose, amount decimal.Decimal, codes []string) (*models.NetsChallengeResponse, error) {
	qr, err := s.gateway.RequestQR(ctx, amount)
	if err != nil {
		return nil, err
	}
	if qr.ResponseCode != models.NetsResponseSuccess || qr.TxnStatus != models.NetsTxnStatusSuccess || qr.QRCode == "" {
		message := qr.ErrorMessage
		if message == "" {
			message = "Transaction failed. Please try again."
		}
		return nil, errors.NewGatewayError(fmt.Errorf("nets qr rejected: code=%s status=%d", qr.ResponseCode, qr.TxnStatus), message)
	}

	err = s.reconciler.Initiate(ctx, &models.PendingPayment{
		Reference:    qr.TxnRetrievalRef,
		Provider:     models.PaymentProviderNets,
		Purpose:      purpose,
		UserID:       userID,
		Amount:       amount,
		VoucherCodes: codes,
		CreatedAt:    s.clock(),
	})
	if err != nil {
		return nil, err
	}

	return &models.NetsChallengeResponse{
		Reference: qr.TxnRetrievalRef,
		QRCode:    qr.QRCode,
		Amount:    amount,
		Purpose:   purpose,
	}, nil
}
