package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PaypalService runs the synchronous capture flow for checkouts and wallet top-ups.
type PaypalService struct {
	gateway          PaypalGateway
	pendingStore     *PendingPaymentStore
	referenceService *PaymentReferenceService
	checkoutService  *CheckoutService
	topUpService     *TopUpService
	lock             *CheckoutLock
	clock            pkg.Clock
}

func NewPaypalService(
	gateway PaypalGateway,
	pendingStore *PendingPaymentStore,
	referenceService *PaymentReferenceService,
	checkoutService *CheckoutService,
	topUpService *TopUpService,
	lock *CheckoutLock,
	clock pkg.Clock,
) *PaypalService {
	return &PaypalService{
		gateway:          gateway,
		pendingStore:     pendingStore,
		referenceService: referenceService,
		checkoutService:  checkoutService,
		topUpService:     topUpService,
		lock:             lock,
		clock:            clock,
	}
}

func (s *PaypalService) StartCheckout(ctx context.Context, userID uuid.UUID, codes []string) (*models.PaypalOrderResponse, error) {
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

	return s.start(ctx, userID, models.PaymentPurposeCheckout, quote.Totals.FinalTotal, quote.Discount.NormalizedCodes)
}

func (s *PaypalService) StartTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.PaypalOrderResponse, error) {
	amount = pkg.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, errors.NewBadRequestError("Invalid amount")
	}

	return s.start(ctx, userID, models.PaymentPurposeWalletTopUp, amount, nil)
}

func (s *PaypalService) start(ctx context.Context, userID uuid.UUID, purpose models.PaymentPurpose, amount decimal.Decimal, codes []string) (*models.PaypalOrderResponse, error) {
	order, err := s.gateway.CreateOrder(ctx, amount)
	if err != nil {
		return nil, err
	}

	err = s.pendingStore.Save(ctx, &models.PendingPayment{
		Reference:    order.ID,
		Provider:     models.PaymentProviderPaypal,
		Purpose:      purpose,
		UserID:       userID,
		Amount:       amount,
		VoucherCodes: codes,
		CreatedAt:    s.clock(),
	})
	if err != nil {
		return nil, err
	}

	return &models.PaypalOrderResponse{
		OrderID: order.ID,
		Amount:  amount,
		Purpose: purpose,
	}, nil
}

// CompleteCheckout captures the order and settles it. Repeat calls replay the first outcome.
func (s *PaypalService) CompleteCheckout(ctx context.Context, userID uuid.UUID, orderID string) (*models.PaymentOutcome, error) {
	return s.complete(ctx, userID, orderID, models.PaymentPurposeCheckout, func(payment *models.PendingPayment) (*models.PaymentOutcome, error) {
		result, err := s.checkoutService.SettleCaptured(ctx, payment, models.PaymentRailPaypal)
		if err != nil {
			return nil, err
		}
		return result.Outcome, nil
	})
}

func (s *PaypalService) CompleteTopUp(ctx context.Context, userID uuid.UUID, orderID string) (*models.PaymentOutcome, error) {
	return s.complete(ctx, userID, orderID, models.PaymentPurposeWalletTopUp, func(payment *models.PendingPayment) (*models.PaymentOutcome, error) {
		return s.topUpService.Settle(ctx, payment)
	})
}

// complete holds the order's capture lock across capture and settlement, so
// concurrent completions capture once and the others replay the outcome.
func (s *PaypalService) complete(
	ctx context.Context,
	userID uuid.UUID,
	orderID string,
	purpose models.PaymentPurpose,
	settle func(payment *models.PendingPayment) (*models.PaymentOutcome, error),
) (*models.PaymentOutcome, error) {
	if orderID == "" {
		return nil, errors.NewBadRequestError("Missing PayPal order ID")
	}

	release, err := s.lock.AcquireCaptureWait(ctx, orderID, lockRetryInterval, lockMaxRetries)
	if err != nil {
		return nil, err
	}
	defer release()

	payment, outcome, err := s.capture(ctx, userID, orderID, purpose)
	if err != nil || outcome != nil {
		return outcome, err
	}

	outcome, err = settle(payment)
	if err != nil {
		return nil, err
	}

	s.forget(ctx, orderID)
	return outcome, nil
}

// replay returns the stored outcome of a resolved order, or nil while it is unresolved.
func (s *PaypalService) replay(ctx context.Context, userID uuid.UUID, orderID string) (*models.PaymentOutcome, error) {
	processed, err := s.referenceService.Find(ctx, orderID)
	if err != nil || processed == nil {
		return nil, err
	}
	if processed.UserID != userID {
		return nil, errors.NewForbiddenError("This payment belongs to another user")
	}
	return processed.Outcome(true), nil
}

// capture returns a replayed outcome for an already resolved order, otherwise the
// pending payment once the gateway holds the money. An order captured by an
// earlier attempt is not captured again.
func (s *PaypalService) capture(ctx context.Context, userID uuid.UUID, orderID string, purpose models.PaymentPurpose) (*models.PendingPayment, *models.PaymentOutcome, error) {
	outcome, err := s.replay(ctx, userID, orderID)
	if err != nil || outcome != nil {
		return nil, outcome, err
	}

	payment, err := s.pendingStore.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if payment.UserID != userID {
		return nil, nil, errors.NewForbiddenError("This payment belongs to another user")
	}
	if payment.Purpose != purpose {
		return nil, nil, errors.NewBadRequestError("PayPal order was created for a different purpose")
	}
	if payment.Captured {
		return payment, nil, nil
	}

	order, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		// a holder whose lock expired may have settled the order meanwhile
		if outcome, findErr := s.replay(ctx, userID, orderID); findErr == nil && outcome != nil {
			return nil, outcome, nil
		}
		return nil, nil, err
	}
	if order.Status != models.PaypalStatusCompleted {
		return nil, nil, errors.NewBadRequestError("PayPal payment not completed")
	}

	if err := s.pendingStore.MarkCaptured(ctx, payment); err != nil {
		logrus.WithError(err).WithField("reference", orderID).Warn("failed to record PayPal capture")
	}
	return payment, nil, nil
}

func (s *PaypalService) forget(ctx context.Context, orderID string) {
	if err := s.pendingStore.Delete(ctx, orderID); err != nil {
		logrus.WithError(err).WithField("reference", orderID).Warn("failed to remove pending payment")
	}
}
