package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	lockRetryInterval = 200 * time.Millisecond
	lockMaxRetries    = 50
)

// SettleRequest describes one purchase attempt. Reference and PaidAmount are set for
// money already captured by a gateway.
type SettleRequest struct {
	UserID     uuid.UUID
	Codes      []string
	Rail       models.PaymentRail
	Provider   models.PaymentProvider
	Reference  string
	PaidAmount *decimal.Decimal
}

func (r *SettleRequest) external() bool {
	return r.Reference != ""
}

type SettlementResult struct {
	Receipt  *models.Receipt
	Outcome  *models.PaymentOutcome
	Replayed bool
}

// CheckoutService settles a quoted cart and materializes the purchase in one transaction.
type CheckoutService struct {
	db                  *gorm.DB
	cartService         *CartService
	catalogService      *CatalogService
	voucherService      *VoucherService
	discountService     *DiscountService
	pricingService      *PricingService
	walletService       *WalletService
	subscriptionService *SubscriptionService
	loyaltyService      *LoyaltyService
	referenceService    *PaymentReferenceService
	outboxService       *OutboxService
	auditService        *AuditService
	checkoutLock        *CheckoutLock
	metrics             *infrastructures.Metrics
}

func NewCheckoutService(
	db *gorm.DB,
	cartService *CartService,
	catalogService *CatalogService,
	voucherService *VoucherService,
	discountService *DiscountService,
	pricingService *PricingService,
	walletService *WalletService,
	subscriptionService *SubscriptionService,
	loyaltyService *LoyaltyService,
	referenceService *PaymentReferenceService,
	outboxService *OutboxService,
	auditService *AuditService,
	checkoutLock *CheckoutLock,
	metrics *infrastructures.Metrics,
) *CheckoutService {
	return &CheckoutService{
		db:                  db,
		cartService:         cartService,
		catalogService:      catalogService,
		voucherService:      voucherService,
		discountService:     discountService,
		pricingService:      pricingService,
		walletService:       walletService,
		subscriptionService: subscriptionService,
		loyaltyService:      loyaltyService,
		referenceService:    referenceService,
		outboxService:       outboxService,
		auditService:        auditService,
		checkoutLock:        checkoutLock,
		metrics:             metrics,
	}
}

// Quote prices the user's cart with the requested codes without writing anything.
func (s *CheckoutService) Quote(ctx context.Context, userID uuid.UUID, codes []string) (*models.CheckoutQuote, error) {
	lines, err := s.cartService.GetLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.NewBadRequestError("Your cart is empty.")
	}

	discount, err := s.discountService.Evaluate(ctx, userID, lines, codes)
	if err != nil {
		return nil, err
	}

	totals, err := s.pricingService.ComputeTotals(ctx, userID, discount)
	if err != nil {
		return nil, err
	}

	return &models.CheckoutQuote{
		Lines:    lines,
		Discount: discount,
		Totals:   totals,
	}, nil
}

// CheckoutWithWallet pays the cart from the wallet balance.
func (s *CheckoutService) CheckoutWithWallet(ctx context.Context, userID uuid.UUID, codes []string) (*models.Receipt, error) {
	result, err := s.Settle(ctx, SettleRequest{
		UserID: userID,
		Codes:  codes,
		Rail:   models.PaymentRailWallet,
	})
	if err != nil {
		return nil, err
	}
	return result.Receipt, nil
}

// Settle re-quotes the cart and, under the user's checkout lock, claims the payment
// reference, debits the wallet rail and materializes the receipt in one transaction.
func (s *CheckoutService) Settle(ctx context.Context, req SettleRequest) (*SettlementResult, error) {
	start := time.Now()
	result, err := s.settle(ctx, req)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case result.Replayed:
		outcome = "replayed"
	}
	s.metrics.Settlements.WithLabelValues(string(req.Rail), outcome).Inc()
	s.metrics.SettlementDuration.WithLabelValues(string(req.Rail)).Observe(time.Since(start).Seconds())

	return result, err
}

func (s *CheckoutService) settle(ctx context.Context, req SettleRequest) (*SettlementResult, error) {
	if req.external() {
		existing, err := s.referenceService.Find(ctx, req.Reference)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(ctx, existing)
		}
	}

	quote, err := s.Quote(ctx, req.UserID, req.Codes)
	if err != nil {
		return nil, err
	}
	if len(quote.Discount.Errors) > 0 {
		return nil, errors.NewBadRequestError(strings.Join(quote.Discount.Errors, " "))
	}
	if req.PaidAmount != nil && !pkg.RoundMoney(*req.PaidAmount).Equal(quote.Totals.FinalTotal) {
		return nil, errors.NewConflictError(errors.CodeAmountMismatch, fmt.Sprintf(
			"Paid amount %s does not match order total %s",
			pkg.FormatMoney(*req.PaidAmount), pkg.FormatMoney(quote.Totals.FinalTotal)))
	}

	var release func()
	if req.external() {
		release, err = s.checkoutLock.AcquireWait(ctx, req.UserID, lockRetryInterval, lockMaxRetries)
	} else {
		release, err = s.checkoutLock.Acquire(ctx, req.UserID)
	}
	if err != nil {
		return nil, err
	}
	defer release()

	receiptID := uuid.New()
	var result *SettlementResult
	var replayed *models.ProcessedPaymentReference

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.external() {
			claimed, existing, err := s.referenceService.ClaimTx(tx, &models.ProcessedPaymentReference{
				Reference: req.Reference,
				Provider:  req.Provider,
				Purpose:   models.PaymentPurposeCheckout,
				UserID:    req.UserID,
				Status:    models.PaymentResolutionConfirmed,
				ReceiptID: &receiptID,
				Amount:    quote.Totals.FinalTotal,
			})
			if err != nil {
				return err
			}
			if !claimed {
				replayed = existing
				return nil
			}
		}

		if req.Rail == models.PaymentRailWallet && quote.Totals.FinalTotal.IsPositive() {
			_, err := s.walletService.DebitTx(tx, req.UserID, quote.Totals.FinalTotal, models.LedgerMeta{
				Type:          models.LedgerEntryPurchase,
				ReferenceType: "receipt",
				ReferenceID:   receiptID.String(),
				Note:          "Checkout payment",
			})
			if err != nil {
				return err
			}
		}

		receipt, err := s.materializeTx(tx, receiptID, &req, quote)
		if err != nil {
			return err
		}

		result = &SettlementResult{Receipt: receipt}
		if req.external() {
			result.Outcome = &models.PaymentOutcome{
				Reference: req.Reference,
				Status:    models.PaymentResolutionConfirmed,
				Purpose:   models.PaymentPurposeCheckout,
				ReceiptID: &receiptID,
				Amount:    quote.Totals.FinalTotal,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed != nil {
		return s.replay(ctx, replayed)
	}

	logrus.WithFields(logrus.Fields{
		"receipt_id": receiptID,
		"user_id":    req.UserID,
		"rail":       req.Rail,
		"total":      quote.Totals.FinalTotal.StringFixed(2),
	}).Info("checkout settled")

	return result, nil
}

func (s *CheckoutService) replay(ctx context.Context, processed *models.ProcessedPaymentReference) (*SettlementResult, error) {
	result := &SettlementResult{
		Outcome:  processed.Outcome(true),
		Replayed: true,
	}
	if processed.ReceiptID != nil && processed.Status == models.PaymentResolutionConfirmed {
		var receipt models.Receipt
		err := s.db.WithContext(ctx).Preload("Items").Preload("Discounts").
			Where("id = ?", *processed.ReceiptID).First(&receipt).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, errors.NewInternalServerError(err, "Failed to get receipt")
		}
		if err == nil {
			result.Receipt = &receipt
		}
	}
	return result, nil
}

// materializeTx writes everything a purchase produces. Any error rolls the whole tx back.
func (s *CheckoutService) materializeTx(tx *gorm.DB, receiptID uuid.UUID, req *SettleRequest, quote *models.CheckoutQuote) (*models.Receipt, error) {
	current, err := s.cartService.GetLinesTx(tx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !sameLines(current, quote.Lines) {
		return nil, errors.NewConflictError(errors.CodeCheckoutInProgress, "Your cart changed during checkout. Please review it and try again.")
	}

	byProduct := make([]models.CartLine, len(quote.Lines))
	copy(byProduct, quote.Lines)
	sort.Slice(byProduct, func(i, j int) bool { return byProduct[i].ProductID < byProduct[j].ProductID })
	for _, line := range byProduct {
		if err := s.catalogService.DecrementStockTx(tx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	var reference *string
	if req.external() {
		reference = &req.Reference
	}
	receipt := &models.Receipt{
		ID:               receiptID,
		UserID:           req.UserID,
		Subtotal:         quote.Discount.Subtotal,
		DiscountAmount:   quote.Discount.TotalDiscount,
		DeliveryFee:      quote.Totals.DeliveryFee,
		FinalTotal:       quote.Totals.FinalTotal,
		PaymentMethod:    req.Rail,
		PaymentReference: reference,
		Status:           models.ReceiptStatusProcessing,
	}
	if err := tx.Omit("Items", "Discounts").Create(receipt).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to create receipt")
	}

	for i, line := range quote.Lines {
		item := models.ReceiptItem{
			ReceiptID: receiptID,
			Position:  i + 1,
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: pkg.RoundMoney(line.UnitPrice),
			LineTotal: pkg.LineTotal(line.UnitPrice, line.Quantity),
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, errors.NewInternalServerError(err, "Failed to create receipt item")
		}
		receipt.Items = append(receipt.Items, item)
	}

	for _, applied := range Attribute(quote.Discount) {
		discount, err := s.redeemTx(tx, receiptID, req.UserID, applied)
		if err != nil {
			return nil, err
		}
		receipt.Discounts = append(receipt.Discounts, *discount)
	}

	for _, line := range quote.Lines {
		orderLine := &models.OrderLine{
			UserID:        req.UserID,
			ReceiptID:     receiptID,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			Price:         pkg.RoundMoney(line.UnitPrice),
			PaymentMethod: req.Rail,
		}
		if err := tx.Create(orderLine).Error; err != nil {
			return nil, errors.NewInternalServerError(err, "Failed to create order line")
		}
	}

	if err := s.cartService.ClearTx(tx, req.UserID); err != nil {
		return nil, err
	}

	if quote.Totals.NewSubscriberWaiver {
		marked, err := s.subscriptionService.MarkFirstDeliveryUsedTx(tx, req.UserID)
		if err != nil {
			return nil, err
		}
		if !marked {
			return nil, errors.NewConflictError(errors.CodeCheckoutInProgress, "Free first delivery was already used. Please review your order.")
		}
	}

	if quote.Totals.Subscribed {
		points := PointsForPurchase(quote.Totals.ItemsTotal)
		if _, err := s.loyaltyService.CreditTx(tx, req.UserID, points, &receiptID, "Purchase reward"); err != nil {
			return nil, err
		}
	}

	if err := s.auditService.LogReceiptStatusChangeTx(tx, receiptID, nil, models.ReceiptStatusProcessing, "Checkout", &req.UserID); err != nil {
		return nil, err
	}

	if err := s.outboxService.EnqueueTx(tx, models.EventReceiptCreated, receiptID.String(), receipt); err != nil {
		return nil, err
	}

	return receipt, nil
}

// redeemTx re-checks the voucher under its row lock before recording the redemption.
func (s *CheckoutService) redeemTx(tx *gorm.DB, receiptID, userID uuid.UUID, applied models.AppliedVoucher) (*models.ReceiptDiscount, error) {
	voucher, err := s.voucherService.LockVoucherTx(tx, applied.VoucherID)
	if err != nil {
		return nil, err
	}
	if reason := s.discountService.staticIneligibility(voucher, userID); reason != "" {
		return nil, errors.NewBadRequestError(fmt.Sprintf("%s: %s", voucher.Code, reason))
	}

	usage, err := s.voucherService.UsageCountsTx(tx, voucher.ID, userID)
	if err != nil {
		return nil, err
	}
	if reason := usageIneligibility(voucher, usage); reason != "" {
		return nil, errors.NewConflictError(errors.CodeVoucherLimitReached, fmt.Sprintf("%s: %s", voucher.Code, reason))
	}

	redemption := &models.VoucherRedemption{
		VoucherID:      voucher.ID,
		ReceiptID:      receiptID,
		UserID:         userID,
		DiscountAmount: applied.Amount,
	}
	if err := tx.Create(redemption).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to record voucher redemption")
	}

	discount := &models.ReceiptDiscount{
		ReceiptID:      receiptID,
		VoucherID:      voucher.ID,
		Code:           voucher.Code,
		DiscountAmount: applied.Amount,
		AutoApplied:    applied.AutoApply,
	}
	if err := tx.Create(discount).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to record receipt discount")
	}

	return discount, nil
}

// Compensate resolves a captured payment that could not be materialized: the reference
// is recorded FAILED and the captured amount goes back to the wallet as a refund.
// A reference that is already resolved is replayed untouched.
func (s *CheckoutService) Compensate(ctx context.Context, payment *models.PendingPayment, cause error) (*models.PaymentOutcome, error) {
	note := "Payment captured but the order could not be completed; amount refunded to wallet"
	if cause != nil {
		note = fmt.Sprintf("%s: %s", note, cause.Error())
	}

	var outcome *models.PaymentOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, existing, err := s.referenceService.ClaimTx(tx, &models.ProcessedPaymentReference{
			Reference: payment.Reference,
			Provider:  payment.Provider,
			Purpose:   payment.Purpose,
			UserID:    payment.UserID,
			Status:    models.PaymentResolutionFailed,
			Amount:    payment.Amount,
			Note:      &note,
		})
		if err != nil {
			return err
		}
		if !claimed {
			outcome = existing.Outcome(true)
			return nil
		}

		if payment.Amount.IsPositive() {
			_, err = s.walletService.CreditTx(tx, payment.UserID, payment.Amount, models.LedgerMeta{
				Type:          models.LedgerEntryRefund,
				ReferenceType: "payment_compensation",
				ReferenceID:   payment.Reference,
				Note:          "Refund for unfulfilled checkout",
			})
			if err != nil {
				return err
			}
		}

		outcome = existing.Outcome(false)
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithField("reference", payment.Reference).Error("payment compensation failed")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"reference": payment.Reference,
		"user_id":   payment.UserID,
		"amount":    payment.Amount.StringFixed(2),
		"replayed":  outcome.Replayed,
	}).Warn("captured payment compensated")

	return outcome, nil
}

// SettleCaptured settles a checkout paid through a gateway. Business failures after
// capture are compensated instead of returned.
func (s *CheckoutService) SettleCaptured(ctx context.Context, payment *models.PendingPayment, rail models.PaymentRail) (*SettlementResult, error) {
	amount := payment.Amount
	result, err := s.Settle(ctx, SettleRequest{
		UserID:     payment.UserID,
		Codes:      payment.VoucherCodes,
		Rail:       rail,
		Provider:   payment.Provider,
		Reference:  payment.Reference,
		PaidAmount: &amount,
	})
	if err == nil {
		return result, nil
	}
	if errors.StatusOf(err) >= 500 {
		return nil, err
	}

	outcome, compErr := s.Compensate(ctx, payment, err)
	if compErr != nil {
		return nil, compErr
	}
	return &SettlementResult{Outcome: outcome, Replayed: outcome.Replayed}, nil
}

func sameLines(a, b []models.CartLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ProductID != b[i].ProductID ||
			a[i].Quantity != b[i].Quantity ||
			!a[i].UnitPrice.Equal(b[i].UnitPrice) {
			return false
		}
	}
	return true
}
