package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutWithWalletMaterializesEverything(t *testing.T) {
	env := newTestEnv(t, withPublicVouchers())
	ctx := context.Background()
	user := uuid.New()
	shirt := env.seedProduct(t, "60", 5)
	mug := env.seedProduct(t, "20", 5)
	env.addToCart(t, user, shirt, 1)
	env.addToCart(t, user, mug, 2)
	env.seedVoucher(t, "TWENTY", func(v *models.Voucher) { v.DiscountValue = money("20") })
	maxDiscount := money("15")
	env.seedVoucher(t, "TENPCT", func(v *models.Voucher) {
		v.DiscountType = models.DiscountTypePercentage
		v.DiscountValue = money("10")
		v.MaxDiscount = &maxDiscount
	})
	env.fund(t, user, "100")

	receipt, err := env.checkout.CheckoutWithWallet(ctx, user, []string{"TWENTY", "TENPCT"})
	require.NoError(t, err)

	assert.Equal(t, "100.00", receipt.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", receipt.DiscountAmount.StringFixed(2))
	assert.Equal(t, "8.00", receipt.DeliveryFee.StringFixed(2))
	assert.Equal(t, "78.00", receipt.FinalTotal.StringFixed(2))
	assert.Equal(t, models.ReceiptStatusProcessing, receipt.Status)
	assert.Equal(t, models.PaymentRailWallet, receipt.PaymentMethod)
	require.Len(t, receipt.Items, 2)
	assert.Equal(t, 1, receipt.Items[0].Position)
	assert.Equal(t, "40.00", receipt.Items[1].LineTotal.StringFixed(2))
	require.Len(t, receipt.Discounts, 2)

	assert.Equal(t, "22.00", env.balance(t, user).StringFixed(2))

	var stocks []models.Product
	require.NoError(t, env.db.Order("id ASC").Find(&stocks).Error)
	assert.Equal(t, 4, stocks[0].Stock)
	assert.Equal(t, 3, stocks[1].Stock)

	lines, err := env.cart.GetLines(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, lines)

	assert.Equal(t, int64(2), env.count(t, &models.VoucherRedemption{}, "receipt_id = ?", receipt.ID))
	assert.Equal(t, int64(2), env.count(t, &models.OrderLine{}, "receipt_id = ?", receipt.ID))
	assert.Equal(t, int64(1), env.count(t, &models.ReceiptStatusHistory{}, "receipt_id = ?", receipt.ID))
	assert.Equal(t, int64(1), env.count(t, &models.OutboxMessage{}, "event_type = ?", models.EventReceiptCreated))
	assert.Equal(t, int64(1), env.count(t, &models.WalletLedgerEntry{}, "user_id = ? AND type = ?", user, models.LedgerEntryPurchase))
}

func TestCheckoutWithWalletInsufficientFundsRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	product := env.seedProduct(t, "10", 2)
	env.addToCart(t, user, product, 1)
	env.fund(t, user, "10")

	_, err := env.checkout.CheckoutWithWallet(ctx, user, nil)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInsufficientFunds))
	assert.Equal(t, "10.00", env.balance(t, user).StringFixed(2))
	assert.Equal(t, int64(0), env.count(t, &models.Receipt{}, "user_id = ?", user))
	assert.Equal(t, int64(1), env.count(t, &models.Product{}, "id = ? AND stock = ?", product.ID, 2))

	lines, err := env.cart.GetLines(ctx, user)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.checkout.CheckoutWithWallet(context.Background(), uuid.New(), nil)

	require.Error(t, err)
	assert.Equal(t, 400, errors.StatusOf(err))
	assert.Equal(t, "Your cart is empty.", err.Error())
}

func TestCheckoutRejectsRequestedCodeErrors(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	env.addToCart(t, user, env.seedProduct(t, "10", 2), 1)
	env.fund(t, user, "50")

	_, err := env.checkout.CheckoutWithWallet(context.Background(), user, []string{"NOPE"})

	require.Error(t, err)
	assert.Equal(t, 400, errors.StatusOf(err))
	assert.Equal(t, "Code NOPE not found.", err.Error())
	assert.Equal(t, "50.00", env.balance(t, user).StringFixed(2))
}

func TestConcurrentCheckoutsForLastUnit(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "10", 1)
	users := []uuid.UUID{uuid.New(), uuid.New()}
	for _, user := range users {
		env.addToCart(t, user, product, 1)
		env.fund(t, user, "50")
	}

	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.checkout.CheckoutWithWallet(context.Background(), user, nil)
		}(i, user)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.IsCode(err, errors.CodeInsufficientStock), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), env.count(t, &models.Receipt{}, "1 = 1"))
	assert.Equal(t, int64(1), env.count(t, &models.Product{}, "id = ? AND stock = ?", product.ID, 0))
}

func TestConcurrentCheckoutsShareSingleUseVoucherOnce(t *testing.T) {
	env := newTestEnv(t, withPublicVouchers())
	product := env.seedProduct(t, "30", 10)
	voucher := env.seedVoucher(t, "ONLYONE", func(v *models.Voucher) { v.TotalUsageLimit = intPtr(1) })
	users := []uuid.UUID{uuid.New(), uuid.New()}
	for _, user := range users {
		env.addToCart(t, user, product, 1)
		env.fund(t, user, "100")
	}

	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.checkout.CheckoutWithWallet(context.Background(), user, []string{"ONLYONE"})
		}(i, user)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.Contains(t, []int{400, 409}, errors.StatusOf(err))
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, int64(1), env.count(t, &models.VoucherRedemption{}, "voucher_id = ?", voucher.ID))
}

func TestPerUserLimitBlocksSecondCheckout(t *testing.T) {
	env := newTestEnv(t, withPublicVouchers())
	ctx := context.Background()
	user := uuid.New()
	product := env.seedProduct(t, "30", 10)
	voucher := env.seedVoucher(t, "ONCE", func(v *models.Voucher) { v.PerUserLimit = intPtr(1) })
	env.fund(t, user, "200")

	env.addToCart(t, user, product, 1)
	_, err := env.checkout.CheckoutWithWallet(ctx, user, []string{"ONCE"})
	require.NoError(t, err)

	env.addToCart(t, user, product, 1)
	_, err = env.checkout.CheckoutWithWallet(ctx, user, []string{"ONCE"})
	require.Error(t, err)
	assert.Equal(t, "ONCE: You have reached the usage limit for this voucher.", err.Error())
	assert.Equal(t, int64(1), env.count(t, &models.VoucherRedemption{}, "voucher_id = ? AND user_id = ?", voucher.ID, user))
}

func TestCheckoutFailsFastWhileUserLocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	env.addToCart(t, user, env.seedProduct(t, "10", 2), 1)
	env.fund(t, user, "50")

	release, err := env.lock.Acquire(ctx, user)
	require.NoError(t, err)
	defer release()

	_, err = env.checkout.CheckoutWithWallet(ctx, user, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCheckoutInProgress))
}

func TestSubscriberCheckoutUsesFirstDeliveryAndEarnsPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	product := env.seedProduct(t, "25.60", 10)
	env.subscribe(t, user, false)
	env.fund(t, user, "200")

	env.addToCart(t, user, product, 2)
	first, err := env.checkout.CheckoutWithWallet(ctx, user, nil)
	require.NoError(t, err)
	assert.True(t, first.DeliveryFee.IsZero())
	assert.Equal(t, "51.20", first.FinalTotal.StringFixed(2))

	status, err := env.subscription.Status(ctx, user)
	require.NoError(t, err)
	assert.True(t, status.FirstDeliveryUsed)

	account, err := env.loyalty.GetBalance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(51), account.Points)

	env.addToCart(t, user, product, 2)
	second, err := env.checkout.CheckoutWithWallet(ctx, user, nil)
	require.NoError(t, err)
	assert.Equal(t, "8.00", second.DeliveryFee.StringFixed(2))
	assert.Equal(t, "59.20", second.FinalTotal.StringFixed(2))
}

func capturedPayment(user uuid.UUID, reference, amount string) *models.PendingPayment {
	return &models.PendingPayment{
		Reference: reference,
		Provider:  models.PaymentProviderPaypal,
		Purpose:   models.PaymentPurposeCheckout,
		UserID:    user,
		Amount:    money(amount),
	}
}

func TestSettleCapturedReplaysSameReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	env.addToCart(t, user, env.seedProduct(t, "12", 5), 1)
	payment := capturedPayment(user, "ORDER-1", "20")

	first, err := env.checkout.SettleCaptured(ctx, payment, models.PaymentRailPaypal)
	require.NoError(t, err)
	require.NotNil(t, first.Receipt)
	assert.False(t, first.Replayed)
	assert.Equal(t, models.PaymentResolutionConfirmed, first.Outcome.Status)
	require.NotNil(t, first.Receipt.PaymentReference)
	assert.Equal(t, "ORDER-1", *first.Receipt.PaymentReference)

	second, err := env.checkout.SettleCaptured(ctx, payment, models.PaymentRailPaypal)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	require.NotNil(t, second.Outcome.ReceiptID)
	assert.Equal(t, first.Receipt.ID, *second.Outcome.ReceiptID)
	assert.Equal(t, int64(1), env.count(t, &models.Receipt{}, "user_id = ?", user))
}

func TestSettleCapturedCompensatesAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	env.addToCart(t, user, env.seedProduct(t, "12", 5), 1)

	result, err := env.checkout.SettleCaptured(ctx, capturedPayment(user, "ORDER-2", "15"), models.PaymentRailPaypal)
	require.NoError(t, err)

	assert.Nil(t, result.Receipt)
	assert.Equal(t, models.PaymentResolutionFailed, result.Outcome.Status)
	assert.Equal(t, "15.00", env.balance(t, user).StringFixed(2))
	assert.Equal(t, int64(0), env.count(t, &models.Receipt{}, "user_id = ?", user))
	assert.Equal(t, int64(1), env.count(t, &models.WalletLedgerEntry{}, "user_id = ? AND type = ? AND reference_type = ?",
		user, models.LedgerEntryRefund, "payment_compensation"))

	again, err := env.checkout.SettleCaptured(ctx, capturedPayment(user, "ORDER-2", "15"), models.PaymentRailPaypal)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, "15.00", env.balance(t, user).StringFixed(2))
}

func TestSettleCapturedCompensatesSoldOutStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	product := env.seedProduct(t, "12", 1)
	env.addToCart(t, user, product, 1)
	require.NoError(t, env.db.Model(product).Update("stock", 0).Error)

	result, err := env.checkout.SettleCaptured(ctx, capturedPayment(user, "ORDER-3", "20"), models.PaymentRailPaypal)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentResolutionFailed, result.Outcome.Status)
	require.NotNil(t, result.Outcome.Note)
	assert.Contains(t, *result.Outcome.Note, "refunded to wallet")
	assert.Equal(t, "20.00", env.balance(t, user).StringFixed(2))
}
