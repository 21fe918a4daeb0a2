package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubscriptions map[uuid.UUID]models.SubscriptionStatus

func (s stubSubscriptions) Status(ctx context.Context, userID uuid.UUID) (models.SubscriptionStatus, error) {
	return s[userID], nil
}

func pricingConfig() infrastructures.CheckoutConfig {
	return infrastructures.CheckoutConfig{
		DeliveryFee:           money("8"),
		FreeDeliveryThreshold: money("150"),
	}
}

func discounted(finalTotal string) *models.DiscountResult {
	return &models.DiscountResult{Subtotal: money(finalTotal), FinalTotal: money(finalTotal)}
}

func TestComputeTotalsChargesBaseFeeWithoutSubscription(t *testing.T) {
	pricing := NewPricingService(stubSubscriptions{}, pricingConfig())

	totals, err := pricing.ComputeTotals(context.Background(), uuid.New(), discounted("200"))
	require.NoError(t, err)

	assert.Equal(t, "8.00", totals.DeliveryFee.StringFixed(2))
	assert.Equal(t, "208.00", totals.FinalTotal.StringFixed(2))
	assert.Nil(t, totals.FreeDeliveryReason)
	assert.False(t, totals.Subscribed)
}

func TestComputeTotalsFirstDeliveryThenBaseFee(t *testing.T) {
	user := uuid.New()
	subscriptions := stubSubscriptions{user: {Active: true}}
	pricing := NewPricingService(subscriptions, pricingConfig())

	first, err := pricing.ComputeTotals(context.Background(), user, discounted("50"))
	require.NoError(t, err)
	assert.True(t, first.DeliveryFee.IsZero())
	assert.Equal(t, "50.00", first.FinalTotal.StringFixed(2))
	assert.True(t, first.NewSubscriberWaiver)
	require.NotNil(t, first.FreeDeliveryReason)
	assert.Equal(t, "New subscriber free delivery", *first.FreeDeliveryReason)

	subscriptions[user] = models.SubscriptionStatus{Active: true, FirstDeliveryUsed: true}

	second, err := pricing.ComputeTotals(context.Background(), user, discounted("50"))
	require.NoError(t, err)
	assert.Equal(t, "8.00", second.DeliveryFee.StringFixed(2))
	assert.Equal(t, "58.00", second.FinalTotal.StringFixed(2))
	assert.False(t, second.NewSubscriberWaiver)
}

func TestComputeTotalsThresholdUsesDiscountedTotal(t *testing.T) {
	user := uuid.New()
	pricing := NewPricingService(stubSubscriptions{user: {Active: true, FirstDeliveryUsed: true}}, pricingConfig())

	atThreshold, err := pricing.ComputeTotals(context.Background(), user, discounted("150"))
	require.NoError(t, err)
	assert.True(t, atThreshold.DeliveryFee.IsZero())
	require.NotNil(t, atThreshold.FreeDeliveryReason)
	assert.Equal(t, "Free delivery for orders $150.00+ after discounts", *atThreshold.FreeDeliveryReason)

	below, err := pricing.ComputeTotals(context.Background(), user, &models.DiscountResult{
		Subtotal:   money("160"),
		FinalTotal: money("149.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, "8.00", below.DeliveryFee.StringFixed(2))
	assert.Equal(t, "157.99", below.FinalTotal.StringFixed(2))
}
