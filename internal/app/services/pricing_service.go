package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/shopspring/decimal"
)

const newSubscriberReason = "New subscriber free delivery"

// SubscriptionLookup reports the subscription benefits of a user.
type SubscriptionLookup interface {
	Status(ctx context.Context, userID uuid.UUID) (models.SubscriptionStatus, error)
}

type PricingService struct {
	subscriptions SubscriptionLookup
	cfg           infrastructures.CheckoutConfig
}

func NewPricingService(subscriptions SubscriptionLookup, cfg infrastructures.CheckoutConfig) *PricingService {
	return &PricingService{
		subscriptions: subscriptions,
		cfg:           cfg,
	}
}

// ComputeTotals adds the delivery fee, waived for subscribers on their first delivery
// or when the discounted items total reaches the free-delivery threshold.
func (s *PricingService) ComputeTotals(ctx context.Context, userID uuid.UUID, discount *models.DiscountResult) (*models.CheckoutTotals, error) {
	subscription, err := s.subscriptions.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	baseFee := pkg.RoundMoney(s.cfg.DeliveryFee)
	threshold := pkg.RoundMoney(s.cfg.FreeDeliveryThreshold)
	totals := &models.CheckoutTotals{
		ItemsTotal:            pkg.RoundMoney(discount.FinalTotal),
		DeliveryFee:           baseFee,
		Subscribed:            subscription.Active,
		BaseDeliveryFee:       baseFee,
		FreeDeliveryThreshold: threshold,
	}

	if subscription.Active {
		if !subscription.FirstDeliveryUsed {
			reason := newSubscriberReason
			totals.DeliveryFee = decimal.Zero
			totals.FreeDeliveryReason = &reason
			totals.NewSubscriberWaiver = true
		} else if totals.ItemsTotal.GreaterThanOrEqual(threshold) {
			reason := fmt.Sprintf("Free delivery for orders %s+ after discounts", pkg.FormatMoney(threshold))
			totals.DeliveryFee = decimal.Zero
			totals.FreeDeliveryReason = &reason
		}
	}

	totals.FinalTotal = pkg.RoundMoney(totals.ItemsTotal.Add(totals.DeliveryFee))
	return totals, nil
}
