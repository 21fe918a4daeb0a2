package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppliedVoucher is one voucher granted on a cart evaluation.
type AppliedVoucher struct {
	VoucherID   uint            `json:"voucher_id"`
	Code        string          `json:"code"`
	Type        DiscountType    `json:"discount_type"`
	Stackable   bool            `json:"stackable"`
	AutoApply   bool            `json:"auto_apply"`
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

type DiscountResult struct {
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Applied         []AppliedVoucher `json:"applied"`
	AutoApplied     *AppliedVoucher  `json:"auto_applied,omitempty"`
	TotalDiscount   decimal.Decimal  `json:"total_discount"`
	FinalTotal      decimal.Decimal  `json:"final_total"`
	Errors          []string         `json:"errors"`
	NormalizedCodes []string         `json:"codes"`
}

// AllApplied returns the requested vouchers followed by the auto-applied one.
func (r *DiscountResult) AllApplied() []AppliedVoucher {
	all := make([]AppliedVoucher, 0, len(r.Applied)+1)
	all = append(all, r.Applied...)
	if r.AutoApplied != nil {
		all = append(all, *r.AutoApplied)
	}
	return all
}

type CheckoutTotals struct {
	ItemsTotal            decimal.Decimal `json:"items_total"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	FinalTotal            decimal.Decimal `json:"final_total"`
	FreeDeliveryReason    *string         `json:"free_delivery_reason,omitempty"`
	NewSubscriberWaiver   bool            `json:"new_subscriber_waiver"`
	Subscribed            bool            `json:"subscribed"`
	BaseDeliveryFee       decimal.Decimal `json:"base_delivery_fee"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold"`
}

// CheckoutQuote is a full pricing snapshot of the user's cart.
type CheckoutQuote struct {
	Lines    []CartLine      `json:"lines"`
	Discount *DiscountResult `json:"discount"`
	Totals   *CheckoutTotals `json:"totals"`
}

type CheckoutRequest struct {
	Codes []string `json:"codes" validate:"omitempty,max=10,dive,max=50"`
}
