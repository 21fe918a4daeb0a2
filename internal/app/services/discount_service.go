package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/shopspring/decimal"
)

const stackingRejection = "This voucher cannot be stacked with another."

// DiscountService decides which vouchers apply to a cart. It never writes.
type DiscountService struct {
	ledger      VoucherLedger
	clock       pkg.Clock
	allowPublic bool
}

func NewDiscountService(ledger VoucherLedger, cfg infrastructures.CheckoutConfig, clock pkg.Clock) *DiscountService {
	return &DiscountService{
		ledger:      ledger,
		clock:       clock,
		allowPublic: cfg.AllowPublicVouchers,
	}
}

type eligibility struct {
	eligible bool
	reason   string
	amount   decimal.Decimal
}

// Subtotal sums the cart lines, rounding every line and the sum to cents.
func Subtotal(lines []models.CartLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = pkg.RoundMoney(subtotal.Add(pkg.LineTotal(line.UnitPrice, line.Quantity)))
	}
	return subtotal
}

// NormalizeCodes upper-cases, trims and de-duplicates codes keeping first-seen order.
func NormalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		next := NormalizeCode(code)
		if next == "" {
			continue
		}
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}
		normalized = append(normalized, next)
	}
	return normalized
}

// Evaluate applies the requested codes and the best auto-apply voucher to the cart.
func (s *DiscountService) Evaluate(ctx context.Context, userID uuid.UUID, lines []models.CartLine, requestedCodes []string) (*models.DiscountResult, error) {
	subtotal := Subtotal(lines)
	codes := NormalizeCodes(requestedCodes)
	result := &models.DiscountResult{
		Subtotal:        subtotal,
		Applied:         []models.AppliedVoucher{},
		Errors:          []string{},
		NormalizedCodes: codes,
	}

	found, err := s.ledger.FindByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	requested := make([]models.Voucher, 0, len(codes))
	requestedIDs := make(map[uint]struct{}, len(codes))
	for _, code := range codes {
		voucher, ok := found[code]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("Code %s not found.", code))
			continue
		}
		requested = append(requested, voucher)
		requestedIDs[voucher.ID] = struct{}{}
	}

	if !stackingAllowed(stackableFlags(requested)) {
		result.Errors = append(result.Errors, stackingRejection)
	} else {
		for i := range requested {
			voucher := &requested[i]
			check, err := s.checkEligibility(ctx, voucher, userID, subtotal)
			if err != nil {
				return nil, err
			}
			if !check.eligible {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", voucher.Code, check.reason))
				continue
			}
			result.Applied = append(result.Applied, appliedFrom(voucher, check.amount, false))
		}
	}

	candidate, err := s.bestAutoApply(ctx, userID, subtotal, requestedIDs)
	if err != nil {
		return nil, err
	}
	if candidate != nil {
		flags := make([]bool, 0, len(result.Applied)+1)
		for _, applied := range result.Applied {
			flags = append(flags, applied.Stackable)
		}
		if stackingAllowed(append(flags, candidate.Stackable)) {
			result.AutoApplied = candidate
		}
	}

	total := decimal.Zero
	for _, applied := range result.AllApplied() {
		total = pkg.RoundMoney(total.Add(applied.Amount))
	}
	result.TotalDiscount = pkg.MinMoney(total, subtotal)
	result.FinalTotal = pkg.RoundMoney(subtotal.Sub(result.TotalDiscount))

	return result, nil
}

func (s *DiscountService) bestAutoApply(ctx context.Context, userID uuid.UUID, subtotal decimal.Decimal, skip map[uint]struct{}) (*models.AppliedVoucher, error) {
	candidates, err := s.ledger.ListAutoApply(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.AppliedVoucher, 0, len(candidates))
	for i := range candidates {
		voucher := &candidates[i]
		if _, ok := skip[voucher.ID]; ok {
			continue
		}
		check, err := s.checkEligibility(ctx, voucher, userID, subtotal)
		if err != nil {
			return nil, err
		}
		if check.eligible {
			eligible = append(eligible, appliedFrom(voucher, check.amount, true))
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return autoApplyBefore(eligible[i], eligible[j])
	})

	return &eligible[0], nil
}

// autoApplyBefore orders by larger amount, then sooner expiry; no expiry sorts last.
func autoApplyBefore(a, b models.AppliedVoucher) bool {
	if !a.Amount.Equal(b.Amount) {
		return a.Amount.GreaterThan(b.Amount)
	}
	switch {
	case a.ExpiresAt == nil:
		return false
	case b.ExpiresAt == nil:
		return true
	default:
		return a.ExpiresAt.Before(*b.ExpiresAt)
	}
}

func (s *DiscountService) checkEligibility(ctx context.Context, voucher *models.Voucher, userID uuid.UUID, subtotal decimal.Decimal) (eligibility, error) {
	if reason := s.staticIneligibility(voucher, userID); reason != "" {
		return eligibility{reason: reason}, nil
	}

	usage, err := s.ledger.UsageCounts(ctx, voucher.ID, userID)
	if err != nil {
		return eligibility{}, err
	}
	if reason := usageIneligibility(voucher, usage); reason != "" {
		return eligibility{reason: reason}, nil
	}

	// Item-scoped vouchers are not supported; the whole subtotal is eligible.
	eligibleSubtotal := subtotal
	if !eligibleSubtotal.IsPositive() {
		return eligibility{reason: "No eligible items for this voucher."}, nil
	}
	if eligibleSubtotal.LessThan(voucher.MinSpend) {
		return eligibility{reason: fmt.Sprintf("Minimum spend %s not met.", pkg.FormatMoney(voucher.MinSpend))}, nil
	}

	amount := DiscountAmount(voucher, eligibleSubtotal)
	if !amount.IsPositive() {
		return eligibility{reason: "Voucher not applicable."}, nil
	}

	return eligibility{eligible: true, amount: amount}, nil
}

func (s *DiscountService) staticIneligibility(voucher *models.Voucher, userID uuid.UUID) string {
	switch {
	case !voucher.IsActive:
		return "Voucher is inactive."
	case voucher.IsTemplate:
		return "Voucher template cannot be redeemed directly."
	case voucher.UserID != nil && *voucher.UserID != userID:
		return "Voucher is not assigned to your account."
	case voucher.UserID == nil && !s.allowPublic:
		return "Voucher is not available for your account."
	case !voucher.WithinWindow(s.clock()):
		return "Voucher is expired or not active yet."
	}
	return ""
}

func usageIneligibility(voucher *models.Voucher, usage models.UsageCounts) string {
	if voucher.TotalUsageLimit != nil && usage.Total >= int64(*voucher.TotalUsageLimit) {
		return "Voucher usage limit reached."
	}
	if voucher.PerUserLimit != nil && usage.User >= int64(*voucher.PerUserLimit) {
		return "You have reached the usage limit for this voucher."
	}
	return ""
}

// DiscountAmount computes the reduction a voucher grants on eligibleSubtotal.
func DiscountAmount(voucher *models.Voucher, eligibleSubtotal decimal.Decimal) decimal.Decimal {
	if !eligibleSubtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	if voucher.DiscountType == models.DiscountTypeFixed {
		amount = pkg.MinMoney(voucher.DiscountValue, eligibleSubtotal)
	} else {
		percent := decimal.Max(decimal.Zero, voucher.DiscountValue)
		amount = pkg.Percent(eligibleSubtotal, percent)
		if voucher.MaxDiscount != nil {
			amount = pkg.MinMoney(amount, *voucher.MaxDiscount)
		}
	}

	return pkg.RoundMoney(decimal.Max(decimal.Zero, amount))
}

// Attribute splits the capped total discount across the applied vouchers in order,
// so the recorded per-voucher amounts sum to exactly TotalDiscount.
func Attribute(result *models.DiscountResult) []models.AppliedVoucher {
	all := result.AllApplied()
	remaining := result.TotalDiscount
	for i := range all {
		amount := pkg.MinMoney(all[i].Amount, remaining)
		all[i].Amount = amount
		remaining = pkg.RoundMoney(remaining.Sub(amount))
	}
	return all
}

func stackableFlags(vouchers []models.Voucher) []bool {
	flags := make([]bool, 0, len(vouchers))
	for _, voucher := range vouchers {
		flags = append(flags, voucher.Stackable)
	}
	return flags
}

// stackingAllowed rejects any combination of two or more vouchers containing a non-stackable one.
func stackingAllowed(stackable []bool) bool {
	if len(stackable) <= 1 {
		return true
	}
	for _, ok := range stackable {
		if !ok {
			return false
		}
	}
	return true
}

func appliedFrom(voucher *models.Voucher, amount decimal.Decimal, auto bool) models.AppliedVoucher {
	return models.AppliedVoucher{
		VoucherID:   voucher.ID,
		Code:        voucher.Code,
		Type:        voucher.DiscountType,
		Stackable:   voucher.Stackable,
		AutoApply:   auto || voucher.AutoApply,
		Amount:      amount,
		Description: voucher.Description,
		ExpiresAt:   voucher.ExpiresAt,
	}
}
