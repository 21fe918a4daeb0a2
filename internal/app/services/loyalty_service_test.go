package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsArithmetic(t *testing.T) {
	cases := []struct {
		value      string
		pointValue string
		want       int64
	}{
		{"5", "0.01", 500},
		{"0.015", "0.01", 2},
		{"0", "0.01", 1},
		{"3", "0", 300},
		{"10", "0.03", 334},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PointsCost(money(tc.value), money(tc.pointValue)), "%s at %s", tc.value, tc.pointValue)
	}

	assert.Equal(t, int64(51), PointsForPurchase(money("51.99")))
	assert.Zero(t, PointsForPurchase(money("-3")))
}

func TestRedeemTemplateSpendsPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	template := env.template(t, models.VoucherTemplateCreateRequest{DiscountValue: money("2")})

	_, err := env.loyalty.RedeemTemplate(ctx, user, templateID(template))
	assert.True(t, errors.IsCode(err, errors.CodeInsufficientPoints))
	assert.Equal(t, int64(0), env.count(t, &models.Voucher{}, "template_id = ?", template.ID), "a failed redemption issues nothing")

	receiptID := uuid.New()
	_, err = env.loyalty.CreditTx(env.db, user, 250, &receiptID, "Purchase")
	require.NoError(t, err)

	result, err := env.loyalty.RedeemTemplate(ctx, user, templateID(template))
	require.NoError(t, err)
	assert.Equal(t, int64(200), result.PointsCost)
	assert.Equal(t, int64(50), result.PointsAfter)
	assert.Equal(t, user, *result.Voucher.UserID)

	account, err := env.loyalty.GetBalance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(50), account.Points)
	assert.Equal(t, int64(250), account.LifetimeEarned)
	assert.Equal(t, int64(2), env.count(t, &models.LoyaltyLedgerEntry{}, "user_id = ?", user))
}

func TestRedeemTemplateFixedAmountOnly(t *testing.T) {
	env := newTestEnv(t)
	template := env.template(t, models.VoucherTemplateCreateRequest{
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: money("10"),
	})

	_, err := env.loyalty.RedeemTemplate(context.Background(), uuid.New(), templateID(template))

	assert.Equal(t, "Only fixed-amount vouchers can be redeemed.", err.Error())
}

func TestCreditIgnoresNonPositivePoints(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()

	after, err := env.loyalty.CreditTx(env.db, user, 0, nil, "nothing")
	require.NoError(t, err)
	assert.Zero(t, after)

	account, err := env.loyalty.GetBalance(context.Background(), user)
	require.NoError(t, err)
	assert.Zero(t, account.Points)
}
