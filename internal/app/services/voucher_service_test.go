package services

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) template(t *testing.T, req models.VoucherTemplateCreateRequest) *models.Voucher {
	t.Helper()
	if req.DiscountType == "" {
		req.DiscountType = models.DiscountTypeFixed
	}
	if req.DiscountValue.IsZero() {
		req.DiscountValue = money("5")
	}
	template, err := e.voucher.CreateTemplate(&req, nil)
	require.NoError(t, err)
	return template
}

func templateID(v *models.Voucher) string {
	return strconv.FormatUint(uint64(v.ID), 10)
}

func TestCreateTemplateNormalizesAndValidates(t *testing.T) {
	env := newTestEnv(t)

	template := env.template(t, models.VoucherTemplateCreateRequest{Code: " spring5 ", DiscountValue: money("5.555")})
	assert.Equal(t, "SPRING5", template.Code)
	assert.True(t, template.IsTemplate)
	assert.True(t, template.IsActive)
	assert.Equal(t, "5.56", template.DiscountValue.StringFixed(2))

	generated := env.template(t, models.VoucherTemplateCreateRequest{})
	assert.True(t, strings.HasPrefix(generated.Code, templateCodePrefix+"-"))

	_, err := env.voucher.CreateTemplate(&models.VoucherTemplateCreateRequest{
		Code: "spring5", DiscountType: models.DiscountTypeFixed, DiscountValue: money("1"),
	}, nil)
	assert.Equal(t, "Voucher code already exists", err.Error())

	_, err = env.voucher.CreateTemplate(&models.VoucherTemplateCreateRequest{
		DiscountType: models.DiscountTypePercentage, DiscountValue: money("120"),
	}, nil)
	assert.Equal(t, "Percentage discount cannot exceed 100", err.Error())

	_, err = env.voucher.CreateTemplate(&models.VoucherTemplateCreateRequest{
		DiscountType: models.DiscountTypeFixed, DiscountValue: money("0"),
	}, nil)
	assert.Equal(t, 400, errors.StatusOf(err))
}

func TestCreateInactiveTemplate(t *testing.T) {
	env := newTestEnv(t)
	inactive := false

	template := env.template(t, models.VoucherTemplateCreateRequest{IsActive: &inactive})

	assert.False(t, template.IsActive)
	assert.Equal(t, int64(1), env.count(t, &models.Voucher{}, "id = ? AND is_active = ?", template.ID, false))
}

func TestIssueFromTemplateCopiesTermsAsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	maxDiscount := money("12")
	template := env.template(t, models.VoucherTemplateCreateRequest{
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: money("20"),
		MaxDiscount:   &maxDiscount,
		MinSpend:      money("30"),
		Stackable:     true,
	})

	instance, err := env.voucher.IssueFromTemplateTx(env.db, template, user, loyaltyCodePrefix)
	require.NoError(t, err)

	assert.False(t, instance.IsTemplate)
	assert.True(t, strings.HasPrefix(instance.Code, "VCH-"))
	require.NotNil(t, instance.TemplateID)
	assert.Equal(t, template.ID, *instance.TemplateID)
	assert.Equal(t, user, *instance.UserID)
	assert.Equal(t, 1, *instance.TotalUsageLimit)
	assert.Equal(t, 1, *instance.PerUserLimit)
	assert.Equal(t, "30.00", instance.MinSpend.StringFixed(2))
	assert.True(t, instance.Stackable)

	issued, err := env.voucher.HasIssuedTx(env.db, template.ID, user)
	require.NoError(t, err)
	assert.True(t, issued)

	_, err = env.voucher.IssueFromTemplateTx(env.db, instance, user, loyaltyCodePrefix)
	assert.Equal(t, 400, errors.StatusOf(err))
}

func TestDeactivatingTemplateDeactivatesInstances(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	template := env.template(t, models.VoucherTemplateCreateRequest{})
	instance, err := env.voucher.IssueFromTemplateTx(env.db, template, user, couponCodePrefix)
	require.NoError(t, err)

	toggled, err := env.voucher.SetTemplateActive(templateID(template), false, nil)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.Equal(t, int64(1), env.count(t, &models.Voucher{}, "id = ? AND is_active = ?", instance.ID, false))

	mine, err := env.voucher.ListUserVouchers(user)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = env.voucher.GetTemplateTx(env.db, template.ID)
	assert.Equal(t, "Voucher template is inactive", err.Error())

	_, err = env.voucher.SetTemplateActive(strconv.FormatUint(uint64(instance.ID), 10), true, nil)
	assert.Equal(t, "Only templates can be toggled", err.Error())
}

func TestUpdateTemplateRejectsIssuedVouchers(t *testing.T) {
	env := newTestEnv(t)
	template := env.template(t, models.VoucherTemplateCreateRequest{})
	instance, err := env.voucher.IssueFromTemplateTx(env.db, template, uuid.New(), couponCodePrefix)
	require.NoError(t, err)

	value := money("9")
	updated, err := env.voucher.UpdateTemplate(templateID(template), &models.VoucherTemplateUpdateRequest{DiscountValue: &value}, nil)
	require.NoError(t, err)
	assert.Equal(t, "9.00", updated.DiscountValue.StringFixed(2))

	_, err = env.voucher.UpdateTemplate(strconv.FormatUint(uint64(instance.ID), 10), &models.VoucherTemplateUpdateRequest{DiscountValue: &value}, nil)
	assert.Equal(t, "Issued vouchers cannot be edited", err.Error())
}
