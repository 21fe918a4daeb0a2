package infrastructures

import (
	"net/http"
	"testing"

	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type priceRequest struct {
	Name  string          `json:"name" validate:"required,max=5"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
	Stock int             `json:"stock" validate:"min=0"`
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()

	cases := []struct {
		req  priceRequest
		want string
	}{
		{priceRequest{Price: decimal.NewFromInt(1)}, "name is required"},
		{priceRequest{Name: "toolong", Price: decimal.NewFromInt(1)}, "name must be at most 5 characters"},
		{priceRequest{Name: "tea", Price: decimal.Zero}, "price must be greater than 0"},
		{priceRequest{Name: "tea", Price: decimal.RequireFromString("-2.5")}, "price must be greater than 0"},
		{priceRequest{Name: "tea", Price: decimal.NewFromInt(1), Stock: -1}, "stock must be at least 0"},
	}
	for _, tc := range cases {
		err := v.Validate(&tc.req)
		assert.Equal(t, tc.want, err.Error())
		assert.Equal(t, http.StatusBadRequest, errors.StatusOf(err), tc.want)
	}

	assert.NoError(t, v.Validate(&priceRequest{Name: "tea", Price: decimal.RequireFromString("0.01")}))
	assert.Equal(t, "Invalid request body", v.Validate(nil).Error())
}
