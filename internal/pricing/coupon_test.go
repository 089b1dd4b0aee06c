package pricing

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func TestCouponValidator_Validate(t *testing.T) {
	v := NewCouponValidator("SAVE10", decimal.NewFromInt(10), DefaultRules())

	tests := []struct {
		input string
		valid bool
	}{
		{"SAVE10", true},
		{"save10", true},
		{"SaVe10", true},
		{" save10 ", true},
		{"SAVE1", false},
		{"SAVE100", false},
		{"SAVE", false},
		{"", false},
		{"10SAVE", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			coupon, err := v.Validate(tt.input)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidCoupon)
				assert.True(t, errors.IsValidation(err))
				assert.Nil(t, coupon)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.input), coupon.Code)
			assert.True(t, coupon.DiscountAmount.Equal(decimal.RequireFromString("833.6")))
		})
	}
}

func TestCouponValidator_FixedDiscount(t *testing.T) {
	rules := DefaultRules()
	v := NewCouponValidator("SAVE10", decimal.NewFromInt(10), rules)
	items := []models.CartLineItem{line("50", 1), line("12.5", 2)}

	base := ComputeTotals(items, nil, rules)

	for _, code := range []string{"save10", "SAVE10"} {
		coupon, err := v.Validate(code)
		require.NoError(t, err)

		withCoupon := ComputeTotals(items, coupon, rules)
		assert.True(t, base.AfterDiscount.Sub(withCoupon.AfterDiscount).Equal(coupon.DiscountAmount))
	}

	coupon, err := v.Validate("FREESTUFF")
	require.Error(t, err)
	assert.Equal(t, base, ComputeTotals(items, coupon, rules))
}
