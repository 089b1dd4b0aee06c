package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// ErrInvalidCoupon is returned for any code the validator does not accept.
var ErrInvalidCoupon = errors.NewValidationError("code", "Invalid coupon code.")

// CouponValidator accepts exactly one code, compared case-insensitively.
type CouponValidator struct {
	code   string
	amount decimal.Decimal
}

// NewCouponValidator creates a validator for code. amount is in catalog
// currency and is converted with the rules' conversion rate.
func NewCouponValidator(code string, amount decimal.Decimal, rules Rules) *CouponValidator {
	return &CouponValidator{
		code:   strings.ToUpper(strings.TrimSpace(code)),
		amount: ConvertPrice(amount, rules),
	}
}

// Validate returns the coupon for input, or ErrInvalidCoupon. The coupon
// keeps the code as the shopper typed it.
func (v *CouponValidator) Validate(input string) (*models.Coupon, error) {
	input = strings.TrimSpace(input)
	if v.code == "" || !strings.EqualFold(input, v.code) {
		return nil, ErrInvalidCoupon
	}
	return &models.Coupon{
		Code:           input,
		DiscountAmount: v.amount,
	}, nil
}
