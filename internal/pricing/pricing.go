// Package pricing computes cart totals in display currency.
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// Rules are the storefront's pricing constants. Catalog prices are multiplied
// by ConversionRate; every other amount is already in display currency.
type Rules struct {
	ConversionRate        decimal.Decimal
	DiscountFlat          decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// DefaultRules returns the rates the storefront launched with.
func DefaultRules() Rules {
	return Rules{
		ConversionRate:        decimal.RequireFromString("83.36"),
		DiscountFlat:          decimal.NewFromInt(100),
		FreeShippingThreshold: decimal.NewFromInt(2000),
		FlatShippingFee:       decimal.NewFromInt(79),
	}
}

// Totals is the price breakdown of a cart. Amounts are unrounded.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	AfterDiscount  decimal.Decimal `json:"afterDiscount"`
	ShippingFee    decimal.Decimal `json:"shippingFee"`
	Total          decimal.Decimal `json:"total"`
}

// ConvertPrice converts a catalog price into display currency.
func ConvertPrice(price decimal.Decimal, rules Rules) decimal.Decimal {
	return price.Mul(rules.ConversionRate)
}

// Subtotal sums price * quantity * conversion rate over the line items.
func Subtotal(items []models.CartLineItem, rules Rules) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(ConvertPrice(line, rules))
	}
	return sum
}

// ComputeTotals prices a cart. An empty cart costs nothing: no discount and
// no shipping are applied to it.
func ComputeTotals(items []models.CartLineItem, coupon *models.Coupon, rules Rules) Totals {
	if len(items) == 0 {
		return Totals{
			Subtotal:       decimal.Zero,
			Discount:       decimal.Zero,
			CouponDiscount: decimal.Zero,
			AfterDiscount:  decimal.Zero,
			ShippingFee:    decimal.Zero,
			Total:          decimal.Zero,
		}
	}

	t := Totals{
		Subtotal:       Subtotal(items, rules),
		Discount:       rules.DiscountFlat,
		CouponDiscount: decimal.Zero,
	}
	if coupon != nil {
		t.CouponDiscount = coupon.DiscountAmount
	}

	t.AfterDiscount = t.Subtotal.Sub(t.Discount).Sub(t.CouponDiscount)

	if t.AfterDiscount.GreaterThanOrEqual(rules.FreeShippingThreshold) {
		t.ShippingFee = decimal.Zero
	} else {
		t.ShippingFee = rules.FlatShippingFee
	}

	t.Total = decimal.Max(decimal.Zero, t.AfterDiscount.Add(t.ShippingFee))
	return t
}
