package models

import "github.com/shopspring/decimal"

// CartLineItem is a product held in a cart. Quantity is always at least 1.
type CartLineItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Coupon is an applied discount code. DiscountAmount is in display currency.
type Coupon struct {
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount"`
}

// Cart is the single cart document of a user.
type Cart struct {
	Items         []CartLineItem `json:"items"`
	AppliedCoupon *Coupon        `json:"appliedCoupon,omitempty"`
}

// Find returns the index of the line item for productID, or -1.
func (c *Cart) Find(productID int64) int {
	for i := range c.Items {
		if c.Items[i].ID == productID {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart holds no line items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
