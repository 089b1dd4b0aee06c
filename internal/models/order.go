package models

import "github.com/shopspring/decimal"

const PaymentMethodCOD = "COD"

// DeliveryDateLayout formats estimated delivery dates, e.g. "March 04, 2025".
const DeliveryDateLayout = "January 02, 2006"

// Order is an immutable record of a placed cart.
type Order struct {
	ID                string          `json:"id"`
	Items             []OrderItem     `json:"items"`
	Total             decimal.Decimal `json:"total"`
	FinalTotal        decimal.Decimal `json:"finalTotal"`
	Discount          decimal.Decimal `json:"discount"`
	ShippingFee       decimal.Decimal `json:"shippingFee"`
	AppliedCoupon     string          `json:"appliedCoupon,omitempty"`
	Address           string          `json:"address"`
	PaymentMethod     string          `json:"paymentMethod"`
	EstimatedDelivery string          `json:"estimatedDelivery,omitempty"`
	CreatedAt         Instant         `json:"createdAt"`
}

// OrderItem is a snapshot of a cart line taken at checkout. Price is already
// converted to display currency.
type OrderItem struct {
	ID       int64           `json:"id"`
	Image    string          `json:"image"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
