package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/history"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/pricing"
)

// OrderDateLayout is how order timestamps are shown to shoppers.
const OrderDateLayout = "02 Jan 2006, 03:04 PM"

// CartLine is a cart line item with display-currency prices.
type CartLine struct {
	models.CartLineItem
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	LineTotal          decimal.Decimal `json:"lineTotal"`
	FormattedUnitPrice string          `json:"formattedUnitPrice"`
	FormattedLineTotal string          `json:"formattedLineTotal"`
	InWishlist         bool            `json:"inWishlist"`
}

// PriceDetails is the formatted price breakdown shown beside the cart.
type PriceDetails struct {
	ItemCount        int    `json:"itemCount"`
	TotalMRP         string `json:"totalMrp"`
	Discount         string `json:"discount"`
	CouponDiscount   string `json:"couponDiscount,omitempty"`
	PlatformFee      string `json:"platformFee"`
	ShippingFee      string `json:"shippingFee"`
	FreeShippingHint string `json:"freeShippingHint,omitempty"`
	Total            string `json:"total"`
}

// CartView is a cart as the shopper sees it.
type CartView struct {
	Items         []CartLine     `json:"items"`
	AppliedCoupon *models.Coupon `json:"appliedCoupon,omitempty"`
	Totals        pricing.Totals `json:"totals"`
	PriceDetails  PriceDetails   `json:"priceDetails"`
}

func newCartView(cart *models.Cart, wishlist []models.WishlistItem, rules pricing.Rules, threshold decimal.Decimal) *CartView {
	inWishlist := make(map[int64]bool, len(wishlist))
	for _, item := range wishlist {
		inWishlist[item.ID] = true
	}

	lines := make([]CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		unit := pricing.ConvertPrice(item.Price, rules)
		total := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, CartLine{
			CartLineItem:       item,
			UnitPrice:          unit,
			LineTotal:          total,
			FormattedUnitPrice: pricing.FormatPrice(unit),
			FormattedLineTotal: pricing.FormatPrice(total),
			InWishlist:         inWishlist[item.ID],
		})
	}

	totals := pricing.ComputeTotals(cart.Items, cart.AppliedCoupon, rules)

	details := PriceDetails{
		ItemCount:   len(cart.Items),
		TotalMRP:    pricing.FormatPrice(totals.Subtotal),
		Discount:    pricing.FormatPrice(totals.Discount.Neg()),
		PlatformFee: "FREE",
		ShippingFee: pricing.FormatPrice(totals.ShippingFee),
		Total:       pricing.FormatPrice(totals.Total),
	}
	if cart.AppliedCoupon != nil {
		details.CouponDiscount = pricing.FormatPrice(totals.CouponDiscount.Neg())
	}
	if !cart.IsEmpty() && totals.Total.LessThan(threshold) {
		details.FreeShippingHint = "Free shipping on orders above " + pricing.FormatPrice(threshold)
	}

	return &CartView{
		Items:         lines,
		AppliedCoupon: cart.AppliedCoupon,
		Totals:        totals,
		PriceDetails:  details,
	}
}

// OrderView is an order with display strings resolved in the store's time
// zone.
type OrderView struct {
	*models.Order
	PlacedOn       string `json:"placedOn"`
	FormattedTotal string `json:"formattedTotal"`
}

func newOrderView(o *models.Order, loc *time.Location) *OrderView {
	return &OrderView{
		Order:          o,
		PlacedOn:       o.CreatedAt.Format(OrderDateLayout, loc),
		FormattedTotal: pricing.FormatPrice(o.Total),
	}
}

// OrderGroup is one day bucket of the order history.
type OrderGroup struct {
	Label  string       `json:"label"`
	Orders []*OrderView `json:"orders"`
}

func newOrderGroups(groups []history.Group, loc *time.Location) []OrderGroup {
	out := make([]OrderGroup, 0, len(groups))
	for _, g := range groups {
		views := make([]*OrderView, 0, len(g.Orders))
		for _, o := range g.Orders {
			views = append(views, newOrderView(o, loc))
		}
		out = append(out, OrderGroup{Label: g.Label, Orders: views})
	}
	return out
}
