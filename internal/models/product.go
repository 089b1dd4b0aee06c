package models

import "github.com/shopspring/decimal"

// Catalog categories served by the storefront's browse pages.
const (
	CategoryMen   = "men's clothing"
	CategoryWomen = "women's clothing"
)

// Product is a catalog entry. Prices are in the catalog's source currency.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Rating      Rating          `json:"rating"`
}

type Rating struct {
	Rate  decimal.Decimal `json:"rate"`
	Count int             `json:"count"`
}

// WishlistItem is a product saved to a shopper's wishlist.
type WishlistItem struct {
	Product
	AddedAt Instant `json:"addedAt"`
}
