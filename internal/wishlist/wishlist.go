// Package wishlist holds the read-side cleanup applied to stored wishlists.
package wishlist

import "github.com/tm-acme-shop/acme-shop-storefront/internal/models"

// Dedupe drops repeated product ids, keeping the first occurrence and the
// original order. Concurrent writers can leave more than one document for
// the same product.
func Dedupe(items []models.WishlistItem) []models.WishlistItem {
	seen := make(map[int64]struct{}, len(items))
	out := make([]models.WishlistItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Contains reports whether productID is among items.
func Contains(items []models.WishlistItem, productID int64) bool {
	for _, item := range items {
		if item.ID == productID {
			return true
		}
	}
	return false
}
