package service

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/wishlist"
)

// WishlistService manages saved products.
type WishlistService struct {
	wishlists *repository.WishlistRepository
	catalog   *catalog.Service
	logger    *logging.LoggerV2
	now       func() time.Time
}

func NewWishlistService(wishlists *repository.WishlistRepository, products *catalog.Service) *WishlistService {
	return &WishlistService{
		wishlists: wishlists,
		catalog:   products,
		logger:    logging.NewLoggerV2("wishlist-service"),
		now:       time.Now,
	}
}

// List returns the wishlist with repeated products removed.
func (s *WishlistService) List(ctx context.Context, uid string) ([]models.WishlistItem, error) {
	items, err := s.wishlists.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	deduped := wishlist.Dedupe(items)
	if len(deduped) != len(items) {
		s.logger.Debug("Dropped duplicate wishlist entries", logging.Fields{
			"user_id": uid,
			"dropped": len(items) - len(deduped),
		})
	}
	return deduped, nil
}

// Add saves a catalog product. Saving a product twice overwrites the first
// entry.
func (s *WishlistService) Add(ctx context.Context, uid string, productID int64) ([]models.WishlistItem, error) {
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	item := models.WishlistItem{Product: *product, AddedAt: models.At(s.now())}
	if err := s.wishlists.Save(ctx, uid, item); err != nil {
		return nil, err
	}
	return s.List(ctx, uid)
}

// Remove deletes a product from the wishlist. Removing an absent product is
// a no-op.
func (s *WishlistService) Remove(ctx context.Context, uid string, productID int64) ([]models.WishlistItem, error) {
	err := s.wishlists.Delete(ctx, uid, productID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	return s.List(ctx, uid)
}

// Contains reports whether the product is on the shopper's wishlist.
func (s *WishlistService) Contains(ctx context.Context, uid string, productID int64) (bool, error) {
	items, err := s.wishlists.List(ctx, uid)
	if err != nil {
		return false, err
	}
	return wishlist.Contains(items, productID), nil
}
