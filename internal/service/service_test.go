package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

type staticCatalog struct {
	products []models.Product
}

func (c *staticCatalog) FetchProducts(ctx context.Context) ([]models.Product, error) {
	return c.products, nil
}

var ist = time.FixedZone("IST", 5*3600+1800)

func testPricing() config.PricingConfig {
	return config.PricingConfig{
		ConversionRate:        decimal.NewFromInt(80),
		DiscountFlat:          decimal.NewFromInt(100),
		FreeShippingThreshold: decimal.NewFromInt(2000),
		FlatShippingFee:       decimal.NewFromInt(79),
		CouponCode:            "SAVE10",
		CouponAmount:          decimal.NewFromInt(10),
		DeliveryDays:          2,
	}
}

type fixture struct {
	store     *repository.MemoryStore
	carts     *repository.CartRepository
	wishlists *repository.WishlistRepository
	orders    *repository.OrderRepository
	profiles  *repository.ProfileRepository
	publisher *events.MockEventPublisher

	cart     *CartService
	order    *OrderService
	wishlist *WishlistService
	profile  *ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	f := &fixture{
		store:     store,
		carts:     repository.NewCartRepository(store),
		wishlists: repository.NewWishlistRepository(store),
		orders:    repository.NewOrderRepository(store),
		profiles:  repository.NewProfileRepository(store),
		publisher: events.NewMockEventPublisher(),
	}
	m := metrics.New()
	products := catalog.NewService(&staticCatalog{products: []models.Product{
		{ID: 1, Title: "Backpack", Price: decimal.NewFromInt(10), Category: models.CategoryMen, Image: "bag.jpg"},
		{ID: 2, Title: "Jacket", Price: decimal.RequireFromString("55.99"), Category: models.CategoryMen},
		{ID: 3, Title: "Top", Price: decimal.RequireFromString("7.95"), Category: models.CategoryWomen},
	}}, f.carts, f.wishlists, nil, time.Minute, m)

	f.cart = NewCartService(f.carts, f.wishlists, f.orders, products, f.publisher, m, testPricing(), ist)
	f.order = NewOrderService(f.orders, f.publisher, m, ist)
	f.wishlist = NewWishlistService(f.wishlists, products)
	f.profile = NewProfileService(f.profiles)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
