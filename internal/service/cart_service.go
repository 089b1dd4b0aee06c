package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

var (
	ErrAlreadyInCart = errors.Wrap(errors.ErrConflict, "Product is already in the cart.")
	ErrNotInCart     = errors.Wrap(errors.ErrNotFound, "Product is not in the cart.")
	ErrEmptyCart     = errors.NewValidationError("items", "Your cart is empty.")
)

// PricingRules builds pricing rules from configuration.
func PricingRules(cfg config.PricingConfig) pricing.Rules {
	return pricing.Rules{
		ConversionRate:        cfg.ConversionRate,
		DiscountFlat:          cfg.DiscountFlat,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
	}
}

// CartService handles the signed-in shopper's cart and checkout.
//
// Every mutation reads the whole cart document, changes it and writes it
// back. Two concurrent writers for the same user race and the last write
// wins.
type CartService struct {
	carts     *repository.CartRepository
	wishlists *repository.WishlistRepository
	orders    *repository.OrderRepository
	catalog   *catalog.Service
	coupons   *pricing.CouponValidator
	publisher events.Publisher
	metrics   *metrics.Metrics
	rules     pricing.Rules
	cfg       config.PricingConfig
	loc       *time.Location
	logger    *logging.LoggerV2
	now       func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	carts *repository.CartRepository,
	wishlists *repository.WishlistRepository,
	orders *repository.OrderRepository,
	products *catalog.Service,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg config.PricingConfig,
	loc *time.Location,
) *CartService {
	rules := PricingRules(cfg)
	if loc == nil {
		loc = time.Local
	}
	return &CartService{
		carts:     carts,
		wishlists: wishlists,
		orders:    orders,
		catalog:   products,
		coupons:   pricing.NewCouponValidator(cfg.CouponCode, cfg.CouponAmount, rules),
		publisher: publisher,
		metrics:   m,
		rules:     rules,
		cfg:       cfg,
		loc:       loc,
		logger:    logging.NewLoggerV2("cart-service"),
		now:       time.Now,
	}
}

// Get returns the priced cart.
func (s *CartService) Get(ctx context.Context, uid string) (*CartView, error) {
	var (
		cart     *models.Cart
		wishlist []models.WishlistItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cart, err = s.carts.Get(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		wishlist, err = s.wishlists.List(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newCartView(cart, wishlist, s.rules, s.cfg.FreeShippingThreshold), nil
}

// Add puts one unit of a catalog product in the cart. Adding a product that
// is already there changes nothing and returns ErrAlreadyInCart.
func (s *CartService) Add(ctx context.Context, uid string, productID int64) (*CartView, error) {
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if cart.Find(productID) >= 0 {
		return nil, ErrAlreadyInCart
	}

	cart.Items = append(cart.Items, models.CartLineItem{Product: *product, Quantity: 1})
	return s.save(ctx, uid, cart, "add")
}

// Remove drops a product from the cart. Removing an absent product is a
// no-op.
func (s *CartService) Remove(ctx context.Context, uid string, productID int64) (*CartView, error) {
	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	i := cart.Find(productID)
	if i < 0 {
		return s.Get(ctx, uid)
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	return s.save(ctx, uid, cart, "remove")
}

// UpdateQuantity sets the quantity of a line item.
func (s *CartService) UpdateQuantity(ctx context.Context, uid string, productID int64, quantity int) (*CartView, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	i := cart.Find(productID)
	if i < 0 {
		return nil, ErrNotInCart
	}
	cart.Items[i].Quantity = quantity
	return s.save(ctx, uid, cart, "update_quantity")
}

// Adjust changes a quantity by delta. A change that would leave the line
// below one unit is ignored.
func (s *CartService) Adjust(ctx context.Context, uid string, productID int64, delta int) (*CartView, error) {
	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	i := cart.Find(productID)
	if i < 0 {
		return nil, ErrNotInCart
	}
	next := cart.Items[i].Quantity + delta
	if next < 1 || delta == 0 {
		return s.Get(ctx, uid)
	}
	cart.Items[i].Quantity = next
	return s.save(ctx, uid, cart, "update_quantity")
}

func (s *CartService) Increment(ctx context.Context, uid string, productID int64) (*CartView, error) {
	return s.Adjust(ctx, uid, productID, 1)
}

func (s *CartService) Decrement(ctx context.Context, uid string, productID int64) (*CartView, error) {
	return s.Adjust(ctx, uid, productID, -1)
}

// Clear empties the cart and drops any applied coupon.
func (s *CartService) Clear(ctx context.Context, uid string) (*CartView, error) {
	return s.save(ctx, uid, &models.Cart{Items: []models.CartLineItem{}}, "clear")
}

// ApplyCoupon validates code and applies it, replacing any earlier coupon.
// A rejected code leaves the cart untouched.
func (s *CartService) ApplyCoupon(ctx context.Context, uid, code string) (*CartView, error) {
	coupon, err := s.coupons.Validate(code)
	s.metrics.CouponAttempt(err == nil)
	if err != nil {
		s.logger.Debug("Coupon rejected", logging.Fields{"user_id": uid})
		return nil, err
	}

	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	cart.AppliedCoupon = coupon
	return s.save(ctx, uid, cart, "apply_coupon")
}

func (s *CartService) RemoveCoupon(ctx context.Context, uid string) (*CartView, error) {
	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if cart.AppliedCoupon == nil {
		return s.Get(ctx, uid)
	}
	cart.AppliedCoupon = nil
	return s.save(ctx, uid, cart, "remove_coupon")
}

// MoveToWishlist saves a cart product to the wishlist and then removes it
// from the cart.
func (s *CartService) MoveToWishlist(ctx context.Context, uid string, productID int64) (*CartView, error) {
	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	i := cart.Find(productID)
	if i < 0 {
		return nil, ErrNotInCart
	}

	item := models.WishlistItem{Product: cart.Items[i].Product, AddedAt: models.At(s.now())}
	if err := s.wishlists.Save(ctx, uid, item); err != nil {
		return nil, err
	}

	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	return s.save(ctx, uid, cart, "move_to_wishlist")
}

// PlaceOrder turns the cart into a cash-on-delivery order. The order is
// written and the cart emptied in one batch.
func (s *CartService) PlaceOrder(ctx context.Context, uid, address string) (*OrderView, error) {
	address = SanitizeAddress(address)
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	totals := pricing.ComputeTotals(cart.Items, cart.AppliedCoupon, s.rules)
	now := s.now().In(s.loc)

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, models.OrderItem{
			ID:       line.ID,
			Image:    line.Image,
			Title:    line.Title,
			Price:    pricing.ConvertPrice(line.Price, s.rules),
			Quantity: line.Quantity,
		})
	}

	order := &models.Order{
		Items:             items,
		Total:             totals.Total,
		FinalTotal:        totals.Subtotal,
		Discount:          totals.Discount,
		ShippingFee:       totals.ShippingFee,
		Address:           address,
		PaymentMethod:     models.PaymentMethodCOD,
		EstimatedDelivery: now.AddDate(0, 0, s.cfg.DeliveryDays).Format(models.DeliveryDateLayout),
		CreatedAt:         models.At(now),
	}
	if cart.AppliedCoupon != nil {
		order.AppliedCoupon = cart.AppliedCoupon.Code
	}

	if err := s.orders.CreateAndClearCart(ctx, uid, order); err != nil {
		s.logger.Error("Failed to place order", logging.Fields{
			"user_id": uid,
			"error":   err.Error(),
		})
		return nil, err
	}

	if err := s.publisher.PublishOrderPlaced(ctx, uid, order); err != nil {
		s.logger.Error("Failed to publish order placed event", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}

	total, _ := order.Total.Float64()
	s.metrics.OrderPlaced(total)
	s.logger.Info("Order placed", logging.Fields{
		"user_id":  uid,
		"order_id": order.ID,
		"items":    len(order.Items),
		"total":    order.Total.StringFixed(2),
	})

	return newOrderView(order, s.loc), nil
}

func (s *CartService) save(ctx context.Context, uid string, cart *models.Cart, op string) (*CartView, error) {
	if err := s.carts.Save(ctx, uid, cart); err != nil {
		s.logger.Error("Failed to update cart", logging.Fields{
			"user_id": uid,
			"op":      op,
			"error":   err.Error(),
		})
		return nil, err
	}
	s.metrics.CartMutation(op)

	wishlist, err := s.wishlists.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	return newCartView(cart, wishlist, s.rules, s.cfg.FreeShippingThreshold), nil
}
