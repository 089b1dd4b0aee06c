package service

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/history"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

var ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "Order not found.")

// OrderHistory is the grouped order list returned to the shopper.
type OrderHistory struct {
	SortBy    history.SortBy    `json:"sortBy"`
	SortOrder history.SortOrder `json:"sortOrder"`
	Count     int               `json:"count"`
	Groups    []OrderGroup      `json:"groups"`
}

// OrderService handles reading and deleting placed orders.
type OrderService struct {
	orders    *repository.OrderRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	loc       *time.Location
	logger    *logging.LoggerV2
	now       func() time.Time
}

// NewOrderService creates a new order service. Day buckets are computed in
// loc.
func NewOrderService(
	orders *repository.OrderRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	loc *time.Location,
) *OrderService {
	if loc == nil {
		loc = time.Local
	}
	return &OrderService{
		orders:    orders,
		publisher: publisher,
		metrics:   m,
		loc:       loc,
		logger:    logging.NewLoggerV2("order-service"),
		now:       time.Now,
	}
}

// List returns the shopper's orders sorted and grouped into Today,
// Yesterday and Previous.
func (s *OrderService) List(ctx context.Context, uid string, by history.SortBy, order history.SortOrder) (*OrderHistory, error) {
	s.logger.Debug("Listing orders", logging.Fields{
		"user_id":    uid,
		"sort_by":    by,
		"sort_order": order,
	})

	orders, err := s.orders.List(ctx, uid)
	if err != nil {
		return nil, err
	}

	groups := history.Categorize(orders, by, order, s.now().In(s.loc))
	return &OrderHistory{
		SortBy:    by,
		SortOrder: order,
		Count:     len(orders),
		Groups:    newOrderGroups(groups, s.loc),
	}, nil
}

// Get returns one order.
func (s *OrderService) Get(ctx context.Context, uid, id string) (*OrderView, error) {
	o, err := s.orders.Get(ctx, uid, id)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return newOrderView(o, s.loc), nil
}

// Delete removes an order from the shopper's history.
func (s *OrderService) Delete(ctx context.Context, uid, id string) error {
	err := s.orders.Delete(ctx, uid, id)
	if errors.Is(err, errors.ErrNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		s.logger.Error("Failed to delete order", logging.Fields{
			"user_id":  uid,
			"order_id": id,
			"error":    err.Error(),
		})
		return err
	}

	if err := s.publisher.PublishOrderDeleted(ctx, uid, id); err != nil {
		s.logger.Error("Failed to publish order deleted event", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
	}

	s.metrics.OrderDeleted()
	s.logger.Info("Order deleted", logging.Fields{"user_id": uid, "order_id": id})
	return nil
}
