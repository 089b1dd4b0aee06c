// Package catalog serves the remote product list to the rest of the
// storefront.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

const snapshotKey = "catalog:products"

var ErrProductNotFound = errors.Wrap(errors.ErrNotFound, "Product not found.")

// SortBy orders a product listing.
type SortBy string

const (
	SortByName  SortBy = "name"
	SortByPrice SortBy = "price"
)

// ParseSortBy defaults to name.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByName:
		return SortByName, nil
	case SortByPrice:
		return SortByPrice, nil
	}
	return "", errors.NewValidationError("sort", "sort must be one of: name, price")
}

// CategoryFor maps the short names used in URLs ("men", "women") to catalog
// categories. Unknown names are returned unchanged.
func CategoryFor(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "men":
		return models.CategoryMen
	case "women":
		return models.CategoryWomen
	}
	return name
}

// Service caches the catalog after the first successful fetch. A failed
// fetch is not cached, so the next caller retries.
type Service struct {
	client    clients.CatalogClient
	carts     *repository.CartRepository
	wishlists *repository.WishlistRepository
	snapshot  repository.Cache
	ttl       time.Duration
	metrics   *metrics.Metrics
	logger    *logging.LoggerV2

	group singleflight.Group

	mu       sync.RWMutex
	products []models.Product
	byID     map[int64]int
}

// NewService creates a catalog service. snapshot may be nil.
func NewService(
	client clients.CatalogClient,
	carts *repository.CartRepository,
	wishlists *repository.WishlistRepository,
	snapshot repository.Cache,
	ttl time.Duration,
	m *metrics.Metrics,
) *Service {
	return &Service{
		client:    client,
		carts:     carts,
		wishlists: wishlists,
		snapshot:  snapshot,
		ttl:       ttl,
		metrics:   m,
		logger:    logging.NewLoggerV2("catalog"),
	}
}

// Load returns the catalog, fetching it on first use. Concurrent callers
// share one fetch.
func (s *Service) Load(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	products := s.products
	s.mu.RUnlock()
	if products != nil {
		return products, nil
	}

	v, err, _ := s.group.Do("load", func() (interface{}, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Product), nil
}

func (s *Service) load(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	products := s.products
	s.mu.RUnlock()
	if products != nil {
		return products, nil
	}

	products, fromSnapshot := s.readSnapshot(ctx)
	if !fromSnapshot {
		var err error
		products, err = s.client.FetchProducts(ctx)
		s.metrics.CatalogLoad(err == nil)
		if err != nil {
			s.logger.Error("Failed to load catalog", logging.Fields{"error": err.Error()})
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		if products == nil {
			products = []models.Product{}
		}
		s.writeSnapshot(ctx, products)
	}

	byID := make(map[int64]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	s.mu.Lock()
	s.products = products
	s.byID = byID
	s.mu.Unlock()

	s.logger.Info("Catalog loaded", logging.Fields{
		"products": len(products),
		"snapshot": fromSnapshot,
	})
	return products, nil
}

func (s *Service) readSnapshot(ctx context.Context) ([]models.Product, bool) {
	if s.snapshot == nil {
		return nil, false
	}
	data, err := s.snapshot.Get(ctx, snapshotKey)
	if err != nil || data == nil {
		return nil, false
	}
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		s.logger.Warn("Discarding unreadable catalog snapshot", logging.Fields{"error": err.Error()})
		return nil, false
	}
	return products, true
}

func (s *Service) writeSnapshot(ctx context.Context, products []models.Product) {
	if s.snapshot == nil {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := s.snapshot.Set(ctx, snapshotKey, data, s.ttl); err != nil {
		s.logger.Warn("Failed to store catalog snapshot", logging.Fields{"error": err.Error()})
	}
}

// Preload loads the catalog in the background. It is called when a shopper
// signs in so their first page does not wait on the remote catalog.
func (s *Service) Preload(ev models.SessionEvent) {
	if !ev.SignedIn {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Load(ctx); err != nil {
			s.logger.Warn("Catalog preload failed", logging.Fields{"user_id": ev.UserID, "error": err.Error()})
		}
	}()
}

// Product looks up one product by id.
func (s *Service) Product(ctx context.Context, id int64) (*models.Product, error) {
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := s.products[i]
	return &p, nil
}

// ParseProductID parses a product id path parameter.
func ParseProductID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("productId", "invalid product id")
	}
	return id, nil
}

// Browse filters the catalog by category and a case-insensitive title
// substring, then sorts it.
func (s *Service) Browse(ctx context.Context, category, query string, by SortBy) ([]models.Product, error) {
	products, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	category = CategoryFor(category)
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Title), query) {
			continue
		}
		out = append(out, p)
	}

	Sort(out, by)
	return out, nil
}

// Sort orders products in place. Names use English collation; prices
// ascend.
func Sort(products []models.Product, by SortBy) {
	switch by {
	case SortByPrice:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.LessThan(products[j].Price)
		})
	default:
		c := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(products, func(i, j int) bool {
			return c.CompareString(products[i].Title, products[j].Title) < 0
		})
	}
}

// Suggestions lists products related to currentID that the shopper holds
// in neither their cart nor their wishlist. Tab "men" or "women" narrows
// the category; any other tab returns every category.
func (s *Service) Suggestions(ctx context.Context, uid string, currentID int64, tab string) ([]models.Product, error) {
	products, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

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

	held := make(map[int64]bool, len(cart.Items)+len(wishlist))
	for _, item := range cart.Items {
		held[item.ID] = true
	}
	for _, item := range wishlist {
		held[item.ID] = true
	}

	category := ""
	if t := strings.ToLower(strings.TrimSpace(tab)); t == "men" || t == "women" {
		category = CategoryFor(t)
	}

	out := make([]models.Product, 0)
	for _, p := range products {
		if p.ID == currentID || held[p.ID] {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
