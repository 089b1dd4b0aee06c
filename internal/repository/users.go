package repository

import (
	"context"
	"strconv"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const (
	usersCollection = "users"
	cartDocumentID  = "cart"
)

func cartCollection(uid string) string {
	return collectionPath(usersCollection, uid, "cart")
}

func wishlistCollection(uid string) string {
	return collectionPath(usersCollection, uid, "wishlist")
}

func ordersCollection(uid string) string {
	return collectionPath(usersCollection, uid, "orders")
}

// ProfileRepository stores one profile document per user.
type ProfileRepository struct {
	store DocumentStore
}

func NewProfileRepository(store DocumentStore) *ProfileRepository {
	return &ProfileRepository{store: store}
}

// Get returns errors.ErrNotFound when the user has no profile document.
func (r *ProfileRepository) Get(ctx context.Context, uid string) (*models.Profile, error) {
	var p models.Profile
	if err := getJSON(ctx, r.store, usersCollection, uid, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Save(ctx context.Context, p *models.Profile) error {
	return setJSON(ctx, r.store, usersCollection, p.UID, p)
}

// CartRepository stores each user's cart as a single document.
type CartRepository struct {
	store DocumentStore
}

func NewCartRepository(store DocumentStore) *CartRepository {
	return &CartRepository{store: store}
}

// Get returns the user's cart. A user who never wrote a cart has an empty
// one.
func (r *CartRepository) Get(ctx context.Context, uid string) (*models.Cart, error) {
	var cart models.Cart
	err := getJSON(ctx, r.store, cartCollection(uid), cartDocumentID, &cart)
	if errors.Is(err, errors.ErrNotFound) {
		return &models.Cart{Items: []models.CartLineItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartLineItem{}
	}
	return &cart, nil
}

// Save overwrites the whole cart document.
func (r *CartRepository) Save(ctx context.Context, uid string, cart *models.Cart) error {
	return setJSON(ctx, r.store, cartCollection(uid), cartDocumentID, cart)
}

// WishlistRepository stores one document per wishlisted product.
type WishlistRepository struct {
	store DocumentStore
}

func NewWishlistRepository(store DocumentStore) *WishlistRepository {
	return &WishlistRepository{store: store}
}

// List returns stored items in insertion order, duplicates included.
func (r *WishlistRepository) List(ctx context.Context, uid string) ([]models.WishlistItem, error) {
	docs, err := r.store.List(ctx, wishlistCollection(uid))
	if err != nil {
		return nil, err
	}
	items := make([]models.WishlistItem, 0, len(docs))
	for _, doc := range docs {
		var item models.WishlistItem
		if err := unmarshalDocument(doc, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *WishlistRepository) Save(ctx context.Context, uid string, item models.WishlistItem) error {
	return setJSON(ctx, r.store, wishlistCollection(uid), productDocID(item.ID), item)
}

func (r *WishlistRepository) Delete(ctx context.Context, uid string, productID int64) error {
	return r.store.Delete(ctx, wishlistCollection(uid), productDocID(productID))
}

// OrderRepository stores one document per order under the user.
type OrderRepository struct {
	store DocumentStore
}

func NewOrderRepository(store DocumentStore) *OrderRepository {
	return &OrderRepository{store: store}
}

func (r *OrderRepository) List(ctx context.Context, uid string) ([]*models.Order, error) {
	docs, err := r.store.List(ctx, ordersCollection(uid))
	if err != nil {
		return nil, err
	}
	orders := make([]*models.Order, 0, len(docs))
	for _, doc := range docs {
		var o models.Order
		if err := unmarshalDocument(doc, &o); err != nil {
			return nil, err
		}
		o.ID = doc.ID
		orders = append(orders, &o)
	}
	return orders, nil
}

func (r *OrderRepository) Get(ctx context.Context, uid, id string) (*models.Order, error) {
	doc, err := r.store.Get(ctx, ordersCollection(uid), id)
	if err != nil {
		return nil, err
	}
	var o models.Order
	if err := unmarshalDocument(doc, &o); err != nil {
		return nil, err
	}
	o.ID = doc.ID
	return &o, nil
}

func (r *OrderRepository) Delete(ctx context.Context, uid, id string) error {
	return r.store.Delete(ctx, ordersCollection(uid), id)
}

// CreateAndClearCart stores order under a new id and empties the user's
// cart in the same batch. The assigned id is written to order.ID.
func (r *OrderRepository) CreateAndClearCart(ctx context.Context, uid string, order *models.Order) error {
	id := NewID()

	stored := *order
	stored.ID = id
	orderWrite, err := SetWrite(ordersCollection(uid), id, stored)
	if err != nil {
		return err
	}
	cartWrite, err := SetWrite(cartCollection(uid), cartDocumentID, models.Cart{Items: []models.CartLineItem{}})
	if err != nil {
		return err
	}

	if err := r.store.Batch(ctx, orderWrite, cartWrite); err != nil {
		return err
	}
	order.ID = id
	return nil
}

func productDocID(id int64) string {
	return strconv.FormatInt(id, 10)
}
