package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

type productRequest struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
}

// quantityRequest sets an absolute quantity or moves it by delta.
type quantityRequest struct {
	Quantity *int `json:"quantity"`
	Delta    *int `json:"delta"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type checkoutRequest struct {
	Address string `json:"address"`
}

// GetCart handles GET /api/v1/cart
func (h *Handlers) GetCart(c *gin.Context) {
	view, err := h.cart.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// AddToCart handles POST /api/v1/cart/items
func (h *Handlers) AddToCart(c *gin.Context) {
	var req productRequest
	if !h.bind(c, &req) {
		return
	}

	view, err := h.cart.Add(c.Request.Context(), middleware.UserID(c), req.ProductID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// UpdateCartItem handles PATCH /api/v1/cart/items/:productId
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	id, ok := h.productIDParam(c)
	if !ok {
		return
	}

	var req quantityRequest
	if !h.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	uid := middleware.UserID(c)

	var (
		view *service.CartView
		err  error
	)
	switch {
	case req.Quantity != nil:
		view, err = h.cart.UpdateQuantity(ctx, uid, id, *req.Quantity)
	case req.Delta != nil:
		view, err = h.cart.Adjust(ctx, uid, id, *req.Delta)
	default:
		err = errors.NewValidationError("quantity", "quantity or delta is required")
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// RemoveFromCart handles DELETE /api/v1/cart/items/:productId
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	id, ok := h.productIDParam(c)
	if !ok {
		return
	}

	view, err := h.cart.Remove(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// MoveToWishlist handles POST /api/v1/cart/items/:productId/move-to-wishlist
func (h *Handlers) MoveToWishlist(c *gin.Context) {
	id, ok := h.productIDParam(c)
	if !ok {
		return
	}

	view, err := h.cart.MoveToWishlist(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ClearCart handles DELETE /api/v1/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	view, err := h.cart.Clear(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ApplyCoupon handles POST /api/v1/cart/coupon
func (h *Handlers) ApplyCoupon(c *gin.Context) {
	var req couponRequest
	if !h.bind(c, &req) {
		return
	}

	view, err := h.cart.ApplyCoupon(c.Request.Context(), middleware.UserID(c), req.Code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// RemoveCoupon handles DELETE /api/v1/cart/coupon
func (h *Handlers) RemoveCoupon(c *gin.Context) {
	view, err := h.cart.RemoveCoupon(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Checkout handles POST /api/v1/cart/checkout
func (h *Handlers) Checkout(c *gin.Context) {
	var req checkoutRequest
	if !h.bind(c, &req) {
		return
	}

	order, err := h.cart.PlaceOrder(c.Request.Context(), middleware.UserID(c), req.Address)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}
