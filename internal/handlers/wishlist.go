package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
)

// GetWishlist handles GET /api/v1/wishlist
func (h *Handlers) GetWishlist(c *gin.Context) {
	items, err := h.wishlist.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddToWishlist handles POST /api/v1/wishlist
func (h *Handlers) AddToWishlist(c *gin.Context) {
	var req productRequest
	if !h.bind(c, &req) {
		return
	}

	items, err := h.wishlist.Add(c.Request.Context(), middleware.UserID(c), req.ProductID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"items": items})
}

// RemoveFromWishlist handles DELETE /api/v1/wishlist/:productId
func (h *Handlers) RemoveFromWishlist(c *gin.Context) {
	id, ok := h.productIDParam(c)
	if !ok {
		return
	}

	items, err := h.wishlist.Remove(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
