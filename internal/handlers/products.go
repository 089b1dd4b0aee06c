package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
)

// ListProducts handles GET /api/v1/products
func (h *Handlers) ListProducts(c *gin.Context) {
	by, err := catalog.ParseSortBy(c.Query("sort"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	products, err := h.catalog.Browse(c.Request.Context(), c.Query("category"), c.Query("q"), by)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct handles GET /api/v1/products/:productId
func (h *Handlers) GetProduct(c *gin.Context) {
	id, ok := h.productIDParam(c)
	if !ok {
		return
	}

	product, err := h.catalog.Product(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// Suggestions handles GET /api/v1/products/:productId/suggestions
func (h *Handlers) Suggestions(c *gin.Context) {
	id, ok := h.productIDParam(c)
	if !ok {
		return
	}

	tab := c.DefaultQuery("tab", "men")
	products, err := h.catalog.Suggestions(c.Request.Context(), middleware.UserID(c), id, tab)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tab":      tab,
		"products": products,
	})
}
