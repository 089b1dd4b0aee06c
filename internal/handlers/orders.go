package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/history"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
)

// ListOrders handles GET /api/v1/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	by, err := history.ParseSortBy(c.Query("sortBy"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	order, err := history.ParseSortOrder(c.Query("sortOrder"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	result, err := h.orders.List(c.Request.Context(), middleware.UserID(c), by, order)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func (h *Handlers) DeleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
