package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/auth"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the storefront.
type Handlers struct {
	auth     *auth.Service
	catalog  *catalog.Service
	cart     *service.CartService
	orders   *service.OrderService
	wishlist *service.WishlistService
	profiles *service.ProfileService
	checks   map[string]Pinger
	config   *config.Config
	logger   *logging.LoggerV2
}

// NewHandlers creates a new handlers instance. checks are pinged by the
// readiness probe.
func NewHandlers(
	authService *auth.Service,
	catalogService *catalog.Service,
	cartService *service.CartService,
	orderService *service.OrderService,
	wishlistService *service.WishlistService,
	profileService *service.ProfileService,
	checks map[string]Pinger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		auth:     authService,
		catalog:  catalogService,
		cart:     cartService,
		orders:   orderService,
		wishlist: wishlistService,
		profiles: profileService,
		checks:   checks,
		config:   cfg,
		logger:   logging.NewLoggerV2("handlers"),
	}
}

func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Debug("Failed to bind request", logging.Fields{
			"request_id": middleware.RequestIDFromContext(c.Request.Context()),
			"error":      err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *Handlers) productIDParam(c *gin.Context) (int64, bool) {
	id, err := catalog.ParseProductID(c.Param("productId"))
	if err != nil {
		h.handleError(c, err)
		return 0, false
	}
	return id, true
}

// handleError maps service errors onto status codes. Messages of wrapped
// errors are safe to show; anything unexpected is logged and hidden.
func (h *Handlers) handleError(c *gin.Context, err error) {
	var validationErr *errors.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"details": validationErr.Details,
		})
		return
	}

	switch {
	case errors.Is(err, errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errors.Message(err, "Please sign in to continue.")})
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errors.Message(err, "not found")})
	case errors.Is(err, errors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": errors.Message(err, "conflict")})
	default:
		h.logger.Error("Request failed", logging.Fields{
			"request_id": middleware.RequestIDFromContext(c.Request.Context()),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"error":      errString(err),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
