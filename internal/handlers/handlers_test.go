package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/auth"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

type staticCatalog []models.Product

func (c staticCatalog) FetchProducts(ctx context.Context) ([]models.Product, error) {
	return c, nil
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type testAPI struct {
	router *gin.Engine
	h      *Handlers
}

func newTestAPI(t *testing.T, checks map[string]Pinger) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	carts := repository.NewCartRepository(store)
	wishlists := repository.NewWishlistRepository(store)
	orders := repository.NewOrderRepository(store)
	profiles := repository.NewProfileRepository(store)
	publisher := events.NewMockEventPublisher()
	m := metrics.New()

	cfg := &config.Config{
		Pricing: config.PricingConfig{
			ConversionRate:        decimal.NewFromInt(80),
			DiscountFlat:          decimal.NewFromInt(100),
			FreeShippingThreshold: decimal.NewFromInt(2000),
			FlatShippingFee:       decimal.NewFromInt(79),
			CouponCode:            "SAVE10",
			CouponAmount:          decimal.NewFromInt(10),
			DeliveryDays:          2,
		},
		Auth:     config.AuthConfig{JWTSecret: "test", TokenTTL: time.Hour, ResetTokenTTL: time.Hour},
		Location: time.UTC,
	}

	products := catalog.NewService(staticCatalog{
		{ID: 1, Title: "Backpack", Price: decimal.NewFromInt(10), Category: models.CategoryMen},
		{ID: 2, Title: "Jacket", Price: decimal.NewFromInt(50), Category: models.CategoryMen},
		{ID: 3, Title: "Top", Price: decimal.NewFromInt(8), Category: models.CategoryWomen},
	}, carts, wishlists, nil, time.Minute, m)

	authService := auth.NewService(repository.NewAuthRepository(store), profiles,
		clients.NewMockNotificationClient(), publisher, m, cfg.Auth)

	h := NewHandlers(
		authService,
		products,
		service.NewCartService(carts, wishlists, orders, products, publisher, m, cfg.Pricing, cfg.Location),
		service.NewOrderService(orders, publisher, m, cfg.Location),
		service.NewWishlistService(wishlists, products),
		service.NewProfileService(profiles),
		checks,
		cfg,
	)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/ready", h.Ready)
	r.POST("/auth/signup", h.SignUp)
	r.POST("/auth/signin", h.SignIn)

	session := middleware.RequireSession(authService)
	r.POST("/auth/signout", session, h.SignOut)
	r.GET("/me", session, h.Me)
	r.GET("/products", h.ListProducts)
	r.GET("/products/:productId", h.GetProduct)
	r.GET("/products/:productId/suggestions", session, h.Suggestions)
	r.GET("/cart", session, h.GetCart)
	r.POST("/cart/items", session, h.AddToCart)
	r.PATCH("/cart/items/:productId", session, h.UpdateCartItem)
	r.POST("/cart/items/:productId/move-to-wishlist", session, h.MoveToWishlist)
	r.POST("/cart/coupon", session, h.ApplyCoupon)
	r.POST("/cart/checkout", session, h.Checkout)
	r.GET("/orders", session, h.ListOrders)
	r.GET("/orders/:id", session, h.GetOrder)
	r.DELETE("/orders/:id", session, h.DeleteOrder)
	r.GET("/wishlist", session, h.GetWishlist)
	r.POST("/wishlist", session, h.AddToWishlist)
	r.DELETE("/wishlist/:productId", session, h.RemoveFromWishlist)

	return &testAPI{router: r, h: h}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (a *testAPI) signUp(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"name":            "Asha",
		"email":           "asha@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "storefront", resp["service"])
}

func TestLive(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReady(t *testing.T) {
	api := newTestAPI(t, map[string]Pinger{"store": repository.NewMemoryStore()})
	w := api.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	api = newTestAPI(t, map[string]Pinger{"redis": failingPinger{}})
	w = api.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "connection refused", decode(t, w)["checks"].(map[string]interface{})["redis"])
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handlers{logger: logging.NewLoggerV2("handlers-test")}

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", errors.NewValidationError("email", "Invalid email"), http.StatusBadRequest, "Invalid email"},
		{"unauthorized", auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password. Please try again."},
		{"not found", errors.ErrNotFound, http.StatusNotFound, "not found"},
		{"conflict", service.ErrAlreadyInCart, http.StatusConflict, "Product is already in the cart."},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.handleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["error"])
		})
	}
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Please sign in to continue.", decode(t, w)["error"])

	token := api.signUp(t)

	w = api.do(t, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Asha", decode(t, w)["name"])

	w = api.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"name": "Other", "email": "asha@example.com", "password": "secret1", "confirmPassword": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/auth/signin", "", gin.H{"email": "asha@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/auth/signout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignUp_ValidationDetails(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"name": "", "email": "bad", "password": "123", "confirmPassword": "456",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].(map[string]interface{})
	assert.Equal(t, "Name is required", details["name"])
	assert.Equal(t, "Invalid email", details["email"])
	assert.Equal(t, "Password must be at least 6 characters", details["password"])
	assert.Equal(t, "Passwords must match", details["confirmPassword"])
}

func TestProducts(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/products?category=men&sort=price", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = api.do(t, http.MethodGet, "/products?sort=rating", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/products/2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jacket", decode(t, w)["title"])

	w = api.do(t, http.MethodGet, "/products/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartCheckoutFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.signUp(t)

	w := api.do(t, http.MethodPost, "/cart/items", token, gin.H{"productId": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/cart/items", token, gin.H{"productId": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Product is already in the cart.", decode(t, w)["error"])

	w = api.do(t, http.MethodPost, "/cart/items", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPatch, "/cart/items/1", token, gin.H{"delta": 1})
	require.Equal(t, http.StatusOK, w.Code)
	totals := decode(t, w)["totals"].(map[string]interface{})
	assert.Equal(t, float64(1579), totals["total"])

	w = api.do(t, http.MethodPatch, "/cart/items/1", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/cart/coupon", token, gin.H{"code": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid coupon code.", decode(t, w)["error"])

	w = api.do(t, http.MethodPost, "/cart/checkout", token, gin.H{"address": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/cart/checkout", token, gin.H{"address": "12 MG Road"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)
	id := order["id"].(string)
	assert.Equal(t, "COD", order["paymentMethod"])

	w = api.do(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["items"])

	w = api.do(t, http.MethodGet, "/orders?sortBy=total&sortOrder=asc", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode(t, w)["groups"].([]interface{})
	require.Len(t, groups, 1)
	assert.Equal(t, "Today", groups[0].(map[string]interface{})["label"])

	w = api.do(t, http.MethodGet, "/orders?sortBy=name", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/orders/"+id, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodDelete, "/orders/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/orders/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found.", decode(t, w)["error"])
}

func TestWishlistAndSuggestions(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.signUp(t)

	w := api.do(t, http.MethodPost, "/wishlist", token, gin.H{"productId": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/cart/items", token, gin.H{"productId": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, http.MethodGet, "/products/1/suggestions?tab=men", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["products"])

	w = api.do(t, http.MethodPost, "/cart/items/3/move-to-wishlist", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/wishlist", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 2)

	w = api.do(t, http.MethodDelete, "/wishlist/2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)
}
