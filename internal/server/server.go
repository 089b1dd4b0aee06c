package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *handlers.Handlers
	metrics    *metrics.Metrics
	verifier   middleware.SessionVerifier
	logger     *logging.LoggerV2
}

// New builds the router. m may be nil when metrics are disabled.
func New(h *handlers.Handlers, cfg *config.Config, m *metrics.Metrics, verifier middleware.SessionVerifier) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		router:   gin.New(),
		handlers: h,
		metrics:  m,
		verifier: verifier,
		logger:   logging.NewLoggerV2("http"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.AccessLog(s.logger))
	s.router.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware())
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.Health)
	s.router.GET("/ready", h.Ready)
	s.router.GET("/live", h.Live)
	s.router.GET("/version", h.Version)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	requireSession := middleware.RequireSession(s.verifier)

	v1 := s.router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/signup", h.SignUp)
		authGroup.POST("/signin", h.SignIn)
		authGroup.POST("/signout", requireSession, h.SignOut)
		authGroup.POST("/password-reset", h.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", h.ResetPassword)

		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:productId", h.GetProduct)
		v1.GET("/products/:productId/suggestions", requireSession, h.Suggestions)

		v1.GET("/me", requireSession, h.Me)

		cart := v1.Group("/cart", requireSession)
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.POST("/items", h.AddToCart)
		cart.PATCH("/items/:productId", h.UpdateCartItem)
		cart.DELETE("/items/:productId", h.RemoveFromCart)
		cart.POST("/items/:productId/move-to-wishlist", h.MoveToWishlist)
		cart.POST("/coupon", h.ApplyCoupon)
		cart.DELETE("/coupon", h.RemoveCoupon)
		cart.POST("/checkout", h.Checkout)

		orders := v1.Group("/orders", requireSession)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.DELETE("/:id", h.DeleteOrder)

		wishlist := v1.Group("/wishlist", requireSession)
		wishlist.GET("", h.GetWishlist)
		wishlist.POST("", h.AddToWishlist)
		wishlist.DELETE("/:productId", h.RemoveFromWishlist)
	}
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
