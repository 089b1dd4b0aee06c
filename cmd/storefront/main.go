package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/auth"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/server"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

func main() {
	cfg := config.Load()
	logging.Configure(cfg.Log.Level, cfg.Log.Format)

	logger := logging.NewLoggerV2("storefront")
	instanceID := cfg.Kafka.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
		logger.Warn("No stable instance id; session consumer group will not be reused", logging.Fields{"instance_id": instanceID})
	}

	logging.Infof("Starting storefront on port %d", cfg.Server.Port)

	checks := map[string]handlers.Pinger{}

	var store repository.DocumentStore
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		logger.Warn("Using in-memory document store; data is lost on restart")
		store = repository.NewMemoryStore()
	default:
		db, err := initDatabase(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
		}
		defer db.Close()
		store = repository.NewPostgresStore(db, logger)
	}
	checks["store"] = store

	var snapshot repository.Cache
	if cfg.Features.EnableCaching {
		redisCache := repository.NewRedisCache(cfg.Redis)
		defer redisCache.Close()
		store = repository.NewCachedStore(store, redisCache, cfg.Redis.TTL)
		snapshot = redisCache
		checks["redis"] = redisCache
	}

	m := metrics.New()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Features.EnableEvents {
		publisher = events.NewKafkaPublisher(cfg.Kafka, instanceID, logger)
	}
	defer publisher.Close()

	var notifier clients.NotificationSender = clients.NewLogNotificationSender(logger)
	if cfg.Notification.BaseURL != "" {
		notifier = clients.NewHTTPNotificationClient(cfg.Notification, logger)
	}

	profiles := repository.NewProfileRepository(store)
	carts := repository.NewCartRepository(store)
	wishlists := repository.NewWishlistRepository(store)
	orders := repository.NewOrderRepository(store)

	catalogService := catalog.NewService(
		clients.NewHTTPCatalogClient(cfg.Catalog, logger),
		carts,
		wishlists,
		snapshot,
		cfg.Redis.TTL,
		m,
	)

	authService := auth.NewService(
		repository.NewAuthRepository(store),
		profiles,
		notifier,
		publisher,
		m,
		cfg.Auth,
	)
	authService.Subscribe(catalogService.Preload)
	authService.Subscribe(func(ev models.SessionEvent) {
		logger.Info("Session changed", logging.Fields{
			"user_id":   ev.UserID,
			"signed_in": ev.SignedIn,
		})
	})

	h := handlers.NewHandlers(
		authService,
		catalogService,
		service.NewCartService(carts, wishlists, orders, catalogService, publisher, m, cfg.Pricing, cfg.Location),
		service.NewOrderService(orders, publisher, m, cfg.Location),
		service.NewWishlistService(wishlists, catalogService),
		service.NewProfileService(profiles),
		checks,
		cfg,
	)

	var serverMetrics *metrics.Metrics
	if cfg.Features.EnableMetrics {
		serverMetrics = m
	}
	srv := server.New(h, cfg, serverMetrics, authService)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":           cfg.Server.Port,
			"store_backend":  cfg.StoreBackend,
			"enable_events":  cfg.Features.EnableEvents,
			"enable_caching": cfg.Features.EnableCaching,
			"instance_id":    instanceID,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	var consumer *events.SessionConsumer
	if cfg.Features.EnableEvents {
		consumer = events.NewSessionConsumer(cfg.Kafka, instanceID, authService.Deliver, logger)
		go func() {
			if err := consumer.Start(context.Background()); err != nil {
				logger.Error("Event consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config, logger *logging.LoggerV2) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := repository.Migrate(db, cfg.Database.Name, logger); err != nil {
		db.Close()
		return nil, err
	}

	logging.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}
