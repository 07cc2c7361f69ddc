package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"agriconnect/internal/cache"
	"agriconnect/internal/config"
	"agriconnect/internal/database"
	"agriconnect/internal/handlers"
	"agriconnect/internal/repositories"
	"agriconnect/internal/seed"
	"agriconnect/internal/services"
	"agriconnect/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, cleanup, err := buildApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// storage is the set of repositories the services run on.
type storage struct {
	users    repositories.UserRepository
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	tx       repositories.TxManager
	seed     bool
	close    func()
}

func openStorage(cfg config.Config) (*storage, error) {
	if cfg.DBDriver == config.DriverMemory {
		log.Println("Using in-memory storage")
		return &storage{
			users:    repositories.NewMemoryUserRepository(),
			products: repositories.NewMemoryProductRepository(),
			orders:   repositories.NewMemoryOrderRepository(),
			tx:       repositories.NewMemoryTxManager(),
			seed:     true,
			close:    func() {},
		}, nil
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to %s database", cfg.DBDriver)
	return &storage{
		users:    repositories.NewGORMUserRepository(db),
		products: repositories.NewGORMProductRepository(db),
		orders:   repositories.NewGORMOrderRepository(db),
		tx:       repositories.NewGORMTxManager(db),
		seed:     cfg.SeedDemoData,
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}, nil
}

// buildApp wires storage, the optional cache and broker, the services and the
// routes. cleanup releases every connection it opened; on error nothing is
// left open.
func buildApp(cfg config.Config) (*fiber.App, func(), error) {
	ctx := context.Background()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Storage ---
	store, err := openStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, store.close)

	// --- Catalog cache ---
	var productCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		productCache = redisCache
		closers = append(closers, func() { redisCache.Close() })
	}

	// --- Order events ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		publisher = mqClient
		closers = append(closers, func() { mqClient.Close() })

		log.Println("Starting RabbitMQ consumer for order events...")
		if err := mqClient.ConsumeOrderEvents(rabbitmq.LogOrderEvent); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	} else {
		log.Println("RABBITMQ_URL not set, order events are disabled")
	}

	// --- Services ---
	authService := services.NewAuthService(store.users, cfg.JWTSecret, cfg.TokenTTL)
	productService := services.NewProductService(store.products, store.users, productCache, cfg.CacheTTL)
	orderService := services.NewOrderService(store.orders, store.products, store.users, store.tx, productService, publisher)
	dashboardService := services.NewDashboardService(store.products, store.orders)

	if store.seed {
		if err := seed.Load(ctx, authService, store.users, store.products, store.orders); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	// --- Fiber App ---
	app := fiber.New(fiber.Config{AppName: "AgriConnect API"})
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	handlers.SetupRoutes(app, handlers.Services{
		Auth:      authService,
		Products:  productService,
		Orders:    orderService,
		Dashboard: dashboardService,
	})
	return app, cleanup, nil
}
