package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/idunn/internal"
	"github.com/dukerupert/idunn/internal/cache"
	"github.com/dukerupert/idunn/internal/events"
	"github.com/dukerupert/idunn/internal/handler"
	"github.com/dukerupert/idunn/internal/middleware"
	"github.com/dukerupert/idunn/internal/repository"
	"github.com/dukerupert/idunn/internal/router"
	"github.com/dukerupert/idunn/internal/routes"
	"github.com/dukerupert/idunn/internal/service"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Connect the cart document store
	logger.Info("Connecting to cart store...")
	mongoClient, err := repository.ConnectMongo(ctx, cfg.MongoURL, cfg.StoreOpTimeout)
	if err != nil {
		return fmt.Errorf("cart store connection failed: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	db := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("index creation failed: %w", err)
	}
	logger.Info("Cart store connection established")

	repo := repository.NewMongoRepository(db)

	// Optional server-side cart cache
	var cartCache cache.CartCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		cartCache = cache.NewRedisCache(redisClient)
		logger.Info("Cart cache enabled", "addr", cfg.RedisAddr)
	}

	// Optional cart event publishing
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("event broker connection failed: %w", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("Cart event publishing enabled", "url", cfg.NATSURL)
	}

	// Initialize the cart aggregation service
	cartService := service.NewCartService(repo, cartCache, publisher, logger)

	// Build route dependencies
	metrics := middleware.NewMetrics("idunn")
	deps := routes.Deps{
		CartHandler:   handler.NewCartHandler(cartService),
		HealthHandler: handler.NewHealthHandler(repo),
		Metrics:       metrics,
	}

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		router.Logger(logger),
		middleware.WithRequestLogger(logger),
	)
	routes.Register(r, deps)

	// Start the server with graceful shutdown on SIGINT/SIGTERM
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting cart server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
