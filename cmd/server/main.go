package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/apidoc"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/config"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/coupon"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/handlers"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/middleware"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/payment"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/pricing"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository/mongostore"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository/pgstore"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/seed"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/service"
	"github.com/Lixing-Zhang/food-ordering/backend/pkg/db"
	"github.com/Lixing-Zhang/food-ordering/backend/pkg/logger"
)

func main() {
	// Load configuration from defaults, CONFIG_FILE and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting food ordering api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"store", cfg.Store.Driver,
		"payment_provider", cfg.Payment.Provider,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}

	log.Info("seeding store...")
	stats, err := seed.NewLoader(cfg.Payment.Timeout, log).Run(ctx, store, cfg.Seed)
	if err != nil {
		log.Error("failed to seed store", "error", err)
		os.Exit(1)
	}
	log.Info("store seeded",
		"menu_items", stats.MenuItems,
		"coupons", stats.Coupons,
		"users", stats.Users,
	)

	// Initialize services
	engine := pricing.NewEngine(store.Catalog, pricing.Config{
		TaxRate:               cfg.Pricing.TaxRate,
		DeliveryFee:           cfg.Pricing.DeliveryFee,
		FreeDeliveryThreshold: cfg.Pricing.FreeDeliveryThreshold,
	})
	evaluator := coupon.NewEvaluator(store.Coupons, store.Orders).WithLogger(log)
	orderService := service.NewOrderService(engine, evaluator, store.Coupons, store.Orders, newGateway(cfg.Payment), service.PaymentConfig{
		Currency:      cfg.Payment.Currency,
		KeyID:         cfg.Payment.KeyID,
		KeySecret:     cfg.Payment.KeySecret,
		WebhookSecret: cfg.Payment.WebhookSecret,
	}, log)
	couponService := service.NewCouponService(store.Coupons, evaluator, log)
	userService := service.NewUserService(store.Users, log)

	// Render the API document once; it only depends on the route table
	doc, err := apidoc.Build(cfg.Version)
	if err != nil {
		log.Error("failed to build api document", "error", err)
		os.Exit(1)
	}
	jsonDoc, err := apidoc.JSON(doc)
	if err != nil {
		log.Error("failed to render api document", "format", "json", "error", err)
		os.Exit(1)
	}
	yamlDoc, err := apidoc.YAML(doc)
	if err != nil {
		log.Error("failed to render api document", "format", "yaml", "error", err)
		os.Exit(1)
	}

	// Create router
	r := handlers.NewRouter(handlers.RouterConfig{
		Logger:         log,
		Authenticator:  middleware.NewAuthenticator([]byte(cfg.Auth.JWTSecret), store.Users, log),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         handlers.NewHealthHandler(log, cfg.Version, store.Ping),
		Catalog:        handlers.NewCatalogHandler(service.NewCatalogService(store.Catalog), log),
		Orders:         handlers.NewOrderHandler(orderService, log),
		Payment:        handlers.NewPaymentHandler(orderService, log),
		Coupons:        handlers.NewCouponHandler(couponService, log),
		Admin:          handlers.NewAdminHandler(orderService, userService, log),
		Docs:           handlers.NewDocsHandler(jsonDoc, yamlDoc),
	})

	// Create HTTP server
	addr := cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error("failed to close store", "error", err)
	}

	log.Info("server stopped gracefully")
}

// openStore connects the configured driver and prepares its schema.
func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*repository.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := db.NewMongo(ctx, cfg.MongoURI, cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.MongoDatabase)
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info("connected to mongodb", "database", cfg.MongoDatabase)
		return mongostore.New(client, database), nil

	case config.DriverPostgres:
		pool, err := db.NewPostgres(ctx, db.PostgresConfig{
			DSN:          cfg.PostgresDSN,
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
			ConnLifetime: cfg.ConnLifetime,
			PingTimeout:  cfg.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("connected to postgres", "max_open_conns", cfg.MaxOpenConns)
		return pgstore.New(pool), nil

	default:
		log.Warn("using in-memory store; data is lost on restart")
		return repository.NewInMemoryStore(nil), nil
	}
}

func newGateway(cfg config.PaymentConfig) payment.Gateway {
	if cfg.Provider == config.ProviderRazorpay {
		return payment.NewRazorpayGateway(cfg.BaseURL, cfg.KeyID, cfg.KeySecret, cfg.Timeout)
	}
	return payment.NewFakeGateway()
}
