package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"retail-ops/internal/config"
	"retail-ops/internal/database"
	"retail-ops/internal/forecast"
	"retail-ops/internal/metrics"
	custommiddleware "retail-ops/internal/middleware"
	"retail-ops/internal/notification"
	"retail-ops/internal/payment"
	"retail-ops/internal/pricing"
	"retail-ops/internal/reorder"
	"retail-ops/internal/repository"
	"retail-ops/internal/service"
	"retail-ops/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	db       database.Service
	redis    *redis.Client
	notifier notification.Notifier
}

// NewRedisClient connects to the cart and rate limit store.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, appMetrics *metrics.AppMetrics) (*Server, error) {
	precedence, err := pricing.ParsePrecedence(cfg.Policy.DiscountPrecedence)
	if err != nil {
		return nil, err
	}
	pricingPolicy := pricing.Policy{Precedence: precedence}

	reorderPolicy := reorder.Policy{
		RedDays:     cfg.Policy.UrgencyRedDays,
		YellowDays:  cfg.Policy.UrgencyYellowDays,
		SafetyStock: cfg.Policy.SafetyStock,
		HorizonDays: cfg.Policy.HorizonDays,
	}
	if err := reorderPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reorder policy: %w", err)
	}

	// Initialize repositories
	sqlDB := db.DB()
	productRepo := repository.NewProductRepository(sqlDB)
	supplierRepo := repository.NewSupplierRepository(sqlDB)
	saleRepo := repository.NewSaleRepository(sqlDB)
	intentRepo := repository.NewPaymentIntentRepository(sqlDB)
	reconciliationRepo := repository.NewReconciliationRepository(sqlDB)
	orderRepo := repository.NewPurchaseOrderRepository(sqlDB)
	cartRepo := repository.NewCartRepository(redisClient)

	// Initialize collaborators
	var notifier notification.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		notifier = notification.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("Publishing notifications to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	} else {
		notifier = notification.NewLogNotifier(logger)
		logger.Warn("KAFKA_BROKERS not set, notifications are only logged")
	}

	var forecaster forecast.Provider
	if cfg.Forecast.BaseURL != "" {
		forecaster = forecast.NewHTTPClient(cfg.Forecast.BaseURL, cfg.Forecast.Timeout, logger)
	} else {
		forecaster = &forecast.Static{DefaultDaily: cfg.Forecast.StaticDailyDemand}
		logger.Warn("FORECAST_BASE_URL not set, using a flat demand forecast",
			zap.Float64("daily_demand", cfg.Forecast.StaticDailyDemand),
		)
	}

	gateway := payment.NewSandbox()

	// Initialize services
	checkoutService := service.NewCheckoutService(productRepo, pricingPolicy, logger)
	catalogService := service.NewCatalogService(productRepo, pricingPolicy, logger)
	cartService := service.NewCartService(cartRepo, productRepo, pricingPolicy)
	paymentService := service.NewPaymentService(service.PaymentDeps{
		Intents:         intentRepo,
		Sales:           saleRepo,
		Reconciliations: reconciliationRepo,
		Carts:           cartRepo,
		Checkout:        checkoutService,
		Gateway:         gateway,
		Notifier:        notifier,
		Metrics:         appMetrics,
		Currency:        cfg.Payment.Currency,
		Logger:          logger,
	})
	saleService := service.NewSaleService(saleRepo, checkoutService, notifier, appMetrics, logger)
	reorderService := service.NewReorderService(productRepo, forecaster, reorderPolicy, logger)
	purchaseOrderService := service.NewPurchaseOrderService(service.PurchaseOrderDeps{
		Orders:    orderRepo,
		Products:  productRepo,
		Suppliers: supplierRepo,
		Reorder:   reorderService,
		Notifier:  notifier,
		Metrics:   appMetrics,
		Logger:    logger,
	})

	// Create router
	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware(appMetrics))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", healthHandler(db, redisClient))

	limiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "rate_limit:checkout",
	}, logger)

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger))

		transport.NewProductHandler(catalogService, logger).RegisterRoutes(r)
		transport.NewCartHandler(cartService, logger).RegisterRoutes(r)
		transport.NewCheckoutHandler(checkoutService, paymentService, cartService, logger).RegisterRoutes(r, limiter)
		transport.NewSaleHandler(saleService, logger).RegisterRoutes(r)
		transport.NewPurchaseOrderHandler(purchaseOrderService, reorderService, logger).RegisterRoutes(r)
	})

	if cfg.Server.IsDevelopment() {
		transport.NewSandboxHandler(gateway, logger).RegisterRoutes(router)
		logger.Warn("Sandbox payment routes are enabled")
	}

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		db:       db,
		redis:    redisClient,
		notifier: notifier,
	}

	return server, nil
}

// healthHandler reports database and redis reachability. Redis only degrades
// carts and rate limiting, so the service stays up without it.
func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		dbHealth := db.Health()
		redisStatus := "up"
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}

		status := http.StatusOK
		overall := "ok"
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
			overall = "unavailable"
		} else if redisStatus != "up" {
			overall = "degraded"
		}

		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"status":   overall,
			"database": dbHealth,
			"redis":    redisStatus,
		})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if closer, ok := s.notifier.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("Failed to close notifier", zap.Error(err))
		}
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
