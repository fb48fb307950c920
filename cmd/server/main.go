package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spiceshelf/backend/internal/application/checkout"
	"github.com/spiceshelf/backend/internal/application/notification"
	"github.com/spiceshelf/backend/internal/application/settings"
	"github.com/spiceshelf/backend/internal/application/settlement"
	"github.com/spiceshelf/backend/internal/infrastructure/auth"
	"github.com/spiceshelf/backend/internal/infrastructure/cache"
	"github.com/spiceshelf/backend/internal/infrastructure/config"
	"github.com/spiceshelf/backend/internal/infrastructure/event"
	"github.com/spiceshelf/backend/internal/infrastructure/logger"
	"github.com/spiceshelf/backend/internal/infrastructure/notifier"
	"github.com/spiceshelf/backend/internal/infrastructure/persistence"
	"github.com/spiceshelf/backend/internal/infrastructure/provider"
	"github.com/spiceshelf/backend/internal/interfaces/http/handler"
	"github.com/spiceshelf/backend/internal/interfaces/http/middleware"
	"github.com/spiceshelf/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Spice Shelf backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	titleRepo := persistence.NewGormPaymentTitleRepository(db.DB)
	configRepo := persistence.NewGormConfigRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	settlementStore := persistence.NewGormSettlementStore(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Idempotency store and rate counter, Redis with in-memory fallback
	storeFactory := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()
	rateCounter, err := storeFactory.CreateRateCounter()
	if err != nil {
		log.Fatal("Failed to create rate counter", zap.Error(err))
	}
	defer func() {
		if err := rateCounter.Close(); err != nil {
			log.Error("Error closing rate counter", zap.Error(err))
		}
	}()

	// Events: serializer, durable outbox publisher, in-process bus
	serializer := event.NewBillingEventSerializer()
	publisher := event.NewOutboxEventPublisher(db.DB, serializer)
	eventBus := event.NewInMemoryEventBus(log)

	// Application services
	settingsService := settings.NewService(settings.ServiceConfig{
		ConfigRepo: configRepo,
		AuditRepo:  auditRepo,
		Logger:     log,
	})
	settlementProvider := provider.NewResolvingSettlementProvider(settingsService)
	checkoutService := checkout.NewService(checkout.ServiceConfig{
		Resolver:  settingsService,
		OrderRepo: orderRepo,
		TitleRepo: titleRepo,
		Provider:  settlementProvider,
		Admission: checkout.NewAdmissionControl(checkout.AdmissionControlConfig{
			Counter: rateCounter,
			Window:  cfg.Checkout.RateLimitWindow,
			Limit:   int64(cfg.Checkout.RateLimitRequests),
			Logger:  log,
		}),
		EventPublisher: publisher,
		Logger:         log,
	})
	settlementService := settlement.NewService(settlement.ServiceConfig{
		ConfigRepo:  configRepo,
		OrderRepo:   orderRepo,
		TitleRepo:   titleRepo,
		Store:       settlementStore,
		Idempotency: idempotencyStore,
		Publisher:   publisher,
		Logger:      log,
	})

	// Notification fan-out subscribed on the bus
	emailDispatcher := notifier.NewLogEmailDispatcher(log)
	alertDispatcher := notifier.NewLogAlertDispatcher(log)
	issuedHandler := notification.NewBoletoIssuedHandler(orderRepo, titleRepo, emailDispatcher, log)
	confirmedHandler := notification.NewPaymentConfirmedHandler(emailDispatcher, alertDispatcher, log)
	alertHandler := notification.NewOrderStatusAlertHandler(alertDispatcher, log)
	eventBus.Subscribe(issuedHandler, issuedHandler.EventTypes()...)
	eventBus.Subscribe(confirmedHandler, confirmedHandler.EventTypes()...)
	eventBus.Subscribe(alertHandler, alertHandler.EventTypes()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Outbox processor drains pending entries onto the bus
	var processor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			processorCfg.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			processorCfg.PollInterval = cfg.Event.PollInterval
		}
		processor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorCfg, log)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval))
	}

	// HTTP layer
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.CORSWithConfig(corsConfig),
		logger.Recovery(log),
	)

	jwtService := auth.NewJWTService(cfg.JWT)

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAdminMiddleware(
			middleware.JWTAuthMiddleware(jwtService),
			middleware.RequireRole(auth.RoleAdmin, auth.RoleOperator),
		),
	)
	r.Register(
		handler.NewHealthHandler(db, version),
		handler.NewCheckoutHandler(checkoutService, log),
		handler.NewWebhookHandler(settlementService, log),
	)
	r.RegisterAdmin(
		handler.NewSettingsHandler(settingsService, log),
		handler.NewPaymentsHandler(settlementService, orderRepo, log),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Outbox processor shutdown failed", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
