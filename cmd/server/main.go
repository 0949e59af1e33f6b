package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/stockrecon/internal/application/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/infrastructure/auth"
	"github.com/erp/stockrecon/internal/infrastructure/cache"
	"github.com/erp/stockrecon/internal/infrastructure/config"
	"github.com/erp/stockrecon/internal/infrastructure/event"
	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"github.com/erp/stockrecon/internal/infrastructure/persistence"
	"github.com/erp/stockrecon/internal/infrastructure/scheduler"
	"github.com/erp/stockrecon/internal/infrastructure/telemetry"
	"github.com/erp/stockrecon/internal/interfaces/http/handler"
	"github.com/erp/stockrecon/internal/interfaces/http/middleware"
	"github.com/erp/stockrecon/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/erp/stockrecon/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Stock Reconciliation API
//	@version		1.0
//	@description	Point-in-time inventory reconciliation over an append-only movement ledger

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token carrying a store_id claim. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.Telemetry.ServiceName,
		Env:     cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry: logs, traces and metrics share the collector endpoint
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log = logProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	defer shutdownTelemetry(log, meterProvider, tracerProvider, logProvider)

	log.Info("Starting stock reconciliation service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Telemetry.DBSlowQueryThresh)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	tracingCfg := telemetry.DefaultDBTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	tracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	tracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	tracingCfg.DBName = cfg.Database.DBName
	if err := telemetry.NewDBTracingPlugin(tracingCfg, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}
	log.Info("Database connected successfully")

	// Redis is optional outside production; the factory falls back to memory
	var redisClient *redis.Client
	if client, err := cache.NewRedisClient(ctx, cfg.Redis); err != nil {
		if cfg.IsProduction() {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unavailable", zap.Error(err))
	} else {
		redisClient = client
		defer func() {
			_ = redisClient.Close()
		}()
	}
	factoryOpts := []cache.StoreFactoryOption{
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	}
	var stores *cache.StoreFactory
	if redisClient != nil {
		stores = cache.NewStoreFactory(redisClient, factoryOpts...)
	} else {
		stores = cache.NewStoreFactory(nil, factoryOpts...)
	}

	reconMetrics, err := telemetry.NewReconciliationMetrics(telemetry.ReconciliationMetricsConfig{
		Meter:  meterProvider.Meter("stockrecon"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create reconciliation metrics", zap.Error(err))
	}

	// Repositories
	serializer := event.NewInventoryEventSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer)
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher, cfg.Reconciliation.LockNoWait)
	ledgerRepo := persistence.NewGormMovementLedger(db.DB)
	stockRepo := persistence.NewGormCurrentStockRepository(db.DB, cfg.Reconciliation.LockNoWait)
	resultRepo := persistence.NewGormReconciliationResultRepository(db.DB)
	catalogReader := persistence.NewGormCatalogReader(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Services
	reconciliationService := inventoryapp.NewReconciliationService(
		inventoryapp.NewEngine(ledgerRepo, stockRepo),
		inventoryapp.NewApplier(txScope),
		resultRepo,
		catalogReader,
		inventoryapp.ReconciliationConfig{
			Retry: inventoryapp.RetryPolicy{
				MaxAttempts: cfg.Reconciliation.MaxAttempts,
				BaseBackoff: cfg.Reconciliation.BaseBackoff,
				MaxBackoff:  cfg.Reconciliation.MaxBackoff,
			},
			Concurrency:  cfg.Reconciliation.Concurrency,
			MaxBatchSize: cfg.Reconciliation.MaxBatchSize,
		},
		log,
	)
	reconciliationService.SetMetrics(reconMetrics)

	ledgerService := inventoryapp.NewLedgerService(txScope, ledgerRepo, stockRepo, catalogReader, log)
	ledgerService.SetMetrics(reconMetrics)

	consistencyService := inventoryapp.NewConsistencyService(txScope, ledgerRepo, stockRepo, log)
	consistencyService.SetMetrics(reconMetrics)

	sessionStore, err := stores.CountSessionStore(cfg.CountSession)
	if err != nil {
		log.Fatal("Failed to create count session store", zap.Error(err))
	}
	countSessionService := inventoryapp.NewCountSessionService(sessionStore, reconciliationService, cfg.CountSession.TTL, log)

	// Event bus and outbox delivery
	eventBus := event.NewInMemoryEventBus(log)
	idempotencyStore, err := stores.IdempotencyStore("recon:events:")
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	alertHandler := inventoryapp.NewNegativeStockAlertHandler(log).
		WithNotifier(inventoryapp.NewLoggingStockAlertNotifier(log)).
		WithMetrics(reconMetrics)
	dedupedAlerts := event.NewIdempotentHandler(alertHandler, idempotencyStore, shared.IdempotencyConfig{
		TTL:     cfg.Reconciliation.IdempotencyTTL,
		Enabled: true,
	}, log)
	if deliveries, err := telemetry.NewCounter(meterProvider.Meter("stockrecon.events"),
		"event_deliveries_total", "Event deliveries by handler and idempotency outcome", "{delivery}"); err == nil {
		dedupedAlerts.WithOutcomeCounter(deliveries)
	}
	eventBus.Subscribe(dedupedAlerts)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Outbox.Enabled {
		outboxCfg := event.DefaultOutboxProcessorConfig()
		outboxCfg.BatchSize = cfg.Outbox.BatchSize
		outboxCfg.PollInterval = cfg.Outbox.PollInterval
		outboxCfg.MaxRetries = cfg.Outbox.MaxRetries
		outboxCfg.CleanupRetention = cfg.Outbox.CleanupRetention
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, outboxCfg, log)
		if outboxMetrics, err := telemetry.NewOutboxMetrics(meterProvider.Meter("stockrecon.outbox")); err == nil {
			outboxProcessor.SetMetrics(outboxMetrics)
		} else {
			log.Warn("Outbox metrics unavailable", zap.Error(err))
		}
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxCfg.BatchSize),
			zap.Duration("poll_interval", outboxCfg.PollInterval),
		)
	}

	if cfg.Consistency.Enabled {
		jobCfg := scheduler.DefaultConsistencyJobConfig()
		jobCfg.Interval = cfg.Consistency.Interval
		job, err := scheduler.NewConsistencyJob(ledgerRepo, consistencyService, log, jobCfg)
		if err != nil {
			log.Fatal("Failed to create consistency job", zap.Error(err))
		}
		if err := job.Start(ctx); err != nil {
			log.Fatal("Failed to start consistency job", zap.Error(err))
		}
		defer func() {
			if err := job.Stop(context.Background()); err != nil {
				log.Error("Error stopping consistency job", zap.Error(err))
			}
		}()
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, logger.WithQuietPaths("/health", "/ready")))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))
	if meterProvider.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(meterProvider.Meter("http.server"), log))
	}
	secureCfg := middleware.DefaultSecurityConfig()
	secureCfg.HSTSEnabled = cfg.IsProduction()
	engine.Use(middleware.SecureWithConfig(secureCfg))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(
		middleware.StoreScope(middleware.StoreScopeConfig{
			Verifier:    auth.NewTokenVerifier(cfg.JWT),
			AllowHeader: cfg.HTTP.AllowStoreHeader,
			Logger:      log,
		}),
		middleware.SpanAttributes(),
	)
	router.SystemRoutes(r, handler.NewHealthHandler(checks))
	inventoryRoutes := router.InventoryRoutes(router.InventoryHandlers{
		Reconciliation: handler.NewReconciliationHandler(reconciliationService),
		Ledger:         handler.NewLedgerHandler(ledgerService),
		Consistency:    handler.NewConsistencyHandler(consistencyService),
		CountSessions:  handler.NewCountSessionHandler(countSessionService),
	})
	r.Register(inventoryRoutes)
	r.Setup()
	log.Debug("Routes registered",
		zap.String("base_path", r.BasePath()),
		zap.Strings("endpoints", inventoryRoutes.Endpoints()))

	if cfg.HTTP.SwaggerEnabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownTelemetry flushes exporters in reverse start order
func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
