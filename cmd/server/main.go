package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	receivingapp "github.com/erp/receiving/internal/application/receiving"
	"github.com/erp/receiving/internal/infrastructure/auth"
	"github.com/erp/receiving/internal/infrastructure/cache"
	"github.com/erp/receiving/internal/infrastructure/config"
	"github.com/erp/receiving/internal/infrastructure/event"
	"github.com/erp/receiving/internal/infrastructure/logger"
	"github.com/erp/receiving/internal/infrastructure/persistence"
	"github.com/erp/receiving/internal/infrastructure/telemetry"
	"github.com/erp/receiving/internal/interfaces/http/handler"
	"github.com/erp/receiving/internal/interfaces/http/middleware"
	"github.com/erp/receiving/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Receiving Allocation API
//	@version		1.0
//	@description	Receiving allocation engine - distributes received purchase order quantities across open sales demand in FIFO order, surplus to stock.

//	@contact.name	API Support
//	@contact.url	https://github.com/erp/receiving
//	@contact.email	support@erp.example.com

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Receiving Engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	purchaseOrderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	allocationRepo := persistence.NewGormAllocationDecisionRepository(db.DB)
	salesOrderLineRepo := persistence.NewGormSalesOrderLineRepository(db.DB)
	inventoryItemRepo := persistence.NewGormInventoryItemRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Per-order advisory locks serialize concurrent writers on the same
	// purchase order. Redis locks coordinate across instances; the local lock
	// is sufficient for single-instance deployments.
	var orderLocker receivingapp.OrderLocker
	if cfg.OrderLock.UseRedis {
		redisLock, err := cache.NewRedisOrderLock(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.OrderLock.TTL)
		if err != nil {
			log.Fatal("Failed to connect to Redis for order locks", zap.Error(err))
		}
		defer func() {
			if err := redisLock.Close(); err != nil {
				log.Error("Error closing Redis order lock client", zap.Error(err))
			}
		}()
		orderLocker = redisLock
		log.Info("Using Redis order locks", zap.Duration("ttl", cfg.OrderLock.TTL))
	} else {
		orderLocker = cache.NewLocalOrderLock()
		log.Info("Using in-process order locks")
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT)
	allocationService := receivingapp.NewAllocationService(
		purchaseOrderRepo,
		allocationRepo,
		salesOrderLineRepo,
		inventoryItemRepo,
		txScope,
		orderLocker,
	)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Allocation lifecycle events feed the audit trail
	auditHandler := receivingapp.NewAuditLogHandler(log)
	eventBus.Subscribe(auditHandler)

	log.Info("Event handlers registered",
		zap.Strings("audit_events", auditHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus into services that publish events
	allocationService.SetEventPublisher(eventBus)

	// Initialize OpenTelemetry tracing (no-op when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry metrics (no-op when disabled)
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database query tracing via otelgorm (if enabled)
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Allocation metrics: counters updated by the service, gauges sampled
	// periodically from the database
	allocationMetrics, err := telemetry.NewAllocationMetrics(telemetry.AllocationMetricsConfig{
		Meter:    meterProvider.Meter("receiving"),
		Logger:   log,
		Provider: telemetry.NewGormReceivingMetricsProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to initialize allocation metrics", zap.Error(err))
	}
	allocationService.SetAllocationMetrics(allocationMetrics)
	if cfg.Telemetry.Enabled {
		allocationMetrics.StartPeriodicCollection(context.Background(), 5*time.Minute)
		defer allocationMetrics.Stop()
	}

	// Initialize HTTP handlers
	receivingHandler := handler.NewReceivingHandler(allocationService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. Tracing - OpenTelemetry spans and HTTP metrics (if enabled)
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Tracing and HTTP metrics (if enabled)
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("receiving-http"), true))
		engine.Use(middleware.Profiling())
	}

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Re-enrich spans with identity available only after JWT validation
	if cfg.Telemetry.Enabled {
		r.Use(middleware.TracingAttributeInjector())
	}

	// Allocation writes get a stricter limit than the global one
	var writeLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.HTTP.WriteRateLimitEnabled {
		writeLimiter := middleware.NewRateLimiter(cfg.HTTP.WriteRateLimitRequests, cfg.HTTP.WriteRateLimitWindow)
		writeLimit = middleware.WriteRateLimit(writeLimiter)
		log.Info("Write rate limiting enabled",
			zap.Int("requests", cfg.HTTP.WriteRateLimitRequests),
			zap.Duration("window", cfg.HTTP.WriteRateLimitWindow),
		)
	}

	// Receiving domain (purchase order allocation)
	receivingRoutes := router.NewDomainGroup("receiving", "/receiving")
	receivingRoutes.GET("/purchase-orders", receivingHandler.List)
	receivingRoutes.GET("/purchase-orders/:id", receivingHandler.GetByID)
	receivingRoutes.GET("/purchase-orders/number/:order_number", receivingHandler.GetByOrderNumber)
	receivingRoutes.GET("/purchase-orders/:id/suggestions", receivingHandler.GetSuggestions)
	receivingRoutes.GET("/purchase-orders/:id/allocations", receivingHandler.GetAllocations)
	receivingRoutes.POST("/purchase-orders/:id/allocations/validate", receivingHandler.ValidateAllocations)
	receivingRoutes.PUT("/purchase-orders/:id/allocations", writeLimit, receivingHandler.SaveAllocations)
	receivingRoutes.POST("/purchase-orders/:id/close", writeLimit, receivingHandler.Close)
	receivingRoutes.POST("/purchase-orders/:id/reopen", writeLimit, receivingHandler.Reopen)

	// Register system routes with swagger-documented handlers
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(receivingRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
