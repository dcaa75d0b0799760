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

	appbilling "github.com/tradeledger/backend/internal/application/billing"
	appserial "github.com/tradeledger/backend/internal/application/serial"
	"github.com/tradeledger/backend/internal/domain/inventory"
	"github.com/tradeledger/backend/internal/infrastructure/cache"
	"github.com/tradeledger/backend/internal/infrastructure/config"
	"github.com/tradeledger/backend/internal/infrastructure/logger"
	"github.com/tradeledger/backend/internal/infrastructure/persistence"
	"github.com/tradeledger/backend/internal/infrastructure/telemetry"
	"github.com/tradeledger/backend/internal/interfaces/http/handler"
	"github.com/tradeledger/backend/internal/interfaces/http/middleware"
	"github.com/tradeledger/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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
		_ = log.Sync()
	}()

	log.Info("Starting trade ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	counterRepo := persistence.NewGormCounterRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	salesPersonRepo := persistence.NewGormSalesPersonRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	salesOrderRepo := persistence.NewGormSalesOrderRepository(db.DB)
	loanRequestRepo := persistence.NewGormLoanRequestRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	salesTransactionRepo := persistence.NewGormSalesTransactionRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)
	batchLogRepo := persistence.NewGormBatchLogRepository(db.DB)
	txManager := persistence.NewGormTxManager(db.DB)

	// Balance cache (Redis with in-memory fallback)
	cacheFactory := cache.NewBalanceCacheFactory(cfg.Redis, cache.WithLogger(log))
	balanceCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to create balance cache", zap.Error(err))
	}

	// Services
	ledgerService := inventory.NewLedgerService(stockRepo)
	serialService := appserial.NewService(counterRepo, txManager, cfg.Serial.ReservationTTL)
	balanceService := appbilling.NewBalanceService(
		customerRepo, invoiceRepo, paymentRepo, txManager, balanceCache, log)
	invoiceService := appbilling.NewInvoiceService(
		customerRepo, salesPersonRepo, salesOrderRepo, loanRequestRepo,
		invoiceRepo, batchLogRepo, ledgerService, serialService, balanceService, txManager)
	paymentService := appbilling.NewPaymentService(
		customerRepo, warehouseRepo, invoiceRepo, paymentRepo,
		salesTransactionRepo, batchLogRepo, balanceService, txManager)
	cancellationService := appbilling.NewCancellationService(
		invoiceRepo, paymentRepo, salesTransactionRepo, batchLogRepo,
		ledgerService, serialService, balanceService, txManager)

	// Handlers
	serialHandler := handler.NewSerialHandler(serialService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, cancellationService)
	paymentHandler := handler.NewPaymentHandler(paymentService, cancellationService)
	balanceHandler := handler.NewBalanceHandler(balanceService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning and tenant scope)
	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Logger = log

	serialRoutes := router.NewDomainGroup("serials", "/serials").
		Use(middleware.TenantWithConfig(tenantCfg)).
		POST("/reserve", serialHandler.Reserve).
		POST("/finalize", serialHandler.Finalize).
		POST("/release", serialHandler.Release).
		POST("/next", serialHandler.Next)

	billingRoutes := router.NewDomainGroup("billing", "/billing").
		Use(middleware.TenantWithConfig(tenantCfg)).
		POST("/invoices", invoiceHandler.Create).
		GET("/invoices/:id", invoiceHandler.GetByID).
		POST("/invoices/:id/cancel", invoiceHandler.Cancel).
		POST("/payments", paymentHandler.Create).
		GET("/payments/:id", paymentHandler.GetByID).
		POST("/payments/:id/cancel", paymentHandler.Cancel).
		GET("/customers/:id/balance", balanceHandler.GetBalance).
		POST("/customers/:id/balance/recompute", balanceHandler.Recompute)

	systemRoutes := router.NewDomainGroup("system", "/system").
		GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	r.Register(serialRoutes).
		Register(billingRoutes).
		Register(systemRoutes)

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

// healthHandler reports liveness of the process and its database connection
func healthHandler(db *persistence.Database) gin.HandlerFunc {
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
