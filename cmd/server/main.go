package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/infrastructure/cache"
	"github.com/debtflow/backend/internal/infrastructure/config"
	"github.com/debtflow/backend/internal/infrastructure/logger"
	"github.com/debtflow/backend/internal/infrastructure/persistence"
	"github.com/debtflow/backend/internal/infrastructure/scheduler"
	"github.com/debtflow/backend/internal/interfaces/http/handler"
	"github.com/debtflow/backend/internal/interfaces/http/middleware"
	"github.com/debtflow/backend/internal/interfaces/http/router"
)

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
	defer func() { _ = logger.Sync(log) }()

	log.Info("Starting Debtflow Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.Connect(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	profileRepo := persistence.NewGormCreditProfileRepository(db.DB)
	scoreRepo := persistence.NewGormPaymentScoreRepository(db.DB)

	classifier, err := ledger.NewBehaviorClassifier(ledger.ScoreWeights{
		OnTimeWeight: decimal.NewFromFloat(cfg.Scoring.OnTimeWeight),
		DelayWeight:  decimal.NewFromFloat(cfg.Scoring.DelayWeight),
		MaxDelayDays: cfg.Scoring.MaxDelayDays,
	})
	if err != nil {
		log.Fatal("Invalid scoring weights", zap.Error(err))
	}

	combinePolicy := ledger.InterestCombineSum
	if strings.EqualFold(cfg.Interest.CombinePolicy, "compound") {
		combinePolicy = ledger.InterestCombineCompound
	}
	interestCalc := ledger.NewInterestCalculator(ledger.WithCombinePolicy(combinePolicy))

	// Dashboard cache: Redis when configured, in-memory otherwise
	analyticsCache, err := cache.NewAnalyticsCacheFactory(cfg.Redis, cache.WithLogger(log)).CreateCache()
	if err != nil {
		log.Fatal("Failed to create analytics cache", zap.Error(err))
	}

	// One lock registry across every service mutating the ledger, so batch
	// recalculation serializes with edits to the same customer
	lockRegistry := ledgerapp.NewCustomerLockRegistry()
	txManager := persistence.NewGormTransactionManager(db)

	ledgerService := ledgerapp.NewLedgerService(invoiceRepo, receiptRepo,
		ledgerapp.WithLedgerLogger(log),
		ledgerapp.WithLedgerLockRegistry(lockRegistry),
		ledgerapp.WithLedgerTransactions(txManager),
	)
	analyticsService := ledgerapp.NewAnalyticsService(invoiceRepo, profileRepo, scoreRepo,
		ledgerapp.WithAnalyticsLogger(log),
		ledgerapp.WithInterestCalculator(interestCalc),
		ledgerapp.WithAnalyticsCache(analyticsCache),
	)
	profileService := ledgerapp.NewCreditProfileService(profileRepo,
		ledgerapp.WithCreditProfileLogger(log),
	)
	recalcService := ledgerapp.NewRecalculationService(invoiceRepo, scoreRepo, classifier,
		ledgerapp.WithRecalcLogger(log),
		ledgerapp.WithRecalcBatchSize(cfg.Scheduler.BatchSize),
		ledgerapp.WithRecalcLockRegistry(lockRegistry),
	)

	recalcScheduler, runRepo := startScheduler(cfg, db, recalcService, log)
	if recalcScheduler != nil {
		defer func() {
			if err := recalcScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping recalculation scheduler", zap.Error(err))
			}
		}()
	}

	engine := buildEngine(cfg, db, log)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewInvoiceHandler(ledgerService)).
		Register(handler.NewReceiptHandler(ledgerService)).
		Register(handler.NewCreditProfileHandler(profileService)).
		Register(handler.NewAnalyticsHandler(analyticsService)).
		Register(handler.NewRecalculationHandler(recalcService, recalcScheduler, runRepo)).
		Register(handler.NewSystemHandler(db.DB))
	r.Setup()

	serve(cfg, engine, log)
}

// startScheduler wires the nightly recalculation job when enabled. Both
// return values are nil when the scheduler is off; the recalculation
// handler treats that as "manual trigger only".
func startScheduler(cfg *config.Config, db *persistence.Database, svc *ledgerapp.RecalculationService, log *zap.Logger) (*scheduler.RecalculationCronScheduler, *scheduler.RecalculationRunRepository) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}

	cronHour, cronMinute, err := scheduler.ParseCronSchedule(cfg.Scheduler.DailyCronSchedule)
	if err != nil {
		log.Fatal("Invalid scheduler cron schedule", zap.Error(err))
	}

	runRepo := scheduler.NewRecalculationRunRepository(db.DB)
	sched := scheduler.NewRecalculationCronScheduler(
		scheduler.RecalculationSchedulerConfig{
			Enabled:           true,
			CronHour:          cronHour,
			CronMinute:        cronMinute,
			DailyCronSchedule: cfg.Scheduler.DailyCronSchedule,
			JobTimeout:        cfg.Scheduler.JobTimeout,
		},
		svc,
		runRepo,
		log,
	)
	if err := sched.Start(context.Background()); err != nil {
		log.Fatal("Failed to start recalculation scheduler", zap.Error(err))
	}

	log.Info("Recalculation scheduler started",
		zap.Int("cron_hour", cronHour),
		zap.Int("cron_minute", cronMinute),
		zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
	)
	return sched, runRepo
}

// buildEngine assembles the gin engine with the full middleware stack:
// request ID, panic recovery, request logging, security headers, CORS,
// and body size limiting, plus the unversioned health endpoint.
func buildEngine(cfg *config.Config, db *persistence.Database, log *zap.Logger) *gin.Engine {
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
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", healthHandler(db))

	return engine
}

// serve runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds.
func serve(cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
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

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}

		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			body["pool"] = stats
		}
		c.JSON(http.StatusOK, body)
	}
}
