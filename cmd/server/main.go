package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	identityapp "github.com/crm/backend/internal/application/identity"
	"github.com/crm/backend/internal/application/notification"
	reportapp "github.com/crm/backend/internal/application/report"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/printing"
	"github.com/crm/backend/internal/infrastructure/scheduler"
	"github.com/crm/backend/internal/infrastructure/storage"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcrm "github.com/crm/backend/internal/application/crm"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
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

	log.Info("Starting CRM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowQueryThresh)

	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing {
		if err := telemetry.NewDBTracing(cfg.Database.SlowQueryThresh, log).Register(db.DB); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}

	if cfg.Database.AutoMigrateOnBoot {
		if err := migrateUp(db, cfg.Database.MigrationsPath, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	infra, err := newInfrastructure(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize infrastructure", zap.Error(err))
	}

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	roleRepo := persistence.NewGormRoleRepository(db.DB)
	leadRepo := persistence.NewGormLeadRepository(db.DB)
	dealRepo := persistence.NewGormDealRepository(db.DB)
	taskRepo := persistence.NewGormTaskRepository(db.DB)
	noteRepo := persistence.NewGormNoteRepository(db.DB)
	expenseRepo := persistence.NewGormExpenseRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	quotationRepo := persistence.NewGormQuotationRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)

	// Access scopes are resolved from the reporting hierarchy and cached per caller
	resolver, invalidator := infra.scopeResolver(identityapp.NewAccessScopeResolver(userRepo, log))

	// Initialize application services
	dispatcher := notification.NewDispatcher(notificationRepo, log)
	deps := appcrm.Collaborators{
		Users:     userRepo,
		Notifier:  dispatcher,
		Publisher: infra.publisher,
		Logger:    log,
	}
	renderer := printing.NewMarotoRenderer()

	authService := identityapp.NewAuthService(userRepo, roleRepo, infra.jwtService, infra.blacklist, resolver, log)
	userService := identityapp.NewUserService(userRepo, roleRepo, invalidator, log)
	roleService := identityapp.NewRoleService(roleRepo, invalidator, log)
	settingsService := appcrm.NewSettingsService(settingsRepo, log)
	leadService := appcrm.NewLeadService(leadRepo, dealRepo, deps)
	dealService := appcrm.NewDealService(dealRepo, leadRepo, deps)
	taskService := appcrm.NewTaskService(taskRepo, leadRepo, dealRepo, deps)
	noteService := appcrm.NewNoteService(noteRepo, leadRepo, log)
	expenseService := appcrm.NewExpenseService(expenseRepo, deps)
	if cfg.Storage.Enabled() {
		receipts, err := storage.NewS3Storage(cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize receipt storage", zap.Error(err))
		}
		bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 10*time.Second)
		if err := receipts.EnsureBucket(bucketCtx); err != nil {
			log.Warn("Receipt bucket not ready", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		cancelBucket()
		expenseService.SetReceiptStorage(receipts, cfg.Storage.PresignExpiration)
		log.Info("Receipt storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	}
	invoiceService := appcrm.NewInvoiceService(invoiceRepo, dealRepo, settingsService, renderer, deps)
	quotationService := appcrm.NewQuotationService(quotationRepo, invoiceRepo, dealRepo, settingsService, renderer, deps)
	notificationService := notification.NewNotificationService(notificationRepo, log)
	dashboardService := reportapp.NewDashboardService(leadRepo, dealRepo, invoiceRepo, expenseRepo,
		reportapp.NewConverter(cfg.Currency.Base, cfg.Currency.Rates), log)

	// Background jobs
	reminderJob := notification.NewReminderJob(taskRepo, userRepo, dispatcher, infra.mailer, infra.publisher,
		notification.ReminderConfig{LeadTime: cfg.Reminder.LeadTime, BatchSize: cfg.Reminder.BatchSize}, log)
	sched := scheduler.NewScheduler(scheduler.Config{
		Workers:    cfg.Reminder.Workers,
		JobTimeout: cfg.Reminder.Interval,
		RetryDelay: scheduler.DefaultConfig().RetryDelay,
	}, log.Named("scheduler"), reminderJob)
	reminderTrigger := scheduler.NewIntervalTrigger(reminderJob.Name(), cfg.Reminder.Interval, sched, log)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.Reminder.Enabled {
		if err := sched.Start(bgCtx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		if err := reminderTrigger.Start(bgCtx); err != nil {
			log.Fatal("Failed to start task reminders", zap.Error(err))
		}
		log.Info("Task reminders enabled",
			zap.Duration("interval", cfg.Reminder.Interval),
			zap.Duration("lead_time", cfg.Reminder.LeadTime))
	}

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	// Middleware order:
	// 1. RequestID - so every log line and error carries it
	// 2. Tracing - span per request when telemetry is on
	// 3. Metrics - request count and latency per route
	// 4. Logger and Recovery
	// 5. Security headers and CORS
	// 6. Body size limit
	engine.Use(middleware.RequestID())
	if tracerProvider.IsEnabled() {
		engine.Use(middleware.Tracing(tracerProvider.ServiceName()))
	}
	if meterProvider.IsEnabled() {
		httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter("http.server"))
		if err != nil {
			log.Fatal("Failed to create HTTP metrics", zap.Error(err))
		}
		engine.Use(httpMetrics)
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	engine.GET("/health", systemHandler.Health)

	var loginLimiter *middleware.RateLimiter
	if cfg.HTTP.LoginRateLimit > 0 {
		loginLimiter = middleware.NewRateLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
	}

	r := router.NewRouter(engine, router.WithAuth(
		middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
			JWTService:     infra.jwtService,
			TokenBlacklist: infra.blacklist,
			Logger:         log,
		}),
		middleware.AccessScope(resolver),
	))
	router.RegisterAPI(r, router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService, authService),
		Role:         handler.NewRoleHandler(roleService),
		Lead:         handler.NewLeadHandler(leadService),
		Deal:         handler.NewDealHandler(dealService),
		Task:         handler.NewTaskHandler(taskService),
		Note:         handler.NewNoteHandler(noteService),
		Expense:      handler.NewExpenseHandler(expenseService),
		Invoice:      handler.NewInvoiceHandler(invoiceService),
		Quotation:    handler.NewQuotationHandler(quotationService),
		Notification: handler.NewNotificationHandler(notificationService),
		Settings:     handler.NewSettingsHandler(settingsService),
		Dashboard:    handler.NewDashboardHandler(dashboardService),
		System:       systemHandler,
	}, loginLimiter, log)
	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	reminderTrigger.Stop()
	if err := sched.Stop(ctx); err != nil {
		log.Warn("Scheduler did not stop cleanly", zap.Error(err))
	}
	stopBackground()

	infra.close(log)
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down logger provider", zap.Error(err))
	}
}
